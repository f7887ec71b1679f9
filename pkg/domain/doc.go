// Package domain contains the core domain entities shared across packages.
// They are free of transport and infrastructure concerns so controllers can
// depend on them without importing net/http.
package domain
