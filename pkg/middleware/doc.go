// Package middleware contains the net/http middlewares and helper handlers
// wrapped around the controller adapter.
//
// Provided middlewares:
//   - WithCORS: Adds CORS headers for the configured origin and handles OPTIONS preflight.
//   - WithLogger: Attaches a request-scoped logger and request ID to the context and logs access info.
//   - WithMetrics: Records Prometheus RED metrics per route pattern.
//   - WithRateLimit: Rejects requests above a token-bucket rate.
//
// Provided helpers:
//   - ClientIP / ClientIPs: Resolve the originating client address and proxy chain.
//   - PprofMux: Returns a ServeMux exposing net/http/pprof handlers.
package middleware
