// Package callback adapts framework-agnostic controllers to net/http.
//
// An Adapter runs one controller call per request:
//
//  1. the *http.Request is projected into a Request,
//  2. a stopwatch and a heap baseline are started,
//  3. the Controller is called,
//  4. the outcome is folded into an Envelope and written with status 200.
//
// Every request produces exactly one Envelope. Business failures (a Result
// whose StatusCode is not 200) and faults (a returned error or a panic) are
// reported in the envelope's "error" member; the transport status is always
// 200 and clients inspect "error" and "data" to tell outcomes apart.
//
// A minimal setup:
//
//	a, err := callback.New(callback.Options{APIVersion: "service-v1.2.0"})
//	if err != nil {
//		return err
//	}
//	mux.Handle("GET /v1/users/{id}", a.Handler(users.Get))
package callback
