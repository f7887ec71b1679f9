package callback

import (
	"context"
	"fmt"
	"net/http"
)

// Result is what a controller returns. A StatusCode other than 200 marks a
// business error: the whole Result becomes the envelope's "error".
type Result struct {
	StatusCode int `json:"statusCode"`
	Body       any `json:"body"`
}

// OK returns a successful Result carrying body.
func OK(body any) Result {
	return Result{StatusCode: http.StatusOK, Body: body}
}

// Controller is the business logic invoked once per request.
//
// Expected failures are reported through Result.StatusCode. A returned error
// is a fault; *Failure lets a controller choose the code and message the
// client sees, any other error is reported as an internal error.
//
//go:generate mockgen -package mockcallback -source=controller.go -destination=mock/mockcallback.go Controller
type Controller interface {
	Handle(ctx context.Context, req *Request) (Result, error)
}

// ControllerFunc adapts an ordinary function to Controller.
type ControllerFunc func(ctx context.Context, req *Request) (Result, error)

// Handle calls f.
func (f ControllerFunc) Handle(ctx context.Context, req *Request) (Result, error) {
	return f(ctx, req)
}

// Failure is a fault that knows how it should be reported.
//
// HTTPResponse.StatusCode and HTTPResponse.Body become the envelope's
// error.code and error.message; Body is the message used when
// HTTPResponse.Body is empty: nil, "", false, a numeric zero or NaN. MemoryUsage and ElapsedTime, when set, replace
// the adapter's own measurements for controllers that instrument themselves.
// A Failure without HTTPResponse is reported as an internal error.
type Failure struct {
	HTTPResponse *Result
	Body         any
	MemoryUsage  *int64
	ElapsedTime  *string
	Err          error
}

// Fail returns a Failure reported as {code: statusCode, message: body}.
func Fail(statusCode int, body any) *Failure {
	return &Failure{HTTPResponse: &Result{StatusCode: statusCode, Body: body}}
}

// Error implements error.
func (f *Failure) Error() string {
	switch {
	case f.HTTPResponse != nil && f.Err != nil:
		return fmt.Sprintf("controller failure %d: %v", f.HTTPResponse.StatusCode, f.Err)
	case f.HTTPResponse != nil:
		return fmt.Sprintf("controller failure %d: %v", f.HTTPResponse.StatusCode, f.HTTPResponse.Body)
	case f.Err != nil:
		return "controller failure: " + f.Err.Error()
	default:
		return "controller failure"
	}
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error { return f.Err }

// ErrorBody is the envelope "error" member produced for faults.
type ErrorBody struct {
	Code    int `json:"code"`
	Message any `json:"message"`
}
