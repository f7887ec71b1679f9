// Package v1handler holds the built-in v1 controllers. They are plain
// callback.Controller implementations and know nothing about net/http.
package v1handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"callback/pkg/callback"
	"callback/pkg/serrors"

	"go.uber.org/zap"
)

// Deps are the collaborators of the v1 controllers.
type Deps struct {
	// APIVersion is echoed by Ping.
	APIVersion string
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

type Handler struct {
	deps Deps
}

func New(deps Deps) *Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Handler{deps: deps}
}

// PingResponse is the body returned by Ping.
type PingResponse struct {
	APIVersion string    `json:"apiVersion"`
	Time       time.Time `json:"time"`
}

// Ping reports the running version and the server time.
func (h Handler) Ping(_ context.Context, _ *callback.Request) (callback.Result, error) {
	return callback.OK(PingResponse{APIVersion: h.deps.APIVersion, Time: h.deps.Now().UTC()}), nil
}

// WhoAmI returns the authenticated user, or a 401 business error for
// anonymous requests.
func (h Handler) WhoAmI(_ context.Context, req *callback.Request) (callback.Result, error) {
	if req.AuthenticatedUser == nil {
		return callback.Result{
			StatusCode: http.StatusUnauthorized,
			Body:       map[string]string{"reason": "authentication required"},
		}, nil
	}

	return callback.OK(req.AuthenticatedUser), nil
}

// Echo returns the request it received, without credentials. Query parameters steer the outcome
// so clients can exercise every envelope shape:
//   - status=<code>: business error with that status code
//   - fail=<code>: controller failure with that code
//   - panic=1: controller panic
func (h Handler) Echo(_ context.Context, req *callback.Request) (callback.Result, error) {
	req.Logger.Debug("echo", zap.String("name", req.RouteParams["name"]))

	echo := *req
	echo.Headers = req.Headers.Clone()
	echo.Headers.Del("Authorization")

	if v := req.QueryParams.Get("status"); v != "" {
		code, err := strconv.Atoi(v)
		if err != nil {
			return callback.Result{}, serrors.Wrap(serrors.ErrBadRequest, err, "status must be a number")
		}

		return callback.Result{StatusCode: code, Body: &echo}, nil
	}

	if v := req.QueryParams.Get("fail"); v != "" {
		code, err := strconv.Atoi(v)
		if err != nil {
			return callback.Result{}, serrors.Wrap(serrors.ErrBadRequest, err, "fail must be a number")
		}

		return callback.Result{}, callback.Fail(code, "echo failure requested")
	}

	if req.QueryParams.Get("panic") != "" {
		panic("echo panic requested")
	}

	return callback.OK(&echo), nil
}
