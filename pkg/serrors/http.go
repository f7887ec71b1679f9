package serrors

import (
	"errors"
	"net/http"
)

// HTTPStatus maps err to a status code and a client-safe message.
//
// ok is false when err carries no kind with a status. Messages attached with
// With or Wrap are exposed for 4xx kinds only; 5xx kinds use Kind.Public.
func HTTPStatus(err error) (code int, message string, ok bool) {
	var k Kind
	var semantic *Error
	switch {
	case errors.As(err, &semantic) && semantic.Kind() != nil:
		k = semantic.Kind()
	case errors.As(err, &k):
	default:
		return 0, "", false
	}

	if k.Status() == 0 {
		return 0, "", false
	}

	if semantic != nil && semantic.Message() != "" && k.Status() < http.StatusInternalServerError {
		return k.Status(), semantic.Message(), true
	}

	return k.Status(), k.Public(), true
}
