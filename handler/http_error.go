package handler

import (
	"errors"
	"net/http"
)

// HTTPError is an error carrying its own status code and public message.
type HTTPError struct {
	Code    int
	Message string
}

func (e HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates an HTTPError. An empty message defaults to the
// status text.
func NewHTTPError(code int, message string) HTTPError {
	if message == "" {
		message = http.StatusText(code)
	}
	return HTTPError{Code: code, Message: message}
}

var (
	ErrBadRequest       = NewHTTPError(http.StatusBadRequest, "Bad request.")
	ErrUnauthorized     = NewHTTPError(http.StatusUnauthorized, "Unauthorized.")
	ErrForbidden        = NewHTTPError(http.StatusForbidden, "Forbidden.")
	ErrNotFound         = NewHTTPError(http.StatusNotFound, "Not found.")
	ErrTooManyRequests  = NewHTTPError(http.StatusTooManyRequests, "Too many requests.")
	ErrInternalServer   = NewHTTPError(http.StatusInternalServerError, "Internal server error.")
	ErrMethodNotAllowed = NewHTTPError(http.StatusMethodNotAllowed, "Method not allowed.")
)

// ErrNilResponse is reported when a HandlerFunc returns nil.
var ErrNilResponse = errors.New("handler: nil response")
