package api

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/quill/handler"
	"github.com/dmitrymomot/quill/svc/blog"
	"github.com/dmitrymomot/quill/svc/token"
)

var (
	errCouldNotVerify  = handler.NewHTTPError(http.StatusUnauthorized, "Could not verify.")
	errTokenMissing    = handler.NewHTTPError(http.StatusUnauthorized, "Token is missing.")
	errTokenExpired    = handler.NewHTTPError(http.StatusUnauthorized, "Token is expired.")
	errTokenInvalid    = handler.NewHTTPError(http.StatusForbidden, "Token is invalid.")
	errTokenNotExpired = handler.NewHTTPError(http.StatusBadRequest, "Token is not expired.")
	errForbidden       = handler.NewHTTPError(http.StatusForbidden, "Insufficient permissions.")
	errNoComments      = handler.NewHTTPError(http.StatusNotFound, "No comments yet.")
	errNoPostsForUser  = handler.NewHTTPError(http.StatusNotFound, "No posts for that user.")
	errRefreshNoToken  = handler.NewHTTPError(http.StatusBadRequest, errTokenMissing.Message)
)

// classify maps domain errors to API responses.
func classify(err error) (handler.HTTPError, bool) {
	var verr *blog.ValidationError
	switch {
	case errors.As(err, &verr):
		return handler.NewHTTPError(http.StatusBadRequest, verr.Message), true
	case errors.Is(err, token.ErrUnauthorized):
		return errCouldNotVerify, true
	case errors.Is(err, token.ErrTokenMissing):
		return errTokenMissing, true
	case errors.Is(err, token.ErrTokenExpired):
		return errTokenExpired, true
	case errors.Is(err, token.ErrTokenInvalid):
		return errTokenInvalid, true
	case errors.Is(err, token.ErrTokenNotExpired):
		return errTokenNotExpired, true
	case errors.Is(err, blog.ErrForbidden):
		return errForbidden, true
	case errors.Is(err, blog.ErrNotFound):
		return handler.ErrNotFound, true
	}
	return handler.HTTPError{}, false
}
