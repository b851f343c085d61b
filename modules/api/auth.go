package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrymomot/quill/handler"
	"github.com/dmitrymomot/quill/pkg/jwt"
	"github.com/dmitrymomot/quill/pkg/logger"
	"github.com/dmitrymomot/quill/svc/blog"
	"github.com/dmitrymomot/quill/svc/token"
)

var (
	userKey = handler.NewContextKey("api_user")

	// ?token= as the API documents it, or a bearer header.
	extractToken = jwt.ChainExtractors(jwt.QueryTokenExtractor("token"), jwt.BearerTokenExtractor)
)

// currentUser returns the user the request token belongs to.
func currentUser(ctx context.Context) blog.User {
	return handler.ContextValue[blog.User](ctx, userKey)
}

// requireToken verifies the request token, loads its user and records the
// visit. The identity is stored for logging.
func (a *API) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		raw, _ := extractToken(r)

		id, err := a.tokens.Verify(ctx, raw)
		if err != nil {
			a.fail(w, r, err)
			return
		}

		user, err := a.blog.GetUser(ctx, id.UserID)
		if errors.Is(err, blog.ErrNotFound) {
			// The account was removed after the token was issued.
			err = token.ErrTokenInvalid
		}
		if err != nil {
			a.fail(w, r, err)
			return
		}

		ctx = token.WithIdentity(ctx, id)
		if err := a.blog.Ping(ctx, user.ID); err != nil {
			a.log.WarnContext(ctx, "failed to record last seen", logger.Error(err))
		}

		ctx = context.WithValue(ctx, userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type tokenRequest struct{}

type tokenResponse struct {
	Token string `json:"token"`
}

func (a *API) getToken(ctx handler.Context, _ tokenRequest) handler.Response {
	login, password, ok := ctx.Request().BasicAuth()
	if !ok {
		return handler.Error(token.ErrUnauthorized)
	}

	t, err := a.tokens.IssueAccess(ctx, login, password)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(tokenResponse{Token: t})
}

func (a *API) refreshToken(ctx handler.Context, _ tokenRequest) handler.Response {
	login, password, ok := ctx.Request().BasicAuth()
	if !ok {
		return handler.Error(token.ErrUnauthorized)
	}
	presented, _ := extractToken(ctx.Request())

	t, err := a.tokens.IssueRefresh(ctx, login, password, presented)
	switch {
	case errors.Is(err, token.ErrTokenMissing):
		return handler.Error(errRefreshNoToken)
	case err != nil:
		return handler.Error(err)
	}
	return handler.JSON(tokenResponse{Token: t})
}
