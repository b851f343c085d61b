// Package api is the token-authenticated JSON API, mounted at Prefix.
//
// Clients obtain a 30 minute token from /token with HTTP Basic credentials
// and pass it as ?token= on every protected request. Once it has expired,
// /refresh_token trades it plus fresh credentials for an 8 hour token.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/quill/handler"
	"github.com/dmitrymomot/quill/pkg/binder"
	"github.com/dmitrymomot/quill/pkg/clientip"
	"github.com/dmitrymomot/quill/pkg/logger"
	"github.com/dmitrymomot/quill/pkg/ratelimiter"
	"github.com/dmitrymomot/quill/svc/blog"
	"github.com/dmitrymomot/quill/svc/token"
)

// Prefix is where the API is mounted. Resource URLs in responses include it.
const Prefix = "/api/v1"

// Option configures an API.
type Option func(*API)

// WithRateLimiter limits the token endpoints per client IP.
func WithRateLimiter(l ratelimiter.RateLimiter) Option {
	return func(a *API) { a.limiter = l }
}

func WithLogger(log *slog.Logger) Option {
	return func(a *API) {
		if log != nil {
			a.log = log
		}
	}
}

// API serves the JSON API.
type API struct {
	blog    *blog.Service
	tokens  *token.Service
	urls    urls
	limiter ratelimiter.RateLimiter
	log     *slog.Logger
	errors  handler.ErrorHandler
}

// New creates the API. baseURL is the public origin used to build absolute
// resource URLs, e.g. "https://blog.example.com".
func New(svc *blog.Service, tokens *token.Service, baseURL string, opts ...Option) *API {
	a := &API{
		blog:   svc,
		tokens: tokens,
		urls:   urls{base: strings.TrimRight(baseURL, "/") + Prefix},
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(logger.Component("api"))
	a.errors = handler.NewJSONErrorHandler(a.log, classify)
	return a
}

// Handle returns the API router.
func (a *API) Handle() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.fail(w, r, handler.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.fail(w, r, handler.ErrMethodNotAllowed)
	})

	r.Group(func(r chi.Router) {
		if a.limiter != nil {
			r.Use(ratelimiter.Middleware(a.limiter, clientip.Get,
				ratelimiter.WithLimitedHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					a.fail(w, r, handler.ErrTooManyRequests)
				})),
				ratelimiter.WithErrorHandler(a.fail),
			))
		}
		r.Get("/token", wrap(a, a.getToken))
		r.Get("/refresh_token", wrap(a, a.refreshToken))
	})

	r.Get("/comments/", wrap(a, a.listComments, binder.Query()))
	r.Get("/comments/{id}", wrap(a, a.getComment, binder.Path(chi.URLParam)))

	r.Group(func(r chi.Router) {
		r.Use(a.requireToken)

		r.Get("/posts/", wrap(a, a.listPosts, binder.Query()))
		r.Post("/posts/", wrap(a, a.createPost, binder.JSON()))
		r.Get("/posts/{id}", wrap(a, a.getPost, binder.Path(chi.URLParam)))
		r.Put("/posts/{id}", wrap(a, a.updatePost, binder.Path(chi.URLParam), binder.JSON()))
		r.Delete("/posts/{id}", wrap(a, a.deletePost, binder.Path(chi.URLParam)))
		r.Get("/posts/{id}/comments", wrap(a, a.listPostComments, binder.Path(chi.URLParam)))
		r.Post("/posts/{id}/comments", wrap(a, a.createComment, binder.Path(chi.URLParam), binder.JSON()))

		r.Get("/users/{id}", wrap(a, a.getUser, binder.Path(chi.URLParam)))
		r.Get("/users/{id}/posts", wrap(a, a.listUserPosts, binder.Path(chi.URLParam)))
	})

	return r
}

func wrap[R any](a *API, h handler.HandlerFunc[R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[R](binders...),
		handler.WithErrorHandler[R](a.errors),
	)
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	a.errors(handler.NewContext(w, r), err)
}
