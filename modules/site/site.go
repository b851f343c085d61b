// Package site serves the public blog pages and the admin area.
//
// Pages are server-rendered. The comment form and comment moderation are
// progressively enhanced with datastar: datastar requests get element
// patches, plain form posts get redirects.
package site

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/quill/handler"
	"github.com/dmitrymomot/quill/pkg/binder"
	"github.com/dmitrymomot/quill/pkg/file"
	"github.com/dmitrymomot/quill/pkg/logger"
	"github.com/dmitrymomot/quill/svc/blog"
	"github.com/dmitrymomot/quill/svc/token"
)

const (
	DefaultMaxPhotoBytes = 2 << 20
	photoDir             = "avatars"
)

var (
	errAuthRequired     = handler.NewHTTPError(http.StatusUnauthorized, "Authentication required.")
	errAdminOnly        = handler.NewHTTPError(http.StatusForbidden, "Administrator access required.")
	errForbidden        = handler.NewHTTPError(http.StatusForbidden, "Insufficient permissions.")
	errSearchFailed     = handler.NewHTTPError(http.StatusServiceUnavailable, "Search is unavailable, try again later.")
	errUploadsDisabled  = handler.NewHTTPError(http.StatusBadRequest, "Photo uploads are disabled.")
	errPhotoNotAccepted = handler.NewHTTPError(http.StatusBadRequest, "Photo must be a JPEG, PNG, GIF or WebP image within the size limit.")
)

// Option configures a Site.
type Option func(*Site)

func WithLogger(log *slog.Logger) Option {
	return func(s *Site) {
		if log != nil {
			s.log = log
		}
	}
}

// WithFileStorage enables profile photo uploads.
func WithFileStorage(fs file.Storage, maxBytes int64) Option {
	return func(s *Site) {
		s.files = fs
		if maxBytes > 0 {
			s.maxPhoto = maxBytes
		}
	}
}

// Site serves HTML pages.
type Site struct {
	blog     *blog.Service
	auth     token.Authenticator
	files    file.Storage
	maxPhoto int64
	log      *slog.Logger
	errors   handler.ErrorHandler
}

// New creates the site. auth verifies admin Basic credentials.
func New(svc *blog.Service, auth token.Authenticator, opts ...Option) *Site {
	s := &Site{
		blog:     svc,
		auth:     auth,
		maxPhoto: DefaultMaxPhotoBytes,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("site"))
	s.errors = handler.NewErrorHandler(s.log, handler.ErrorHandlerConfig{
		ErrorPage:  errorPage,
		ErrorToast: errorToast,
		Classifier: classify,
	})
	return s
}

// Handle returns the site router.
func (s *Site) Handle() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, handler.ErrNotFound)
	})

	r.Get("/", wrap(s, s.index, binder.Query()))
	r.Get("/post/{id}", wrap(s, s.showPost, binder.Path(chi.URLParam)))
	r.Get("/p/{slug}", wrap(s, s.showPostBySlug, binder.Path(chi.URLParam)))
	r.Post("/post/{id}/comments", wrap(s, s.addComment, binder.Path(chi.URLParam), binder.Form()))

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)

		r.Get("/", wrap(s, s.adminPosts, binder.Query()))
		r.Get("/posts/new", wrap(s, s.newPostForm))
		r.Post("/posts/new", wrap(s, s.createPost, binder.Form()))
		r.Get("/posts/{id}/edit", wrap(s, s.editPostForm, binder.Path(chi.URLParam)))
		r.Post("/posts/{id}/edit", wrap(s, s.updatePost, binder.Path(chi.URLParam), binder.Form()))
		r.Post("/posts/{id}/delete", wrap(s, s.deletePost, binder.Path(chi.URLParam)))

		r.Get("/comments", wrap(s, s.adminComments, binder.Query()))
		r.Post("/comments/{id}/{action}", wrap(s, s.moderateComment, binder.Path(chi.URLParam)))

		r.Get("/profile", wrap(s, s.profileForm))
		r.Post("/profile", wrap(s, s.updateProfile, binder.Form()))

		r.Get("/widget", wrap(s, s.widgetForm))
		r.Post("/widget", wrap(s, s.updateWidget, binder.Form()))
	})

	return r
}

func wrap[R any](s *Site, h handler.HandlerFunc[R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[R](binders...),
		handler.WithErrorHandler[R](s.errors),
	)
}

func (s *Site) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.errors(handler.NewContext(w, r), err)
}

func classify(err error) (handler.HTTPError, bool) {
	var verr *blog.ValidationError
	switch {
	case errors.As(err, &verr):
		return handler.NewHTTPError(http.StatusBadRequest, verr.Message), true
	case errors.Is(err, blog.ErrForbidden):
		return errForbidden, true
	case errors.Is(err, blog.ErrNotFound):
		return handler.ErrNotFound, true
	case errors.Is(err, blog.ErrSearchFailed):
		return errSearchFailed, true
	case errors.Is(err, file.ErrFileTooLarge), errors.Is(err, file.ErrMIMETypeNotAllowed):
		return errPhotoNotAccepted, true
	}
	return handler.HTTPError{}, false
}

// asValidation unwraps a validation failure.
func asValidation(err error) (*blog.ValidationError, bool) {
	var verr *blog.ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
