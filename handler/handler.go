package handler

import (
	"errors"
	"net/http"
)

// HandlerFunc handles a request whose fields were filled in by binders.
type HandlerFunc[R any] func(ctx Context, req R) Response

// Response renders itself to an http.ResponseWriter. A returned error is
// passed to the ErrorHandler, so nothing may have been written yet.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind parses part of a request into v, a pointer to the request struct.
type Bind func(r *http.Request, v any) error

// ErrorHandler writes the response for bind and render failures.
type ErrorHandler func(ctx Context, err error)

type WrapOption[R any] func(*wrapConfig[R])

type wrapConfig[R any] struct {
	binders      []Bind
	errorHandler ErrorHandler
}

// WithBinders applies binders in order. Each binder only touches fields
// carrying its own tag.
func WithBinders[R any](binders ...Bind) WrapOption[R] {
	return func(c *wrapConfig[R]) { c.binders = append(c.binders, binders...) }
}

func WithErrorHandler[R any](h ErrorHandler) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// defaultErrorHandler writes plain text. Only HTTPError messages are shown.
func defaultErrorHandler(ctx Context, err error) {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		http.Error(ctx.ResponseWriter(), httpErr.Message, httpErr.Code)
		return
	}
	http.Error(ctx.ResponseWriter(), ErrInternalServer.Message, ErrInternalServer.Code)
}

// Wrap adapts h to net/http:
//
//	r.Get("/posts/{id}", handler.Wrap(getPost,
//		handler.WithBinders[GetPostRequest](binder.Path(chi.URLParam)),
//		handler.WithErrorHandler[GetPostRequest](apiErrors),
//	))
func Wrap[R any](h HandlerFunc[R], opts ...WrapOption[R]) http.HandlerFunc {
	cfg := wrapConfig[R]{errorHandler: defaultErrorHandler}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := NewContext(w, r)

		var req R
		for _, bind := range cfg.binders {
			if err := bind(r, &req); err != nil {
				cfg.errorHandler(ctx, err)
				return
			}
		}

		resp := h(ctx, req)
		if resp == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}

type errorResponse struct{ err error }

func (e errorResponse) Render(http.ResponseWriter, *http.Request) error { return e.err }

// Error hands err to the configured ErrorHandler.
func Error(err error) Response {
	return errorResponse{err: err}
}
