package handler

import (
	"context"
	"net/http"
)

// Context is the request context handed to every HandlerFunc. It is a
// context.Context backed by the request's own context.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
}

func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return &httpContext{Context: r.Context(), w: w, r: r}
}

type httpContext struct {
	context.Context
	w http.ResponseWriter
	r *http.Request
}

func (c *httpContext) Request() *http.Request              { return c.r }
func (c *httpContext) ResponseWriter() http.ResponseWriter { return c.w }

// ContextKey is a typed key for request-scoped values such as the
// authenticated user.
type ContextKey struct{ name string }

func (k *ContextKey) String() string { return "handler context key " + k.name }

func NewContextKey(name string) *ContextKey {
	return &ContextKey{name: name}
}

// ContextValue returns the value stored under key, or the zero T when it is
// missing or of another type.
func ContextValue[T any](ctx context.Context, key *ContextKey) T {
	v, _ := ctx.Value(key).(T)
	return v
}
