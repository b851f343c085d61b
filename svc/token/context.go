package token

import (
	"context"
	"log/slog"
)

type identityContextKey struct{}

// WithIdentity stores a verified identity in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}

// LogExtractor adds user_id to log records emitted with an authenticated
// request context.
func LogExtractor(ctx context.Context) (slog.Attr, bool) {
	if id, ok := IdentityFromContext(ctx); ok {
		return slog.Int64("user_id", id.UserID), true
	}
	return slog.Attr{}, false
}
