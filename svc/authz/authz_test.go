package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/quill/svc/authz"
)

func TestEmailPolicy(t *testing.T) {
	t.Parallel()

	p := authz.NewEmailPolicy(" Admin@Example.com ")
	admin := authz.Subject{ID: 1, Email: "admin@example.COM"}
	john := authz.Subject{ID: 2, Email: "john@example.com"}

	assert.True(t, p.IsAdmin(admin))
	assert.False(t, p.IsAdmin(john))

	assert.True(t, p.CanEditPost(john, 2))
	assert.False(t, p.CanEditPost(john, 1))
	assert.True(t, p.CanEditPost(admin, 2))
	assert.False(t, p.CanEditPost(authz.Subject{}, 0))
}

func TestEmailPolicyWithoutAdmin(t *testing.T) {
	t.Parallel()

	p := authz.NewEmailPolicy("")
	assert.False(t, p.IsAdmin(authz.Subject{ID: 1, Email: ""}))
	assert.False(t, p.IsAdmin(authz.Subject{ID: 1, Email: "a@b.co"}))
}
