package main

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/quill/pkg/logger"
	"github.com/dmitrymomot/quill/svc/authz"
	"github.com/dmitrymomot/quill/svc/blog"
)

func newTestService() *blog.Service {
	return blog.New(blog.NewMemoryStorage(),
		blog.WithHashCost(bcrypt.MinCost),
		blog.WithPolicy(authz.NewEmailPolicy("admin@example.com")),
	)
}

func TestEmbeddedFixtures(t *testing.T) {
	t.Parallel()

	f, err := loadFixtures(fixturesYAML)
	require.NoError(t, err)
	assert.Equal(t, "About", f.Widget.Title)
	require.NotEmpty(t, f.Posts)
	for _, p := range f.Posts {
		assert.NotEmpty(t, p.Title)
		assert.NotEmpty(t, p.Body)
		for _, c := range p.Comments {
			assert.Contains(t, c.Email, "@")
		}
	}
}

func TestLoadFixturesInvalid(t *testing.T) {
	t.Parallel()

	_, err := loadFixtures([]byte("posts: [unterminated"))
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService()

	admin, err := ensureAdmin(ctx, svc, "admin@example.com", "admin", "secret")
	require.NoError(t, err)
	assert.True(t, svc.IsAdmin(admin))

	f := fixtures{
		Widget: blog.WidgetPayload{Title: "About", Body: "see www.example.com"},
		Posts: []fixturePost{
			{Title: "Slugs", Body: "first", Comments: []fixtureComment{
				{Email: "reader@example.com", Body: "Neat."},
				{Email: "critic@example.com", Body: "Meh."},
			}},
			{Title: "Slugs", Body: "second"},
		},
	}
	require.NoError(t, seed(ctx, svc, admin, f))

	posts, err := svc.ListPosts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, posts.Items, 2)

	second, first := posts.Items[0], posts.Items[1]
	assert.Equal(t, "slugs", first.Slug)
	assert.Equal(t, "slugs-"+itoa(second.ID), second.Slug)
	assert.Equal(t, admin.ID, first.AuthorID)

	comments, err := svc.ListPostComments(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, int64(0), comments[0].AuthorID)
	assert.Equal(t, "reader@example.com", comments[0].AuthorEmail)

	w, err := svc.GetWidget(ctx)
	require.NoError(t, err)
	assert.Equal(t, "About", w.Title)
	assert.Contains(t, w.BodyHTML, `href="http://www.example.com"`)

	t.Run("second run is skipped", func(t *testing.T) {
		assert.ErrorIs(t, seed(ctx, svc, admin, f), ErrAlreadySeeded)

		posts, err := svc.ListPosts(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, posts.Total)
	})

	t.Run("admin is reused", func(t *testing.T) {
		again, err := ensureAdmin(ctx, svc, "ADMIN@example.com", "admin", "other")
		require.NoError(t, err)
		assert.Equal(t, admin.ID, again.ID)
	})
}

func TestSeedEmbeddedFixtures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService()

	f, err := loadFixtures(fixturesYAML)
	require.NoError(t, err)
	admin, err := ensureAdmin(ctx, svc, "admin@example.com", "admin", "secret")
	require.NoError(t, err)
	require.NoError(t, seed(ctx, svc, admin, f))

	posts, err := svc.ListPosts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, len(f.Posts), posts.Total)
}

func TestOpenStorage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		a := &app{log: logger.Discard()}
		require.NoError(t, a.openStorage(ctx, storageMemory))
		assert.NotNil(t, a.store)
		assert.Empty(t, a.checks)
	})

	t.Run("unknown", func(t *testing.T) {
		a := &app{log: logger.Discard()}
		err := a.openStorage(ctx, "mysql")
		assert.ErrorIs(t, err, ErrUnknownStorage)
		assert.Nil(t, a.store)
	})
}

func TestAppClose(t *testing.T) {
	t.Parallel()

	var order []int
	a := &app{log: logger.Discard()}
	a.onClose(func() { order = append(order, 1) })
	a.onClose(func() { order = append(order, 2) })
	a.close()
	a.close()

	assert.Equal(t, []int{2, 1}, order)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
