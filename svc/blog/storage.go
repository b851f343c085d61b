package blog

import (
	"context"
	"time"
)

// PostFilter narrows ListPosts. Zero fields do not filter.
type PostFilter struct {
	AuthorID int64
	// Query matches a case-insensitive substring of title or body.
	Query string
	ListOptions
}

// CommentFilter narrows ListComments. Comments of one post are listed
// oldest first, all comments newest first.
type CommentFilter struct {
	PostID          int64
	IncludeDisabled bool
	ListOptions
}

// Storage persists the blog. Lookups of missing rows return ErrNotFound.
// List methods return the page and the total number of matching rows.
type Storage interface {
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id int64) (User, error)
	// UserByLogin matches the e-mail case-insensitively or the exact name.
	UserByLogin(ctx context.Context, login string) (User, error)
	UpdateUser(ctx context.Context, u User) error
	TouchUser(ctx context.Context, id int64, at time.Time) error

	// CreatePost inserts p without a slug and sets p.ID.
	CreatePost(ctx context.Context, p *Post) error
	SetPostSlug(ctx context.Context, id int64, slug string) error
	PostByID(ctx context.Context, id int64) (Post, error)
	PostBySlug(ctx context.Context, slug string) (Post, error)
	// PostOwnerBySlug reports which post holds slug.
	PostOwnerBySlug(ctx context.Context, slug string) (id int64, found bool, err error)
	UpdatePost(ctx context.Context, p Post) error
	DeletePost(ctx context.Context, id int64) error
	ListPosts(ctx context.Context, f PostFilter) ([]Post, int, error)

	CreateComment(ctx context.Context, c *Comment) error
	CommentByID(ctx context.Context, id int64) (Comment, error)
	SetCommentDisabled(ctx context.Context, id int64, disabled bool) error
	ListComments(ctx context.Context, f CommentFilter) ([]Comment, int, error)

	Widget(ctx context.Context) (Widget, error)
	SaveWidget(ctx context.Context, w Widget) error

	// InTx runs fn against a transactional view. fn's error rolls back.
	InTx(ctx context.Context, fn func(tx Storage) error) error
}
