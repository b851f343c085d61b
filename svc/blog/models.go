package blog

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/quill/pkg/richtext"
	"github.com/dmitrymomot/quill/pkg/validator"
)

const (
	MaxTitleLength = 128
	MaxFieldLength = 64
)

type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Location     string
	AboutMe      string
	AboutMeHTML  string
	PhotoURL     string
	MemberSince  time.Time
	LastSeen     time.Time
	PostCount    int
}

// SetAboutMe stores the Markdown source and its rendered HTML together.
func (u *User) SetAboutMe(markdown string) {
	u.AboutMe = markdown
	u.AboutMeHTML = richtext.Render(markdown)
}

type Post struct {
	ID            int64
	Title         string
	Slug          string
	Body          string
	BodyHTML      string
	AuthorID      int64
	CreatedAt     time.Time
	CommentsCount int
}

// SetBody stores the Markdown source and its rendered HTML together.
func (p *Post) SetBody(markdown string) {
	p.Body = markdown
	p.BodyHTML = richtext.Render(markdown)
}

type Comment struct {
	ID          int64
	Body        string
	CreatedAt   time.Time
	Disabled    bool
	AuthorEmail string
	AvatarURL   string
	PostID      int64
	AuthorID    int64 // 0 for anonymous comments
}

// Widget is the single side widget shown on public pages.
type Widget struct {
	Title        string
	Body         string
	BodyHTML     string
	LastModified time.Time
}

// SetBody stores the Markdown source and its rendered HTML together.
func (w *Widget) SetBody(markdown string) {
	w.Body = markdown
	w.BodyHTML = richtext.Render(markdown)
}

// PostPayload is the writable part of a post.
type PostPayload struct {
	Title string `json:"title" form:"title"`
	Body  string `json:"body" form:"body"`
}

// CommentPayload is the writable part of a comment.
type CommentPayload struct {
	Body        string `json:"body" form:"body"`
	AuthorEmail string `json:"author_email" form:"author_email"`
}

// PostFromPayload builds an unsaved post. Title and body are required.
func PostFromPayload(in PostPayload) (Post, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || strings.TrimSpace(in.Body) == "" {
		return Post{}, &ValidationError{Message: "Post does not have a title or body"}
	}
	if err := validator.Apply(validator.MaxLen("title", title, MaxTitleLength)); err != nil {
		return Post{}, invalid(fmt.Sprintf("Post title is longer than %d characters", MaxTitleLength), err)
	}

	p := Post{Title: title}
	p.SetBody(in.Body)
	return p, nil
}

// CommentFromPayload builds an unsaved comment. Body and a valid author
// e-mail are required.
func CommentFromPayload(in CommentPayload) (Comment, error) {
	email := strings.TrimSpace(in.AuthorEmail)
	if strings.TrimSpace(in.Body) == "" || email == "" {
		return Comment{}, &ValidationError{Message: "Comment does not have a body or author email"}
	}
	if err := validator.Apply(
		validator.ValidEmail("author_email", email),
		validator.MaxLen("author_email", email, MaxFieldLength),
	); err != nil {
		return Comment{}, invalid("Comment author email is not valid", err)
	}

	return Comment{
		Body:        in.Body,
		AuthorEmail: email,
		AvatarURL:   GravatarURL(email),
	}, nil
}

// GravatarURL returns the 64px identicon avatar for email.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "http://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=64&d=identicon&r=g"
}

// Page is one page of a listing. Number starts at 1.
type Page[T any] struct {
	Items  []T
	Number int
	Size   int
	Total  int
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }
func (p Page[T]) HasNext() bool { return p.Number*p.Size < p.Total }

// Pages returns the number of pages, at least 1.
func (p Page[T]) Pages() int {
	if p.Size <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.Size - 1) / p.Size
}

// ListOptions selects a slice of a listing.
type ListOptions struct {
	Offset int
	Limit  int
}

func pageOptions(number, size int) (int, ListOptions) {
	if number < 1 {
		number = 1
	}
	return number, ListOptions{Offset: (number - 1) * size, Limit: size}
}
