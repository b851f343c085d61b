package api

import (
	"strconv"
	"time"

	"github.com/dmitrymomot/quill/svc/blog"
)

// urls builds absolute resource URLs.
type urls struct{ base string }

func (u urls) post(id int64) string         { return u.base + "/posts/" + strconv.FormatInt(id, 10) }
func (u urls) postComments(id int64) string { return u.post(id) + "/comments" }
func (u urls) comment(id int64) string      { return u.base + "/comments/" + strconv.FormatInt(id, 10) }
func (u urls) user(id int64) string         { return u.base + "/users/" + strconv.FormatInt(id, 10) }
func (u urls) userPosts(id int64) string    { return u.user(id) + "/posts" }
func (u urls) pageURL(page int) string      { return u.base + "/posts/?page=" + strconv.Itoa(page) }

type postView struct {
	URL           string    `json:"url"`
	Slug          string    `json:"slug"`
	Title         string    `json:"title"`
	Timestamp     time.Time `json:"timestamp"`
	Body          string    `json:"body"`
	BodyHTML      string    `json:"body_html"`
	Author        string    `json:"author"`
	Comments      string    `json:"comments"`
	CommentsCount int       `json:"comments_count"`
}

func (u urls) postView(p blog.Post) postView {
	return postView{
		URL:           u.post(p.ID),
		Slug:          p.Slug,
		Title:         p.Title,
		Timestamp:     p.CreatedAt,
		Body:          p.Body,
		BodyHTML:      p.BodyHTML,
		Author:        u.user(p.AuthorID),
		Comments:      u.postComments(p.ID),
		CommentsCount: p.CommentsCount,
	}
}

func (u urls) postViews(posts []blog.Post) []postView {
	out := make([]postView, 0, len(posts))
	for _, p := range posts {
		out = append(out, u.postView(p))
	}
	return out
}

type postsPage struct {
	Posts []postView `json:"posts"`
	Prev  *string    `json:"prev"`
	Next  *string    `json:"next"`
	Count int        `json:"count"`
}

func (u urls) pageView(page blog.Page[blog.Post]) postsPage {
	out := postsPage{Posts: u.postViews(page.Items), Count: page.Total}
	if page.HasPrev() {
		prev := u.pageURL(page.Number - 1)
		out.Prev = &prev
	}
	if page.HasNext() {
		next := u.pageURL(page.Number + 1)
		out.Next = &next
	}
	return out
}

type commentView struct {
	URL       string    `json:"url"`
	Post      string    `json:"post"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	// Author is the user URL, or the e-mail of an anonymous commenter.
	Author string `json:"author"`
}

func (u urls) commentView(c blog.Comment) commentView {
	author := c.AuthorEmail
	if c.AuthorID != 0 {
		author = u.user(c.AuthorID)
	}
	return commentView{
		URL:       u.comment(c.ID),
		Post:      u.post(c.PostID),
		Body:      c.Body,
		Timestamp: c.CreatedAt,
		Author:    author,
	}
}

func (u urls) commentViews(comments []blog.Comment) []commentView {
	out := make([]commentView, 0, len(comments))
	for _, c := range comments {
		out = append(out, u.commentView(c))
	}
	return out
}

type userView struct {
	URL         string    `json:"url"`
	Username    string    `json:"username"`
	MemberSince time.Time `json:"member_since"`
	LastSeen    time.Time `json:"last_seen"`
	Posts       string    `json:"posts"`
	PostCount   int       `json:"post_count"`
}

func (u urls) userView(user blog.User) userView {
	return userView{
		URL:         u.user(user.ID),
		Username:    user.Name,
		MemberSince: user.MemberSince,
		LastSeen:    user.LastSeen,
		Posts:       u.userPosts(user.ID),
		PostCount:   user.PostCount,
	}
}
