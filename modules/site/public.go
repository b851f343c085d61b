package site

import (
	"errors"

	"github.com/dmitrymomot/quill/handler"
	"github.com/dmitrymomot/quill/pkg/logger"
	"github.com/dmitrymomot/quill/svc/blog"
)

type indexRequest struct {
	Page  int    `query:"page"`
	Query string `query:"q"`
}

func (s *Site) index(ctx handler.Context, req indexRequest) handler.Response {
	posts, err := s.blog.Search(ctx, req.Query, req.Page)
	if err != nil {
		return handler.Error(err)
	}
	widget, err := s.blog.GetWidget(ctx)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Templ(indexPage(indexParams{Posts: posts, Query: req.Query, Widget: widget}))
}

type postRequest struct {
	ID int64 `path:"id"`
}

type slugRequest struct {
	Slug string `path:"slug"`
}

func (s *Site) showPost(ctx handler.Context, req postRequest) handler.Response {
	p, err := s.blog.GetPost(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return s.renderPost(ctx, p)
}

func (s *Site) showPostBySlug(ctx handler.Context, req slugRequest) handler.Response {
	p, err := s.blog.GetPostBySlug(ctx, req.Slug)
	if err != nil {
		return handler.Error(err)
	}
	return s.renderPost(ctx, p)
}

func (s *Site) renderPost(ctx handler.Context, p blog.Post) handler.Response {
	comments, err := s.blog.ListPostComments(ctx, p.ID)
	if err != nil {
		return handler.Error(err)
	}
	widget, err := s.blog.GetWidget(ctx)
	if err != nil {
		return handler.Error(err)
	}

	author, err := s.blog.GetUser(ctx, p.AuthorID)
	if err != nil && !errors.Is(err, blog.ErrNotFound) {
		s.log.WarnContext(ctx, "post author lookup failed", logger.PostID(p.ID), logger.Error(err))
	}

	return handler.Templ(postPage(postParams{
		Post:     p,
		Author:   author,
		Comments: comments,
		Widget:   widget,
	}))
}

type commentRequest struct {
	PostID      int64  `path:"id"`
	Body        string `form:"body"`
	AuthorEmail string `form:"author_email"`
}

// addComment posts an anonymous comment. Datastar requests get the comment
// appended to #comments and a fresh form; plain posts are redirected back.
func (s *Site) addComment(ctx handler.Context, req commentRequest) handler.Response {
	c, err := s.blog.AddComment(ctx, req.PostID, blog.User{}, blog.CommentPayload{
		Body:        req.Body,
		AuthorEmail: req.AuthorEmail,
	})
	if err != nil {
		return handler.Error(err)
	}

	if handler.IsDataStar(ctx.Request()) {
		return handler.TemplMulti(
			handler.Patch(commentItem(c), handler.WithTarget("#comments"), handler.WithPatchMode(handler.PatchAppend)),
			handler.Patch(commentForm(req.PostID)),
		)
	}
	return handler.Redirect(postPath(req.PostID) + "#comment-" + itoa(c.ID))
}
