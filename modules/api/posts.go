package api

import (
	"net/http"

	"github.com/dmitrymomot/quill/handler"
	"github.com/dmitrymomot/quill/svc/blog"
)

type pageRequest struct {
	Page int `query:"page"`
}

type idRequest struct {
	ID int64 `path:"id"`
}

type createPostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type updatePostRequest struct {
	ID    int64  `path:"id" json:"-"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (a *API) listPosts(ctx handler.Context, req pageRequest) handler.Response {
	page, err := a.blog.ListPosts(ctx, req.Page)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(a.urls.pageView(page))
}

func (a *API) getPost(ctx handler.Context, req idRequest) handler.Response {
	p, err := a.blog.GetPost(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(a.urls.postView(p))
}

func (a *API) createPost(ctx handler.Context, req createPostRequest) handler.Response {
	p, err := a.blog.CreatePost(ctx, currentUser(ctx), blog.PostPayload{Title: req.Title, Body: req.Body})
	if err != nil {
		return handler.Error(err)
	}
	view := a.urls.postView(p)
	return handler.JSON(view, handler.WithJSONStatus(http.StatusCreated), handler.WithHeader("Location", view.URL))
}

func (a *API) updatePost(ctx handler.Context, req updatePostRequest) handler.Response {
	p, err := a.blog.UpdatePost(ctx, currentUser(ctx), req.ID, blog.PostPayload{Title: req.Title, Body: req.Body})
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(a.urls.postView(p))
}

func (a *API) deletePost(ctx handler.Context, req idRequest) handler.Response {
	if err := a.blog.DeletePost(ctx, currentUser(ctx), req.ID); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}
