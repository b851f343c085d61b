package api

import (
	"net/http"

	"github.com/dmitrymomot/quill/handler"
	"github.com/dmitrymomot/quill/svc/blog"
)

type createCommentRequest struct {
	PostID int64  `path:"id" json:"-"`
	Body   string `json:"body"`
	// Accepted for compatibility and ignored. Comments carry the token
	// user's e-mail.
	AuthorEmail string `json:"author_email"`
}

type postCommentsResponse struct {
	Comments []commentView `json:"comments"`
}

func (a *API) listPostComments(ctx handler.Context, req idRequest) handler.Response {
	comments, err := a.blog.ListPostComments(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(postCommentsResponse{Comments: a.urls.commentViews(comments)})
}

func (a *API) createComment(ctx handler.Context, req createCommentRequest) handler.Response {
	c, err := a.blog.AddComment(ctx, req.PostID, currentUser(ctx), blog.CommentPayload{Body: req.Body})
	if err != nil {
		return handler.Error(err)
	}
	view := a.urls.commentView(c)
	return handler.JSON(view, handler.WithJSONStatus(http.StatusCreated), handler.WithHeader("Location", view.URL))
}

func (a *API) listComments(ctx handler.Context, req pageRequest) handler.Response {
	page, err := a.blog.ListComments(ctx, req.Page)
	if err != nil {
		return handler.Error(err)
	}
	if len(page.Items) == 0 {
		return handler.Error(errNoComments)
	}
	return handler.JSON(a.urls.commentViews(page.Items))
}

func (a *API) getComment(ctx handler.Context, req idRequest) handler.Response {
	c, err := a.blog.GetComment(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(a.urls.commentView(c))
}
