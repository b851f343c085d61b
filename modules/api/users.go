package api

import "github.com/dmitrymomot/quill/handler"

func (a *API) getUser(ctx handler.Context, req idRequest) handler.Response {
	u, err := a.blog.GetUser(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(a.urls.userView(u))
}

func (a *API) listUserPosts(ctx handler.Context, req idRequest) handler.Response {
	posts, err := a.blog.ListUserPosts(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	if len(posts) == 0 {
		return handler.Error(errNoPostsForUser)
	}
	return handler.JSON(a.urls.postViews(posts))
}
