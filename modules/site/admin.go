package site

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/dmitrymomot/quill/handler"
	"github.com/dmitrymomot/quill/pkg/file"
	"github.com/dmitrymomot/quill/pkg/logger"
	"github.com/dmitrymomot/quill/svc/blog"
	"github.com/dmitrymomot/quill/svc/token"
)

var adminKey = handler.NewContextKey("site_admin")

func currentAdmin(ctx context.Context) blog.User {
	return handler.ContextValue[blog.User](ctx, adminKey)
}

// requireAdmin authenticates HTTP Basic credentials and admits only the
// site admin.
func (s *Site) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		login, password, ok := r.BasicAuth()
		if !ok {
			s.challenge(w, r)
			return
		}
		id, err := s.auth.Authenticate(ctx, login, password)
		if errors.Is(err, token.ErrUnauthorized) {
			s.challenge(w, r)
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}

		user, err := s.blog.GetUser(ctx, id.UserID)
		if errors.Is(err, blog.ErrNotFound) {
			s.challenge(w, r)
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if !s.blog.IsAdmin(user) {
			s.log.WarnContext(ctx, "admin access denied", logger.UserID(user.ID))
			s.fail(w, r, errAdminOnly)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, adminKey, user)))
	})
}

func (s *Site) challenge(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Basic realm="quill admin", charset="UTF-8"`)
	s.fail(w, r, errAuthRequired)
}

// Posts

type adminPageRequest struct {
	Page int `query:"page"`
}

func (s *Site) adminPosts(ctx handler.Context, req adminPageRequest) handler.Response {
	page, err := s.blog.ListPosts(ctx, req.Page)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Templ(adminPostsPage(page))
}

type noRequest struct{}

type postFormRequest struct {
	ID    int64  `path:"id"`
	Title string `form:"title"`
	Body  string `form:"body"`
}

func (s *Site) newPostForm(_ handler.Context, _ noRequest) handler.Response {
	return handler.Templ(postFormPage(postFormParams{Action: "/admin/posts/new"}))
}

func (s *Site) createPost(ctx handler.Context, req postFormRequest) handler.Response {
	in := blog.PostPayload{Title: req.Title, Body: req.Body}
	if _, err := s.blog.CreatePost(ctx, currentAdmin(ctx), in); err != nil {
		return s.postFormError("/admin/posts/new", in, err)
	}
	return handler.Redirect("/admin/")
}

func (s *Site) editPostForm(ctx handler.Context, req postFormRequest) handler.Response {
	p, err := s.blog.GetPost(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Templ(postFormPage(postFormParams{
		Action: editPath(p.ID),
		Title:  p.Title,
		Body:   p.Body,
	}))
}

func (s *Site) updatePost(ctx handler.Context, req postFormRequest) handler.Response {
	in := blog.PostPayload{Title: req.Title, Body: req.Body}
	if _, err := s.blog.UpdatePost(ctx, currentAdmin(ctx), req.ID, in); err != nil {
		return s.postFormError(editPath(req.ID), in, err)
	}
	return handler.Redirect("/admin/")
}

func (s *Site) deletePost(ctx handler.Context, req postFormRequest) handler.Response {
	if err := s.blog.DeletePost(ctx, currentAdmin(ctx), req.ID); err != nil {
		return handler.Error(err)
	}
	return handler.Redirect("/admin/")
}

func editPath(id int64) string { return "/admin/posts/" + itoa(id) + "/edit" }

// postFormError re-renders the form for validation failures.
func (s *Site) postFormError(action string, in blog.PostPayload, err error) handler.Response {
	verr, ok := asValidation(err)
	if !ok {
		return handler.Error(err)
	}
	return handler.TemplStatus(http.StatusBadRequest, postFormPage(postFormParams{
		Action: action,
		Title:  in.Title,
		Body:   in.Body,
		Error:  verr.Message,
	}))
}

// Comments

func (s *Site) adminComments(ctx handler.Context, req adminPageRequest) handler.Response {
	page, err := s.blog.ListAllComments(ctx, req.Page)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Templ(adminCommentsPage(page))
}

type moderateRequest struct {
	ID     int64  `path:"id"`
	Action string `path:"action"`
}

func (s *Site) moderateComment(ctx handler.Context, req moderateRequest) handler.Response {
	var disabled bool
	switch req.Action {
	case "disable":
		disabled = true
	case "enable":
	default:
		return handler.Error(handler.ErrNotFound)
	}

	if err := s.blog.SetCommentDisabled(ctx, currentAdmin(ctx), req.ID, disabled); err != nil {
		return handler.Error(err)
	}
	if !handler.IsDataStar(ctx.Request()) {
		return handler.Redirect("/admin/comments")
	}

	c, err := s.blog.GetComment(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Templ(moderatedComment(c))
}

// Profile

type profileRequest struct {
	Email    string                `form:"email"`
	Name     string                `form:"name"`
	Location string                `form:"location"`
	AboutMe  string                `form:"about_me"`
	Photo    *multipart.FileHeader `file:"photo"`
}

func (s *Site) profileForm(ctx handler.Context, _ noRequest) handler.Response {
	u := currentAdmin(ctx)
	return handler.Templ(profilePage(profileParams{
		User: u,
		Input: blog.ProfilePayload{
			Email:    u.Email,
			Name:     u.Name,
			Location: u.Location,
			AboutMe:  u.AboutMe,
		},
	}))
}

// updateProfile saves the profile, then the photo when one was uploaded.
func (s *Site) updateProfile(ctx handler.Context, req profileRequest) handler.Response {
	actor := currentAdmin(ctx)
	in := blog.ProfilePayload{
		Email:    req.Email,
		Name:     req.Name,
		Location: req.Location,
		AboutMe:  req.AboutMe,
	}

	u, err := s.blog.UpdateProfile(ctx, actor, actor.ID, in)
	if err != nil {
		verr, ok := asValidation(err)
		if !ok {
			return handler.Error(err)
		}
		return handler.TemplStatus(http.StatusBadRequest, profilePage(profileParams{
			User:   actor,
			Input:  in,
			Error:  verr.Message,
			Fields: verr.Fields,
		}))
	}

	if req.Photo != nil {
		if s.files == nil {
			return handler.Error(errUploadsDisabled)
		}
		stored, err := file.SaveImage(ctx, s.files, req.Photo, photoDir, s.maxPhoto)
		if err != nil {
			return handler.Error(err)
		}
		if _, err := s.blog.SetPhoto(ctx, u, u.ID, s.files.URL(stored.RelativePath)); err != nil {
			return handler.Error(err)
		}
		s.log.InfoContext(ctx, "profile photo updated", logger.UserID(u.ID))
	}

	return handler.Redirect("/admin/profile")
}

// Widget

type widgetRequest struct {
	Title string `form:"title"`
	Body  string `form:"body"`
}

func (s *Site) widgetForm(ctx handler.Context, _ noRequest) handler.Response {
	w, err := s.blog.GetWidget(ctx)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Templ(widgetPage(widgetParams{Title: w.Title, Body: w.Body}))
}

func (s *Site) updateWidget(ctx handler.Context, req widgetRequest) handler.Response {
	_, err := s.blog.UpdateWidget(ctx, currentAdmin(ctx), blog.WidgetPayload{Title: req.Title, Body: req.Body})
	if verr, ok := asValidation(err); ok {
		return handler.TemplStatus(http.StatusBadRequest, widgetPage(widgetParams{
			Title: req.Title,
			Body:  req.Body,
			Error: verr.Message,
		}))
	}
	if err != nil {
		return handler.Error(err)
	}
	return handler.Redirect("/admin/widget")
}
