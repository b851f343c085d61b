package site

import (
	"context"
	"strconv"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/quill/pkg/validator"
	"github.com/dmitrymomot/quill/svc/blog"
)

func adminLayout(title string, content templ.Component) templ.Component {
	return layout(title, component(func(ctx context.Context, h *html) {
		h.raw(`<nav class="admin">`)
		h.raw(`<a href="/admin/">Posts</a> <a href="/admin/posts/new">New post</a> `)
		h.raw(`<a href="/admin/comments">Comments</a> <a href="/admin/profile">Profile</a> <a href="/admin/widget">Widget</a>`)
		h.raw(`</nav>`)
		h.render(ctx, content)
	}))
}

func formError(h *html, message string) {
	if message != "" {
		h.tagf(`<p class="error" role="alert">%s</p>`, message)
	}
}

func fieldErrors(h *html, fields validator.Errors, name string) {
	for _, msg := range fields.Get(name) {
		h.tagf(`<small class="field-error">%s</small>`, msg)
	}
}

func adminPostsPage(page blog.Page[blog.Post]) templ.Component {
	return adminLayout("Posts", component(func(ctx context.Context, h *html) {
		h.raw(`<h1>Posts</h1><table id="posts"><tbody>`)
		for _, p := range page.Items {
			h.tagf(`<tr id="post-%d"><td><a href="%s">%s</a></td><td>%s</td>`,
				p.ID, slugPath(p), p.Title, timestamp(p.CreatedAt))
			h.tagf(`<td><a href="/admin/posts/%d/edit">Edit</a></td>`, p.ID)
			h.tagf(`<td><form method="post" action="/admin/posts/%d/delete"><button type="submit">Delete</button></form></td></tr>`, p.ID)
		}
		h.raw(`</tbody></table>`)
		h.render(ctx, pagination("/admin/", page, ""))
	}))
}

type postFormParams struct {
	Action string
	Title  string
	Body   string
	Error  string
}

func postFormPage(p postFormParams) templ.Component {
	return adminLayout("Edit post", component(func(_ context.Context, h *html) {
		h.tagf(`<form id="post-form" method="post" action="%s">`, p.Action)
		formError(h, p.Error)
		h.tagf(`<label>Title <input name="title" value="%s" maxlength="%d" required></label>`, p.Title, blog.MaxTitleLength)
		h.tagf(`<label>Body <textarea name="body" required>%s</textarea></label>`, p.Body)
		h.raw(`<button type="submit">Save</button></form>`)
	}))
}

type profileParams struct {
	User   blog.User
	Input  blog.ProfilePayload
	Error  string
	Fields validator.Errors
}

func profilePage(p profileParams) templ.Component {
	return adminLayout("Profile", component(func(_ context.Context, h *html) {
		if p.User.PhotoURL != "" {
			h.tagf(`<img class="photo" src="%s" alt="" width="128">`, p.User.PhotoURL)
		}
		h.raw(`<form id="profile-form" method="post" action="/admin/profile" enctype="multipart/form-data">`)
		formError(h, p.Error)
		h.tagf(`<label>E-mail <input type="email" name="email" value="%s" maxlength="%d" required></label>`, p.Input.Email, blog.MaxFieldLength)
		fieldErrors(h, p.Fields, "email")
		h.tagf(`<label>Username <input name="name" value="%s" maxlength="%d" required></label>`, p.Input.Name, blog.MaxFieldLength)
		fieldErrors(h, p.Fields, "name")
		h.tagf(`<label>Location <input name="location" value="%s" maxlength="%d"></label>`, p.Input.Location, blog.MaxFieldLength)
		fieldErrors(h, p.Fields, "location")
		h.tagf(`<label>About me <textarea name="about_me">%s</textarea></label>`, p.Input.AboutMe)
		h.raw(`<label>Photo <input type="file" name="photo" accept="image/*"></label>`)
		h.raw(`<button type="submit">Save</button></form>`)
	}))
}

type widgetParams struct {
	Title string
	Body  string
	Error string
}

func widgetPage(p widgetParams) templ.Component {
	return adminLayout("Widget", component(func(_ context.Context, h *html) {
		h.raw(`<form id="widget-form" method="post" action="/admin/widget">`)
		formError(h, p.Error)
		h.tagf(`<label>Title <input name="title" value="%s" maxlength="%d" required></label>`, p.Title, blog.MaxFieldLength)
		h.tagf(`<label>Body <textarea name="body">%s</textarea></label>`, p.Body)
		h.raw(`<button type="submit">Save</button></form>`)
	}))
}

func adminCommentsPage(page blog.Page[blog.Comment]) templ.Component {
	return adminLayout("Comments", component(func(ctx context.Context, h *html) {
		h.raw(`<h1>Comments</h1><ol id="comments">`)
		for _, c := range page.Items {
			h.render(ctx, moderatedComment(c))
		}
		h.raw(`</ol>`)
		if page.HasPrev() {
			h.tagf(`<a rel="prev" href="/admin/comments?page=%d">Newer</a> `, page.Number-1)
		}
		if page.HasNext() {
			h.tagf(`<a rel="next" href="/admin/comments?page=%d">Older</a>`, page.Number+1)
		}
	}))
}

// moderatedComment is also patched in place after a toggle.
func moderatedComment(c blog.Comment) templ.Component {
	return component(func(_ context.Context, h *html) {
		id := strconv.FormatInt(c.ID, 10)
		action, label, class := "disable", "Disable", "comment"
		if c.Disabled {
			action, label, class = "enable", "Enable", "comment disabled"
		}
		h.tagf(`<li class="%s" id="comment-%s"><span class="author">%s</span> on <a href="%s">post</a>`,
			class, id, c.AuthorEmail, postPath(c.PostID))
		h.tagf(`<p>%s</p>`, c.Body)
		url := "/admin/comments/" + id + "/" + action
		h.tagf(`<form method="post" action="%s" data-on:submit__prevent="@post('%s')"><button type="submit">%s</button></form></li>`,
			url, url, label)
	})
}
