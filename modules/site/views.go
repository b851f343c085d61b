package site

import (
	"context"
	"strconv"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/quill/handler"
	"github.com/dmitrymomot/quill/svc/blog"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

func layout(title string, content templ.Component) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.tagf(`<title>%s</title>`, title)
		h.tagf(`<script type="module" src="%s"></script></head><body>`, datastarScript)
		h.raw(`<nav><a href="/">Home</a> <a href="/admin/">Admin</a></nav>`)
		h.raw(`<div id="toast-container"></div><main>`)
		h.render(ctx, content)
		h.raw(`</main></body></html>`)
	})
}

func widgetView(w blog.Widget) templ.Component {
	return component(func(_ context.Context, h *html) {
		if w.Title == "" {
			return
		}
		h.tagf(`<aside id="widget"><h3>%s</h3>`, w.Title)
		h.raw(w.BodyHTML)
		h.raw(`</aside>`)
	})
}

func postSummary(p blog.Post) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.tagf(`<article class="post" id="post-%d"><h2><a href="%s">%s</a></h2>`, p.ID, slugPath(p), p.Title)
		h.tagf(`<p class="meta">%s · %d comments</p>`, timestamp(p.CreatedAt), p.CommentsCount)
		h.raw(`<div class="body">`)
		h.raw(p.BodyHTML)
		h.raw(`</div></article>`)
	})
}

// slugPath prefers the readable URL.
func slugPath(p blog.Post) string {
	if p.Slug != "" {
		return "/p/" + p.Slug
	}
	return postPath(p.ID)
}

func pagination(path string, page blog.Page[blog.Post], query string) templ.Component {
	return component(func(_ context.Context, h *html) {
		if !page.HasPrev() && !page.HasNext() {
			return
		}
		h.raw(`<nav class="pagination">`)
		if page.HasPrev() {
			h.tagf(`<a rel="prev" href="%s">Newer</a> `, pageLink(path, page.Number-1, query))
		}
		h.tagf(`<span>Page %d of %d</span>`, page.Number, page.Pages())
		if page.HasNext() {
			h.tagf(` <a rel="next" href="%s">Older</a>`, pageLink(path, page.Number+1, query))
		}
		h.raw(`</nav>`)
	})
}

type indexParams struct {
	Posts  blog.Page[blog.Post]
	Query  string
	Widget blog.Widget
}

func indexPage(p indexParams) templ.Component {
	return layout("Blog", component(func(ctx context.Context, h *html) {
		h.tagf(`<form method="get" action="/" role="search"><input type="search" name="q" value="%s" placeholder="Search"></form>`, p.Query)
		h.render(ctx, widgetView(p.Widget))
		h.raw(`<section id="posts">`)
		if len(p.Posts.Items) == 0 {
			h.raw(`<p>No posts yet.</p>`)
		}
		for _, post := range p.Posts.Items {
			h.render(ctx, postSummary(post))
		}
		h.raw(`</section>`)
		h.render(ctx, pagination("/", p.Posts, p.Query))
	}))
}

type postParams struct {
	Post     blog.Post
	Author   blog.User
	Comments []blog.Comment
	Widget   blog.Widget
}

func postPage(p postParams) templ.Component {
	return layout(p.Post.Title, component(func(ctx context.Context, h *html) {
		h.render(ctx, widgetView(p.Widget))
		h.tagf(`<article class="post"><h1>%s</h1>`, p.Post.Title)
		h.raw(`<p class="meta">`)
		if p.Author.Name != "" {
			h.tagf(`by %s · `, p.Author.Name)
		}
		h.text(timestamp(p.Post.CreatedAt))
		h.raw(`</p><div class="body">`)
		h.raw(p.Post.BodyHTML)
		h.raw(`</div></article>`)

		h.raw(`<h2>Comments</h2><ol id="comments">`)
		for _, c := range p.Comments {
			h.render(ctx, commentItem(c))
		}
		h.raw(`</ol>`)
		h.render(ctx, commentForm(p.Post.ID))
	}))
}

func commentItem(c blog.Comment) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.tagf(`<li class="comment" id="comment-%d">`, c.ID)
		h.tagf(`<img class="avatar" src="%s" alt="" width="32" height="32">`, c.AvatarURL)
		h.tagf(`<span class="author">%s</span> <time>%s</time><p>%s</p></li>`,
			c.AuthorEmail, timestamp(c.CreatedAt), c.Body)
	})
}

func commentForm(postID int64) templ.Component {
	return component(func(_ context.Context, h *html) {
		action := postPath(postID) + "/comments"
		h.tagf(`<form id="comment-form" method="post" action="%s" data-on:submit__prevent="@post('%s', {contentType: 'form'})">`, action, action)
		h.raw(`<input type="email" name="author_email" placeholder="Your e-mail" required>`)
		h.raw(`<textarea name="body" required></textarea>`)
		h.raw(`<button type="submit">Comment</button></form>`)
	})
}

func errorPage(p handler.ErrorPageParams) templ.Component {
	return layout(strconv.Itoa(p.StatusCode), component(func(_ context.Context, h *html) {
		h.tagf(`<h1>%d</h1><p class="error">%s</p>`, p.StatusCode, p.Error)
		if p.RequestID != "" {
			h.tagf(`<p class="request-id">Request ID: %s</p>`, p.RequestID)
		}
	}))
}

func errorToast(p handler.ErrorToastParams) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.tagf(`<div class="toast toast-%s" role="alert">%s</div>`, p.Type, p.Message)
	})
}
