package site

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"
)

// html accumulates markup and keeps the first write error.
type html struct {
	w   io.Writer
	err error
}

func component(fn func(ctx context.Context, h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		fn(ctx, h)
		return h.err
	})
}

// raw writes trusted markup.
func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

// text writes escaped text.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

// tagf writes markup built from format; every argument is escaped.
func (h *html) tagf(format string, args ...any) {
	escaped := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			escaped[i] = templ.EscapeString(v)
		case templ.SafeURL:
			escaped[i] = templ.EscapeString(string(v))
		default:
			escaped[i] = v
		}
	}
	if h.err == nil {
		_, h.err = fmt.Fprintf(h.w, format, escaped...)
	}
}

func (h *html) render(ctx context.Context, c templ.Component) {
	if h.err == nil && c != nil {
		h.err = c.Render(ctx, h.w)
	}
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func postPath(id int64) string { return "/post/" + itoa(id) }

// pageLink keeps the search query across pages.
func pageLink(path string, page int, query string) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	if query != "" {
		v.Set("q", query)
	}
	return path + "?" + v.Encode()
}
