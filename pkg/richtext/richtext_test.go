package richtext_test

import (
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/net/html"

	"github.com/dmitrymomot/quill/pkg/richtext"
)

func TestRender(t *testing.T) {
	t.Parallel()

	r := richtext.New()

	t.Run("markdown heading", func(t *testing.T) {
		t.Parallel()
		got := r.Render("# Post with markdown")
		assert.Contains(t, got, "<h1>Post with markdown</h1>")
	})

	t.Run("emphasis and lists", func(t *testing.T) {
		t.Parallel()
		got := r.Render("*one* and **two**\n\n- a\n- b\n")
		assert.Contains(t, got, "<em>one</em>")
		assert.Contains(t, got, "<strong>two</strong>")
		assert.Contains(t, got, "<ul>")
		assert.Contains(t, got, "<li>a</li>")
	})

	t.Run("script removed with content", func(t *testing.T) {
		t.Parallel()
		got := r.Render("Hello <script>alert(1)</script> world")
		assert.NotContains(t, got, "script")
		assert.NotContains(t, got, "alert")
		assert.Contains(t, got, "Hello")
	})

	t.Run("attributes stripped", func(t *testing.T) {
		t.Parallel()
		got := r.Render(`<p class="x" onclick="evil()">hi</p>`)
		assert.NotContains(t, got, "onclick")
		assert.NotContains(t, got, "class")
		assert.Contains(t, got, "hi")
	})

	t.Run("disallowed tags dropped text kept", func(t *testing.T) {
		t.Parallel()
		got := r.Render("#### small heading")
		assert.NotContains(t, got, "<h4")
		assert.Contains(t, got, "small heading")
	})

	t.Run("markdown links lose href", func(t *testing.T) {
		t.Parallel()
		got := r.Render("[site](http://example.com)")
		assert.Contains(t, got, "<a>site</a>")
		assert.NotContains(t, got, "href")
	})

	t.Run("image keeps src and alt", func(t *testing.T) {
		t.Parallel()
		got := r.Render("![cat](https://example.com/cat.png)")
		assert.Contains(t, got, `src="https://example.com/cat.png"`)
		assert.Contains(t, got, `alt="cat"`)
	})

	t.Run("javascript uri removed", func(t *testing.T) {
		t.Parallel()
		got := r.Render("![x](javascript:alert(1))")
		assert.NotContains(t, got, "javascript")
	})

	t.Run("bare url linkified", func(t *testing.T) {
		t.Parallel()
		got := r.Render("see http://example.com today")
		assert.Contains(t, got, `<a href="http://example.com" rel="nofollow">http://example.com</a>`)
	})

	t.Run("schemeless url linkified", func(t *testing.T) {
		t.Parallel()
		got := r.Render("visit www.example.com")
		assert.Contains(t, got, `href="http://www.example.com"`)
	})

	t.Run("email linkified", func(t *testing.T) {
		t.Parallel()
		got := r.Render("write to john@example.com")
		assert.Contains(t, got, `href="mailto:john@example.com"`)
	})

	t.Run("no links inside code", func(t *testing.T) {
		t.Parallel()
		got := r.Render("run `curl http://example.com` now\n\n    http://example.org\n")
		assert.NotContains(t, got, "<a")
		assert.Contains(t, got, "http://example.com")
	})

	t.Run("text stays escaped", func(t *testing.T) {
		t.Parallel()
		got := r.Render("1 &lt; 2 and AT&amp;T")
		assert.Contains(t, got, "&lt;")
		assert.NotContains(t, got, "1 < 2")
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, r.Render(""))
		assert.Empty(t, r.Render(" \n\t"))
	})
}

func TestRenderUnclosedInlineTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"code", "see <code>x\n\nlater paragraph http://example.com"},
		{"link", "see <a>x\n\nlater paragraph http://example.com"},
		{"nested", "see <em><code>x\n\nlater paragraph http://example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := richtext.Render(tt.in)
			assert.Contains(t, got, `<a href="http://example.com" rel="nofollow">http://example.com</a>`, got)
		})
	}

	t.Run("text inside the unclosed tag stays plain", func(t *testing.T) {
		t.Parallel()
		got := richtext.Render("see <code>http://example.org\n\nlater")
		assert.NotContains(t, got, `href="http://example.org"`)
	})
}

// TestRenderOutputIsAllowListed checks that hostile input only ever yields
// allow-listed tags, alt and src attributes, and the href and rel linkify adds.
func TestRenderOutputIsAllowListed(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"<script>alert(1)</script>",
		"<img src=x onerror=alert(1)>",
		`<a href="javascript:alert(1)">x</a>`,
		`<a href="http://example.com" onclick="steal()">link</a>`,
		"[x](javascript:alert(1))",
		"![x](javascript:alert(1))",
		`<img src="data:image/png;base64,AAAA">`,
		"<svg onload=alert(1)></svg>",
		`<iframe src="http://evil.test"></iframe>`,
		`<p style="color:red" class="x" id="y">styled</p>`,
		"<div><span>nested</span></div>",
		"<style>body{display:none}</style>",
		`<form action="/x"><input name="y"></form>`,
		`<object data="x.swf"></object>`,
		"<table><tr><td>cell</td></tr></table>",
		"#### h4 heading",
		`http://example.com/"onmouseover="alert(1)`,
		"`<b onclick=1>` and www.example.com and me@example.com",
		"<code>unclosed\n\nthen http://example.com",
	}

	allowedAttr := func(tag, key, val string) bool {
		switch key {
		case "alt":
			return true
		case "src":
			lower := strings.ToLower(strings.TrimSpace(val))
			return !strings.HasPrefix(lower, "javascript:") && !strings.HasPrefix(lower, "data:")
		case "href":
			lower := strings.ToLower(val)
			return tag == "a" && (strings.HasPrefix(lower, "http://") ||
				strings.HasPrefix(lower, "https://") ||
				strings.HasPrefix(lower, "mailto:"))
		case "rel":
			return tag == "a" && val == "nofollow"
		}
		return false
	}

	for _, in := range inputs {
		out := richtext.Render(in)
		z := html.NewTokenizer(strings.NewReader(out))
		for {
			tt := z.Next()
			if tt == html.ErrorToken {
				break
			}
			if tt != html.StartTagToken && tt != html.EndTagToken && tt != html.SelfClosingTagToken {
				continue
			}
			tok := z.Token()
			assert.True(t, slices.Contains(richtext.AllowedTags, tok.Data), "tag %q in %q from %q", tok.Data, out, in)
			for _, attr := range tok.Attr {
				assert.True(t, allowedAttr(tok.Data, attr.Key, attr.Val),
					"attribute %s=%q on <%s> in %q from %q", attr.Key, attr.Val, tok.Data, out, in)
			}
		}
		assert.NotContains(t, strings.ToLower(out), "<script", in)
	}
}

func TestRenderNeverPanics(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"<<<>>>",
		"[unclosed](",
		"```\nunterminated fence",
		"<a href=\"", "<img src=x onerror=alert(1)>",
		strings.Repeat("> ", 500) + "deep",
		"\x00\xff\xfe",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { richtext.Render(in) }, in)
	}
}

func TestRenderConcurrent(t *testing.T) {
	t.Parallel()

	want := richtext.New().Render("hello http://example.com")

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, richtext.Render("hello http://example.com"))
		}()
	}
	wg.Wait()
}
