// Package richtext turns author-written Markdown into the restricted HTML
// stored next to it.
//
// Rendering runs three passes:
//
//  1. Markdown to HTML (blackfriday, without its own autolinking);
//  2. an allow-list policy (bluemonday) keeping a fixed set of tags and only
//     the alt and src attributes, stripping everything else;
//  3. linkify: bare URLs and e-mail addresses in text nodes become
//     rel="nofollow" links, except inside a, pre and code.
//
// Render never fails: malformed Markdown degrades to whatever the parser
// makes of it.
package richtext

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
	"golang.org/x/net/html"
	"mvdan.cc/xurls/v2"
)

// AllowedTags is the closed set of elements that survive sanitizing.
var AllowedTags = []string{
	"a", "abbr", "acronym", "b", "blockquote", "code",
	"em", "i", "li", "ol", "pre", "strong", "ul",
	"h1", "h2", "h3", "p", "img",
}

// AllowedAttrs is the closed set of attributes that survive sanitizing.
// Links produced by linkify additionally carry href and rel.
var AllowedAttrs = []string{"alt", "src"}

const markdownExtensions = blackfriday.CommonExtensions &^ blackfriday.Autolink

// Renderer is safe for concurrent use.
type Renderer struct {
	policy *bluemonday.Policy
	urls   *regexp.Regexp
}

// New builds a Renderer with the blog's allow-list.
func New() *Renderer {
	p := bluemonday.NewPolicy()
	p.AllowElements(AllowedTags...)
	p.AllowNoAttrs().OnElements("a")
	p.AllowAttrs(AllowedAttrs...).Globally()
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)

	return &Renderer{policy: p, urls: xurls.Relaxed()}
}

var std = New()

// Render uses a shared default Renderer.
func Render(markdown string) string {
	return std.Render(markdown)
}

// Render converts markdown into sanitized, linkified HTML.
func (r *Renderer) Render(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	htmlRenderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.UseXHTML,
	})
	raw := blackfriday.Run(
		[]byte(markdown),
		blackfriday.WithExtensions(markdownExtensions),
		blackfriday.WithRenderer(htmlRenderer),
	)

	return r.linkify(r.policy.SanitizeBytes(raw))
}

// linkify re-emits a sanitized fragment token by token, wrapping URLs found
// in text nodes. Tags are copied verbatim.
//
// Sanitized input may still be unbalanced, so open elements are tracked on a
// stack and an end tag closes everything opened after its match. An unclosed
// <code> therefore ends with its paragraph instead of muting linkify for the
// rest of the document.
func (r *Renderer) linkify(fragment []byte) string {
	z := html.NewTokenizer(strings.NewReader(string(fragment)))

	var b strings.Builder
	b.Grow(len(fragment))

	var open []string
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return b.String()
		}

		raw := string(z.Raw())
		switch tt {
		case html.StartTagToken:
			if name, _ := z.TagName(); !isVoid(string(name)) {
				open = append(open, string(name))
			}
			b.WriteString(raw)
		case html.EndTagToken:
			name, _ := z.TagName()
			open = closeElement(open, string(name))
			b.WriteString(raw)
		case html.TextToken:
			if insideNoLinks(open) {
				b.WriteString(raw)
				continue
			}
			r.writeText(&b, string(z.Text()))
		default:
			b.WriteString(raw)
		}
	}
}

// closeElement pops the innermost open element called name and everything
// above it. Stray end tags leave the stack alone.
func closeElement(open []string, name string) []string {
	for i := len(open) - 1; i >= 0; i-- {
		if open[i] == name {
			return open[:i]
		}
	}
	return open
}

func insideNoLinks(open []string) bool {
	for _, name := range open {
		if noLinks(name) {
			return true
		}
	}
	return false
}

func isVoid(tag string) bool {
	return tag == "img" || tag == "br" || tag == "hr"
}

func (r *Renderer) writeText(b *strings.Builder, text string) {
	last := 0
	for _, m := range r.urls.FindAllStringIndex(text, -1) {
		match := text[m[0]:m[1]]
		href, ok := linkTarget(match)
		if !ok {
			continue
		}
		b.WriteString(html.EscapeString(text[last:m[0]]))
		fmt.Fprintf(b, `<a href="%s" rel="nofollow">%s</a>`, html.EscapeString(href), html.EscapeString(match))
		last = m[1]
	}
	b.WriteString(html.EscapeString(text[last:]))
}

// linkTarget builds the href for a detected URL or e-mail address. Only http,
// https and mailto targets are linked.
func linkTarget(match string) (string, bool) {
	lower := strings.ToLower(match)

	var href string
	switch {
	case strings.HasPrefix(lower, "mailto:"), strings.Contains(lower, "://"):
		href = match
	case strings.Contains(match, "@") && !strings.Contains(match, "/"):
		href = "mailto:" + match
	default:
		href = "http://" + match
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return href, true
	}
	return "", false
}

func noLinks(tag string) bool {
	return tag == "a" || tag == "pre" || tag == "code"
}
