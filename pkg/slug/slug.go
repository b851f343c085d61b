// Package slug derives URL-safe identifiers from post titles and keeps them
// unique across posts.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Option tweaks Make.
type Option func(*options)

type options struct {
	maxLength int
	separator string
	replace   map[string]string
}

// MaxLength truncates the slug to n runes. Zero means no limit.
func MaxLength(n int) Option {
	return func(o *options) { o.maxLength = n }
}

// Separator replaces the default "-".
func Separator(s string) Option {
	return func(o *options) { o.separator = s }
}

// Replace applies literal substitutions before normalization,
// e.g. {"&": "and"}.
func Replace(m map[string]string) Option {
	return func(o *options) { o.replace = m }
}

// letters that survive NFD decomposition unchanged.
var ligatures = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "AE", "œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O", "ł", "l", "Ł", "L", "đ", "d", "Đ", "D", "þ", "th", "Þ", "TH",
)

// Make lowercases s, folds accented Latin letters to ASCII and collapses every
// run of other characters into a single separator. Leading and trailing
// separators are trimmed. Titles without any foldable letter yield "".
func Make(s string, opts ...Option) string {
	o := &options{separator: "-"}
	for _, opt := range opts {
		opt(o)
	}

	for from, to := range o.replace {
		s = strings.ReplaceAll(s, from, to)
	}
	s = fold(s)

	var b strings.Builder
	b.Grow(len(s))

	pendingSep := false
	n := 0
	for _, r := range strings.ToLower(s) {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			pendingSep = n > 0
			continue
		}
		if o.maxLength > 0 && n >= o.maxLength {
			break
		}
		if pendingSep {
			if o.maxLength > 0 && n+len(o.separator)+1 > o.maxLength {
				break
			}
			b.WriteString(o.separator)
			n += len(o.separator)
			pendingSep = false
		}
		b.WriteRune(r)
		n++
	}

	return b.String()
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, ligatures.Replace(s))
	if err != nil {
		return s
	}
	return out
}
