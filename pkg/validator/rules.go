package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Required fails on empty or whitespace-only values.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: FieldError{Field: field, Message: "field is required"},
	}
}

// MaxLen counts runes, not bytes.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: FieldError{Field: field, Message: fmt.Sprintf("must be at most %d characters long", max)},
	}
}

// ValidEmail accepts bare addresses with a dotted domain. Display-name forms
// such as "Bob <bob@example.com>" are rejected.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != strings.TrimSpace(value) {
				return false
			}
			at := strings.LastIndexByte(addr.Address, '@')
			domain := addr.Address[at+1:]
			if !strings.Contains(domain, ".") {
				return false
			}
			for part := range strings.SplitSeq(domain, ".") {
				if part == "" {
					return false
				}
			}
			return true
		},
		Error: FieldError{Field: field, Message: "must be a valid email address"},
	}
}

// Matches fails when value does not match re. Empty values fail too; pair
// with Required only for the message.
func Matches(field, value string, re *regexp.Regexp, message string) Rule {
	return Rule{
		Check: func() bool { return value != "" && re.MatchString(value) },
		Error: FieldError{Field: field, Message: message},
	}
}
