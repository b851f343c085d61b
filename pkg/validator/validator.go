// Package validator provides small composable field rules.
//
//	err := validator.Apply(
//		validator.Required("email", form.Email),
//		validator.ValidEmail("email", form.Email),
//		validator.MaxLen("location", form.Location, 64),
//	)
package validator

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Errors collects every failed rule of one Apply call.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field failed any rule.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Get returns the messages recorded for field.
func (e Errors) Get(field string) []string {
	var out []string
	for _, fe := range e {
		if fe.Field == field {
			out = append(out, fe.Message)
		}
	}
	return out
}

// AsMap groups messages by field.
func (e Errors) AsMap() map[string][]string {
	out := make(map[string][]string, len(e))
	for _, fe := range e {
		out[fe.Field] = append(out[fe.Field], fe.Message)
	}
	return out
}

// Rule pairs a check with the error reported when it fails.
type Rule struct {
	Check func() bool
	Error FieldError
}

// Apply runs every rule and returns Errors when at least one failed.
func Apply(rules ...Rule) error {
	var errs Errors
	for _, r := range rules {
		if !r.Check() {
			errs = append(errs, r.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Extract returns the Errors wrapped in err, if any.
func Extract(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}
