package blog

import (
	"errors"

	"github.com/dmitrymomot/quill/pkg/validator"
)

var (
	ErrValidation   = errors.New("blog: validation failed")
	ErrNotFound     = errors.New("blog: not found")
	ErrForbidden    = errors.New("blog: insufficient permissions")
	ErrSlugTaken    = errors.New("blog: slug already taken")
	ErrUserExists   = errors.New("blog: email or name already registered")
	ErrSearchFailed = errors.New("blog: search backend failed")
)

// ValidationError carries the message shown to the client. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Message string
	Fields  validator.Errors
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// invalid wraps validator errors, keeping msg as the client message.
func invalid(msg string, err error) error {
	fields, _ := validator.Extract(err)
	return &ValidationError{Message: msg, Fields: fields}
}
