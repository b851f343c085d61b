package validator_test

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quill/pkg/validator"
)

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("all rules pass", func(t *testing.T) {
		t.Parallel()
		err := validator.Apply(
			validator.Required("email", "john@example.com"),
			validator.ValidEmail("email", "john@example.com"),
			validator.MaxLen("location", "Kyiv", 64),
		)
		assert.NoError(t, err)
	})

	t.Run("collects failures", func(t *testing.T) {
		t.Parallel()
		err := validator.Apply(
			validator.Required("email", "  "),
			validator.ValidEmail("email", "  "),
			validator.MaxLen("location", "abcdef", 3),
		)
		require.Error(t, err)

		errs, ok := validator.Extract(fmt.Errorf("wrapped: %w", err))
		require.True(t, ok)
		assert.Len(t, errs, 3)
		assert.True(t, errs.Has("email"))
		assert.Equal(t, []string{"must be at most 3 characters long"}, errs.Get("location"))
		assert.Len(t, errs.AsMap()["email"], 2)
		assert.Contains(t, err.Error(), "location: must be at most 3 characters long")
	})
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		email string
		ok    bool
	}{
		{"john@example.com", true},
		{"a.b+c@mail.example.org", true},
		{"john@localhost", false},
		{"john@example..com", false},
		{"John <john@example.com>", false},
		{"not-an-email", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			t.Parallel()
			err := validator.Apply(validator.ValidEmail("email", tt.email))
			assert.Equal(t, tt.ok, err == nil)
		})
	}
}

func TestMatches(t *testing.T) {
	t.Parallel()

	re := regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*$`)
	assert.NoError(t, validator.Apply(validator.Matches("name", "Maxim_01", re, "bad name")))
	assert.Error(t, validator.Apply(validator.Matches("name", "1maxim", re, "bad name")))
	assert.Error(t, validator.Apply(validator.Matches("name", "", re, "bad name")))
}

func TestMaxLenCountsRunes(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validator.Apply(validator.MaxLen("title", "héllo", 5)))
}
