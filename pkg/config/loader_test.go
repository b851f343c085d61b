package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quill/pkg/config"
)

type blogConfig struct {
	BaseURL      string `env:"QUILL_TEST_BASE_URL" envDefault:"http://localhost:8080"`
	PostsPerPage int    `env:"QUILL_TEST_POSTS_PER_PAGE" envDefault:"20"`
}

type secretConfig struct {
	Secret string `env:"QUILL_TEST_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults and overrides", func(t *testing.T) {
		config.Reset()
		t.Setenv("QUILL_TEST_POSTS_PER_PAGE", "5")

		var cfg blogConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
		assert.Equal(t, 5, cfg.PostsPerPage)
	})

	t.Run("cached per type", func(t *testing.T) {
		config.Reset()
		t.Setenv("QUILL_TEST_POSTS_PER_PAGE", "5")

		var first blogConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("QUILL_TEST_POSTS_PER_PAGE", "50")
		var second blogConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, 5, second.PostsPerPage)
	})

	t.Run("missing required value", func(t *testing.T) {
		config.Reset()

		var cfg secretConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		assert.ErrorIs(t, config.Load[blogConfig](nil), config.ErrNilPointer)
	})

	t.Run("must load panics", func(t *testing.T) {
		config.Reset()
		var cfg secretConfig
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})
}
