// Package config loads typed configuration structs from the environment.
//
// Each package declares its own Config struct with caarlos0/env tags; the
// command wires them together by calling Load once per type. A .env file in
// the working directory is read on first use, real environment variables win.
package config

import (
	"errors"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once

	mu    sync.Mutex
	cache = map[reflect.Type]any{}
)

// Load parses environment variables into v. The first successful result per
// type is cached and returned on subsequent calls.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() { _ = godotenv.Load() })

	key := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache[key] = parsed
	*v = parsed

	return nil
}

// MustLoad is Load that panics on error. Intended for main.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(err)
	}
}

// Reset drops all cached values. Tests use it between cases that change the
// environment.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	clear(cache)
}
