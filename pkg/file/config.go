package file

import (
	"context"
	"fmt"
)

// Config selects and configures the storage backend.
type Config struct {
	Driver   string `env:"FILE_STORAGE" envDefault:"local"` // local or s3
	LocalDir string `env:"FILE_LOCAL_DIR" envDefault:"uploads"`
	LocalURL string `env:"FILE_LOCAL_URL" envDefault:"/uploads/"`
	MaxBytes int64  `env:"FILE_MAX_BYTES" envDefault:"2097152"`

	S3 S3Config `envPrefix:"S3_"`
}

// New builds the storage named by cfg.Driver.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStorage(cfg.LocalDir, cfg.LocalURL)
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, cfg.Driver)
	}
}
