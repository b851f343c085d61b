// Package migrator applies embedded goose migrations to a database/sql
// handle. It is shared by the Postgres and SQLite backends.
package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
)

var (
	ErrFailedToApplyMigrations = errors.New("failed to apply migrations")
	ErrMigrationsNotProvided   = errors.New("migrations not provided")
)

// Logger receives goose output. *slog.Logger satisfies it.
type Logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// Options selects the goose dialect, migrations and version table.
type Options struct {
	Dialect string // "postgres" or "sqlite3"
	FS      fs.FS  // migrations rooted at "."
	Table   string // defaults to goose's own table name
}

// goose keeps its dialect, base FS and logger in package globals.
var mu sync.Mutex

// Up applies all pending migrations.
func Up(ctx context.Context, db *sql.DB, opts Options, log Logger) error {
	if opts.FS == nil {
		return errors.Join(ErrFailedToApplyMigrations, ErrMigrationsNotProvided)
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(opts.FS)
	defer goose.SetBaseFS(nil)

	goose.SetLogger(&slogAdapter{ctx: ctx, log: log})
	if opts.Table != "" {
		goose.SetTableName(opts.Table)
	}
	if err := goose.SetDialect(opts.Dialect); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}

// slogAdapter bridges goose's Printf-style logging to structured logging.
type slogAdapter struct {
	ctx context.Context
	log Logger
}

func (a *slogAdapter) Fatalf(format string, v ...any) {
	a.log.ErrorContext(a.ctx, fmt.Sprintf(format, v...))
}

func (a *slogAdapter) Printf(format string, v ...any) {
	a.log.InfoContext(a.ctx, fmt.Sprintf(format, v...))
}
