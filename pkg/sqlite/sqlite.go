// Package sqlite opens an embedded SQLite database (modernc.org/sqlite, no
// cgo), applies goose migrations and classifies driver errors.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"net/url"
	"strconv"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dmitrymomot/quill/pkg/migrator"
)

type Config struct {
	Path            string `env:"SQLITE_PATH" envDefault:"quill.db"`                     // Path is the database file, or ":memory:".
	BusyTimeoutMs   int    `env:"SQLITE_BUSY_TIMEOUT_MS" envDefault:"5000"`              // BusyTimeoutMs is how long a writer waits for a lock.
	MaxOpenConns    int    `env:"SQLITE_MAX_OPEN_CONNS" envDefault:"1"`                  // MaxOpenConns bounds the pool; SQLite serializes writers anyway.
	MigrationsTable string `env:"SQLITE_MIGRATIONS_TABLE" envDefault:"schema_migrations"` // MigrationsTable stores the applied migration version.
}

var (
	ErrFailedToOpenDB          = errors.New("failed to open sqlite database")
	ErrFailedToApplyMigrations = errors.New("failed to apply migrations")
	ErrHealthcheckFailed       = errors.New("healthcheck failed, database is not available")
)

// Open opens the database with foreign keys enforced.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDB, err)
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 || isMemory(cfg.Path) {
		// Every connection to ":memory:" is a separate database.
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrFailedToOpenDB, err)
	}
	return db, nil
}

func dsn(cfg Config) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	if cfg.BusyTimeoutMs > 0 {
		q.Add("_pragma", "busy_timeout("+strconv.Itoa(cfg.BusyTimeoutMs)+")")
	}
	if !isMemory(cfg.Path) {
		q.Add("_pragma", "journal_mode(WAL)")
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	return "file:" + path + "?" + q.Encode()
}

func isMemory(path string) bool {
	return path == "" || path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Migrate applies the goose migrations in fsys.
func Migrate(ctx context.Context, db *sql.DB, cfg Config, fsys fs.FS, log migrator.Logger) error {
	err := migrator.Up(ctx, db, migrator.Options{
		Dialect: "sqlite3",
		FS:      fsys,
		Table:   cfg.MigrationsTable,
	}, log)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}

// Healthcheck returns a readiness probe for the database.
func Healthcheck(db *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// IsNotFoundError reports sql.ErrNoRows.
func IsNotFoundError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsDuplicateKeyError reports UNIQUE and PRIMARY KEY constraint violations.
func IsDuplicateKeyError(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// IsForeignKeyViolationError reports FOREIGN KEY constraint violations.
func IsForeignKeyViolationError(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}
