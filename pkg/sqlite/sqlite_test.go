package sqlite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quill/migrations"
	"github.com/dmitrymomot/quill/pkg/logger"
	"github.com/dmitrymomot/quill/pkg/sqlite"
)

func TestOpenAndMigrate(t *testing.T) {
	ctx := t.Context()
	cfg := sqlite.Config{Path: ":memory:", MigrationsTable: "schema_migrations"}

	db, err := sqlite.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlite.Migrate(ctx, db, cfg, migrations.SQLite(), logger.Discard()))
	// Re-running is a no-op.
	require.NoError(t, sqlite.Migrate(ctx, db, cfg, migrations.SQLite(), logger.Discard()))

	require.NoError(t, sqlite.Healthcheck(db)(ctx))

	_, err = db.ExecContext(ctx, `INSERT INTO users (email, name, password_hash, member_since, last_seen) VALUES ('a@x.io', 'a', 'h', 0, 0)`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO users (email, name, password_hash, member_since, last_seen) VALUES ('A@x.io', 'b', 'h', 0, 0)`)
	assert.True(t, sqlite.IsDuplicateKeyError(err), "emails are unique case-insensitively: %v", err)

	_, err = db.ExecContext(ctx, `INSERT INTO posts (title, body, body_html, author_id, created_at) VALUES ('t', 'b', 'b', 999, 0)`)
	assert.True(t, sqlite.IsForeignKeyViolationError(err), "foreign keys are enforced: %v", err)

	var n int
	err = db.QueryRowContext(ctx, `SELECT id FROM posts WHERE id = 1`).Scan(&n)
	assert.True(t, sqlite.IsNotFoundError(err))
}
