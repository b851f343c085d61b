package blog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/quill/pkg/sqlite"
)

// sqlDB is satisfied by *sql.DB and *sql.Tx.
type sqlDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage stores the blog in SQLite. Timestamps are kept as unix
// microseconds.
type SQLiteStorage struct {
	db   sqlDB
	conn *sql.DB // nil inside a transaction
}

// NewSQLiteStorage wraps an open database.
func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db, conn: db}
}

const (
	liteUserColumns = `u.id, u.email, u.name, u.password_hash, u.location, u.about_me, u.about_me_html,
		u.photo_url, u.member_since, u.last_seen,
		(SELECT count(*) FROM posts p WHERE p.author_id = u.id)`
	litePostColumns = `p.id, p.title, COALESCE(p.slug, ''), p.body, p.body_html, p.author_id, p.created_at,
		(SELECT count(*) FROM comments c WHERE c.post_id = p.id)`
	liteCommentColumns = `c.id, c.body, c.created_at, c.disabled, c.author_email, c.avatar_url, c.post_id,
		COALESCE(c.author_id, 0)`
)

var (
	liteScanUser    = scanUser(microTime)
	liteScanPost    = scanPost(microTime)
	liteScanComment = scanComment(microTime)
)

func micros(t time.Time) int64 { return t.UnixMicro() }

func (s *SQLiteStorage) InTx(ctx context.Context, fn func(tx Storage) error) error {
	if s.conn == nil {
		return fn(s)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("blog: begin tx: %w", err)
	}
	if err := fn(&SQLiteStorage{db: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("blog: commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CreateUser(ctx context.Context, u *User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, password_hash, location, about_me, about_me_html, photo_url, member_since, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		u.Email, u.Name, u.PasswordHash, u.Location, u.AboutMe, u.AboutMeHTML, u.PhotoURL,
		micros(u.MemberSince), micros(u.LastSeen),
	).Scan(&u.ID)
	return liteError(err, "create user")
}

func (s *SQLiteStorage) UserByID(ctx context.Context, id int64) (User, error) {
	return s.userWhere(ctx, "u.id = ?", id)
}

func (s *SQLiteStorage) UserByLogin(ctx context.Context, login string) (User, error) {
	u, err := s.userWhere(ctx, "lower(u.email) = lower(?)", login)
	if errors.Is(err, ErrNotFound) {
		return s.userWhere(ctx, "u.name = ?", login)
	}
	return u, err
}

func (s *SQLiteStorage) userWhere(ctx context.Context, cond string, arg any) (User, error) {
	u, err := liteScanUser(s.db.QueryRowContext(ctx, `SELECT `+liteUserColumns+` FROM users u WHERE `+cond, arg))
	return u, liteError(err, "get user")
}

func (s *SQLiteStorage) UpdateUser(ctx context.Context, u User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, name = ?, password_hash = ?, location = ?,
			about_me = ?, about_me_html = ?, photo_url = ?
		WHERE id = ?`,
		u.Email, u.Name, u.PasswordHash, u.Location, u.AboutMe, u.AboutMeHTML, u.PhotoURL, u.ID,
	)
	return rowsAffected(res, liteError(err, "update user"))
}

func (s *SQLiteStorage) TouchUser(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_seen = ? WHERE id = ?`, micros(at), id)
	return rowsAffected(res, liteError(err, "touch user"))
}

func (s *SQLiteStorage) CreatePost(ctx context.Context, p *Post) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (title, body, body_html, author_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		p.Title, p.Body, p.BodyHTML, p.AuthorID, micros(p.CreatedAt),
	).Scan(&p.ID)
	p.Slug = ""
	return liteError(err, "create post")
}

func (s *SQLiteStorage) SetPostSlug(ctx context.Context, id int64, slug string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE posts SET slug = ? WHERE id = ?`, slug, id)
	return rowsAffected(res, liteError(err, "set post slug"))
}

func (s *SQLiteStorage) PostByID(ctx context.Context, id int64) (Post, error) {
	p, err := liteScanPost(s.db.QueryRowContext(ctx, `SELECT `+litePostColumns+` FROM posts p WHERE p.id = ?`, id))
	return p, liteError(err, "get post")
}

func (s *SQLiteStorage) PostBySlug(ctx context.Context, slug string) (Post, error) {
	p, err := liteScanPost(s.db.QueryRowContext(ctx, `SELECT `+litePostColumns+` FROM posts p WHERE p.slug = ?`, slug))
	return p, liteError(err, "get post by slug")
}

func (s *SQLiteStorage) PostOwnerBySlug(ctx context.Context, slug string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM posts WHERE slug = ?`, slug).Scan(&id)
	if sqlite.IsNotFoundError(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, liteError(err, "lookup slug")
	}
	return id, true, nil
}

func (s *SQLiteStorage) UpdatePost(ctx context.Context, p Post) error {
	res, err := s.db.ExecContext(ctx, `UPDATE posts SET title = ?, body = ?, body_html = ? WHERE id = ?`,
		p.Title, p.Body, p.BodyHTML, p.ID)
	return rowsAffected(res, liteError(err, "update post"))
}

func (s *SQLiteStorage) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return rowsAffected(res, liteError(err, "delete post"))
}

func (s *SQLiteStorage) ListPosts(ctx context.Context, f PostFilter) ([]Post, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.AuthorID != 0 {
		conds = append(conds, "p.author_id = ?")
		args = append(args, f.AuthorID)
	}
	if f.Query != "" {
		like := "%" + escapeLike(f.Query) + "%"
		conds = append(conds, `(p.title LIKE ? ESCAPE '\' OR p.body LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM posts p`+where, args...).Scan(&total); err != nil {
		return nil, 0, liteError(err, "count posts")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+litePostColumns+` FROM posts p`+where+
		` ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`, append(args, limitOrAll(f.Limit), f.Offset)...)
	if err != nil {
		return nil, 0, liteError(err, "list posts")
	}
	defer rows.Close()

	posts, err := collect(rows, liteScanPost)
	return posts, total, liteError(err, "list posts")
}

func (s *SQLiteStorage) CreateComment(ctx context.Context, c *Comment) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO comments (body, created_at, disabled, author_email, avatar_url, post_id, author_id)
		VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, 0))
		RETURNING id`,
		c.Body, micros(c.CreatedAt), c.Disabled, c.AuthorEmail, c.AvatarURL, c.PostID, c.AuthorID,
	).Scan(&c.ID)
	return liteError(err, "create comment")
}

func (s *SQLiteStorage) CommentByID(ctx context.Context, id int64) (Comment, error) {
	c, err := liteScanComment(s.db.QueryRowContext(ctx, `SELECT `+liteCommentColumns+` FROM comments c WHERE c.id = ?`, id))
	return c, liteError(err, "get comment")
}

func (s *SQLiteStorage) SetCommentDisabled(ctx context.Context, id int64, disabled bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE comments SET disabled = ? WHERE id = ?`, disabled, id)
	return rowsAffected(res, liteError(err, "moderate comment"))
}

func (s *SQLiteStorage) ListComments(ctx context.Context, f CommentFilter) ([]Comment, int, error) {
	var (
		conds []string
		args  []any
	)
	order := "c.created_at DESC, c.id DESC"
	if f.PostID != 0 {
		conds = append(conds, "c.post_id = ?")
		args = append(args, f.PostID)
		order = "c.created_at ASC, c.id ASC"
	}
	if !f.IncludeDisabled {
		conds = append(conds, "c.disabled = 0")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM comments c`+where, args...).Scan(&total); err != nil {
		return nil, 0, liteError(err, "count comments")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+liteCommentColumns+` FROM comments c`+where+
		` ORDER BY `+order+` LIMIT ? OFFSET ?`, append(args, limitOrAll(f.Limit), f.Offset)...)
	if err != nil {
		return nil, 0, liteError(err, "list comments")
	}
	defer rows.Close()

	comments, err := collect(rows, liteScanComment)
	return comments, total, liteError(err, "list comments")
}

func (s *SQLiteStorage) Widget(ctx context.Context) (Widget, error) {
	var w Widget
	err := s.db.QueryRowContext(ctx, `SELECT title, body, body_html, last_modified FROM widget WHERE id = 1`).
		Scan(&w.Title, &w.Body, &w.BodyHTML, microTime(&w.LastModified))
	return w, liteError(err, "get widget")
}

func (s *SQLiteStorage) SaveWidget(ctx context.Context, w Widget) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO widget (id, title, body, body_html, last_modified)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title, body = excluded.body,
			body_html = excluded.body_html, last_modified = excluded.last_modified`,
		w.Title, w.Body, w.BodyHTML, micros(w.LastModified),
	)
	return liteError(err, "save widget")
}

func liteError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), sqlite.IsNotFoundError(err):
		return ErrNotFound
	case sqlite.IsForeignKeyViolationError(err):
		return fmt.Errorf("%w: %s: referenced row does not exist", ErrNotFound, op)
	case sqlite.IsDuplicateKeyError(err):
		return duplicateError(err.Error())
	default:
		return fmt.Errorf("blog: %s: %w", op, err)
	}
}

func rowsAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("blog: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
