package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/quill/pkg/pg"
)

// pgDB is satisfied by *pgxpool.Pool and pgx.Tx.
type pgDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGStorage stores the blog in PostgreSQL.
type PGStorage struct {
	db pgDB
}

// NewPGStorage wraps a pool (or a transaction).
func NewPGStorage(db pgDB) *PGStorage {
	return &PGStorage{db: db}
}

const (
	pgUserColumns = `u.id, u.email, u.name, u.password_hash, u.location, u.about_me, u.about_me_html,
		u.photo_url, u.member_since, u.last_seen,
		(SELECT count(*) FROM posts p WHERE p.author_id = u.id)`
	pgPostColumns = `p.id, p.title, COALESCE(p.slug, ''), p.body, p.body_html, p.author_id, p.created_at,
		(SELECT count(*) FROM comments c WHERE c.post_id = p.id)`
	pgCommentColumns = `c.id, c.body, c.created_at, c.disabled, c.author_email, c.avatar_url, c.post_id,
		COALESCE(c.author_id, 0)`
)

var (
	pgScanUser    = scanUser(nativeTime)
	pgScanPost    = scanPost(nativeTime)
	pgScanComment = scanComment(nativeTime)
)

func (s *PGStorage) InTx(ctx context.Context, fn func(tx Storage) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&PGStorage{db: tx})
	})
}

func (s *PGStorage) CreateUser(ctx context.Context, u *User) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, location, about_me, about_me_html, photo_url, member_since, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		u.Email, u.Name, u.PasswordHash, u.Location, u.AboutMe, u.AboutMeHTML, u.PhotoURL, u.MemberSince, u.LastSeen,
	).Scan(&u.ID)
	return pgError(err, "create user")
}

func (s *PGStorage) UserByID(ctx context.Context, id int64) (User, error) {
	return s.userWhere(ctx, "u.id = $1", id)
}

func (s *PGStorage) UserByLogin(ctx context.Context, login string) (User, error) {
	u, err := s.userWhere(ctx, "lower(u.email) = lower($1)", login)
	if errors.Is(err, ErrNotFound) {
		return s.userWhere(ctx, "u.name = $1", login)
	}
	return u, err
}

func (s *PGStorage) userWhere(ctx context.Context, cond string, arg any) (User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+pgUserColumns+` FROM users u WHERE `+cond, arg)
	u, err := pgScanUser(row)
	return u, pgError(err, "get user")
}

func (s *PGStorage) UpdateUser(ctx context.Context, u User) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET email = $2, name = $3, password_hash = $4, location = $5,
			about_me = $6, about_me_html = $7, photo_url = $8
		WHERE id = $1`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Location, u.AboutMe, u.AboutMeHTML, u.PhotoURL,
	)
	return affected(tag, pgError(err, "update user"))
}

func (s *PGStorage) TouchUser(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET last_seen = $2 WHERE id = $1`, id, at)
	return affected(tag, pgError(err, "touch user"))
}

func (s *PGStorage) CreatePost(ctx context.Context, p *Post) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO posts (title, body, body_html, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		p.Title, p.Body, p.BodyHTML, p.AuthorID, p.CreatedAt,
	).Scan(&p.ID)
	p.Slug = ""
	return pgError(err, "create post")
}

func (s *PGStorage) SetPostSlug(ctx context.Context, id int64, slug string) error {
	tag, err := s.db.Exec(ctx, `UPDATE posts SET slug = $2 WHERE id = $1`, id, slug)
	return affected(tag, pgError(err, "set post slug"))
}

func (s *PGStorage) PostByID(ctx context.Context, id int64) (Post, error) {
	p, err := pgScanPost(s.db.QueryRow(ctx, `SELECT `+pgPostColumns+` FROM posts p WHERE p.id = $1`, id))
	return p, pgError(err, "get post")
}

func (s *PGStorage) PostBySlug(ctx context.Context, slug string) (Post, error) {
	p, err := pgScanPost(s.db.QueryRow(ctx, `SELECT `+pgPostColumns+` FROM posts p WHERE p.slug = $1`, slug))
	return p, pgError(err, "get post by slug")
}

func (s *PGStorage) PostOwnerBySlug(ctx context.Context, slug string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRow(ctx, `SELECT id FROM posts WHERE slug = $1`, slug).Scan(&id)
	if pg.IsNotFoundError(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, pgError(err, "lookup slug")
	}
	return id, true, nil
}

func (s *PGStorage) UpdatePost(ctx context.Context, p Post) error {
	tag, err := s.db.Exec(ctx, `UPDATE posts SET title = $2, body = $3, body_html = $4 WHERE id = $1`,
		p.ID, p.Title, p.Body, p.BodyHTML)
	return affected(tag, pgError(err, "update post"))
}

func (s *PGStorage) DeletePost(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	return affected(tag, pgError(err, "delete post"))
}

func (s *PGStorage) ListPosts(ctx context.Context, f PostFilter) ([]Post, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.AuthorID != 0 {
		args = append(args, f.AuthorID)
		conds = append(conds, fmt.Sprintf("p.author_id = $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, "%"+escapeLike(f.Query)+"%")
		conds = append(conds, fmt.Sprintf("(p.title ILIKE $%[1]d OR p.body ILIKE $%[1]d)", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM posts p`+where, args...).Scan(&total); err != nil {
		return nil, 0, pgError(err, "count posts")
	}

	args = append(args, limitOrAll(f.Limit), f.Offset)
	rows, err := s.db.Query(ctx, `SELECT `+pgPostColumns+` FROM posts p`+where+
		fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, pgError(err, "list posts")
	}
	defer rows.Close()
	posts, err := collect(rows, pgScanPost)
	return posts, total, pgError(err, "list posts")
}

func (s *PGStorage) CreateComment(ctx context.Context, c *Comment) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO comments (body, created_at, disabled, author_email, avatar_url, post_id, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7::bigint, 0))
		RETURNING id`,
		c.Body, c.CreatedAt, c.Disabled, c.AuthorEmail, c.AvatarURL, c.PostID, c.AuthorID,
	).Scan(&c.ID)
	return pgError(err, "create comment")
}

func (s *PGStorage) CommentByID(ctx context.Context, id int64) (Comment, error) {
	c, err := pgScanComment(s.db.QueryRow(ctx, `SELECT `+pgCommentColumns+` FROM comments c WHERE c.id = $1`, id))
	return c, pgError(err, "get comment")
}

func (s *PGStorage) SetCommentDisabled(ctx context.Context, id int64, disabled bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE comments SET disabled = $2 WHERE id = $1`, id, disabled)
	return affected(tag, pgError(err, "moderate comment"))
}

func (s *PGStorage) ListComments(ctx context.Context, f CommentFilter) ([]Comment, int, error) {
	var (
		conds []string
		args  []any
	)
	order := "c.created_at DESC, c.id DESC"
	if f.PostID != 0 {
		args = append(args, f.PostID)
		conds = append(conds, fmt.Sprintf("c.post_id = $%d", len(args)))
		order = "c.created_at ASC, c.id ASC"
	}
	if !f.IncludeDisabled {
		conds = append(conds, "NOT c.disabled")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM comments c`+where, args...).Scan(&total); err != nil {
		return nil, 0, pgError(err, "count comments")
	}

	args = append(args, limitOrAll(f.Limit), f.Offset)
	rows, err := s.db.Query(ctx, `SELECT `+pgCommentColumns+` FROM comments c`+where+
		fmt.Sprintf(` ORDER BY %s LIMIT $%d OFFSET $%d`, order, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, pgError(err, "list comments")
	}
	defer rows.Close()
	comments, err := collect(rows, pgScanComment)
	return comments, total, pgError(err, "list comments")
}

func (s *PGStorage) Widget(ctx context.Context) (Widget, error) {
	var w Widget
	err := s.db.QueryRow(ctx, `SELECT title, body, body_html, last_modified FROM widget WHERE id = 1`).
		Scan(&w.Title, &w.Body, &w.BodyHTML, &w.LastModified)
	w.LastModified = w.LastModified.UTC()
	return w, pgError(err, "get widget")
}

func (s *PGStorage) SaveWidget(ctx context.Context, w Widget) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO widget (id, title, body, body_html, last_modified)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, body = EXCLUDED.body,
			body_html = EXCLUDED.body_html, last_modified = EXCLUDED.last_modified`,
		w.Title, w.Body, w.BodyHTML, w.LastModified,
	)
	return pgError(err, "save widget")
}

// pgError maps driver errors onto the package's sentinel errors.
func pgError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), pg.IsNotFoundError(err):
		return ErrNotFound
	case pg.IsForeignKeyViolationError(err):
		return fmt.Errorf("%w: %s: referenced row does not exist", ErrNotFound, op)
	case pg.IsDuplicateKeyError(err):
		return duplicateError(err.Error())
	default:
		return fmt.Errorf("blog: %s: %w", op, err)
	}
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
