package blog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	rowScanner
	Next() bool
	Err() error
}

// timeDest adapts a *time.Time to whatever the driver scans timestamps
// into.
type timeDest func(*time.Time) any

func scanUser(td timeDest) func(rowScanner) (User, error) {
	return func(row rowScanner) (User, error) {
		var u User
		err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Location, &u.AboutMe, &u.AboutMeHTML,
			&u.PhotoURL, td(&u.MemberSince), td(&u.LastSeen), &u.PostCount)
		u.MemberSince, u.LastSeen = u.MemberSince.UTC(), u.LastSeen.UTC()
		return u, err
	}
}

func scanPost(td timeDest) func(rowScanner) (Post, error) {
	return func(row rowScanner) (Post, error) {
		var p Post
		err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Body, &p.BodyHTML, &p.AuthorID, td(&p.CreatedAt), &p.CommentsCount)
		p.CreatedAt = p.CreatedAt.UTC()
		return p, err
	}
}

func scanComment(td timeDest) func(rowScanner) (Comment, error) {
	return func(row rowScanner) (Comment, error) {
		var c Comment
		err := row.Scan(&c.ID, &c.Body, td(&c.CreatedAt), &c.Disabled, &c.AuthorEmail, &c.AvatarURL, &c.PostID, &c.AuthorID)
		c.CreatedAt = c.CreatedAt.UTC()
		return c, err
	}
}

func collect[T any](rows rowsIter, scan func(rowScanner) (T, error)) ([]T, error) {
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nativeTime(t *time.Time) any { return t }

// unixMicro scans an INTEGER column holding unix microseconds.
type unixMicro struct{ t *time.Time }

func microTime(t *time.Time) any { return unixMicro{t: t} }

func (u unixMicro) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*u.t = time.UnixMicro(v).UTC()
	case nil:
		*u.t = time.Time{}
	default:
		return fmt.Errorf("blog: cannot scan %T into timestamp", src)
	}
	return nil
}

var _ sql.Scanner = unixMicro{}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// limitOrAll turns a zero limit into "no limit" for LIMIT clauses.
func limitOrAll(limit int) int64 {
	if limit <= 0 {
		return 1<<63 - 1
	}
	return int64(limit)
}

// duplicateError picks the sentinel for a unique violation by the
// constraint or column named in the driver message.
func duplicateError(msg string) error {
	if strings.Contains(msg, "slug") {
		return ErrSlugTaken
	}
	return ErrUserExists
}
