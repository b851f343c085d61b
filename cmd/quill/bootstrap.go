package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/quill/pkg/logger"
	"github.com/dmitrymomot/quill/svc/blog"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

var ErrAlreadySeeded = errors.New("blog already has posts")

type fixtures struct {
	Widget blog.WidgetPayload `yaml:"widget"`
	Posts  []fixturePost      `yaml:"posts"`
}

type fixturePost struct {
	Title    string           `yaml:"title"`
	Body     string           `yaml:"body"`
	Comments []fixtureComment `yaml:"comments"`
}

type fixtureComment struct {
	Email string `yaml:"email"`
	Body  string `yaml:"body"`
}

func loadFixtures(raw []byte) (fixtures, error) {
	var f fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	return f, nil
}

func bootstrap(c *cli.Context) error {
	ctx := c.Context

	a, err := newApp(ctx, c.String("storage"))
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.AdminEmail == "" || a.cfg.AdminPassword == "" {
		return ErrMissingAdmin
	}

	f, err := loadFixtures(fixturesYAML)
	if err != nil {
		return err
	}
	svc, err := a.blogService(ctx)
	if err != nil {
		return err
	}

	admin, err := ensureAdmin(ctx, svc, a.cfg.AdminEmail, c.String("admin-name"), a.cfg.AdminPassword)
	if err != nil {
		return err
	}
	switch err := seed(ctx, svc, admin, f); {
	case errors.Is(err, ErrAlreadySeeded):
		a.log.WarnContext(ctx, "skipping fixtures", logger.Error(err))
	case err != nil:
		return err
	}

	a.log.InfoContext(ctx, "bootstrap complete", logger.UserID(admin.ID))
	return nil
}

// ensureAdmin creates the admin account, or reuses it when bootstrap runs
// again.
func ensureAdmin(ctx context.Context, svc *blog.Service, email, name, password string) (blog.User, error) {
	u, err := svc.CreateUser(ctx, email, name, password)
	if errors.Is(err, blog.ErrUserExists) {
		return svc.UserByLogin(ctx, email)
	}
	return u, err
}

// seed authors every fixture post as admin. Comments are anonymous. A blog
// that already has posts is left alone.
func seed(ctx context.Context, svc *blog.Service, admin blog.User, f fixtures) error {
	existing, err := svc.ListPosts(ctx, 1)
	if err != nil {
		return err
	}
	if existing.Total > 0 {
		return ErrAlreadySeeded
	}

	if f.Widget.Title != "" {
		if _, err := svc.UpdateWidget(ctx, admin, f.Widget); err != nil {
			return fmt.Errorf("seed widget: %w", err)
		}
	}

	for _, fp := range f.Posts {
		p, err := svc.CreatePost(ctx, admin, blog.PostPayload{Title: fp.Title, Body: fp.Body})
		if err != nil {
			return fmt.Errorf("seed post %q: %w", fp.Title, err)
		}
		for _, fc := range fp.Comments {
			in := blog.CommentPayload{Body: fc.Body, AuthorEmail: fc.Email}
			if _, err := svc.AddComment(ctx, p.ID, blog.User{}, in); err != nil {
				return fmt.Errorf("seed comment on %q: %w", fp.Title, err)
			}
		}
	}
	return nil
}
