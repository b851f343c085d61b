package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/quill/migrations"
	"github.com/dmitrymomot/quill/pkg/config"
	"github.com/dmitrymomot/quill/pkg/email"
	"github.com/dmitrymomot/quill/pkg/httpserver"
	"github.com/dmitrymomot/quill/pkg/logger"
	"github.com/dmitrymomot/quill/pkg/opensearch"
	"github.com/dmitrymomot/quill/pkg/pg"
	"github.com/dmitrymomot/quill/pkg/ratelimiter"
	"github.com/dmitrymomot/quill/pkg/redis"
	"github.com/dmitrymomot/quill/pkg/requestid"
	"github.com/dmitrymomot/quill/pkg/sqlite"
	"github.com/dmitrymomot/quill/svc/authz"
	"github.com/dmitrymomot/quill/svc/blog"
	"github.com/dmitrymomot/quill/svc/token"
)

const (
	storagePostgres = "postgres"
	storageSQLite   = "sqlite"
	storageMemory   = "memory"
)

var (
	ErrUnknownStorage = errors.New("unknown storage backend")
	ErrMissingSecret  = errors.New("SECRET_KEY is required")
	ErrMissingAdmin   = errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required")
)

type appConfig struct {
	Env             string `env:"APP_ENV" envDefault:"development"`
	Name            string `env:"APP_NAME" envDefault:"quill"`
	BaseURL         string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	SecretKey       string `env:"SECRET_KEY"`
	AdminEmail      string `env:"ADMIN_EMAIL"`
	AdminPassword   string `env:"ADMIN_PASSWORD"`
	PostsPerPage    int    `env:"POSTS_PER_PAGE" envDefault:"20"`
	CommentsPerPage int    `env:"COMMENTS_PER_PAGE" envDefault:"50"`
	TokenRateLimit  int    `env:"TOKEN_RATE_LIMIT" envDefault:"10"` // per client IP per minute
}

// app holds the process-wide dependencies shared by the commands.
type app struct {
	cfg     appConfig
	log     *slog.Logger
	store   blog.Storage
	checks  []httpserver.Check
	closers []func()
}

// newApp loads configuration, builds the logger and opens the storage
// backend with its migrations applied.
func newApp(ctx context.Context, storage string) (*app, error) {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	a := &app{
		cfg: cfg,
		log: logger.New(
			logger.WithEnvironment(cfg.Env, cfg.Name),
			logger.WithContextExtractors(requestid.LogExtractor, token.LogExtractor),
		),
	}
	if err := a.openStorage(ctx, storage); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) onClose(fn func()) { a.closers = append(a.closers, fn) }

func (a *app) openStorage(ctx context.Context, kind string) error {
	log := a.log.With(logger.Component("storage"))

	switch kind {
	case storagePostgres:
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return err
		}
		a.onClose(pool.Close)
		if err := pg.Migrate(ctx, pool, cfg, migrations.Postgres(), log); err != nil {
			return err
		}
		a.store = blog.NewPGStorage(pool)
		a.checks = append(a.checks, httpserver.Check{Name: "postgres", Probe: pg.Healthcheck(pool)})

	case storageSQLite:
		var cfg sqlite.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}
		db, err := sqlite.Open(ctx, cfg)
		if err != nil {
			return err
		}
		a.onClose(func() { _ = db.Close() })
		if err := sqlite.Migrate(ctx, db, cfg, migrations.SQLite(), log); err != nil {
			return err
		}
		a.store = blog.NewSQLiteStorage(db)
		a.checks = append(a.checks, httpserver.Check{Name: "sqlite", Probe: sqlite.Healthcheck(db)})

	case storageMemory:
		log.WarnContext(ctx, "using in-memory storage, data is lost on exit")
		a.store = blog.NewMemoryStorage()

	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, kind)
	}

	log.InfoContext(ctx, "storage ready", slog.String("backend", kind))
	return nil
}

// blogService wires the optional search index and mailer.
func (a *app) blogService(ctx context.Context) (*blog.Service, error) {
	opts := []blog.Option{
		blog.WithLogger(a.log),
		blog.WithPolicy(authz.NewEmailPolicy(a.cfg.AdminEmail)),
		blog.WithPageSizes(a.cfg.PostsPerPage, a.cfg.CommentsPerPage),
		blog.WithSiteURL(a.cfg.BaseURL),
	}

	var searchCfg opensearch.Config
	if err := config.Load(&searchCfg); err != nil {
		return nil, err
	}
	if searchCfg.Enabled() {
		client, err := opensearch.New(ctx, searchCfg)
		if err != nil {
			return nil, err
		}
		idx, err := blog.NewOpenSearchIndexer(ctx, client, searchCfg.Index)
		if err != nil {
			return nil, err
		}
		opts = append(opts, blog.WithSearchIndexer(idx))
		a.checks = append(a.checks, httpserver.Check{Name: "opensearch", Probe: opensearch.Healthcheck(client)})
	}

	var mailCfg email.Config
	if err := config.Load(&mailCfg); err != nil {
		return nil, err
	}
	mailer, err := email.New(mailCfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, blog.WithMailer(mailer))

	return blog.New(a.store, opts...), nil
}

// rateLimiter limits the token endpoints. Redis is used when configured so
// limits hold across instances.
func (a *app) rateLimiter(ctx context.Context) (ratelimiter.RateLimiter, error) {
	var cfg redis.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	var store ratelimiter.Store
	if cfg.Enabled() {
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = client.Close() })
		a.checks = append(a.checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)})
		store = ratelimiter.NewRedisStore(client, ratelimiter.WithKeyPrefix(a.cfg.Name+":ratelimit:"))
	} else {
		mem := ratelimiter.NewMemoryStore()
		a.onClose(mem.Close)
		store = mem
	}

	return ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       a.cfg.TokenRateLimit,
		RefillRate:     a.cfg.TokenRateLimit,
		RefillInterval: time.Minute,
	})
}
