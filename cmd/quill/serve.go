package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/urfave/cli/v2"

	"github.com/dmitrymomot/quill/modules/api"
	"github.com/dmitrymomot/quill/modules/site"
	"github.com/dmitrymomot/quill/pkg/config"
	"github.com/dmitrymomot/quill/pkg/file"
	"github.com/dmitrymomot/quill/pkg/httpserver"
	"github.com/dmitrymomot/quill/pkg/jwt"
	"github.com/dmitrymomot/quill/pkg/logger"
	"github.com/dmitrymomot/quill/pkg/requestid"
	"github.com/dmitrymomot/quill/svc/token"
)

func serve(c *cli.Context) error {
	ctx := c.Context

	a, err := newApp(ctx, c.String("storage"))
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.SecretKey == "" {
		return ErrMissingSecret
	}

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}

	router, err := a.router(ctx, httpCfg)
	if err != nil {
		return err
	}

	srv := httpserver.New(httpCfg, httpserver.WithLogger(a.log.With(logger.Component("http"))))
	return srv.Run(ctx, router)
}

// router assembles the API, the site and the health probes.
func (a *app) router(ctx context.Context, httpCfg httpserver.Config) (http.Handler, error) {
	svc, err := a.blogService(ctx)
	if err != nil {
		return nil, err
	}

	signer, err := jwt.NewFromString(a.cfg.SecretKey)
	if err != nil {
		return nil, err
	}
	accounts := token.NewBcryptAuthenticator(svc.LookupAccount)
	tokens := token.New(signer, accounts)

	limiter, err := a.rateLimiter(ctx)
	if err != nil {
		return nil, err
	}

	var fileCfg file.Config
	if err := config.Load(&fileCfg); err != nil {
		return nil, err
	}
	files, err := file.New(ctx, fileCfg)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		middleware.RealIP,
		requestid.Middleware,
		logger.Middleware(a.log),
	)

	r.Get("/livez", httpserver.HealthCheckHandler(a.log, httpCfg.HealthTimeout))
	r.Get("/healthz", httpserver.HealthCheckHandler(a.log, httpCfg.HealthTimeout, a.checks...))

	r.Mount(api.Prefix, api.New(svc, tokens, a.cfg.BaseURL,
		api.WithRateLimiter(limiter),
		api.WithLogger(a.log),
	).Handle())

	if prefix := fileCfg.LocalURL; fileCfg.Driver != "s3" && strings.HasPrefix(prefix, "/") {
		prefix = strings.TrimSuffix(prefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(fileCfg.LocalDir))))
	}

	r.Mount("/", site.New(svc, accounts,
		site.WithLogger(a.log),
		site.WithFileStorage(files, fileCfg.MaxBytes),
	).Handle())

	return r, nil
}
