// Package app wires the lodge server runtime: config, logging, metrics,
// database, migrations, and HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"lodge/cmd/identity"
	"lodge/cmd/internal/web"
	"lodge/cmd/security/cookie"
	"lodge/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the lodge server runtime.
type App struct {
	cfg Config
	log Logger

	pool    *pgxpool.Pool
	metrics *Metrics
	site    *web.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if err := ValidateSecurityConfig(); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("LODGE_DATABASE_URL is required")
	}

	if cfg.AutoMigrate {
		if err := RunMigrations(ctx, log, cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("db.connected")

	store, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	key, err := cookie.KeyFromEnv(32)
	if err != nil {
		pool.Close()
		return nil, err
	}
	codec, err := cookie.NewCodec(key)
	if err != nil {
		pool.Close()
		return nil, err
	}

	passwords, err := password.FromEnv()
	if err != nil {
		pool.Close()
		return nil, err
	}

	metrics := NewMetrics()

	site, err := web.NewHandler(log, store, pool, passwords, codec, metrics)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &App{
		cfg:     cfg,
		log:     log,
		pool:    pool,
		metrics: metrics,
		site:    site,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.pool, a.metrics, a.site)

	var handler http.Handler = mux
	handler = WithSecurityHeaders(handler)
	handler = WithRequestLogging(handler, a.log, a.metrics)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.pool.Close()
	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
