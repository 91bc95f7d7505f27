package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/avolkov/directline/internal/auth"
	"github.com/avolkov/directline/internal/backplane"
	"github.com/avolkov/directline/internal/config"
	"github.com/avolkov/directline/internal/core"
	"github.com/avolkov/directline/internal/store"
	"github.com/avolkov/directline/internal/store/sqlite"
	transporthttp "github.com/avolkov/directline/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	bp              backplane.Backplane
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	// Persisted online flags survive unclean shutdowns; clear them before
	// accepting connections so the flag is rebuilt from live registrations.
	if err := st.ResetOnline(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("reset online flags: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	bp := newBackplane(ctx, cfg, logger)

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	hub := core.NewHub(st, bp, logger)
	server := transporthttp.NewServer(hub, authService, st, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		bp:              bp,
		log:             logger,
	}, nil
}

// newBackplane connects to Redis when configured, degrading to the no-op
// single-process backplane when Redis is absent or unreachable.
func newBackplane(ctx context.Context, cfg config.Config, logger *zerolog.Logger) backplane.Backplane {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("no redis configured, running single-process")
		return backplane.NewNoop()
	}

	bp, err := backplane.NewRedis(ctx, backplane.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).
			Msg("redis unavailable, degrading to local-only delivery")
		return backplane.NewNoop()
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("redis backplane connected")
	return bp
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.hub.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error().Err(err).Msg("backplane consumer stopped")
		}
	}()

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the database and backplane connections.
func (a *App) cleanup() {
	if a.bp != nil {
		if err := a.bp.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close backplane")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
