// Package app wires the guestlist server runtime: config, logging, storage backends, the
// HTTP router and graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"guestlist/cmd/internal/api"
	"guestlist/cmd/internal/auth"
	"guestlist/cmd/internal/directory"
	"guestlist/cmd/internal/gift"
	"guestlist/cmd/internal/guest"
	"guestlist/cmd/internal/invitation"
	"guestlist/cmd/internal/invite"
	"guestlist/cmd/internal/metrics"
	"guestlist/cmd/internal/realtime"
	"guestlist/cmd/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// backends are the stores one deployment mode provides.
type backends struct {
	store       Store
	pool        *pgxpool.Pool
	dbEnabled   bool
	dir         directory.Directory
	invitations invitation.Store
	guests      guest.Store
	gifts       gift.Store
}

// App is the guestlist server runtime.
type App struct {
	cfg Config
	log Logger

	store     Store
	dbPool    *pgxpool.Pool
	dbEnabled bool

	live    *realtime.Hub
	handler http.Handler

	// logCloser releases a file sink New opened itself.
	logCloser io.Closer
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	var logCloser io.Closer = nopCloser{}
	if log == nil {
		l, c, err := NewLogger(cfg)
		if err != nil {
			return nil, err
		}
		log, logCloser = l, c
	}

	b, err := newBackends(ctx, cfg, log)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	var live *realtime.Gateway
	if cfg.LiveEnabled {
		live = realtime.NewGateway(log, realtime.NewHub(log), cfg.LiveConfig())
	}

	h, m, err := newAPI(cfg, log, b, live)
	if err != nil {
		_ = b.store.Close(ctx)
		_ = logCloser.Close()
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     b.store,
		dbPool:    b.pool,
		dbEnabled: b.dbEnabled,
		live:      live.Hub(),
		handler:   newRouter(log, cfg, b.pool, b.dbEnabled, m, h),
		logCloser: logCloser,
	}, nil
}

// Handler exposes the fully assembled HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

func newAPI(cfg Config, log Logger, b backends, live *realtime.Gateway) (*api.Handler, *metrics.Metrics, error) {
	m := metrics.New()

	guests, err := guest.NewService(b.guests)
	if err != nil {
		return nil, nil, err
	}
	invitations, err := invitation.NewService(b.invitations, b.dir, guests)
	if err != nil {
		return nil, nil, err
	}
	gifts, err := gift.NewService(b.gifts, guests)
	if err != nil {
		return nil, nil, err
	}
	invites, err := invite.NewService(b.guests, b.dir,
		invite.WithLogger(log),
		invite.WithMetrics(m),
		invite.WithLiveFeed(live.Hub()),
	)
	if err != nil {
		return nil, nil, err
	}
	authn, err := newAuthenticator(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AuthMode == authModeHeader {
		log.Warn("auth.header_mode", "header", cfg.AuthUserHeader)
	}

	h, err := api.NewHandler(log, cfg.APIConfig(), api.Deps{
		Invitations: invitations,
		Guests:      guests,
		Gifts:       gifts,
		Invites:     invites,
		Directory:   b.dir,
		Auth:        authn,
		Metrics:     m,
		Live:        live,
	})
	if err != nil {
		return nil, nil, err
	}
	return h, m, nil
}

func newAuthenticator(cfg Config) (auth.Authenticator, error) {
	switch cfg.AuthMode {
	case authModeHeader:
		return auth.HeaderAuthenticator{Header: cfg.AuthUserHeader}, nil
	default:
		return auth.NewJWTVerifier(auth.JWTConfig{
			Secret:   []byte(cfg.AuthJWTSecret),
			Issuer:   cfg.AuthJWTIssuer,
			Audience: cfg.AuthJWTAudience,
		})
	}
}

// newBackends decides between Postgres-backed persistence and the in-memory dev stores.
func newBackends(ctx context.Context, cfg Config, log Logger) (backends, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		dir := directory.NewMemoryStore()
		if seed := strings.TrimSpace(cfg.DirectorySeed); seed != "" {
			if err := dir.LoadSeed(seed); err != nil {
				return backends{}, err
			}
			log.Info("directory.seed.loaded", "path", seed)
		}
		return backends{
			store:       nopStore{},
			dir:         dir,
			invitations: invitation.NewMemoryStore(),
			guests:      guest.NewMemoryStore(),
			gifts:       gift.NewMemoryStore(),
		}, nil
	}

	if cfg.DBMigrate {
		applied, err := storage.Migrate(ctx, cfg.DatabaseURL, cfg.DBSchema)
		if err != nil {
			return backends{}, fmt.Errorf("migrate: %w", err)
		}
		log.Info("db.migrate.done", "schema", cfg.DBSchema, "applied", applied)
	}

	pool, err := NewDBPool(ctx, cfg, log)
	if err != nil {
		return backends{}, err
	}
	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)

	// The app owns the pool; the stores only borrow it.
	b, err := postgresBackends(pool, cfg.DBSchema)
	if err != nil {
		pool.Close()
		return backends{}, err
	}
	return b, nil
}

func postgresBackends(pool *pgxpool.Pool, schema string) (backends, error) {
	dir, err := directory.NewPostgresStore(pool, directory.WithSchema(schema))
	if err != nil {
		return backends{}, err
	}
	invitations, err := invitation.NewPostgresStore(pool, invitation.WithSchema(schema))
	if err != nil {
		return backends{}, err
	}
	guests, err := guest.NewPostgresStore(pool, guest.WithSchema(schema))
	if err != nil {
		return backends{}, err
	}
	gifts, err := gift.NewPostgresStore(pool, gift.WithSchema(schema))
	if err != nil {
		return backends{}, err
	}
	return backends{
		store:       dbStore{pool: pool},
		pool:        pool,
		dbEnabled:   true,
		dir:         dir,
		invitations: invitations,
		guests:      guests,
		gifts:       gifts,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if a.logCloser != nil {
			_ = a.logCloser.Close()
		}
	}()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	// Hijacked live sockets are not tracked by Shutdown.
	srv.RegisterOnShutdown(a.live.Close)

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled, "auth_mode", a.cfg.AuthMode)

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
		_ = a.store.Close(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

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
