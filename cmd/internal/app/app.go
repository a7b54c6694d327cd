// Package app wires the balcao auth server runtime: config, logging,
// storage, sessions, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"balcao/cmd/identity"
	authapi "balcao/cmd/internal/auth/api"
	"balcao/cmd/internal/auth/session"
	"balcao/cmd/security/apikey"
)

// App is the balcao server runtime. It owns the HTTP server wiring and
// the lifecycle of its backing resources.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	redis *redis.Client

	metricsReg *prometheus.Registry
	adminKeys  *apikey.Set

	auth *authapi.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	dbPool, dbEnabled, err := newDB(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		closePool(dbPool)
		return nil, err
	}
	codec, err := session.NewJWTCodec(sessCfg)
	if err != nil {
		closePool(dbPool)
		return nil, err
	}
	hasher, err := identity.NewHasher()
	if err != nil {
		closePool(dbPool)
		return nil, err
	}

	var users identity.Store
	var tokens session.Store
	if dbEnabled {
		userStore, err := identity.NewPostgresStore(dbPool)
		if err != nil {
			closePool(dbPool)
			return nil, err
		}
		users = userStore
		tokens = session.NewPostgresStore(dbPool)
	} else {
		memUsers := identity.NewMemoryStore()
		users = memUsers
		tokens = session.NewMemoryStore(memUsers)
	}

	sessions := session.NewService(sessCfg, codec, tokens, users, hasher, log)

	redisClient, err := NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		// The limiter fails open without Redis; a broken URL should not
		// take the auth service down with it.
		log.Warn("redis.unavailable", "err", err)
		redisClient = nil
	}

	metricsReg := newMetricsRegistry()

	authCfg := authapi.LoadConfigFromEnv()
	authHandler, err := authapi.NewHandler(log, authCfg, sessions, redisClient, authapi.NewMetrics(metricsReg))
	if err != nil {
		closePool(dbPool)
		return nil, err
	}

	adminKeys, err := apikey.FromEnv()
	if err != nil {
		if !errors.Is(err, apikey.ErrNoKeys) {
			closePool(dbPool)
			return nil, err
		}
		if cfg.MetricsEnabled {
			log.Warn("metrics.unguarded", "hint", "set "+apikey.EnvKey+" to restrict /metrics")
		}
		adminKeys = nil
	}

	return &App{
		cfg:        cfg,
		log:        log,
		dbPool:     dbPool,
		dbEnabled:  dbEnabled,
		redis:      redisClient,
		metricsReg: metricsReg,
		adminKeys:  adminKeys,
		auth:       authHandler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()

	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.auth, a.metricsReg, a.adminKeys)

	handler := WithSecurityHeaders(mux)
	handler = WithRequestMetrics(handler, newRequestDuration(a.metricsReg))
	handler = WithRequestLogging(handler, a.log)
	handler = withCORS(handler, a.cfg.CORSAllowedOrigins)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

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

	a.close()
	a.log.Info("server.stopped")
	return nil
}

func (a *App) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	closePool(a.dbPool)
}

// newDB decides between Postgres-backed persistence and the in-memory
// dev store, and applies migrations when configured to.
func newDB(ctx context.Context, cfg Config, log Logger) (*pgxpool.Pool, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nil, false, nil
	}

	if cfg.AutoMigrate {
		if err := RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return nil, false, err
		}
		log.Info("db.migrations.applied")
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, false, err
	}

	log.Info("db.enabled.postgres_store")
	return pool, true, nil
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
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
