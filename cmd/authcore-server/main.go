// Command authcore-server serves the /api/auth routes over an authcore
// Engine. Configuration comes from the environment and an optional .env file.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/httpapi"
	"github.com/MrEthical07/authcore/internal/serverconfig"
	promexport "github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/sqlstore"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		slog.Error("authcore: server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := serverconfig.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	b := authcore.New().
		WithConfig(engineCfg).
		WithLogger(logger).
		WithUserProvider(st.users).
		WithSessionStore(st.sessions)
	if st.redis != nil {
		b.WithRedis(st.redis)
	}
	if cfg.Auth.Audit {
		b.WithAuditSink(authcore.NewSlogSink(logger.With("component", "audit")))
	}
	engine, err := b.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("authcore: security report", "report", report)
	for _, w := range report.LintWarnings {
		logger.Warn("authcore: config lint", "warning", w)
	}

	opts := httpapi.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	}
	if cfg.Server.EnableMetrics {
		opts.Metrics = promexport.NewExporter(engine).Handler()
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewHandler(httpapi.NewAuthHandler(engine, logger), opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if report.PurgeSupported && cfg.Server.PurgeInterval > 0 {
		go purgeLoop(ctx, engine, cfg.Server.PurgeInterval, logger)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("authcore: listening", "addr", cfg.Server.Addr, "store", cfg.Storage.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("authcore: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type storage struct {
	users    authcore.UserProvider
	sessions session.Store
	redis    redis.UniversalClient
	closers  []func() error
}

func (s *storage) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// openStorage wires the user provider and session store for the configured
// backend. The redis backend keeps users in SQL: postgres when a database
// URL is set, SQLite otherwise.
func openStorage(ctx context.Context, cfg *serverconfig.Config) (*storage, error) {
	st := &storage{}
	if cfg.Redis.Addr != "" {
		st.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, st.redis.Close)
		if err := st.redis.Ping(ctx).Err(); err != nil {
			st.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	if cfg.Storage.Backend == serverconfig.StoreMemory {
		st.users = authcore.NewMemoryUserProvider(nil)
		st.sessions = session.NewMemoryStore()
		return st, nil
	}

	dialect, dsn := sqlstore.SQLite, ""
	if cfg.Storage.Backend == serverconfig.StorePostgres ||
		(cfg.Storage.Backend == serverconfig.StoreRedis && cfg.Storage.DatabaseURL != "") {
		dialect, dsn = sqlstore.Postgres, cfg.Storage.DatabaseURL
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
			st.close()
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn = sqlstore.SQLiteDSN(cfg.Storage.SQLitePath)
	}

	db, err := openSQL(ctx, dialect, dsn)
	if err != nil {
		st.close()
		return nil, err
	}
	st.closers = append(st.closers, db.Close)
	st.users = sqlstore.NewUserStore(db, dialect)

	// A nil session store makes the builder create a RedisStore from the
	// engine's session config.
	if cfg.Storage.Backend != serverconfig.StoreRedis {
		st.sessions = sqlstore.NewSessionStore(db, dialect)
	}
	return st, nil
}

func openSQL(ctx context.Context, dialect sqlstore.Dialect, dsn string) (*sql.DB, error) {
	db, err := sqlstore.Open(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func purgeLoop(ctx context.Context, engine *authcore.Engine, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := engine.PurgeExpiredSessions(ctx)
			if err != nil {
				logger.Warn("authcore: session purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("authcore: purged sessions", "count", n)
			}
		}
	}
}
