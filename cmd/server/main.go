package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/labreport/internal/config"
	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/JonMunkholm/labreport/internal/database"
	"github.com/JonMunkholm/labreport/internal/logging"
	"github.com/JonMunkholm/labreport/internal/metrics"
	"github.com/JonMunkholm/labreport/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"autosave_interval", cfg.Session.AutosaveInterval,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("configuration", "config", cfg.String())

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	if err := database.EnsureSchema(ctx, pool); err != nil {
		slog.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	service := core.NewService(core.NewPostgresStateStore(pool), cfg, m)

	// Pick up where the last session left off.
	switch err := service.RestoreState(ctx); {
	case err == nil:
		slog.Info("previous session restored")
	case errors.Is(err, core.ErrStateNotFound):
		slog.Info("no saved session, starting empty")
	default:
		slog.Warn("failed to restore saved session, starting empty", "error", err)
	}

	server := web.NewServer(service, cfg, web.Options{
		Metrics:  m,
		Gatherer: reg,
		Ping:     pool.Ping,
	})

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartAutosaveScheduler(jobCtx, cfg.Session.AutosaveInterval)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := service.ActiveIngests(); active > 0 {
			slog.Info("waiting for ingestions to complete", "active", active)
			if err := service.WaitForIngests(shutdownCtx); err != nil {
				slog.Warn("ingestions did not complete in time", "error", err)
			}
		}

		// Save once more so the last edits survive the restart.
		if err := service.SaveState(shutdownCtx); err != nil && !errors.Is(err, core.ErrNoDataset) {
			slog.Warn("final save failed", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
