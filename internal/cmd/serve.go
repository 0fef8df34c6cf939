package cmd

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rootlab/rootlab/internal/config"
	"github.com/rootlab/rootlab/internal/core/store"
	apperrors "github.com/rootlab/rootlab/internal/errors"
	"github.com/rootlab/rootlab/internal/metrics"
	"github.com/rootlab/rootlab/internal/observability"
	"github.com/rootlab/rootlab/internal/server"
	"github.com/rootlab/rootlab/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker fails when metrics are enabled but the exporter
// did not start.
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return apperrors.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server: POST /api/chat streams lessons, /api/lessons
generates and browses history, /api/parse structures text.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload and validate the config file (restart to apply)`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (default from server.host)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "server port (default from server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadedConfig(ctx)
	if err != nil {
		return err
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	namespace := appIdentity.BinaryName
	observability.InitServerLogger(appIdentity.BinaryName, observability.ServerLoggerOptions{
		Level:     cfg.Logging.Level,
		Profile:   cfg.Logging.Profile,
		Namespace: namespace,
	})
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(namespace, cfg.Metrics.Port); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "metrics initialization failed")
		}
		server.MetricsPort = observability.GetMetricsPort()
		metrics.SetServerStartTime(time.Now().Unix())
	}

	logger.Info("Initializing server",
		zap.String("service", appIdentity.BinaryName),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Bool("history", cfg.Store.Enabled))

	var db *store.Store
	if cfg.Store.Enabled {
		db, err = openStore(ctx, cfg)
		if err != nil {
			logger.Warn("Lesson history unavailable", zap.Error(err))
			db = nil
		}
	}

	gen, err := newGenerator(cfg, db, logger)
	if err != nil {
		return apperrors.Wrap(ctx, apperrors.CodeConfigInvalid, err, "lesson generator setup failed")
	}

	deps := server.Deps{
		Generator:    gen,
		Parser:       gen.Parser,
		HistoryLimit: cfg.Lesson.HistoryLimit,
		DefaultLevel: cfg.Lesson.DefaultLevel,
		AdminToken:   os.Getenv(config.EnvPrefix + "ADMIN_TOKEN"),
	}
	if db != nil {
		deps.History = db
	}
	if cfg.Health.Enabled {
		hm := handlers.NewHealthManager(versionInfo.Version)
		hm.RegisterChecker("providers", handlers.ProvidersChecker(cfg.AILink))
		if db != nil {
			hm.RegisterChecker("store", db)
		}
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}
		deps.Health = hm
	}

	handlers.SetAppIdentity(appIdentity)
	srv := server.New(cfg.Server, deps)

	// Shutdown handlers run LIFO: the HTTP server stops first, then the
	// store closes, then the logger flushes.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	if db != nil {
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Closing lesson store...")
			return db.Close()
		})
	}

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: validating configuration")
		reloaded, err := config.LoadFile(ctx, cfgFile)
		if err != nil {
			logger.Error("Config reload failed", zap.Error(err))
			return apperrors.WrapConfigInvalid(ctx, err, "config reload failed")
		}
		logger.Info("Configuration is valid; restart to apply changes",
			zap.Int("providers", len(reloaded.AILink.Providers)),
			zap.String("log_level", reloaded.Logging.Level))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 2)
	go func() {
		// Start returns nil after Shutdown; the signal manager then exits
		// once the remaining shutdown handlers have run.
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "server error")
	}
	return nil
}
