package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pipeline/internal/config"
	"github.com/alfredjeanlab/pipeline/internal/events"
	"github.com/alfredjeanlab/pipeline/internal/export"
	"github.com/alfredjeanlab/pipeline/internal/permission"
	"github.com/alfredjeanlab/pipeline/internal/server"
	"github.com/alfredjeanlab/pipeline/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pipeline HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Connect to Postgres.
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (PIPELINE_NATS_URL not set)")
		}

		// Load the roles file when configured; without it permission
		// checks are disabled and every actor is trusted.
		gate := permission.New(permission.DefaultGrants(), nil)
		var resolver server.RoleResolver
		if cfg.RolesFile != "" {
			roles, err := config.LoadRoles(cfg.RolesFile)
			if err != nil {
				publisher.Close()
				store.Close()
				return err
			}
			gate = roles.Gate()
			resolver = roles
			logger.Info("permission checks enabled", "roles_file", cfg.RolesFile)
		} else {
			logger.Warn("permission checks disabled (PIPELINE_ROLES_FILE not set)")
		}

		// Create and start the HTTP server.
		pipelineServer := server.NewPipelineServer(store, publisher, gate, resolver)
		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: pipelineServer.NewHTTPHandler(cfg.AuthToken),
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start export scheduler if any destinations are configured.
		var scheduler *export.Scheduler
		if cfg.ExportInterval > 0 {
			dests := buildDestinations(cmd.Context(), cfg, logger)
			if len(dests) > 0 {
				scheduler = export.NewScheduler(store, dests, cfg.ExportInterval, cfg.ExportFormat, publisher, logger)
				scheduler.Start()
				logger.Info("export scheduler started", "interval", cfg.ExportInterval, "format", cfg.ExportFormat)
			}
		}

		logger.Info("pipeline server started", "http_addr", cfg.HTTPAddr)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("export scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// buildDestinations assembles export destinations from config. Failures are
// logged and skipped so one misconfigured destination does not block the rest.
func buildDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []export.Destination {
	var dests []export.Destination

	if cfg.ExportS3Bucket != "" {
		s3Dest, err := export.NewS3Destination(
			ctx,
			cfg.ExportS3Bucket,
			cfg.ExportS3Key,
			cfg.ExportS3Region,
			cfg.ExportS3Endpoint,
			cfg.ExportFormat,
		)
		if err != nil {
			logger.Error("failed to create S3 export destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("export S3 destination enabled", "bucket", cfg.ExportS3Bucket, "key", cfg.ExportS3Key)
		}
	}

	if cfg.ExportDir != "" {
		file := "clients." + cfg.ExportFormat
		dests = append(dests, export.NewFileDestination(cfg.ExportDir, file))
		logger.Info("export file destination enabled", "dir", cfg.ExportDir, "file", file)
	}

	return dests
}
