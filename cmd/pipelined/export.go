package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pipeline/internal/config"
	"github.com/alfredjeanlab/pipeline/internal/export"
	"github.com/alfredjeanlab/pipeline/internal/store/postgres"
)

// exportCmd runs a one-shot export to stdout or the configured destinations,
// for cron jobs and ad-hoc dumps without a running scheduler.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the client book once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = cfg.ExportFormat
		}
		switch format {
		case "jsonl", "csv":
		default:
			return fmt.Errorf("unknown format %q", format)
		}

		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		toStdout, _ := cmd.Flags().GetBool("stdout")
		if toStdout {
			var count int
			if format == "csv" {
				count, err = export.ExportCSV(cmd.Context(), store, os.Stdout)
			} else {
				count, err = export.ExportJSONL(cmd.Context(), store, os.Stdout)
			}
			if err != nil {
				return err
			}
			logger.Info("export written", "clients", count, "format", format)
			return nil
		}

		dests := buildDestinations(cmd.Context(), cfg, logger)
		if len(dests) == 0 {
			return fmt.Errorf("no export destinations configured; use --stdout or set PIPELINE_EXPORT_DIR / PIPELINE_EXPORT_S3_BUCKET")
		}
		sched := export.NewScheduler(store, dests, 0, format, nil, logger)
		sched.ExportOnce(cmd.Context())
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "", "export format: jsonl or csv (default from config)")
	exportCmd.Flags().Bool("stdout", false, "write the export to stdout instead of configured destinations")
}
