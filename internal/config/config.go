// Package config loads daemon settings from the environment and the
// optional roles file that drives server-side permission checks.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL string // PIPELINE_DATABASE_URL (required)
	HTTPAddr    string // PIPELINE_HTTP_ADDR (default ":8080")
	NATSURL     string // PIPELINE_NATS_URL (optional, empty = no events)
	AuthToken   string // PIPELINE_AUTH_TOKEN (optional, empty = auth disabled)
	RolesFile   string // PIPELINE_ROLES_FILE (optional, empty = permission checks disabled)

	// Export settings
	ExportInterval   time.Duration // PIPELINE_EXPORT_INTERVAL (default 15m; 0 = disabled)
	ExportFormat     string        // PIPELINE_EXPORT_FORMAT ("jsonl" or "csv", default "jsonl")
	ExportDir        string        // PIPELINE_EXPORT_DIR (enables local file export when set)
	ExportS3Bucket   string        // PIPELINE_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string        // PIPELINE_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string        // PIPELINE_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string        // PIPELINE_EXPORT_S3_KEY (default "pipeline/clients.jsonl")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:      os.Getenv("PIPELINE_DATABASE_URL"),
		HTTPAddr:         envOrDefault("PIPELINE_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("PIPELINE_NATS_URL"),
		AuthToken:        os.Getenv("PIPELINE_AUTH_TOKEN"),
		RolesFile:        os.Getenv("PIPELINE_ROLES_FILE"),
		ExportDir:        os.Getenv("PIPELINE_EXPORT_DIR"),
		ExportS3Bucket:   os.Getenv("PIPELINE_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("PIPELINE_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("PIPELINE_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Key:      envOrDefault("PIPELINE_EXPORT_S3_KEY", "pipeline/clients.jsonl"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("PIPELINE_DATABASE_URL is required")
	}

	c.ExportFormat = envOrDefault("PIPELINE_EXPORT_FORMAT", "jsonl")
	switch c.ExportFormat {
	case "jsonl", "csv":
	default:
		return nil, fmt.Errorf("PIPELINE_EXPORT_FORMAT: unknown format %q", c.ExportFormat)
	}

	intervalStr := envOrDefault("PIPELINE_EXPORT_INTERVAL", "15m")
	if intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("PIPELINE_EXPORT_INTERVAL: %w", err)
		}
		c.ExportInterval = d
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
