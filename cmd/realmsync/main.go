// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command realmsync starts the Realm Sync continuity server.
//
// Configuration is layered: built-in defaults, then an optional YAML file
// (--config), then environment variables.
//
// # Environment Variables
//
//   - REALMSYNC_PORT: HTTP server port (default: 12310)
//   - REALMSYNC_STORE_PATH: badger data directory (default: ./data/realmsync)
//   - REALMSYNC_BLOB_DRIVER: blob driver - fs, gcs, memory (default: fs)
//   - REALMSYNC_BLOB_ROOT: filesystem blob root (default: ./data/blobs)
//   - REALMSYNC_BLOB_BUCKET: GCS bucket name (gcs driver)
//   - LLM_BACKEND_TYPE: model backend - openai, static (default: openai)
//   - OPENAI_API_KEY: API key for the openai backend
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional)
//   - REALMSYNC_LOG_LEVEL: debug, info, warn, error (default: info)
//   - REALMSYNC_LOG_DIR: enables JSON file logging when set
//
// # Usage
//
//	go build -o realmsync ./cmd/realmsync
//	./realmsync serve
//	./realmsync serve --config /etc/realmsync/config.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/realmsync/realmsync/pkg/logging"
	"github.com/realmsync/realmsync/services/realmd"
)

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("REALMSYNC_LOG_LEVEL")),
		Service: "realmd",
		LogDir:  os.Getenv("REALMSYNC_LOG_DIR"),
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "realmsync",
		Short: "Realm Sync worldbuilding continuity server",
		Long: "Realm Sync tracks worldbuilding canon across narrative documents\n" +
			"and flags continuity drift as new chapters land.",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			slog.Info("Starting Realm Sync",
				"port", cfg.Port,
				"llm_backend", cfg.LLMBackend,
				"blob_driver", string(cfg.Blob.Driver),
			)

			// Hosted builds pass custom ServiceOptions here; the open
			// build runs with local session auth and no billing.
			svc, err := realmd.New(cfg, nil)
			if err != nil {
				return fmt.Errorf("create service: %w", err)
			}
			return svc.Run()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	return cmd
}
