// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/realmsync/realmsync/services/blob"
	"github.com/realmsync/realmsync/services/realmd"
)

// fileConfig is the YAML shape of the optional config file. Zero values
// defer to environment variables and built-in defaults.
type fileConfig struct {
	Port      int    `yaml:"port"`
	StorePath string `yaml:"store_path"`

	Blob struct {
		Driver          string `yaml:"driver"`
		Root            string `yaml:"root"`
		Bucket          string `yaml:"bucket"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"blob"`

	LLMBackend   string `yaml:"llm_backend"`
	OTelEndpoint string `yaml:"otel_endpoint"`
	GinMode      string `yaml:"gin_mode"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	ExtractionLimit int `yaml:"extraction_limit"`
	ChatLimit       int `yaml:"chat_limit"`

	JobsDisabled bool `yaml:"jobs_disabled"`
}

// loadConfig builds the service configuration: file values first, then
// environment overrides. Either layer may be absent.
func loadConfig(path string) (realmd.Config, error) {
	var fc fileConfig
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return realmd.Config{}, err
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return realmd.Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg := realmd.Config{
		Port:      getEnvInt("REALMSYNC_PORT", fc.Port),
		StorePath: getEnvString("REALMSYNC_STORE_PATH", fc.StorePath),
		Blob: blob.Config{
			Driver:          blob.Driver(getEnvString("REALMSYNC_BLOB_DRIVER", fc.Blob.Driver)),
			Root:            getEnvString("REALMSYNC_BLOB_ROOT", fc.Blob.Root),
			Bucket:          getEnvString("REALMSYNC_BLOB_BUCKET", fc.Blob.Bucket),
			CredentialsFile: getEnvString("REALMSYNC_BLOB_CREDENTIALS", fc.Blob.CredentialsFile),
		},
		LLMBackend:      getEnvString("LLM_BACKEND_TYPE", fc.LLMBackend),
		OTelEndpoint:    getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", fc.OTelEndpoint),
		EnableMetrics:   true,
		GinMode:         getEnvString("GIN_MODE", fc.GinMode),
		RateLimitRPS:    fc.RateLimitRPS,
		RateLimitBurst:  fc.RateLimitBurst,
		ExtractionLimit: getEnvInt("REALMSYNC_EXTRACTION_LIMIT", fc.ExtractionLimit),
		ChatLimit:       getEnvInt("REALMSYNC_CHAT_LIMIT", fc.ChatLimit),
		JobsDisabled:    fc.JobsDisabled,
	}
	return cfg, nil
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
