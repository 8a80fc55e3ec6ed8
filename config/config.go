// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads camera pipeline settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/gogpu/physcam"
)

// Config holds the environment-driven settings of a camera pipeline.
type Config struct {
	// AllowUnstableFrames forwards frames taken while the camera moved
	// abruptly.
	AllowUnstableFrames bool `env:"PHYSCAM_ALLOW_UNSTABLE_FRAMES" envDefault:"false"`

	// LockTimeout bounds keyed-mutex waits on the shared texture.
	LockTimeout time.Duration `env:"PHYSCAM_LOCK_TIMEOUT" envDefault:"100ms"`

	// EventBuffer is the capacity of the capture-to-pipeline channel.
	EventBuffer int `env:"PHYSCAM_EVENT_BUFFER" envDefault:"4"`

	// OTelEndpoint is the OTLP/HTTP collector URL. Empty disables tracing.
	OTelEndpoint string `env:"PHYSCAM_OTEL_ENDPOINT"`

	// ServiceName is reported as the OpenTelemetry service name.
	ServiceName string `env:"PHYSCAM_SERVICE_NAME" envDefault:"physcam"`
}

// Load reads Config from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.LockTimeout <= 0 {
		return Config{}, fmt.Errorf("config: PHYSCAM_LOCK_TIMEOUT must be positive, got %v", cfg.LockTimeout)
	}
	if cfg.EventBuffer < 1 {
		return Config{}, fmt.Errorf("config: PHYSCAM_EVENT_BUFFER must be at least 1, got %d", cfg.EventBuffer)
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Options returns the camera options the configuration selects.
func (c Config) Options() []physcam.Option {
	return []physcam.Option{
		physcam.WithAllowUnstableFrames(c.AllowUnstableFrames),
		physcam.WithLockTimeout(c.LockTimeout),
		physcam.WithEventBuffer(c.EventBuffer),
	}
}
