// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package physcam

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/gogpu/physcam/sharedtex"
)

// DefaultEventBuffer is the default capacity of the channel between the
// capture session and the frame pipeline.
const DefaultEventBuffer = 4

// Option configures a Camera during creation.
// Use functional options to customize Camera behavior.
//
// Example:
//
//	// Forward every frame with a pose, stable or not
//	cam := physcam.New(captureDev, renderDev, source,
//	    physcam.WithAllowUnstableFrames(true))
type Option func(*options)

// options holds optional configuration for Camera creation.
type options struct {
	allowUnstable  bool
	lockTimeout    time.Duration
	eventBuffer    int
	tracerProvider trace.TracerProvider
}

// defaultOptions returns the default camera options.
func defaultOptions() options {
	return options{
		allowUnstable: false,
		lockTimeout:   sharedtex.DefaultLockTimeout,
		eventBuffer:   DefaultEventBuffer,
		// tracerProvider nil: the global OpenTelemetry provider is used
	}
}

// WithAllowUnstableFrames forwards frames to the shared texture even when
// the camera moved too abruptly since the previous frame.
func WithAllowUnstableFrames(allow bool) Option {
	return func(o *options) {
		o.allowUnstable = allow
	}
}

// WithLockTimeout bounds keyed-mutex waits on the shared texture, on both
// the capture and the render side. Non-positive values keep the default.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithEventBuffer sets how many frame events may queue between the capture
// session and the pipeline. Values below 1 keep the default.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.eventBuffer = n
		}
	}
}

// WithTracerProvider sets the OpenTelemetry provider frame spans are
// recorded with. By default the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}
