// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package physcam

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gogpu/physcam/capture"
	"github.com/gogpu/physcam/pose"
	"github.com/gogpu/physcam/sharedtex"
)

// HandleFrame processes one frame-arrival event:
//
//  1. decode the pose; events without one are dropped,
//  2. compare it with the previous pose (the baseline moves regardless),
//  3. reject it when unstable unless unstable frames are allowed,
//  4. copy the image into the shared texture, creating it on first use,
//     and publish the pose.
//
// Calls are serialized; events are handled in the order HandleFrame is
// called. No failure is fatal: each one leaves the previous image and pose
// in place.
func (c *Camera) HandleFrame(ctx context.Context, f capture.Frame) Outcome {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()

	traceID := uuid.New().String()
	_, span := c.tracer.Start(ctx, "physcam.HandleFrame", trace.WithAttributes(
		attribute.Int64("physcam.frame.seq", int64(f.Seq)),
		attribute.String("physcam.frame.trace_id", traceID),
	))
	defer span.End()

	log := Logger().With("seq", f.Seq, "trace_id", traceID)
	out := c.process(f, span, log)

	c.stats.record(out)
	span.SetAttributes(attribute.String("physcam.frame.outcome", out.String()))
	return out
}

func (c *Camera) process(f capture.Frame, span trace.Span, log *slog.Logger) Outcome {
	p, err := pose.Extract(f.Metadata)
	if err != nil {
		log.Debug("physcam: frame dropped", "err", err)
		return OutcomeDropped
	}

	r := c.gate.Observe(p.View)
	c.stable.Store(r.Stable)
	span.SetAttributes(
		attribute.Bool("physcam.frame.stable", r.Stable),
		attribute.Float64("physcam.frame.cosine", r.Cosine),
	)
	if !r.Stable {
		c.stats.unstable.Add(1)
		if !c.opts.allowUnstable {
			log.Debug("physcam: unstable frame rejected", "cosine", r.Cosine)
			return OutcomeRejected
		}
	}

	if f.Surface == nil {
		log.Warn("physcam: frame has no surface")
		span.SetStatus(codes.Error, "no surface")
		return OutcomeFailed
	}
	tex, err := f.Surface.NativeResource()
	if err != nil {
		log.Warn("physcam: frame surface unavailable", "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "surface unavailable")
		return OutcomeFailed
	}

	created, err := c.textures.CopyFrom(tex)
	if err != nil {
		if errors.Is(err, sharedtex.ErrLockTimeout) {
			log.Debug("physcam: shared texture busy, frame skipped", "timeout", c.opts.lockTimeout)
			return OutcomeLockTimeout
		}
		log.Warn("physcam: frame copy failed", "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "copy failed")
		return OutcomeFailed
	}
	if created {
		desc, _ := c.textures.Descriptor()
		log.Info("physcam: camera ready", "width", desc.Width, "height", desc.Height)
	}

	c.publish(p)
	return OutcomeAccepted
}
