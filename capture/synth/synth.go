// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package synth is a scripted capture source backed by memgpu.
//
// Each Step produces one frame: a surface filled with a solid color and the
// spatial metadata of the given pose. Steps can omit the metadata to model
// frames delivered before tracking is available.
package synth

import (
	"context"
	"fmt"
	"image/color"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/physcam/capture"
	"github.com/gogpu/physcam/memgpu"
	"github.com/gogpu/physcam/pose"
	"github.com/gogpu/physcam/sharedtex"
	"github.com/gogpu/physcam/spatial"
)

// Step is one scripted frame.
type Step struct {
	View         spatial.Matrix
	Projection   spatial.Matrix
	Color        color.RGBA
	OmitMetadata bool
}

// Source is a capture.Source replaying a fixed script.
type Source struct {
	dev       *memgpu.Device
	reference spatial.CoordinateSystem
	steps     []Step
	formats   []capture.Format
	interval  time.Duration
	loop      bool

	opened atomic.Int32
}

// Option configures a Source.
type Option func(*Source)

// WithFormats replaces the formats the source offers.
func WithFormats(formats ...capture.Format) Option {
	return func(s *Source) { s.formats = formats }
}

// WithInterval waits d between frames.
func WithInterval(d time.Duration) Option {
	return func(s *Source) { s.interval = d }
}

// WithLoop replays the script until the context is cancelled.
func WithLoop() Option {
	return func(s *Source) { s.loop = true }
}

// New returns a source rendering frames on dev, with poses expressed in
// reference.
func New(dev *memgpu.Device, reference spatial.CoordinateSystem, steps []Step, opts ...Option) *Source {
	s := &Source{
		dev:       dev,
		reference: reference,
		steps:     steps,
		formats: []capture.Format{
			{Width: 640, Height: 360, FrameRate: capture.FrameRate{Numerator: 30, Denominator: 1}, Subtype: "BGRA8"},
			{Width: 1280, Height: 720, FrameRate: capture.FrameRate{Numerator: 15, Denominator: 1}, Subtype: "BGRA8"},
			{Width: 1280, Height: 720, FrameRate: capture.FrameRate{Numerator: 30, Denominator: 1}, Subtype: "BGRA8"},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Opens returns how many readers were opened.
func (s *Source) Opens() int { return int(s.opened.Load()) }

// FindSourceGroups implements capture.Source.
func (s *Source) FindSourceGroups(context.Context) ([]capture.SourceGroup, error) {
	return []capture.SourceGroup{{
		ID:          "synth",
		DisplayName: "Synthetic camera",
		Sources: []capture.SourceInfo{
			{ID: "synth/depth", StreamType: capture.StreamVideoPreview, Kind: capture.KindDepth},
			{ID: "synth/color", StreamType: capture.StreamVideoPreview, Kind: capture.KindColor},
		},
	}}, nil
}

// SupportedFormats implements capture.Source.
func (s *Source) SupportedFormats(context.Context, capture.SourceGroup, capture.SourceInfo) ([]capture.Format, error) {
	return s.formats, nil
}

// Open implements capture.Source.
func (s *Source) Open(_ context.Context, _ capture.SourceGroup, info capture.SourceInfo, format capture.Format) (capture.Reader, error) {
	if info.Kind != capture.KindColor {
		return nil, fmt.Errorf("synth: source %s is not a color source", info.ID)
	}
	if format.Width == 0 || format.Height == 0 {
		return nil, fmt.Errorf("synth: invalid format %v", format)
	}
	s.opened.Add(1)
	return &reader{src: s, format: format}, nil
}

type reader struct {
	src    *Source
	format capture.Format
	seq    uint64
}

func (r *reader) Stream(ctx context.Context, out chan<- capture.Frame) error {
	for {
		for _, step := range r.src.steps {
			f, err := r.frame(step)
			if err != nil {
				return err
			}
			select {
			case out <- f:
			case <-ctx.Done():
				return ctx.Err()
			}
			if r.src.interval > 0 {
				select {
				case <-time.After(r.src.interval):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		if !r.src.loop {
			return nil
		}
		if len(r.src.steps) == 0 {
			<-ctx.Done()
			return ctx.Err()
		}
	}
}

func (r *reader) Close() error { return nil }

func (r *reader) frame(step Step) (capture.Frame, error) {
	tex, err := r.src.dev.NewTexture(sharedtex.TextureDescriptor{
		Label:       "synth frame",
		Width:       r.format.Width,
		Height:      r.format.Height,
		SampleCount: 1,
		Format:      gputypes.TextureFormatBGRA8Unorm,
		Usage:       gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return capture.Frame{}, fmt.Errorf("synth: frame surface: %w", err)
	}
	if err := tex.Fill(step.Color); err != nil {
		return capture.Frame{}, fmt.Errorf("synth: fill surface: %w", err)
	}

	r.seq++
	f := capture.Frame{Seq: r.seq, Timestamp: time.Now(), Surface: tex}
	if !step.OmitMetadata {
		f.Metadata = pose.Encode(pose.CameraPose{
			View:       step.View,
			Projection: step.Projection,
			Reference:  r.src.reference,
		})
	}
	return f, nil
}
