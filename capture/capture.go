// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package capture defines the frame-source collaborator of the camera
// pipeline and the policy used to pick a stream from it.
//
// The platform capture stack (device enumeration, permissions, format
// negotiation, frame delivery) stays behind the Source and Reader
// interfaces. This package only decides which source group and which format
// to ask for: the first color video-preview source, at its widest format,
// breaking ties by frame rate.
package capture

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gogpu/physcam/pose"
	"github.com/gogpu/physcam/sharedtex"
)

// Negotiation errors.
var (
	ErrNoColorSource = errors.New("capture: no color video preview source")
	ErrNoFormat      = errors.New("capture: source offers no formats")
)

// StreamType is the purpose of a media stream.
type StreamType int

// Stream types.
const (
	StreamVideoPreview StreamType = iota
	StreamVideoRecord
	StreamPhoto
)

// SourceKind is the kind of data a frame source produces.
type SourceKind int

// Source kinds.
const (
	KindColor SourceKind = iota
	KindDepth
	KindInfrared
)

// SourceInfo describes one frame source inside a group.
type SourceInfo struct {
	ID         string
	StreamType StreamType
	Kind       SourceKind
}

// SourceGroup is a set of frame sources that can be opened together,
// typically one physical camera.
type SourceGroup struct {
	ID          string
	DisplayName string
	Sources     []SourceInfo
}

// FrameRate is a rational frame rate.
type FrameRate struct {
	Numerator   uint32
	Denominator uint32
}

// FPS returns the rate in frames per second, 0 for a zero denominator.
func (r FrameRate) FPS() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

// Format is a video format offered by a source.
type Format struct {
	Width     uint32
	Height    uint32
	FrameRate FrameRate
	Subtype   string
}

// String returns e.g. "1280x720@30.00 NV12".
func (f Format) String() string {
	return fmt.Sprintf("%dx%d@%.2f %s", f.Width, f.Height, f.FrameRate.FPS(), f.Subtype)
}

// Surface is the GPU image surface carried by a frame.
type Surface interface {
	// NativeResource returns the texture behind the surface, bound to the
	// capture device.
	NativeResource() (sharedtex.Texture, error)
}

// Frame is one frame-arrival event.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Surface   Surface
	Metadata  pose.Metadata
}

// Source enumerates and opens frame sources.
type Source interface {
	FindSourceGroups(ctx context.Context) ([]SourceGroup, error)
	SupportedFormats(ctx context.Context, group SourceGroup, info SourceInfo) ([]Format, error)
	Open(ctx context.Context, group SourceGroup, info SourceInfo, format Format) (Reader, error)
}

// Reader delivers the frames of an opened source.
type Reader interface {
	// Stream sends frames to out in arrival order until ctx is done or the
	// source ends. It blocks while out is full and never closes out.
	Stream(ctx context.Context, out chan<- Frame) error

	// Close releases the capture session.
	Close() error
}

// SelectColorPreview returns the first group containing a color
// video-preview source, and that source.
func SelectColorPreview(groups []SourceGroup) (SourceGroup, SourceInfo, bool) {
	for _, g := range groups {
		for _, info := range g.Sources {
			if info.StreamType == StreamVideoPreview && info.Kind == KindColor {
				return g, info, true
			}
		}
	}
	return SourceGroup{}, SourceInfo{}, false
}

// PreferredFormat returns the widest format, preferring the higher frame
// rate among formats of equal width.
func PreferredFormat(formats []Format) (Format, bool) {
	if len(formats) == 0 {
		return Format{}, false
	}
	sorted := slices.Clone(formats)
	slices.SortStableFunc(sorted, func(a, b Format) int {
		if a.Width != b.Width {
			if a.Width > b.Width {
				return -1
			}
			return 1
		}
		fa, fb := a.FrameRate.FPS(), b.FrameRate.FPS()
		switch {
		case fa > fb:
			return -1
		case fa < fb:
			return 1
		}
		return 0
	})
	return sorted[0], true
}

// Negotiate selects a color preview source and its preferred format and
// opens it.
func Negotiate(ctx context.Context, src Source) (Reader, Format, error) {
	groups, err := src.FindSourceGroups(ctx)
	if err != nil {
		return nil, Format{}, fmt.Errorf("capture: find source groups: %w", err)
	}
	group, info, ok := SelectColorPreview(groups)
	if !ok {
		return nil, Format{}, ErrNoColorSource
	}

	formats, err := src.SupportedFormats(ctx, group, info)
	if err != nil {
		return nil, Format{}, fmt.Errorf("capture: supported formats of %s: %w", info.ID, err)
	}
	format, ok := PreferredFormat(formats)
	if !ok {
		return nil, Format{}, ErrNoFormat
	}

	r, err := src.Open(ctx, group, info, format)
	if err != nil {
		return nil, Format{}, fmt.Errorf("capture: open %s: %w", info.ID, err)
	}
	return r, format, nil
}
