// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sharedtex

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/physcam/internal/keyedmutex"
)

const (
	// SharedTextureKey is the key both sides acquire and release the shared
	// texture with.
	SharedTextureKey uint64 = 0

	// DefaultLockTimeout bounds every keyed-mutex wait.
	DefaultLockTimeout = 100 * time.Millisecond
)

// Shared texture errors.
var (
	// ErrNotReady is returned before the shared texture pair exists.
	ErrNotReady = errors.New("sharedtex: shared texture not created yet")

	// ErrLockTimeout is returned when the keyed mutex could not be acquired
	// within the timeout. KeyedMutex implementations report timeouts with an
	// error wrapping it. The condition is transient.
	ErrLockTimeout = keyedmutex.ErrTimeout

	// ErrDescriptorMismatch is returned when a frame's size, format or sample
	// count differs from the shared texture created for the first frame.
	// The shared texture is never recreated.
	ErrDescriptorMismatch = errors.New("sharedtex: frame does not match shared texture")

	// ErrNilTexture is returned when a nil frame texture is copied.
	ErrNilTexture = errors.New("sharedtex: nil texture")
)

// Manager owns the pair of handles onto one shareable texture: the source
// side, opened on the capture device and written by CopyFrom, and the
// consumer side, opened on the render device and handed out by Acquire.
//
// The pair is created lazily from the first copied frame and lives as long
// as the Manager. CopyFrom is meant to be called from one capture goroutine;
// Acquire and Release from the render goroutine.
type Manager struct {
	capture Device
	render  Device
	timeout time.Duration

	mu       sync.RWMutex
	desc     TextureDescriptor
	shared   Texture
	source   Texture
	consumer Texture

	ready  atomic.Bool
	copies atomic.Uint64
}

// NewManager returns a manager sharing frames from capture to render.
// A non-positive timeout selects DefaultLockTimeout.
func NewManager(capture, render Device, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &Manager{capture: capture, render: render, timeout: timeout}
}

// Ready reports whether the shared texture pair has been created. Once true
// it stays true.
func (m *Manager) Ready() bool { return m.ready.Load() }

// Copies returns the number of completed frame copies.
func (m *Manager) Copies() uint64 { return m.copies.Load() }

// Timeout returns the keyed-mutex wait bound.
func (m *Manager) Timeout() time.Duration { return m.timeout }

// Descriptor returns the shared texture descriptor once it exists.
func (m *Manager) Descriptor() (TextureDescriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.desc, m.consumer != nil
}

// CopyFrom copies frame into the source-side texture, creating the shared
// pair first if needed. created reports whether this call created it.
//
// The copy happens with the keyed mutex held. ErrLockTimeout means the copy
// was skipped and the shared image is stale until the next successful copy.
func (m *Manager) CopyFrom(frame Texture) (created bool, err error) {
	if frame == nil {
		return false, ErrNilTexture
	}
	src, created, err := m.ensure(frame.Descriptor())
	if err != nil {
		return false, err
	}

	g, err := Lock(src, m.timeout)
	if err != nil {
		return created, err
	}
	defer func() {
		if uerr := g.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}()

	if err := m.capture.CopyTexture(src, frame); err != nil {
		return created, fmt.Errorf("sharedtex: copy frame: %w", err)
	}
	m.copies.Add(1)
	return created, nil
}

// Acquire locks the consumer-side texture and returns it. Every successful
// Acquire must be followed by Release. ErrLockTimeout means the producer
// is still writing; skip or retry the read.
func (m *Manager) Acquire() (Texture, error) {
	m.mu.RLock()
	c := m.consumer
	m.mu.RUnlock()
	if c == nil {
		return nil, ErrNotReady
	}

	km, err := c.KeyedMutex()
	if err != nil {
		return nil, fmt.Errorf("sharedtex: consumer mutex: %w", err)
	}
	if err := km.Acquire(SharedTextureKey, m.timeout); err != nil {
		return nil, fmt.Errorf("sharedtex: acquire consumer texture: %w", err)
	}
	return c, nil
}

// Release unlocks the consumer-side texture locked by Acquire.
func (m *Manager) Release() error {
	m.mu.RLock()
	c := m.consumer
	m.mu.RUnlock()
	if c == nil {
		return ErrNotReady
	}

	km, err := c.KeyedMutex()
	if err != nil {
		return fmt.Errorf("sharedtex: consumer mutex: %w", err)
	}
	if err := km.Release(SharedTextureKey); err != nil {
		return fmt.Errorf("sharedtex: release consumer texture: %w", err)
	}
	return nil
}

// ensure returns the source-side texture, creating the shared pair from the
// first frame descriptor.
//
// Creation is resumable: when opening a handle fails, the texture and the
// handles opened so far are kept and the next frame retries from the failed
// step instead of allocating another texture.
func (m *Manager) ensure(frame TextureDescriptor) (Texture, bool, error) {
	if m.ready.Load() {
		m.mu.RLock()
		src, desc := m.source, m.desc
		m.mu.RUnlock()
		if !frame.Compatible(desc) {
			return nil, false, mismatch(frame, desc)
		}
		return src, false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shared == nil {
		desc := SharedDescriptorFor(frame)
		shared, err := m.capture.CreateTexture(desc)
		if err != nil {
			return nil, false, fmt.Errorf("sharedtex: create shared texture: %w", err)
		}
		m.desc, m.shared = desc, shared
	} else if !frame.Compatible(m.desc) {
		return nil, false, mismatch(frame, m.desc)
	}

	handle, err := m.shared.SharedHandle()
	if err != nil {
		return nil, false, fmt.Errorf("sharedtex: shared handle: %w", err)
	}
	if m.source == nil {
		source, err := m.capture.OpenSharedTexture(handle)
		if err != nil {
			return nil, false, fmt.Errorf("sharedtex: open on capture device: %w", err)
		}
		m.source = source
	}
	consumer, err := m.render.OpenSharedTexture(handle)
	if err != nil {
		return nil, false, fmt.Errorf("sharedtex: open on render device: %w", err)
	}
	m.consumer = consumer
	m.ready.Store(true)

	slogger().Info("sharedtex: shared texture created",
		"width", m.desc.Width,
		"height", m.desc.Height,
		"format", m.desc.Format,
		"samples", m.desc.SampleCount,
		"handle", handle,
		"capture_adapter", m.capture.AdapterInfo().Name,
		"render_adapter", m.render.AdapterInfo().Name)
	return m.source, true, nil
}

func mismatch(frame, desc TextureDescriptor) error {
	return fmt.Errorf("%w: frame %dx%d format %v samples %d, shared %dx%d format %v samples %d",
		ErrDescriptorMismatch,
		frame.Width, frame.Height, frame.Format, frame.SampleCount,
		desc.Width, desc.Height, desc.Format, desc.SampleCount)
}
