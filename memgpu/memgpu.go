// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package memgpu provides GPU device contexts backed by host memory.
//
// Devices created from the same System can share textures through
// sharedtex.SharedHandle values, with a real keyed mutex attached to every
// shared resource. The package is used by tests and by the demo; it also
// serves hosts that want to exercise the camera pipeline without a GPU.
//
// Texture contents are *image.RGBA buffers. Only 4-byte-per-pixel formats
// (RGBA8Unorm, BGRA8Unorm) are supported; BGRA data is stored unswizzled.
package memgpu

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/physcam/internal/keyedmutex"
	"github.com/gogpu/physcam/sharedtex"
)

// Errors returned by memgpu devices.
var (
	ErrInvalidDimensions = errors.New("memgpu: texture dimensions must be positive")
	ErrUnsupportedFormat = errors.New("memgpu: unsupported texture format")
	ErrUnknownHandle     = errors.New("memgpu: unknown shared handle")
	ErrNotShared         = errors.New("memgpu: texture is not shared")
	ErrForeignTexture    = errors.New("memgpu: texture does not belong to this device")
	ErrIncompatible      = errors.New("memgpu: copy between incompatible textures")
	ErrMutexNotHeld      = errors.New("memgpu: shared texture accessed without holding its keyed mutex")
)

// System is the memory shared handles resolve in, the equivalent of a
// display adapter several device contexts are created on.
type System struct {
	mu     sync.Mutex
	next   sharedtex.SharedHandle
	shared map[sharedtex.SharedHandle]*resource
}

// NewSystem returns an empty system.
func NewSystem() *System {
	return &System{shared: make(map[sharedtex.SharedHandle]*resource)}
}

// NewDevice creates a device context on s.
func (s *System) NewDevice(name string) *Device {
	return &Device{sys: s, name: name}
}

func (s *System) register(r *resource) sharedtex.SharedHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.shared[s.next] = r
	return s.next
}

func (s *System) lookup(h sharedtex.SharedHandle) (*resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.shared[h]
	return r, ok
}

// resource is the physical memory behind one or more texture handles.
type resource struct {
	desc   sharedtex.TextureDescriptor
	handle sharedtex.SharedHandle
	mutex  *keyedmutex.Mutex // nil unless shared

	pixMu sync.RWMutex
	pix   *image.RGBA
}

var _ sharedtex.Device = (*Device)(nil)

// Device is an in-memory GPU device context.
type Device struct {
	sys    *System
	name   string
	copies atomic.Uint64
}

// Name returns the debug name given at creation.
func (d *Device) Name() string { return d.name }

// Copies returns the number of CopyTexture calls that completed.
func (d *Device) Copies() uint64 { return d.copies.Load() }

// Device returns nil: there is no native device behind memgpu.
func (d *Device) Device() gpucontext.Device { return nil }

// Queue returns nil: there is no native queue behind memgpu.
func (d *Device) Queue() gpucontext.Queue { return nil }

// Adapter returns nil: there is no native adapter behind memgpu.
func (d *Device) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo reports a software adapter named after the device.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: d.name, Type: gpucontext.AdapterTypeSoftware}
}

// SurfaceFormat returns the format memgpu prefers for presentation.
func (d *Device) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}

// CreateTexture implements sharedtex.Device.
func (d *Device) CreateTexture(desc sharedtex.TextureDescriptor) (sharedtex.Texture, error) {
	return d.NewTexture(desc)
}

// NewTexture is CreateTexture returning the concrete type.
func (d *Device) NewTexture(desc sharedtex.TextureDescriptor) (*Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, ErrInvalidDimensions
	}
	switch desc.Format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, desc.Format)
	}
	if desc.SampleCount == 0 {
		desc.SampleCount = 1
	}
	if desc.MipLevelCount == 0 {
		desc.MipLevelCount = 1
	}
	if desc.ArrayLayerCount == 0 {
		desc.ArrayLayerCount = 1
	}

	r := &resource{
		desc: desc,
		pix:  image.NewRGBA(image.Rect(0, 0, int(desc.Width), int(desc.Height))),
	}
	if desc.Shared {
		r.mutex = keyedmutex.New()
		r.handle = d.sys.register(r)
	}
	return &Texture{dev: d, res: r}, nil
}

// OpenSharedTexture implements sharedtex.Device.
func (d *Device) OpenSharedTexture(h sharedtex.SharedHandle) (sharedtex.Texture, error) {
	r, ok := d.sys.lookup(h)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return &Texture{dev: d, res: r}, nil
}

// CopyTexture implements sharedtex.Device.
func (d *Device) CopyTexture(dst, src sharedtex.Texture) error {
	dt, ok := dst.(*Texture)
	if !ok || dt.dev != d {
		return fmt.Errorf("%w: destination", ErrForeignTexture)
	}
	st, ok := src.(*Texture)
	if !ok || st.dev != d {
		return fmt.Errorf("%w: source", ErrForeignTexture)
	}
	if !st.res.desc.Compatible(dt.res.desc) {
		return ErrIncompatible
	}
	for _, r := range []*resource{dt.res, st.res} {
		if r.mutex != nil && !r.mutex.Held() {
			return ErrMutexNotHeld
		}
	}
	if dt.res == st.res {
		d.copies.Add(1)
		return nil
	}

	st.res.pixMu.RLock()
	dt.res.pixMu.Lock()
	draw.Copy(dt.res.pix, image.Point{}, st.res.pix, st.res.pix.Bounds(), draw.Src, nil)
	dt.res.pixMu.Unlock()
	st.res.pixMu.RUnlock()

	d.copies.Add(1)
	return nil
}

// Texture is a handle onto memgpu texture memory, bound to one Device.
type Texture struct {
	dev *Device
	res *resource
}

// Owner returns the device the handle is bound to.
func (t *Texture) Owner() *Device { return t.dev }

// Descriptor implements sharedtex.Texture.
func (t *Texture) Descriptor() sharedtex.TextureDescriptor { return t.res.desc }

// SharedHandle implements sharedtex.Texture.
func (t *Texture) SharedHandle() (sharedtex.SharedHandle, error) {
	if t.res.mutex == nil {
		return 0, ErrNotShared
	}
	return t.res.handle, nil
}

// KeyedMutex implements sharedtex.Texture.
func (t *Texture) KeyedMutex() (sharedtex.KeyedMutex, error) {
	if t.res.mutex == nil {
		return nil, ErrNotShared
	}
	return t.res.mutex, nil
}

// NativeResource returns t itself, letting a Texture stand in for a
// captured image surface.
func (t *Texture) NativeResource() (sharedtex.Texture, error) { return t, nil }

// SameResource reports whether t and other alias the same memory.
func (t *Texture) SameResource(other *Texture) bool {
	return other != nil && t.res == other.res
}

// Fill sets every pixel to c. Shared textures must be locked by the caller.
func (t *Texture) Fill(c color.Color) error {
	if t.res.mutex != nil && !t.res.mutex.Held() {
		return ErrMutexNotHeld
	}
	t.res.pixMu.Lock()
	draw.Draw(t.res.pix, t.res.pix.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	t.res.pixMu.Unlock()
	return nil
}

// At returns the pixel at (x, y).
func (t *Texture) At(x, y int) color.RGBA {
	t.res.pixMu.RLock()
	defer t.res.pixMu.RUnlock()
	return t.res.pix.RGBAAt(x, y)
}

// Snapshot returns a copy of the texture contents.
func (t *Texture) Snapshot() *image.RGBA {
	t.res.pixMu.RLock()
	defer t.res.pixMu.RUnlock()
	out := image.NewRGBA(t.res.pix.Bounds())
	copy(out.Pix, t.res.pix.Pix)
	return out
}
