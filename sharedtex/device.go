// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sharedtex

import (
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Device is a GPU device context able to share textures with other devices.
//
// Key principle: the camera RECEIVES both devices from the host, it does NOT
// create them. The capture device is the one the frame source decodes into;
// the render device is the one the host draws with.
//
// Device embeds gpucontext.DeviceProvider so hosts built on the gogpu stack
// can pass their existing device handles with a thin adapter.
type Device interface {
	gpucontext.DeviceProvider

	// CreateTexture allocates a new texture on this device.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// OpenSharedTexture opens a texture created with Shared set, possibly on
	// another device, through its shared handle. The returned texture aliases
	// the same memory and the same keyed mutex.
	OpenSharedTexture(handle SharedHandle) (Texture, error)

	// CopyTexture copies the full contents of src into dst. Both textures
	// must belong to this device. When dst is shared its keyed mutex must be
	// held by the caller.
	CopyTexture(dst, src Texture) error
}

// SharedHandle identifies a shareable resource across device contexts.
type SharedHandle uintptr

// Texture is a texture handle bound to one device.
type Texture interface {
	// Descriptor returns the parameters the texture was created with.
	Descriptor() TextureDescriptor

	// SharedHandle returns the handle other devices can open the texture
	// with. It fails for textures created without Shared.
	SharedHandle() (SharedHandle, error)

	// KeyedMutex returns the mutex guarding a shared texture's contents.
	// It fails for textures created without Shared.
	KeyedMutex() (KeyedMutex, error)
}

// KeyedMutex is the synchronization object of a shared texture.
// Acquire must be paired with Release using the same key.
type KeyedMutex interface {
	Acquire(key uint64, timeout time.Duration) error
	Release(key uint64) error
}

// TextureDescriptor describes parameters for creating a texture.
// This mirrors the WebGPU GPUTextureDescriptor specification, extended with
// the Shared flag for keyed-mutex sharing between devices.
type TextureDescriptor struct {
	// Label is an optional debug label for the texture.
	Label string

	// Width is the texture width in pixels.
	Width uint32

	// Height is the texture height in pixels.
	Height uint32

	// ArrayLayerCount is the number of array layers. Use 1 for a plain 2D
	// texture.
	ArrayLayerCount uint32

	// MipLevelCount is the number of mipmap levels.
	MipLevelCount uint32

	// SampleCount is the number of samples for multisampling.
	SampleCount uint32

	// Format is the texture pixel format.
	Format gputypes.TextureFormat

	// Usage specifies how the texture will be used.
	Usage gputypes.TextureUsage

	// Shared makes the texture openable from other devices and attaches a
	// keyed mutex to it.
	Shared bool
}

// Compatible reports whether a frame described by d can be copied into a
// texture described by other: same size, format and sample count.
func (d TextureDescriptor) Compatible(other TextureDescriptor) bool {
	return d.Width == other.Width &&
		d.Height == other.Height &&
		d.Format == other.Format &&
		samples(d.SampleCount) == samples(other.SampleCount)
}

// samples treats an unset sample count as single-sampled.
func samples(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	return n
}

// SharedDescriptorFor returns the descriptor of a shareable texture able to
// receive copies of frames described by frame.
func SharedDescriptorFor(frame TextureDescriptor) TextureDescriptor {
	return TextureDescriptor{
		Label:           "physcam shared frame",
		Width:           frame.Width,
		Height:          frame.Height,
		ArrayLayerCount: 1,
		MipLevelCount:   1,
		SampleCount:     samples(frame.SampleCount),
		Format:          frame.Format,
		Usage:           gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		Shared:          true,
	}
}
