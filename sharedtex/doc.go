// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package sharedtex shares a texture between two GPU device contexts.
//
// Frames arrive on a capture device and are drawn by a render device. Rather
// than reading pixels back through the CPU, Manager allocates one shareable
// texture and opens it twice: once on the capture device, where each new
// frame is copied in, and once on the render device, where the host samples
// it. Both handles alias the same memory and the same keyed mutex.
//
// # Locking protocol
//
// Every access to the texture contents, on either side, is bracketed by
// Acquire(SharedTextureKey, timeout) and Release(SharedTextureKey) on the
// texture's keyed mutex. Waits are bounded (DefaultLockTimeout); a timeout
// is a transient condition, never a fatal one:
//
//   - the producer skips the copy and the shared image stays stale until the
//     next frame;
//   - the consumer skips or retries the draw that needed the texture.
//
// Lock returns a Guard whose Unlock is safe to defer on every exit path.
//
// # Lifetime
//
// The pair is created once, from the first frame. Frames whose size, format
// or sample count differ from that first frame are rejected with
// ErrDescriptorMismatch. If opening the texture on either device fails, the
// texture already allocated is kept and the next frame retries the open.
//
// # Thread Safety
//
// Manager is safe for one capture goroutine calling CopyFrom concurrently
// with one render goroutine calling Acquire and Release.
package sharedtex
