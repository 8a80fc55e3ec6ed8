// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package physcam brings frames from a physical camera to a renderer running
// on another GPU device.
//
// # Overview
//
// A capture pipeline decodes camera frames on one GPU device context and
// attaches to each one the pose of the camera: a view matrix, a projection
// matrix and the coordinate system they are expressed in. The renderer
// draws with a second, independent device context. Camera connects the two:
//
//   - it decodes the pose of every frame (package pose),
//   - it rejects frames taken while the camera moved abruptly, which tend to
//     be blurred or mis-tracked (package stability),
//   - it copies accepted frames into a texture shared between both devices,
//     guarded by a keyed mutex (package sharedtex),
//   - it publishes the pose of the last accepted frame for the renderer.
//
// # Quick Start
//
//	cam := physcam.New(captureDevice, renderDevice, source)
//	cam.Initialize(ctx)
//
//	// Render loop
//	if cam.Ready() {
//	    err := cam.WithTexture(func(tex sharedtex.Texture) error {
//	        m := cam.GetWorldToCameraMatrix(worldFrame)
//	        return drawCameraQuad(tex, m)
//	    })
//	    if errors.Is(err, physcam.ErrLockTimeout) {
//	        // capture side is writing; draw the previous frame
//	    }
//	}
//
// Frames can also be fed without a capture session, which is how tests drive
// the pipeline:
//
//	cam := physcam.New(captureDevice, renderDevice, nil)
//	outcome := cam.HandleFrame(ctx, frame)
//
// # Failure Model
//
// Nothing in the pipeline is fatal. Frames without pose metadata are
// dropped, lock timeouts skip a copy or a draw, an origin unrelated to the
// camera yields the identity matrix, and a failed setup leaves Ready false.
// Callers poll Ready (or wait on Initialized) rather than expecting a
// callback.
//
// # Logging and Tracing
//
// physcam is silent by default; see SetLogger. Each frame event is recorded
// as an OpenTelemetry span on the global tracer provider, or the one given
// with WithTracerProvider.
package physcam
