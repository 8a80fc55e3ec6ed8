// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pose decodes per-frame spatial metadata into a camera pose.
package pose

import (
	"errors"
	"fmt"

	"github.com/gogpu/physcam/spatial"
)

// Key names a metadata property attached to a captured frame.
type Key string

// Metadata keys. The names follow the spatial-camera sample attributes that
// capture drivers attach to each frame.
const (
	KeyCoordinateSystem    Key = "MFSampleExtension_Spatial_CameraCoordinateSystem"
	KeyViewTransform       Key = "MFSampleExtension_Spatial_CameraViewTransform"
	KeyProjectionTransform Key = "MFSampleExtension_Spatial_CameraProjectionTransform"
)

// Metadata is the opaque property bag delivered with a frame.
type Metadata map[Key]any

// Extraction errors. Each missing-property error wraps ErrUnavailable.
var (
	ErrUnavailable       = errors.New("pose: metadata unavailable")
	ErrMissingReference  = fmt.Errorf("%w: no coordinate system", ErrUnavailable)
	ErrMissingView       = fmt.Errorf("%w: no view transform", ErrUnavailable)
	ErrMissingProjection = fmt.Errorf("%w: no projection transform", ErrUnavailable)
)

// CameraPose is the pose of the physical camera for one frame.
// It is an immutable value.
type CameraPose struct {
	// View maps world coordinates into camera space.
	View spatial.Matrix

	// Projection maps camera space into clip space.
	Projection spatial.Matrix

	// Reference is the coordinate system View is expressed in.
	Reference spatial.CoordinateSystem
}

// Extract decodes the reference coordinate system, view matrix and
// projection matrix from md. The transforms are raw 64-byte buffers of
// column-major float32 values.
func Extract(md Metadata) (CameraPose, error) {
	ref, ok := md[KeyCoordinateSystem].(spatial.CoordinateSystem)
	if !ok || ref == nil {
		return CameraPose{}, ErrMissingReference
	}

	view, err := matrix(md, KeyViewTransform, ErrMissingView)
	if err != nil {
		return CameraPose{}, err
	}
	proj, err := matrix(md, KeyProjectionTransform, ErrMissingProjection)
	if err != nil {
		return CameraPose{}, err
	}

	return CameraPose{View: view, Projection: proj, Reference: ref}, nil
}

// Encode builds the metadata a capture driver would attach for p.
func Encode(p CameraPose) Metadata {
	return Metadata{
		KeyCoordinateSystem:    p.Reference,
		KeyViewTransform:       p.View.Bytes(),
		KeyProjectionTransform: p.Projection.Bytes(),
	}
}

func matrix(md Metadata, key Key, missing error) (spatial.Matrix, error) {
	raw, ok := md[key].([]byte)
	if !ok || raw == nil {
		return spatial.Matrix{}, missing
	}
	m, err := spatial.MatrixFromBytes(raw)
	if err != nil {
		return spatial.Matrix{}, fmt.Errorf("pose: decode %s: %w", key, err)
	}
	return m, nil
}
