// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package stability classifies consecutive camera poses as continuous or
// abrupt.
//
// A frame is stable when a point just in front of the camera barely moves
// in camera space between the previous pose and the new one. Abrupt pose
// changes correlate with motion blur and tracking glitches, so images taken
// during them are not trusted for rendering.
package stability

import (
	"math"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/gogpu/physcam/spatial"
)

// MinimumCosine is the smallest cosine between the sample direction before
// and after a pose update for the update to count as stable (about 0.81°).
const MinimumCosine = 0.9999

// SamplePoint is the camera-space point whose motion is measured.
var SamplePoint = r3.Vector{X: 0, Y: 0, Z: -0.1}

// Result is the outcome of comparing two view matrices.
type Result struct {
	// Cosine of the angle between the sample direction before and after.
	// NaN when the previous view matrix could not be inverted.
	Cosine float64

	// Stable is true iff Cosine > MinimumCosine.
	Stable bool
}

// Compare classifies the motion from prev to next.
//
// The sample point is mapped from the previous camera space into world space
// and from there into the next camera space, and its direction is compared
// with its direction before the move.
func Compare(prev, next spatial.Matrix) Result {
	viewToWorld, err := prev.Inverse()
	if err != nil {
		return Result{Cosine: math.NaN()}
	}
	moved := next.Mul(viewToWorld).TransformPoint(SamplePoint)
	cosine := moved.Normalize().Dot(SamplePoint.Normalize())
	return Result{Cosine: cosine, Stable: cosine > MinimumCosine}
}

// Gate tracks the most recently observed view matrix.
// Gate is safe for concurrent use; observations are applied one at a time.
type Gate struct {
	mu   sync.Mutex
	last spatial.Matrix
	seen bool
}

// NewGate returns a gate whose baseline is the identity matrix.
func NewGate() *Gate {
	return &Gate{last: spatial.Identity()}
}

// Observe compares view with the baseline and then makes view the new
// baseline, whatever the result.
func (g *Gate) Observe(view spatial.Matrix) Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := Compare(g.last, view)
	g.last = view
	g.seen = true
	return r
}

// Baseline returns the view matrix the next observation is compared with,
// and whether any view has been observed yet.
func (g *Gate) Baseline() (spatial.Matrix, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.seen
}
