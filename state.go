// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package physcam

import (
	"errors"
	"fmt"

	"github.com/gogpu/physcam/sharedtex"
)

// Camera errors.
var (
	// ErrNotReady is returned by AcquireTexture before the first frame has
	// been shared.
	ErrNotReady = sharedtex.ErrNotReady

	// ErrLockTimeout is returned by AcquireTexture when the capture side
	// holds the texture longer than the lock timeout. Skip or retry the draw.
	ErrLockTimeout = sharedtex.ErrLockTimeout

	// ErrNoSource is reported by InitErr when Initialize is called on a
	// camera created without a capture source.
	ErrNoSource = errors.New("physcam: no capture source")
)

// State is the lifecycle state of a Camera.
type State int32

// Camera states.
const (
	// StateUninitialized: Initialize has not been called. Frames may still be
	// fed directly with HandleFrame or Run.
	StateUninitialized State = iota

	// StateInitializing: the capture session is being negotiated.
	StateInitializing

	// StateStreaming: frame events are being processed.
	StateStreaming

	// StateFailed: setup found no usable source; Ready stays false.
	StateFailed

	// StateStopped: the capture session ended.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitializing:
		return "Initializing"
	case StateStreaming:
		return "Streaming"
	case StateFailed:
		return "Failed"
	case StateStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Outcome is what the pipeline did with one frame event.
type Outcome int

// Frame outcomes.
const (
	// OutcomeAccepted: the image was copied and the pose published.
	OutcomeAccepted Outcome = iota

	// OutcomeDropped: the event carried no usable pose metadata. Nothing
	// changed.
	OutcomeDropped

	// OutcomeRejected: the pose moved too abruptly. Only the stability
	// baseline changed.
	OutcomeRejected

	// OutcomeLockTimeout: the shared texture stayed locked by the renderer;
	// the copy was skipped and the pose not published.
	OutcomeLockTimeout

	// OutcomeFailed: the frame surface could not be shared.
	OutcomeFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDropped:
		return "dropped"
	case OutcomeRejected:
		return "rejected"
	case OutcomeLockTimeout:
		return "lock-timeout"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}
