// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package physcam

import (
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/gogpu/physcam/capture"
	"github.com/gogpu/physcam/pose"
	"github.com/gogpu/physcam/sharedtex"
	"github.com/gogpu/physcam/spatial"
	"github.com/gogpu/physcam/stability"
)

// tracerName identifies spans recorded by this package.
const tracerName = "github.com/gogpu/physcam"

// Camera is the frame pipeline of one physical camera.
//
// Frames arrive on the capture goroutine (HandleFrame, Run, or the session
// started by Initialize). The render goroutine calls AcquireTexture,
// ReleaseTexture and GetWorldToCameraMatrix.
type Camera struct {
	opts     options
	source   capture.Source
	textures *sharedtex.Manager
	gate     *stability.Gate
	tracer   trace.Tracer

	// frameMu serializes frame events so each stability decision sees the
	// view matrix of the event delivered just before it.
	frameMu sync.Mutex

	// poseMu guards the published pose. Never held across GPU work.
	poseMu  sync.Mutex
	pose    pose.CameraPose
	hasPose bool

	stable atomic.Bool
	state  atomic.Int32
	stats  counters

	initOnce    sync.Once
	initialized chan struct{}
	done        chan struct{}
	errMu       sync.Mutex
	initErr     error
	streamErr   error
}

// New creates a camera sharing frames decoded on captureDev with
// renderDev. source is used by Initialize and may be nil when frames are
// fed directly with HandleFrame or Run.
func New(captureDev, renderDev sharedtex.Device, source capture.Source, opts ...Option) *Camera {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Camera{
		opts:        o,
		source:      source,
		textures:    sharedtex.NewManager(captureDev, renderDev, o.lockTimeout),
		gate:        stability.NewGate(),
		tracer:      tp.Tracer(tracerName),
		initialized: make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Ready reports whether the shared texture exists. It becomes true on the
// first accepted frame and never reverts.
func (c *Camera) Ready() bool { return c.textures.Ready() }

// Stable reports the stability of the most recent frame with a pose,
// accepted or not.
func (c *Camera) Stable() bool { return c.stable.Load() }

// AllowUnstableFrames reports whether unstable frames are forwarded.
func (c *Camera) AllowUnstableFrames() bool { return c.opts.allowUnstable }

// State returns the lifecycle state.
func (c *Camera) State() State { return State(c.state.Load()) }

func (c *Camera) setState(s State) { c.state.Store(int32(s)) }

// AcquireTexture locks the render-side shared texture and returns it.
//
// It fails with ErrNotReady before the first accepted frame and with an
// error wrapping ErrLockTimeout when the capture side holds the texture for
// longer than the lock timeout; both mean "no frame this tick". Every
// successful call must be paired with ReleaseTexture.
func (c *Camera) AcquireTexture() (sharedtex.Texture, error) {
	return c.textures.Acquire()
}

// ReleaseTexture unlocks the texture returned by AcquireTexture.
func (c *Camera) ReleaseTexture() error {
	return c.textures.Release()
}

// WithTexture runs fn with the shared texture locked and releases it on
// every exit path, including panics.
func (c *Camera) WithTexture(fn func(sharedtex.Texture) error) (err error) {
	tex, err := c.AcquireTexture()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := c.ReleaseTexture(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn(tex)
}

// GetWorldToCameraMatrix returns the matrix taking points expressed in
// origin through the camera's view and projection: projection · view ·
// transform(origin → camera reference).
//
// It returns the identity matrix until a pose has been published, and
// whenever origin is not spatially related to the camera reference.
func (c *Camera) GetWorldToCameraMatrix(origin spatial.CoordinateSystem) spatial.Matrix {
	c.poseMu.Lock()
	defer c.poseMu.Unlock()

	if !c.hasPose || c.pose.Reference == nil || origin == nil {
		return spatial.Identity()
	}
	transform, ok := origin.TransformTo(c.pose.Reference)
	if !ok {
		return spatial.Identity()
	}
	return c.pose.Projection.Mul(c.pose.View).Mul(transform)
}

// Pose returns the last published pose.
func (c *Camera) Pose() (pose.CameraPose, bool) {
	c.poseMu.Lock()
	defer c.poseMu.Unlock()
	return c.pose, c.hasPose
}

func (c *Camera) publish(p pose.CameraPose) {
	c.poseMu.Lock()
	c.pose = p
	c.hasPose = true
	c.poseMu.Unlock()
}
