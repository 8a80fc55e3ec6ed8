// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package physcam

import (
	"context"
	"errors"
	"image/color"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/physcam/capture"
	"github.com/gogpu/physcam/memgpu"
	"github.com/gogpu/physcam/pose"
	"github.com/gogpu/physcam/sharedtex"
	"github.com/gogpu/physcam/spatial"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

func yaw(deg float64) spatial.Matrix { return spatial.RotationY(deg * math.Pi / 180) }

// projection returns a distinct, recognizable projection matrix per id.
func projection(id float32) spatial.Matrix {
	m := spatial.Identity()
	m.Set(0, 0, 1+id)
	m.Set(3, 2, -1)
	return m
}

type harness struct {
	capture *memgpu.Device
	render  *memgpu.Device
	world   *spatial.Node
	ref     *spatial.Node
	cam     *Camera
}

func newHarness(opts ...Option) *harness {
	sys := memgpu.NewSystem()
	world := spatial.NewRoot("world")
	h := &harness{
		capture: sys.NewDevice("capture"),
		render:  sys.NewDevice("render"),
		world:   world,
		ref:     world.Child("camera", spatial.Translation(0, 1.5, 0)),
	}
	h.cam = New(h.capture, h.render, nil, opts...)
	return h
}

func (h *harness) surface(t *testing.T, w, ht uint32, c color.RGBA) *memgpu.Texture {
	t.Helper()
	tex, err := h.capture.NewTexture(sharedtex.TextureDescriptor{
		Width:       w,
		Height:      ht,
		SampleCount: 1,
		Format:      gputypes.TextureFormatBGRA8Unorm,
	})
	if err != nil {
		t.Fatalf("create surface: %v", err)
	}
	if err := tex.Fill(c); err != nil {
		t.Fatalf("fill surface: %v", err)
	}
	return tex
}

func (h *harness) frame(t *testing.T, view, proj spatial.Matrix, c color.RGBA) capture.Frame {
	t.Helper()
	return capture.Frame{
		Surface: h.surface(t, 4, 4, c),
		Metadata: pose.Encode(pose.CameraPose{
			View:       view,
			Projection: proj,
			Reference:  h.ref,
		}),
	}
}

// sharedColor reads the shared texture through the render-side contract.
func (h *harness) sharedColor(t *testing.T) color.RGBA {
	t.Helper()
	var got color.RGBA
	err := h.cam.WithTexture(func(tex sharedtex.Texture) error {
		got = tex.(*memgpu.Texture).At(0, 0)
		return nil
	})
	if err != nil {
		t.Fatalf("WithTexture: %v", err)
	}
	return got
}

func TestCameraInitialState(t *testing.T) {
	h := newHarness()

	if h.cam.Ready() {
		t.Error("Ready() = true before any frame")
	}
	if h.cam.State() != StateUninitialized {
		t.Errorf("State() = %v, want Uninitialized", h.cam.State())
	}
	if _, err := h.cam.AcquireTexture(); !errors.Is(err, ErrNotReady) {
		t.Errorf("AcquireTexture() error = %v, want ErrNotReady", err)
	}
	if m := h.cam.GetWorldToCameraMatrix(h.world); !m.IsIdentity() {
		t.Errorf("GetWorldToCameraMatrix() before pose = %v, want identity", m)
	}
	if _, ok := h.cam.Pose(); ok {
		t.Error("Pose() reported a pose before any frame")
	}
	if h.cam.AllowUnstableFrames() {
		t.Error("AllowUnstableFrames() = true by default")
	}
}

// Three frames: V0 = I, V1 = I (stable), V2 = 90° yaw (unstable, rejected).
func TestCameraThreeFrameScenario(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	frames := []capture.Frame{
		h.frame(t, spatial.Identity(), projection(0), red),
		h.frame(t, spatial.Identity(), projection(1), green),
		h.frame(t, yaw(90), projection(2), blue),
	}
	want := []Outcome{OutcomeAccepted, OutcomeAccepted, OutcomeRejected}

	for i, f := range frames {
		if got := h.cam.HandleFrame(ctx, f); got != want[i] {
			t.Fatalf("frame %d outcome = %v, want %v", i, got, want[i])
		}
		if i == 1 {
			p, ok := h.cam.Pose()
			if !ok || p.View != spatial.Identity() || p.Projection != projection(1) {
				t.Fatalf("pose after frame 1 = %+v, want V1 with P1", p)
			}
		}
	}

	if got := h.capture.Copies(); got != 2 {
		t.Errorf("texture copies = %d, want 2", got)
	}
	p, _ := h.cam.Pose()
	if p.View != spatial.Identity() || p.Projection != projection(1) {
		t.Errorf("pose after rejected frame = %+v, want unchanged V1/P1", p)
	}
	if p.Reference != spatial.CoordinateSystem(h.ref) {
		t.Error("published reference is not the frame reference")
	}
	if got := h.sharedColor(t); got != green {
		t.Errorf("shared texture = %v, want frame 1 color %v", got, green)
	}
	if h.cam.Stable() {
		t.Error("Stable() = true after an unstable frame")
	}
}

func TestCameraAlternatingStability(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	// The baseline follows every frame, so holding still after a jump is
	// stable again.
	steps := []struct {
		view   spatial.Matrix
		color  color.RGBA
		stable bool
	}{
		{spatial.Identity(), red, true},
		{yaw(90), green, false},
		{yaw(90), blue, true},
		{yaw(0), white, false},
		{yaw(0), red, true},
		{yaw(45), green, false},
	}

	lastColor := color.RGBA{}
	lastProj := spatial.Matrix{}
	for i, s := range steps {
		proj := projection(float32(i))
		out := h.cam.HandleFrame(ctx, h.frame(t, s.view, proj, s.color))

		if h.cam.Stable() != s.stable {
			t.Fatalf("step %d Stable() = %v, want %v", i, h.cam.Stable(), s.stable)
		}
		if s.stable {
			if out != OutcomeAccepted {
				t.Fatalf("step %d outcome = %v, want accepted", i, out)
			}
			lastColor, lastProj = s.color, proj
		} else if out != OutcomeRejected {
			t.Fatalf("step %d outcome = %v, want rejected", i, out)
		}

		p, _ := h.cam.Pose()
		if p.Projection != lastProj {
			t.Errorf("step %d published projection changed on a %v frame", i, out)
		}
		if got := h.sharedColor(t); got != lastColor {
			t.Errorf("step %d shared texture = %v, want %v", i, got, lastColor)
		}
	}

	st := h.cam.Stats()
	if st.Accepted != 3 || st.Rejected != 3 || st.Unstable != 3 || st.Frames != 6 {
		t.Errorf("Stats() = %v", st)
	}
}

func TestCameraAllowUnstableFrames(t *testing.T) {
	h := newHarness(WithAllowUnstableFrames(true))
	ctx := context.Background()

	views := []spatial.Matrix{spatial.Identity(), yaw(90), yaw(0), yaw(170)}
	colors := []color.RGBA{red, green, blue, white}
	for i, v := range views {
		if out := h.cam.HandleFrame(ctx, h.frame(t, v, projection(float32(i)), colors[i])); out != OutcomeAccepted {
			t.Fatalf("frame %d outcome = %v, want accepted", i, out)
		}
		p, _ := h.cam.Pose()
		if p.View != v {
			t.Errorf("frame %d pose view not published", i)
		}
		if got := h.sharedColor(t); got != colors[i] {
			t.Errorf("frame %d shared texture = %v, want %v", i, got, colors[i])
		}
	}

	if h.cam.Stable() {
		t.Error("Stable() = true after a 170° jump")
	}
	if got := h.capture.Copies(); got != uint64(len(views)) {
		t.Errorf("copies = %d, want %d", got, len(views))
	}
	if st := h.cam.Stats(); st.Unstable != 3 || st.Rejected != 0 {
		t.Errorf("Stats() = %v, want 3 unstable, 0 rejected", st)
	}
}

func TestCameraReadyOnce(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	// A rejected first frame does not create the shared texture.
	h.cam.HandleFrame(ctx, h.frame(t, yaw(90), projection(0), red))
	if h.cam.Ready() {
		t.Fatal("Ready() = true after a rejected frame")
	}

	h.cam.HandleFrame(ctx, h.frame(t, yaw(90), projection(0), red))
	if !h.cam.Ready() {
		t.Fatal("Ready() = false after an accepted frame")
	}
	first, err := h.cam.AcquireTexture()
	if err != nil {
		t.Fatalf("AcquireTexture() error = %v", err)
	}
	_ = h.cam.ReleaseTexture()

	h.cam.HandleFrame(ctx, capture.Frame{})
	h.cam.HandleFrame(ctx, h.frame(t, yaw(0), projection(0), blue))
	h.cam.HandleFrame(ctx, h.frame(t, yaw(0), projection(0), green))
	if !h.cam.Ready() {
		t.Error("Ready() reverted to false")
	}
	again, err := h.cam.AcquireTexture()
	if err != nil {
		t.Fatalf("AcquireTexture() error = %v", err)
	}
	_ = h.cam.ReleaseTexture()
	if again != first {
		t.Error("shared texture was recreated")
	}
}

func TestCameraDropsFramesWithoutMetadata(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	f := h.frame(t, spatial.Identity(), projection(0), red)
	f.Metadata = nil
	if out := h.cam.HandleFrame(ctx, f); out != OutcomeDropped {
		t.Fatalf("outcome = %v, want dropped", out)
	}
	if h.cam.Ready() {
		t.Error("dropped frame created the shared texture")
	}

	h.cam.HandleFrame(ctx, h.frame(t, yaw(30), projection(0), red)) // unstable vs identity

	// A frame whose reference is missing leaves the baseline at 30° yaw, so
	// a frame at 30.3° is stable.
	f = h.frame(t, yaw(60), projection(0), green)
	delete(f.Metadata, pose.KeyCoordinateSystem)
	if out := h.cam.HandleFrame(ctx, f); out != OutcomeDropped {
		t.Fatalf("outcome = %v, want dropped", out)
	}
	if out := h.cam.HandleFrame(ctx, h.frame(t, yaw(30.3), projection(0), blue)); out != OutcomeAccepted {
		t.Errorf("outcome after dropped frame = %v, want accepted", out)
	}
	if st := h.cam.Stats(); st.Dropped != 2 {
		t.Errorf("Stats().Dropped = %d, want 2", st.Dropped)
	}
}

func TestCameraFirstFrameComparedWithIdentity(t *testing.T) {
	h := newHarness()
	if out := h.cam.HandleFrame(context.Background(), h.frame(t, yaw(0.2), projection(0), red)); out != OutcomeAccepted {
		t.Errorf("near-identity first frame outcome = %v, want accepted", out)
	}
	if !h.cam.Stable() {
		t.Error("Stable() = false for a near-identity first frame")
	}
}

func TestGetWorldToCameraMatrix(t *testing.T) {
	h := newHarness()
	view := spatial.Translation(0, 0, -2).Mul(yaw(0.1))
	proj := projection(3)
	h.cam.HandleFrame(context.Background(), h.frame(t, view, proj, red))

	transform, ok := h.world.TransformTo(h.ref)
	if !ok {
		t.Fatal("world and camera frames unrelated")
	}
	want := proj.Mul(view).Mul(transform)

	got := h.cam.GetWorldToCameraMatrix(h.world)
	if !got.ApproxEqual(want, 1e-6) {
		t.Errorf("GetWorldToCameraMatrix() = %v, want %v", got, want)
	}
	if got.IsIdentity() {
		t.Error("related origin produced identity")
	}

	// Composition applies the origin transform first: the world origin sits
	// 1.5 below the camera frame origin.
	if tr := transform.At(1, 3); math.Abs(float64(tr)+1.5) > 1e-6 {
		t.Errorf("world→camera translation y = %v, want -1.5", tr)
	}
}

func TestGetWorldToCameraMatrixUnrelatedOrigin(t *testing.T) {
	h := newHarness()
	h.cam.HandleFrame(context.Background(), h.frame(t, spatial.Identity(), projection(1), red))

	if m := h.cam.GetWorldToCameraMatrix(spatial.NewRoot("elsewhere")); !m.IsIdentity() {
		t.Errorf("unrelated origin = %v, want identity", m)
	}
	if m := h.cam.GetWorldToCameraMatrix(nil); !m.IsIdentity() {
		t.Errorf("nil origin = %v, want identity", m)
	}
	var typedNil *spatial.Node
	if m := h.cam.GetWorldToCameraMatrix(typedNil); !m.IsIdentity() {
		t.Errorf("nil *Node origin = %v, want identity", m)
	}
}

func TestAcquireReleaseIdempotent(t *testing.T) {
	h := newHarness()
	h.cam.HandleFrame(context.Background(), h.frame(t, spatial.Identity(), projection(0), red))

	var first sharedtex.Texture
	for i := 0; i < 10; i++ {
		tex, err := h.cam.AcquireTexture()
		if err != nil {
			t.Fatalf("AcquireTexture #%d error = %v", i, err)
		}
		if first == nil {
			first = tex
		} else if tex != first {
			t.Fatalf("AcquireTexture #%d returned a different handle", i)
		}
		if tex.(*memgpu.Texture).Owner() != h.render {
			t.Fatal("acquired texture not bound to the render device")
		}
		if err := h.cam.ReleaseTexture(); err != nil {
			t.Fatalf("ReleaseTexture #%d error = %v", i, err)
		}
	}
}

func TestCameraLockTimeoutSkipsCopy(t *testing.T) {
	h := newHarness(WithLockTimeout(10 * time.Millisecond))
	ctx := context.Background()
	h.cam.HandleFrame(ctx, h.frame(t, spatial.Identity(), projection(0), red))

	if _, err := h.cam.AcquireTexture(); err != nil {
		t.Fatalf("AcquireTexture() error = %v", err)
	}
	out := h.cam.HandleFrame(ctx, h.frame(t, spatial.Identity(), projection(1), green))
	if out != OutcomeLockTimeout {
		t.Errorf("outcome while renderer holds texture = %v, want lock-timeout", out)
	}
	p, _ := h.cam.Pose()
	if p.Projection != projection(0) {
		t.Error("pose published for a frame whose copy was skipped")
	}

	// A second acquire by the renderer times out rather than blocking.
	if _, err := h.cam.AcquireTexture(); !errors.Is(err, ErrLockTimeout) {
		t.Errorf("nested AcquireTexture() error = %v, want ErrLockTimeout", err)
	}
	if err := h.cam.ReleaseTexture(); err != nil {
		t.Fatalf("ReleaseTexture() error = %v", err)
	}

	if got := h.sharedColor(t); got != red {
		t.Errorf("shared texture = %v, want stale %v", got, red)
	}
	if out := h.cam.HandleFrame(ctx, h.frame(t, spatial.Identity(), projection(2), blue)); out != OutcomeAccepted {
		t.Errorf("outcome after release = %v, want accepted", out)
	}
	if st := h.cam.Stats(); st.LockTimeouts != 1 {
		t.Errorf("Stats().LockTimeouts = %d, want 1", st.LockTimeouts)
	}
}

func TestCameraRejectsResizedFrames(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.cam.HandleFrame(ctx, h.frame(t, spatial.Identity(), projection(0), red))

	f := h.frame(t, spatial.Identity(), projection(1), green)
	f.Surface = h.surface(t, 8, 8, green)
	if out := h.cam.HandleFrame(ctx, f); out != OutcomeFailed {
		t.Errorf("resized frame outcome = %v, want failed", out)
	}
	p, _ := h.cam.Pose()
	if p.Projection != projection(0) {
		t.Error("pose published for a frame that could not be shared")
	}
}

type brokenSurface struct{}

func (brokenSurface) NativeResource() (sharedtex.Texture, error) {
	return nil, errors.New("surface lost")
}

func TestCameraSurfaceFailures(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	f := h.frame(t, spatial.Identity(), projection(0), red)
	f.Surface = nil
	if out := h.cam.HandleFrame(ctx, f); out != OutcomeFailed {
		t.Errorf("nil surface outcome = %v, want failed", out)
	}
	f.Surface = brokenSurface{}
	if out := h.cam.HandleFrame(ctx, f); out != OutcomeFailed {
		t.Errorf("broken surface outcome = %v, want failed", out)
	}
	if h.cam.Ready() {
		t.Error("Ready() = true without a shared frame")
	}
	if st := h.cam.Stats(); st.Failed != 2 {
		t.Errorf("Stats().Failed = %d, want 2", st.Failed)
	}
}

func TestWithTextureReleasesOnError(t *testing.T) {
	h := newHarness(WithLockTimeout(10 * time.Millisecond))
	h.cam.HandleFrame(context.Background(), h.frame(t, spatial.Identity(), projection(0), red))

	boom := errors.New("draw failed")
	if err := h.cam.WithTexture(func(sharedtex.Texture) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("WithTexture() error = %v, want %v", err, boom)
	}

	func() {
		defer func() { _ = recover() }()
		_ = h.cam.WithTexture(func(sharedtex.Texture) error { panic("draw panicked") })
	}()

	if _, err := h.cam.AcquireTexture(); err != nil {
		t.Fatalf("texture left locked: %v", err)
	}
	_ = h.cam.ReleaseTexture()
}

func TestCameraConcurrentCaptureAndRender(t *testing.T) {
	h := newHarness(WithLockTimeout(50 * time.Millisecond))
	ctx := context.Background()
	h.cam.HandleFrame(ctx, h.frame(t, spatial.Identity(), projection(0), red))

	frames := make([]capture.Frame, 100)
	for i := range frames {
		frames[i] = h.frame(t, yaw(float64(i)*0.05), projection(float32(i)), red)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			err := h.cam.WithTexture(func(tex sharedtex.Texture) error {
				_ = tex.(*memgpu.Texture).At(0, 0)
				return nil
			})
			if err != nil && !errors.Is(err, ErrLockTimeout) {
				t.Errorf("WithTexture() error = %v", err)
				return
			}
			_ = h.cam.GetWorldToCameraMatrix(h.world)
		}
	}()

	for _, f := range frames {
		switch out := h.cam.HandleFrame(ctx, f); out {
		case OutcomeAccepted, OutcomeLockTimeout:
		default:
			t.Errorf("outcome = %v", out)
		}
	}
	close(stop)
	wg.Wait()

	st := h.cam.Stats()
	if st.Accepted+st.LockTimeouts != st.Frames {
		t.Errorf("Stats() = %v, want every frame accepted or timed out", st)
	}
}

func TestStatsString(t *testing.T) {
	s := Stats{Frames: 5, Accepted: 2, Dropped: 1, Rejected: 1, Unstable: 1, LockTimeouts: 1}
	want := "Frames[5 total, 2 accepted, 1 dropped, 1 rejected, 1 unstable, 1 lock timeouts, 0 failed]"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStateAndOutcomeStrings(t *testing.T) {
	states := map[State]string{
		StateUninitialized: "Uninitialized",
		StateInitializing:  "Initializing",
		StateStreaming:     "Streaming",
		StateFailed:        "Failed",
		StateStopped:       "Stopped",
		State(42):          "State(42)",
	}
	for s, want := range states {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int32(s), got, want)
		}
	}

	outcomes := map[Outcome]string{
		OutcomeAccepted:    "accepted",
		OutcomeDropped:     "dropped",
		OutcomeRejected:    "rejected",
		OutcomeLockTimeout: "lock-timeout",
		OutcomeFailed:      "failed",
		Outcome(9):         "Outcome(9)",
	}
	for o, want := range outcomes {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}
