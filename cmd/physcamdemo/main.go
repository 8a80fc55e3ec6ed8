// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command physcamdemo streams a scripted camera through the frame pipeline
// and draws from the shared texture on a separate render device.
package main

import (
	"context"
	"errors"
	"flag"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/physcam"
	"github.com/gogpu/physcam/capture/synth"
	"github.com/gogpu/physcam/config"
	"github.com/gogpu/physcam/internal/telemetry"
	"github.com/gogpu/physcam/memgpu"
	"github.com/gogpu/physcam/sharedtex"
	"github.com/gogpu/physcam/spatial"
)

func main() {
	var (
		duration = flag.Duration("duration", 3*time.Second, "how long to stream")
		interval = flag.Duration("interval", 33*time.Millisecond, "time between captured frames")
		tick     = flag.Duration("tick", 16*time.Millisecond, "render loop period")
		output   = flag.String("output", "", "write the last rendered frame to this PNG file")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	physcam.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	sys := memgpu.NewSystem()
	captureDev := sys.NewDevice("capture")
	renderDev := sys.NewDevice("render")

	world := spatial.NewRoot("world")
	head := world.Child("head", spatial.Translation(0, 1.6, 0))

	src := synth.New(captureDev, head, script(), synth.WithLoop(), synth.WithInterval(*interval))
	cam := physcam.New(captureDev, renderDev, src, cfg.Options()...)
	cam.Initialize(ctx)

	<-cam.Initialized()
	if err := cam.InitErr(); err != nil {
		log.Fatalf("Camera setup failed: %v", err)
	}

	last := render(ctx, cam, world, *tick)
	<-cam.Done()

	log.Printf("Session ended (%v): %s, %d frames drawn", cam.Err(), cam.Stats(), last.draws)
	if *output != "" && last.tex != nil {
		if err := savePNG(*output, last.tex); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		log.Printf("Last frame saved to %s", *output)
	}
}

// script is a slow head turn with one abrupt glance and one frame without
// tracking data.
func script() []synth.Step {
	proj := perspective(60*math.Pi/180, 16.0/9.0, 0.1, 100)
	var steps []synth.Step
	for i := 0; i < 30; i++ {
		deg := float64(i) * 0.4
		steps = append(steps, synth.Step{
			View:       spatial.RotationY(deg * math.Pi / 180),
			Projection: proj,
			Color:      color.RGBA{R: uint8(i * 8), G: 96, B: 160, A: 255},
		})
	}
	steps = append(steps,
		synth.Step{View: spatial.RotationY(math.Pi / 2), Projection: proj, Color: color.RGBA{R: 255, A: 255}},
		synth.Step{OmitMetadata: true, Color: color.RGBA{A: 255}},
	)
	return steps
}

func perspective(fovY, aspect, near, far float64) spatial.Matrix {
	f := 1 / math.Tan(fovY/2)
	var m spatial.Matrix
	m.Set(0, 0, float32(f/aspect))
	m.Set(1, 1, float32(f))
	m.Set(2, 2, float32((far+near)/(near-far)))
	m.Set(2, 3, float32(2*far*near/(near-far)))
	m.Set(3, 2, -1)
	return m
}

type lastFrame struct {
	tex   *memgpu.Texture
	draws int
}

// render polls the camera the way a frame loop would: skip the tick when no
// frame is ready or the capture side holds the texture.
func render(ctx context.Context, cam *physcam.Camera, world spatial.CoordinateSystem, period time.Duration) lastFrame {
	var last lastFrame
	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return last
		case <-t.C:
		}
		if !cam.Ready() {
			continue
		}
		err := cam.WithTexture(func(tex sharedtex.Texture) error {
			m := cam.GetWorldToCameraMatrix(world)
			_ = m // a real renderer binds tex and m to its camera-quad pass here
			last.tex, _ = tex.(*memgpu.Texture)
			last.draws++
			return nil
		})
		if err != nil && !errors.Is(err, physcam.ErrLockTimeout) {
			log.Printf("draw: %v", err)
		}
	}
}

func savePNG(path string, tex *memgpu.Texture) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, tex.Snapshot()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
