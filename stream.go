// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package physcam

import (
	"context"

	"github.com/gogpu/physcam/capture"
)

// Run handles frames from the channel in order until it is closed (nil) or
// ctx is done (ctx.Err()).
func (c *Camera) Run(ctx context.Context, frames <-chan capture.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			c.HandleFrame(ctx, f)
		}
	}
}

// Initialize starts the capture session in the background and returns
// immediately. Only the first call has an effect.
//
// The session negotiates a color preview stream from the source, then feeds
// its frames through a bounded channel into Run until ctx is cancelled or
// the source ends. Observe progress with State, Initialized and Done;
// setup failures are reported by InitErr and leave Ready false.
func (c *Camera) Initialize(ctx context.Context) {
	c.initOnce.Do(func() {
		if c.source == nil {
			c.setErrs(ErrNoSource, nil)
			c.setState(StateFailed)
			close(c.initialized)
			close(c.done)
			return
		}
		c.setState(StateInitializing)
		go c.session(ctx)
	})
}

// Initialized is closed once setup has succeeded or failed.
func (c *Camera) Initialized() <-chan struct{} { return c.initialized }

// Done is closed once the capture session has ended, or setup has failed.
func (c *Camera) Done() <-chan struct{} { return c.done }

// InitErr returns the setup error, if any.
func (c *Camera) InitErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.initErr
}

// Err returns the error that ended the capture session, if any. It is
// context.Canceled when the session was stopped through its context.
func (c *Camera) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.streamErr
}

func (c *Camera) setErrs(initErr, streamErr error) {
	c.errMu.Lock()
	c.initErr = initErr
	c.streamErr = streamErr
	c.errMu.Unlock()
}

func (c *Camera) session(ctx context.Context) {
	defer close(c.done)
	log := Logger()

	reader, format, err := capture.Negotiate(ctx, c.source)
	if err != nil {
		log.Warn("physcam: capture setup failed", "err", err)
		c.setErrs(err, nil)
		c.setState(StateFailed)
		close(c.initialized)
		return
	}
	defer func() {
		if err := reader.Close(); err != nil {
			log.Warn("physcam: close capture session", "err", err)
		}
	}()

	c.setState(StateStreaming)
	close(c.initialized)
	log.Info("physcam: streaming", "format", format.String())

	frames := make(chan capture.Frame, c.opts.eventBuffer)
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- reader.Stream(ctx, frames)
		close(frames)
	}()

	runErr := c.Run(ctx, frames)
	err = <-streamErr
	if err == nil {
		err = runErr
	}
	c.setErrs(nil, err)
	c.setState(StateStopped)
	log.Info("physcam: capture session ended", "err", err, "stats", c.Stats().String())
}
