// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package physcam

import (
	"fmt"
	"sync/atomic"
)

// Stats counts frame events by outcome.
type Stats struct {
	// Frames is the number of events handled.
	Frames uint64

	// Accepted frames were copied and their pose published.
	Accepted uint64

	// Dropped frames had no usable pose metadata.
	Dropped uint64

	// Rejected frames were unstable while unstable frames are disallowed.
	Rejected uint64

	// Unstable counts frames classified unstable, forwarded or not.
	Unstable uint64

	// LockTimeouts counts copies skipped because the renderer held the
	// shared texture.
	LockTimeouts uint64

	// Failed frames could not be shared.
	Failed uint64
}

// String returns a one-line summary.
func (s Stats) String() string {
	return fmt.Sprintf("Frames[%d total, %d accepted, %d dropped, %d rejected, %d unstable, %d lock timeouts, %d failed]",
		s.Frames, s.Accepted, s.Dropped, s.Rejected, s.Unstable, s.LockTimeouts, s.Failed)
}

type counters struct {
	frames       atomic.Uint64
	accepted     atomic.Uint64
	dropped      atomic.Uint64
	rejected     atomic.Uint64
	unstable     atomic.Uint64
	lockTimeouts atomic.Uint64
	failed       atomic.Uint64
}

func (c *counters) record(o Outcome) {
	c.frames.Add(1)
	switch o {
	case OutcomeAccepted:
		c.accepted.Add(1)
	case OutcomeDropped:
		c.dropped.Add(1)
	case OutcomeRejected:
		c.rejected.Add(1)
	case OutcomeLockTimeout:
		c.lockTimeouts.Add(1)
	case OutcomeFailed:
		c.failed.Add(1)
	}
}

// Stats returns a snapshot of the frame counters.
func (c *Camera) Stats() Stats {
	return Stats{
		Frames:       c.stats.frames.Load(),
		Accepted:     c.stats.accepted.Load(),
		Dropped:      c.stats.dropped.Load(),
		Rejected:     c.stats.rejected.Load(),
		Unstable:     c.stats.unstable.Load(),
		LockTimeouts: c.stats.lockTimeouts.Load(),
		Failed:       c.stats.failed.Load(),
	}
}
