// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package keyedmutex implements a keyed mutex with bounded waits.
//
// A keyed mutex hands exclusive access to a resource from one owner to the
// next: Acquire(k) succeeds only once the mutex is free and was last
// released with key k. A new mutex is free with key 0.
package keyedmutex

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned when Acquire does not obtain the mutex in time.
	ErrTimeout = errors.New("keyedmutex: acquire timed out")

	// ErrNotHeld is returned when releasing a mutex nobody holds.
	ErrNotHeld = errors.New("keyedmutex: release of unheld mutex")
)

// Mutex is a keyed mutex. The zero value is not usable; call New.
type Mutex struct {
	mu   sync.Mutex
	held bool
	key  uint64
	wake chan struct{}
}

// New returns a free mutex whose next acquire key is 0.
func New() *Mutex {
	return &Mutex{wake: make(chan struct{})}
}

// Acquire waits up to timeout for the mutex to become free with the given
// key. A non-positive timeout only tries once.
func (m *Mutex) Acquire(key uint64, timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		m.mu.Lock()
		if !m.held && m.key == key {
			m.held = true
			m.mu.Unlock()
			return nil
		}
		wake := m.wake
		m.mu.Unlock()

		if expired == nil {
			return ErrTimeout
		}
		select {
		case <-wake:
		case <-expired:
			return ErrTimeout
		}
	}
}

// Release frees the mutex and sets the key the next owner must acquire with.
func (m *Mutex) Release(key uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.held {
		return ErrNotHeld
	}
	m.held = false
	m.key = key
	close(m.wake)
	m.wake = make(chan struct{})
	return nil
}

// Held reports whether the mutex is currently owned.
func (m *Mutex) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held
}
