// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package keyedmutex

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	m := New()
	if err := m.Acquire(0, time.Second); err != nil {
		t.Fatalf("Acquire(0) error = %v", err)
	}
	if !m.Held() {
		t.Error("Held() = false after Acquire")
	}
	if err := m.Release(0); err != nil {
		t.Fatalf("Release(0) error = %v", err)
	}
	if m.Held() {
		t.Error("Held() = true after Release")
	}
}

func TestAcquireTimeoutWhileHeld(t *testing.T) {
	m := New()
	if err := m.Acquire(0, 0); err != nil {
		t.Fatalf("Acquire error = %v", err)
	}

	start := time.Now()
	err := m.Acquire(0, 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("second Acquire error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("Acquire returned after %v, expected to wait for the timeout", elapsed)
	}
}

func TestAcquireZeroTimeoutTriesOnce(t *testing.T) {
	m := New()
	_ = m.Acquire(0, 0)
	if err := m.Acquire(0, 0); !errors.Is(err, ErrTimeout) {
		t.Errorf("Acquire(0, 0) on held mutex error = %v, want ErrTimeout", err)
	}
}

func TestAcquireWrongKey(t *testing.T) {
	m := New()
	if err := m.Acquire(1, 10*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("Acquire(1) on fresh mutex error = %v, want ErrTimeout", err)
	}
	if err := m.Acquire(0, 0); err != nil {
		t.Fatalf("Acquire(0) error = %v", err)
	}
	if err := m.Release(1); err != nil {
		t.Fatalf("Release(1) error = %v", err)
	}
	if err := m.Acquire(1, 0); err != nil {
		t.Errorf("Acquire(1) after Release(1) error = %v", err)
	}
}

func TestReleaseUnheld(t *testing.T) {
	if err := New().Release(0); !errors.Is(err, ErrNotHeld) {
		t.Errorf("Release on free mutex error = %v, want ErrNotHeld", err)
	}
}

func TestWaiterWokenByRelease(t *testing.T) {
	m := New()
	_ = m.Acquire(0, 0)

	done := make(chan error, 1)
	go func() { done <- m.Acquire(0, 5*time.Second) }()

	time.Sleep(10 * time.Millisecond)
	if err := m.Release(0); err != nil {
		t.Fatalf("Release error = %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("waiting Acquire error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiting Acquire was not woken by Release")
	}
}

func TestMutualExclusion(t *testing.T) {
	m := New()
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		guard   sync.Mutex
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if err := m.Acquire(0, 5*time.Second); err != nil {
					t.Errorf("Acquire error = %v", err)
					return
				}
				guard.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				guard.Unlock()

				guard.Lock()
				inside--
				guard.Unlock()
				if err := m.Release(0); err != nil {
					t.Errorf("Release error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("observed %d concurrent owners, want 1", maxSeen)
	}
}
