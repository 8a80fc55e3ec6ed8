// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sharedtex

import (
	"fmt"
	"sync"
	"time"
)

// Guard holds the keyed mutex of a shared texture until Unlock.
//
// Typical use:
//
//	g, err := sharedtex.Lock(tex, sharedtex.DefaultLockTimeout)
//	if err != nil {
//	    return err
//	}
//	defer g.Unlock()
type Guard struct {
	mutex KeyedMutex
	once  sync.Once
	err   error
}

// Lock acquires the keyed mutex of tex with SharedTextureKey.
func Lock(tex Texture, timeout time.Duration) (*Guard, error) {
	km, err := tex.KeyedMutex()
	if err != nil {
		return nil, fmt.Errorf("sharedtex: keyed mutex: %w", err)
	}
	if err := km.Acquire(SharedTextureKey, timeout); err != nil {
		return nil, fmt.Errorf("sharedtex: lock: %w", err)
	}
	return &Guard{mutex: km}, nil
}

// Unlock releases the mutex. Calls after the first return the first
// result without releasing again.
func (g *Guard) Unlock() error {
	g.once.Do(func() {
		if err := g.mutex.Release(SharedTextureKey); err != nil {
			g.err = fmt.Errorf("sharedtex: unlock: %w", err)
		}
	})
	return g.err
}
