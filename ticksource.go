// go-cardloop
// Copyright (c) 2026 The Cardloop Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-cardloop.
//
// go-cardloop is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-cardloop is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-cardloop; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package cardloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Clock abstracts ticker creation so tests can drive ticks without real
// time passing
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the tick source needs
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// realClock builds tickers from the time package
type realClock struct{}

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (rt *realTicker) C() <-chan time.Time { return rt.ticker.C }
func (rt *realTicker) Stop()               { rt.ticker.Stop() }

// TickSource delivers periodic ticks to a Pool from a wall-clock ticker,
// standing in for the hardware timer interrupt the pool was designed
// around. One background goroutine calls pool.Tick every period; the pool's
// consumer keeps calling Scan at its own pace.
type TickSource struct {
	pool       *Pool
	clock      Clock
	cancelFunc context.CancelFunc
	done       chan struct{}
	period     time.Duration
	stopMutex  sync.Mutex
	running    atomic.Bool
}

// NewTickSource creates a tick source for pool. Without WithPeriod the
// source runs at the pool's tick period.
func NewTickSource(pool *Pool, opts ...TickSourceOption) (*TickSource, error) {
	if pool == nil {
		return nil, errors.New("pool cannot be nil")
	}

	ts := &TickSource{
		pool:   pool,
		clock:  realClock{},
		period: pool.TickPeriod(),
	}

	for _, opt := range opts {
		if err := opt(ts); err != nil {
			return nil, err
		}
	}
	return ts, nil
}

// Start begins tick delivery (non-blocking).
// Returns ErrTickSourceRunning if the source is already running. Delivery
// ends when ctx is cancelled or Stop is called.
func (ts *TickSource) Start(ctx context.Context) error {
	// The running flag and the cancelFunc/done pair change together under
	// stopMutex, so a Stop that observes running true always sees the pair
	// belonging to the current run.
	ts.stopMutex.Lock()
	defer ts.stopMutex.Unlock()

	if !ts.running.CompareAndSwap(false, true) {
		return ErrTickSourceRunning
	}

	tickCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ts.cancelFunc = cancel
	ts.done = done

	go func() {
		defer func() {
			cancel()
			ts.stopMutex.Lock()
			ts.running.Store(false)
			ts.cancelFunc = nil
			ts.stopMutex.Unlock()
			close(done)
		}()

		ticker := ts.clock.NewTicker(ts.period)
		defer ticker.Stop()

		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C():
				ts.pool.Tick()
			}
		}
	}()

	return nil
}

// Stop ends tick delivery and blocks until the delivery goroutine has
// exited. Stopping a source that is not running is a no-op.
func (ts *TickSource) Stop() {
	ts.stopMutex.Lock()
	if !ts.running.Load() {
		ts.stopMutex.Unlock()
		return
	}
	cancelFunc := ts.cancelFunc
	done := ts.done
	ts.stopMutex.Unlock()

	cancelFunc()
	<-done
}

// Running returns whether the source is currently delivering ticks
func (ts *TickSource) Running() bool {
	return ts.running.Load()
}

// Period returns the configured tick period
func (ts *TickSource) Period() time.Duration {
	return ts.period
}
