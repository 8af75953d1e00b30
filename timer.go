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
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultSlotCount is the pool capacity when WithSlotCount is not given
	DefaultSlotCount = 20

	// DefaultTickPeriod is the nominal interval between ticks. One elapsed
	// unit on a slot corresponds to one tick period.
	DefaultTickPeriod = 10 * time.Millisecond
)

// Handle identifies one timer slot in a Pool. Handles are plain indexes;
// values outside [0, SlotCount) fail every slot operation with
// ErrInvalidHandle.
type Handle int

// slot is the state of a single countdown timer.
// setpoint holds the configured tick count minus one, so a slot armed with
// s ticks expires when elapsed exceeds s-1, i.e. on the s-th counted tick.
type slot struct {
	enabled  bool
	expired  bool
	setpoint int
	elapsed  int
}

// Snapshot is a read-only copy of one slot's state
type Snapshot struct {
	Setpoint int
	Elapsed  int
	Enabled  bool
	Expired  bool
}

// Pool is a fixed-capacity set of free-running countdown timers advanced by
// an externally delivered tick.
//
// The tick handoff is a single pending flag: Tick (the producer, typically
// a TickSource goroutine) sets it and Scan (the consumer) clears it and
// advances every enabled slot by one. Ticks that arrive while one is
// already pending coalesce into that one pending pass; the loss is counted
// and observable through CoalescedTicks.
//
// Expired slots restart automatically: when a slot's elapsed count passes
// its setpoint the count wraps to zero and the slot keeps running. The
// expired flag is latched until a consumer takes it, the slot is stopped,
// or the pool is reset.
//
// Tick is safe from any goroutine and never blocks. All other methods are
// serialized by an internal mutex.
type Pool struct {
	slots     []slot
	period    time.Duration
	mu        sync.Mutex
	pending   atomic.Bool
	coalesced atomic.Uint64
}

// NewPool creates a timer pool. All slots start disabled and zeroed.
func NewPool(opts ...PoolOption) (*Pool, error) {
	p := &Pool{
		period: DefaultTickPeriod,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.slots == nil {
		p.slots = make([]slot, DefaultSlotCount)
	}
	return p, nil
}

// checkHandle validates h against the pool capacity. The slot slice never
// changes length after construction, so no lock is needed here.
func (p *Pool) checkHandle(h Handle) error {
	if h < 0 || int(h) >= len(p.slots) {
		return fmt.Errorf("%w: %d (pool has %d slots)", ErrInvalidHandle, h, len(p.slots))
	}
	return nil
}

// Start arms slot h to expire after ticks consumed ticks. Tick counts
// below one are clamped to one. Starting a slot that is already running is
// a no-op: the running cycle, its setpoint and its elapsed count are left
// untouched even if ticks differs.
func (p *Pool) Start(h Handle, ticks int) error {
	if err := p.checkHandle(h); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.slots[h]
	if s.enabled {
		return nil
	}

	if ticks < 1 {
		ticks = 1
	}
	s.setpoint = ticks - 1
	s.elapsed = 0
	s.expired = false
	s.enabled = true
	return nil
}

// Stop disarms slot h and zeroes its state, including a latched expired
// flag. Stopping a slot that is not running is allowed and still zeroes.
func (p *Pool) Stop(h Handle) error {
	if err := p.checkHandle(h); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.slots[h] = slot{}
	return nil
}

// Tick marks one tick pending. It is wait-free and safe to call from any
// goroutine, which makes it suitable for timer callbacks and signal-style
// contexts. If a tick is already pending the new one coalesces into it and
// the coalesced counter is incremented.
func (p *Pool) Tick() {
	if p.pending.Swap(true) {
		p.coalesced.Add(1)
	}
}

// Scan consumes a pending tick, if any, and advances every enabled slot by
// one. A slot whose elapsed count passes its setpoint wraps to zero, latches
// its expired flag and keeps running. Scan returns whether a tick was
// consumed; without a pending tick it does nothing.
func (p *Pool) Scan() bool {
	if !p.pending.CompareAndSwap(true, false) {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.slots {
		s := &p.slots[i]
		if !s.enabled {
			continue
		}
		s.elapsed++
		if s.elapsed > s.setpoint {
			s.elapsed = 0
			s.expired = true
		}
	}
	return true
}

// Reset disarms and zeroes every slot and clears the pending tick and the
// coalesced counter
func (p *Pool) Reset() {
	p.mu.Lock()
	for i := range p.slots {
		p.slots[i] = slot{}
	}
	p.mu.Unlock()

	p.pending.Store(false)
	p.coalesced.Store(0)
}

// Enabled reports whether slot h is running
func (p *Pool) Enabled(h Handle) (bool, error) {
	if err := p.checkHandle(h); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[h].enabled, nil
}

// Expired reports whether slot h has a latched expiry, without clearing it
func (p *Pool) Expired(h Handle) (bool, error) {
	if err := p.checkHandle(h); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[h].expired, nil
}

// TakeExpired reports whether slot h has a latched expiry and clears it in
// the same critical section, so one expiry can be observed exactly once.
// The flag latches again on the slot's next wrap.
func (p *Pool) TakeExpired(h Handle) (bool, error) {
	if err := p.checkHandle(h); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.slots[h]
	expired := s.expired
	s.expired = false
	return expired, nil
}

// Elapsed returns the ticks counted in slot h's current cycle
func (p *Pool) Elapsed(h Handle) (int, error) {
	if err := p.checkHandle(h); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[h].elapsed, nil
}

// Setpoint returns slot h's stored setpoint, which is the configured tick
// count minus one
func (p *Pool) Setpoint(h Handle) (int, error) {
	if err := p.checkHandle(h); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[h].setpoint, nil
}

// Slot returns a snapshot of slot h's state
func (p *Pool) Slot(h Handle) (Snapshot, error) {
	if err := p.checkHandle(h); err != nil {
		return Snapshot{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.slots[h]
	return Snapshot{
		Enabled:  s.enabled,
		Expired:  s.expired,
		Setpoint: s.setpoint,
		Elapsed:  s.elapsed,
	}, nil
}

// SlotCount returns the pool capacity
func (p *Pool) SlotCount() int {
	return len(p.slots)
}

// TickPeriod returns the nominal tick period the pool was configured with
func (p *Pool) TickPeriod() time.Duration {
	return p.period
}

// Pending reports whether an unconsumed tick is waiting for Scan
func (p *Pool) Pending() bool {
	return p.pending.Load()
}

// CoalescedTicks returns how many ticks arrived while one was already
// pending and were folded into it
func (p *Pool) CoalescedTicks() uint64 {
	return p.coalesced.Load()
}
