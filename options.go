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
	"time"
)

// PoolOption is a functional option for configuring a Pool
type PoolOption func(*Pool) error

// WithSlotCount sets the pool capacity. The capacity is fixed for the
// pool's lifetime.
func WithSlotCount(n int) PoolOption {
	return func(p *Pool) error {
		if n < 1 {
			return fmt.Errorf("%w: slot count must be at least 1, got %d", ErrInvalidParameter, n)
		}
		p.slots = make([]slot, n)
		return nil
	}
}

// WithTickPeriod sets the nominal tick period the pool reports. Tick
// sources created for the pool default to this period.
func WithTickPeriod(d time.Duration) PoolOption {
	return func(p *Pool) error {
		if d <= 0 {
			return fmt.Errorf("%w: tick period must be positive, got %v", ErrInvalidParameter, d)
		}
		p.period = d
		return nil
	}
}

// TickSourceOption is a functional option for configuring a TickSource
type TickSourceOption func(*TickSource) error

// WithPeriod overrides the tick source period. Without it the source runs
// at the pool's tick period.
func WithPeriod(d time.Duration) TickSourceOption {
	return func(ts *TickSource) error {
		if d <= 0 {
			return fmt.Errorf("%w: period must be positive, got %v", ErrInvalidParameter, d)
		}
		ts.period = d
		return nil
	}
}

// WithClock injects the clock the tick source builds its ticker from.
// Tests use this to drive ticks without real time passing.
func WithClock(c Clock) TickSourceOption {
	return func(ts *TickSource) error {
		if c == nil {
			return fmt.Errorf("%w: clock must not be nil", ErrInvalidParameter)
		}
		ts.clock = c
		return nil
	}
}
