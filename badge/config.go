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

package badge

import (
	"fmt"
	"time"

	cardloop "github.com/CardloopProject/go-cardloop"
)

// Config holds badge loop policy. Durations left at zero fall back to
// the reader's own poll tuning (see cardloop.PollTuner).
type Config struct {
	// PollInterval is the wait slice for each field poll. Zero selects
	// the reader's preferred timing.
	PollInterval time.Duration

	// RemovalDebounce is how long a card must stay missing before it is
	// reported as removed. Zero selects the reader's preferred timing.
	RemovalDebounce time.Duration

	// HeartbeatTicks is the heartbeat period in timer pool ticks
	HeartbeatTicks int

	// HoldTicks is how many pool ticks the grant and deny pins stay set
	// after a badge decision
	HoldTicks int

	// MaxConsecutiveErrors aborts the loop after this many back to back
	// reader failures
	MaxConsecutiveErrors int

	// UnknownTogglesStatus toggles the status pin when an unknown card
	// badges, matching the original panel behavior
	UnknownTogglesStatus bool
}

// DefaultConfig returns the stock policy: 50ms polls, 300ms removal
// debounce, one second heartbeat and hold at the default tick period.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:         50 * time.Millisecond,
		RemovalDebounce:      300 * time.Millisecond,
		HeartbeatTicks:       100,
		HoldTicks:            100,
		MaxConsecutiveErrors: 10,
		UnknownTogglesStatus: true,
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.PollInterval < 0 {
		return fmt.Errorf("%w: poll interval must not be negative, got %v",
			cardloop.ErrInvalidParameter, c.PollInterval)
	}
	if c.RemovalDebounce < 0 {
		return fmt.Errorf("%w: removal debounce must not be negative, got %v",
			cardloop.ErrInvalidParameter, c.RemovalDebounce)
	}
	if c.HeartbeatTicks < 1 {
		return fmt.Errorf("%w: heartbeat ticks must be at least 1, got %d",
			cardloop.ErrInvalidParameter, c.HeartbeatTicks)
	}
	if c.HoldTicks < 1 {
		return fmt.Errorf("%w: hold ticks must be at least 1, got %d",
			cardloop.ErrInvalidParameter, c.HoldTicks)
	}
	if c.MaxConsecutiveErrors < 1 {
		return fmt.Errorf("%w: max consecutive errors must be at least 1, got %d",
			cardloop.ErrInvalidParameter, c.MaxConsecutiveErrors)
	}
	return nil
}

// Clone returns an independent copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
