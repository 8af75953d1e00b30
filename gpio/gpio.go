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

// Package gpio drives indicator outputs such as LEDs through periph.io
// GPIO lines, implementing cardloop.StatusPin.
package gpio

import (
	"fmt"
	"sync"

	cardloop "github.com/CardloopProject/go-cardloop"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Pin drives one GPIO line as a logical status output. The logical state
// is tracked locally, so Toggle never reads the line back.
//
// Pin is safe for concurrent use.
type Pin struct {
	pin  gpio.PinIO
	name string

	mu        sync.Mutex
	state     bool
	activeLow bool
}

var _ cardloop.StatusPin = (*Pin)(nil)

// Option configures a Pin
type Option func(*Pin) error

// WithActiveLow inverts the electrical level: the logical on state drives
// the line low. For LEDs wired between the pin and the supply rail.
func WithActiveLow() Option {
	return func(p *Pin) error {
		p.activeLow = true
		return nil
	}
}

// Open initializes the periph host, resolves the named GPIO line and
// drives it to the logical off state. Names follow the host registry,
// "GPIO17" or "LED1" depending on the board.
func Open(name string, opts ...Option) (*Pin, error) {
	// Initialize host
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: unknown GPIO pin %q", cardloop.ErrInvalidParameter, name)
	}
	return NewFromPin(pin, opts...)
}

// NewFromPin wraps an already resolved GPIO line and drives it to the
// logical off state
func NewFromPin(pin gpio.PinIO, opts ...Option) (*Pin, error) {
	if pin == nil {
		return nil, fmt.Errorf("%w: nil GPIO pin", cardloop.ErrInvalidParameter)
	}

	p := &Pin{pin: pin, name: pin.Name()}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if err := p.drive(false); err != nil {
		return nil, err
	}
	return p, nil
}

// Set drives the pin to its logical on state
func (p *Pin) Set() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drive(true)
}

// Clear drives the pin to its logical off state
func (p *Pin) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drive(false)
}

// Toggle inverts the logical state
func (p *Pin) Toggle() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drive(!p.state)
}

// State reports the current logical state
func (p *Pin) State() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Name returns the resolved pin name
func (p *Pin) Name() string {
	return p.name
}

// String returns a short description for logs
func (p *Pin) String() string {
	return fmt.Sprintf("gpio[%s]", p.name)
}

// drive sets the electrical level for a logical state. Callers hold the
// mutex, except during construction.
func (p *Pin) drive(on bool) error {
	level := gpio.Low
	if on != p.activeLow {
		level = gpio.High
	}
	if err := p.pin.Out(level); err != nil {
		return fmt.Errorf("driving GPIO pin %s: %w", p.name, err)
	}
	p.state = on
	return nil
}
