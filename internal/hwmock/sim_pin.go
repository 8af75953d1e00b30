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

package hwmock

import (
	"sync"

	cardloop "github.com/CardloopProject/go-cardloop"
)

// SimPin is an in-memory StatusPin that counts transitions so tests can
// assert on LED behavior. Safe for concurrent use.
type SimPin struct {
	mu      sync.Mutex
	state   bool
	sets    int
	clears  int
	toggles int
}

var _ cardloop.StatusPin = (*SimPin)(nil)

// NewSimPin creates a pin in the cleared state
func NewSimPin() *SimPin {
	return &SimPin{}
}

// Set implements StatusPin
func (p *SimPin) Set() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = true
	p.sets++
	return nil
}

// Clear implements StatusPin
func (p *SimPin) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = false
	p.clears++
	return nil
}

// Toggle implements StatusPin
func (p *SimPin) Toggle() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = !p.state
	p.toggles++
	return nil
}

// State implements StatusPin
func (p *SimPin) State() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Counts returns how many times Set, Clear and Toggle have been called
func (p *SimPin) Counts() (sets, clears, toggles int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sets, p.clears, p.toggles
}
