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

import cardloop "github.com/CardloopProject/go-cardloop"

// PresenceState describes whether a card is in the reader's field
type PresenceState int

const (
	// StateIdle means no card is in the field
	StateIdle PresenceState = iota
	// StatePresent means a card is in the field and has been decided on
	StatePresent
	// StateDeparting means the card missed a probe and the removal
	// grace period is counting
	StateDeparting
)

// String returns a human-readable state name
func (s PresenceState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePresent:
		return "present"
	case StateDeparting:
		return "departing"
	default:
		return "invalid"
	}
}

// Presence is the card presence state machine. It is pure: callers feed
// it sightings and misses, and it reports which transitions happened.
// Not safe for concurrent use; the badge loop owns it.
type Presence struct {
	state PresenceState
	uid   []byte
}

// NewPresence creates a presence tracker in the idle state
func NewPresence() *Presence {
	return &Presence{state: StateIdle}
}

// State returns the current state
func (p *Presence) State() PresenceState {
	return p.state
}

// UID returns the UID of the tracked card, nil when idle
func (p *Presence) UID() []byte {
	return p.uid
}

// Seen records a successful sighting of uid. It returns true when this
// sighting is a new arrival that needs a badge decision: the field was
// empty, or a different card replaced the tracked one. A sighting of
// the tracked card while departing recovers it without a new decision.
func (p *Presence) Seen(uid []byte) bool {
	sameCard := p.uid != nil && cardloop.CompareUID(p.uid, uid)

	if p.state != StateIdle && sameCard {
		p.state = StatePresent
		return false
	}

	p.uid = make([]byte, len(uid))
	copy(p.uid, uid)
	p.state = StatePresent
	return true
}

// Missed records a failed sighting of the tracked card. It returns true
// when the caller should start the removal grace period.
func (p *Presence) Missed() bool {
	if p.state != StatePresent {
		return false
	}
	p.state = StateDeparting
	return true
}

// Gone completes a departure after the grace period. It returns the
// departed card's UID, or nil when no departure was pending.
func (p *Presence) Gone() []byte {
	if p.state != StateDeparting {
		return nil
	}
	uid := p.uid
	p.state = StateIdle
	p.uid = nil
	return uid
}

// Reset forces the tracker back to idle
func (p *Presence) Reset() {
	p.state = StateIdle
	p.uid = nil
}
