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
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	cardloop "github.com/CardloopProject/go-cardloop"
)

// Decision is the outcome of a badge rule lookup
type Decision string

const (
	// DecisionGrant accepts the card
	DecisionGrant Decision = "grant"
	// DecisionDeny rejects the card
	DecisionDeny Decision = "deny"
	// DecisionUnknown is returned for cards no rule matches
	DecisionUnknown Decision = "unknown"
)

type rule struct {
	uid      []byte
	decision Decision
}

// Ruleset maps card UIDs to badge decisions. Rules are checked in the
// order they were added; the first match wins. Safe for concurrent use.
type Ruleset struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRuleset creates an empty ruleset
func NewRuleset() *Ruleset {
	return &Ruleset{}
}

// DefaultRuleset returns the stock demo table: one granted card and one
// denied card
func DefaultRuleset() *Ruleset {
	rs := NewRuleset()
	_ = rs.Add([]byte{0x20, 0x00, 0x01, 0xE4}, DecisionGrant)
	_ = rs.Add([]byte{0x1D, 0x7D, 0xCD, 0x73}, DecisionDeny)
	return rs
}

// Add appends a rule for the given UID
func (r *Ruleset) Add(uid []byte, decision Decision) error {
	if len(uid) == 0 {
		return fmt.Errorf("%w: empty UID", cardloop.ErrInvalidParameter)
	}
	switch decision {
	case DecisionGrant, DecisionDeny, DecisionUnknown:
	default:
		return fmt.Errorf("%w: unknown decision %q",
			cardloop.ErrInvalidParameter, decision)
	}

	stored := make([]byte, len(uid))
	copy(stored, uid)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{uid: stored, decision: decision})
	return nil
}

// AddHex appends a rule for a UID given as hex, with optional colon,
// dash or space separators
func (r *Ruleset) AddHex(uid string, decision Decision) error {
	cleaned := strings.NewReplacer(":", "", "-", "", " ", "").Replace(uid)
	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return fmt.Errorf("%w: bad UID hex %q: %v",
			cardloop.ErrInvalidParameter, uid, err)
	}
	return r.Add(raw, decision)
}

// Lookup returns the decision for a UID, DecisionUnknown when no rule
// matches
func (r *Ruleset) Lookup(uid []byte) Decision {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.rules {
		if cardloop.CompareUID(rule.uid, uid) {
			return rule.decision
		}
	}
	return DecisionUnknown
}

// Len returns the number of rules
func (r *Ruleset) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}
