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
	"errors"
	"fmt"
	"sync"
	"time"
)

// VerifyConfig controls UID verification on card detection
type VerifyConfig struct {
	// RetryDelay is the pause between verification reads
	RetryDelay time.Duration

	// VerifyTimeout is the wait slice for each verification read
	VerifyTimeout time.Duration

	// Attempts is the maximum number of verification reads
	Attempts int

	// RequiredMatches is how many consecutive identical UID reads are
	// needed before a detection is accepted. The initial read counts.
	RequiredMatches int
}

// DefaultVerifyConfig returns verification settings suited to readers in
// electrically noisy environments
func DefaultVerifyConfig() *VerifyConfig {
	return &VerifyConfig{
		RetryDelay:      20 * time.Millisecond,
		VerifyTimeout:   100 * time.Millisecond,
		Attempts:        4,
		RequiredMatches: 2,
	}
}

// VerifyMetrics tracks verification statistics
type VerifyMetrics struct {
	// LastVerified is when a card last passed verification
	LastVerified time.Time

	// TotalReads counts every UID read, initial and verification
	TotalReads uint64

	// MismatchedReads counts verification reads that disagreed with the
	// previous read
	MismatchedReads uint64

	// FailedVerifications counts detections rejected because the UID
	// never stabilized
	FailedVerifications uint64
}

// VerifiedReader wraps a CardReader and re-reads the UID after each
// detection, accepting a card only once consecutive reads agree. A single
// corrupted anticollision exchange then surfaces as a retry instead of a
// phantom card.
type VerifiedReader struct {
	CardReader

	config  *VerifyConfig
	mu      sync.RWMutex
	metrics VerifyMetrics
}

// NewVerifiedReader wraps reader with UID verification. A nil config
// selects DefaultVerifyConfig.
func NewVerifiedReader(reader CardReader, config *VerifyConfig) *VerifiedReader {
	if config == nil {
		config = DefaultVerifyConfig()
	}
	if config.Attempts < 1 {
		config.Attempts = 1
	}
	if config.RequiredMatches < 1 {
		config.RequiredMatches = 1
	}
	return &VerifiedReader{
		CardReader: reader,
		config:     config,
	}
}

// WaitForCard waits for a card and verifies its UID before returning it
func (vr *VerifiedReader) WaitForCard(timeout time.Duration) (*Card, error) {
	card, err := vr.CardReader.WaitForCard(timeout)
	if err != nil {
		return nil, err
	}
	vr.recordRead()
	return vr.verify(card)
}

// verify re-reads the UID until RequiredMatches consecutive reads agree
// or the attempt budget runs out
func (vr *VerifiedReader) verify(card *Card) (*Card, error) {
	matches := 1
	attempts := 0

	for matches < vr.config.RequiredMatches && attempts < vr.config.Attempts {
		attempts++
		time.Sleep(vr.config.RetryDelay)

		again, err := vr.CardReader.WaitForCard(vr.config.VerifyTimeout)
		if err != nil {
			if errors.Is(err, ErrNoCard) || GetErrorType(err) == ErrorTypeTimeout {
				// Card left the field mid-verification
				vr.recordFailure()
				return nil, NewCardGoneError("verify", vr.Port())
			}
			return nil, err
		}
		vr.recordRead()

		if CompareUID(card.UIDBytes, again.UIDBytes) {
			matches++
			continue
		}

		// Start over with the new read as the baseline
		vr.recordMismatch()
		debugf("verify: UID mismatch, %s then %s", card.UID, again.UID)
		card = again
		matches = 1
	}

	if matches < vr.config.RequiredMatches {
		vr.recordFailure()
		return nil, fmt.Errorf("%w: UID unstable after %d reads", ErrChecksumMismatch, attempts+1)
	}

	vr.mu.Lock()
	vr.metrics.LastVerified = time.Now()
	vr.mu.Unlock()
	return card, nil
}

// PollParams forwards the wrapped reader's preferred polling timing.
// Without this, wrapping would hide the timing from loops that tune
// themselves to the reader.
func (vr *VerifiedReader) PollParams() PollParams {
	return TunedPollParams(vr.CardReader)
}

// Metrics returns a copy of the verification counters
func (vr *VerifiedReader) Metrics() VerifyMetrics {
	vr.mu.RLock()
	defer vr.mu.RUnlock()
	return vr.metrics
}

func (vr *VerifiedReader) recordRead() {
	vr.mu.Lock()
	vr.metrics.TotalReads++
	vr.mu.Unlock()
}

func (vr *VerifiedReader) recordMismatch() {
	vr.mu.Lock()
	vr.metrics.MismatchedReads++
	vr.mu.Unlock()
}

func (vr *VerifiedReader) recordFailure() {
	vr.mu.Lock()
	vr.metrics.FailedVerifications++
	vr.mu.Unlock()
}
