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
	"time"

	cardloop "github.com/CardloopProject/go-cardloop"
)

// SimReader is an in-memory CardReader. Cards are moved in and out of
// the field with InsertCard and RemoveCard; WaitForCard blocks until a
// card arrives. Safe for concurrent use.
type SimReader struct {
	mu      sync.Mutex
	card    *VirtualCard
	arrival chan struct{}
	port    string

	inited bool
	closed bool

	initFailures int
	initErr      error
	waitErr      error
}

var (
	_ cardloop.CardReader = (*SimReader)(nil)
	_ cardloop.NDEFReader = (*SimReader)(nil)
	_ cardloop.PollTuner  = (*SimReader)(nil)
)

// NewSimReader creates a reader with an empty field
func NewSimReader() *SimReader {
	return &SimReader{
		arrival: make(chan struct{}),
		port:    "sim0",
	}
}

// InsertCard places a card in the reader's field and wakes any blocked
// WaitForCard
func (s *SimReader) InsertCard(card *VirtualCard) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card.Insert()
	s.card = card
	close(s.arrival)
	s.arrival = make(chan struct{})
}

// RemoveCard takes the current card out of the field
func (s *SimReader) RemoveCard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.card != nil {
		s.card.Remove()
	}
	s.card = nil
}

// Card returns the card currently in the field, or nil
func (s *SimReader) Card() *VirtualCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.card
}

// SetInitFailures makes the next n Init calls fail with err. Used to
// exercise retry paths.
func (s *SimReader) SetInitFailures(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initFailures = n
	s.initErr = err
}

// SetWaitError makes WaitForCard fail with err until cleared with a nil
// err
func (s *SimReader) SetWaitError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitErr = err
}

// Init implements CardReader
func (s *SimReader) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initFailures > 0 {
		s.initFailures--
		return s.initErr
	}
	s.inited = true
	return nil
}

// Initialized reports whether Init has succeeded
func (s *SimReader) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inited
}

// WaitForCard implements CardReader. A card that was halted stays
// invisible until it is reinserted.
func (s *SimReader) WaitForCard(timeout time.Duration) (*cardloop.Card, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, cardloop.NewNotReadyError("waitForCard", s.port)
		}
		if s.waitErr != nil {
			err := s.waitErr
			s.mu.Unlock()
			return nil, err
		}
		if s.card != nil && s.card.Present && !s.card.halted {
			card := snapshotCard(s.card)
			s.mu.Unlock()
			return card, nil
		}
		arrival := s.arrival
		s.mu.Unlock()

		select {
		case <-arrival:
		case <-deadline.C:
			return nil, cardloop.NewReaderError(
				"waitForCard", s.port, cardloop.ErrNoCard, cardloop.ErrorTypeTimeout)
		}
	}
}

// CardPresent implements CardReader. Like a wakeup probe it also sees
// halted cards.
func (s *SimReader) CardPresent(uid []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, cardloop.NewNotReadyError("cardPresent", s.port)
	}
	if s.card == nil || !s.card.Present {
		return false, nil
	}
	return cardloop.CompareUID(s.card.UID, uid), nil
}

// Halt implements CardReader. The halted card no longer answers
// WaitForCard until reinserted.
func (s *SimReader) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.card != nil {
		s.card.halted = true
	}
	return nil
}

// ReadNDEF implements NDEFReader
func (s *SimReader) ReadNDEF(card *cardloop.Card) (*cardloop.NDEFMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.card == nil || !s.card.Present {
		return nil, cardloop.NewCardGoneError("readNDEF", s.port)
	}
	if card != nil && !cardloop.CompareUID(s.card.UID, card.UIDBytes) {
		return nil, cardloop.NewCardGoneError("readNDEF", s.port)
	}
	if len(s.card.ndefData) == 0 {
		return nil, cardloop.ErrNoNDEF
	}
	return cardloop.ParseNDEFMessage(s.card.ndefData)
}

// PollParams implements PollTuner with fast timing so tests do not wait
// on hardware scale debounces
func (*SimReader) PollParams() cardloop.PollParams {
	return cardloop.PollParams{
		WaitTimeout:     10 * time.Millisecond,
		RemovalPoll:     time.Millisecond,
		RemovalDebounce: 5 * time.Millisecond,
		InitRetries:     2,
	}
}

// Close implements CardReader
func (s *SimReader) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Type implements CardReader
func (*SimReader) Type() cardloop.ReaderType {
	return cardloop.ReaderSim
}

// Port implements CardReader
func (s *SimReader) Port() string {
	return s.port
}

func snapshotCard(v *VirtualCard) *cardloop.Card {
	uid := make([]byte, len(v.UID))
	copy(uid, v.UID)
	atq := make([]byte, len(v.ATQ))
	copy(atq, v.ATQ)
	return cardloop.NewCard(uid, atq, v.SAK)
}
