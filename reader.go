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
	"time"
)

// ReaderType represents the kind of reader hardware
type ReaderType string

const (
	// ReaderMFRC522 is an NXP MFRC522 module on SPI
	ReaderMFRC522 ReaderType = "mfrc522"
	// ReaderSim is the in-memory simulated reader
	ReaderSim ReaderType = "sim"
	// ReaderMock is used by tests
	ReaderMock ReaderType = "mock"
)

// CardReader abstracts a proximity card reader. Implementations are not
// required to be safe for concurrent use; callers serialize access.
type CardReader interface {
	// Init prepares the reader hardware for use
	Init() error

	// WaitForCard blocks until a card enters the field or the timeout
	// elapses. While a card stays in the field, repeated calls keep
	// returning it. Returns ErrNoCard (possibly wrapped) on timeout.
	WaitForCard(timeout time.Duration) (*Card, error)

	// CardPresent probes whether the card with the given UID is still
	// in the field
	CardPresent(uid []byte) (bool, error)

	// Halt puts the currently selected card to sleep so that the next
	// wakeup sees it again
	Halt() error

	// Close releases the underlying transport
	Close() error

	// Type returns the reader hardware kind
	Type() ReaderType

	// Port returns the port or bus identifier the reader is attached to
	Port() string
}

// NDEFReader is implemented by readers that can extract an NDEF message
// from a selected card
type NDEFReader interface {
	// ReadNDEF reads the NDEF message of the currently selected card.
	// Returns ErrNoNDEF (possibly wrapped) when the card carries none.
	ReadNDEF(card *Card) (*NDEFMessage, error)
}

// CardReaderContext extends CardReader with a context-aware wait
type CardReaderContext interface {
	CardReader

	// WaitForCardContext blocks until a card enters the field or the
	// context is cancelled
	WaitForCardContext(ctx context.Context) (*Card, error)
}

// contextPollSlice is the wait granularity used when adapting a
// timeout-based reader to context cancellation
const contextPollSlice = 250 * time.Millisecond

// readerContextAdapter wraps a CardReader to provide context support
// via short bounded waits
type readerContextAdapter struct {
	CardReader
}

// AsCardReaderContext returns a context-aware view of the reader. If the
// reader already implements CardReaderContext it is returned as-is;
// otherwise a wrapper adapts it by polling in short slices, so
// cancellation takes effect within one slice.
func AsCardReaderContext(r CardReader) CardReaderContext {
	if rc, ok := r.(CardReaderContext); ok {
		return rc
	}
	return &readerContextAdapter{CardReader: r}
}

// WaitForCardContext implements CardReaderContext
func (a *readerContextAdapter) WaitForCardContext(ctx context.Context) (*Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for {
		card, err := a.CardReader.WaitForCard(contextPollSlice)
		if err == nil {
			return card, nil
		}
		if !errors.Is(err, ErrNoCard) && GetErrorType(err) != ErrorTypeTimeout {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
}

// PollParams describes reader-specific polling behavior. Different
// hardware tolerates different probe rates, so the badge loop asks the
// reader for its preferred timing instead of hardcoding one.
type PollParams struct {
	// WaitTimeout is the slice passed to a single WaitForCard call
	WaitTimeout time.Duration

	// RemovalPoll is the interval between presence probes while a card
	// is believed to be in the field
	RemovalPoll time.Duration

	// RemovalDebounce is how long the card must stay missing before it
	// is reported as removed
	RemovalDebounce time.Duration

	// InitRetries is how many times reader initialization is retried
	InitRetries int
}

// DefaultPollParams returns conservative timing suitable for any reader
func DefaultPollParams() PollParams {
	return PollParams{
		WaitTimeout:     250 * time.Millisecond,
		RemovalPoll:     100 * time.Millisecond,
		RemovalDebounce: 300 * time.Millisecond,
		InitRetries:     3,
	}
}

// PollTuner is implemented by readers that know better polling timing
// than the defaults
type PollTuner interface {
	// PollParams returns the reader's preferred polling timing
	PollParams() PollParams
}

// TunedPollParams returns the reader's preferred polling timing when it
// implements PollTuner, falling back to DefaultPollParams
func TunedPollParams(r CardReader) PollParams {
	if t, ok := r.(PollTuner); ok {
		return t.PollParams()
	}
	return DefaultPollParams()
}
