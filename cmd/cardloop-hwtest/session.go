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

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	cardloop "github.com/CardloopProject/go-cardloop"
	"github.com/CardloopProject/go-cardloop/detection"
	"github.com/CardloopProject/go-cardloop/driver/mfrc522"
)

// Session drives discovery, per-reader checks and card monitoring
type Session struct {
	config *Config
	output *Output
}

// NewSession creates a new session handler
func NewSession(config *Config, output *Output) *Session {
	return &Session{config: config, output: output}
}

// DiscoverReaders finds reader candidates on all transports
func (s *Session) DiscoverReaders(ctx context.Context) ([]detection.DeviceInfo, error) {
	s.output.Verbose("Discovering readers...")

	opts := detection.DefaultOptions()
	opts.Timeout = s.config.DetectTimeout
	opts.Mode = detection.Safe

	devices, err := detection.DetectAllContext(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("reader discovery failed: %w", err)
	}

	s.output.Verbose("   Found %d candidate(s)", len(devices))
	return devices, nil
}

// SPIDevices filters discovery results down to ports a reader chip can
// actually sit on. Serial candidates are console endpoints and are only
// reported.
func (s *Session) SPIDevices(devices []detection.DeviceInfo) []detection.DeviceInfo {
	var spi []detection.DeviceInfo
	for _, device := range devices {
		if device.Transport == "spi" {
			spi = append(spi, device)
			continue
		}
		s.output.Verbose("Skipping %s device %s (not a reader port)", device.Transport, device.Path)
	}
	return spi
}

// TestReader opens the reader, brings it up and reports the chip version
func (s *Session) TestReader(_ context.Context, device detection.DeviceInfo) error {
	s.output.ReaderTestHeader(device)

	reader, err := mfrc522.New(device.Path, mfrc522.WithTimeout(s.config.ConnectTimeout))
	if err != nil {
		s.output.TestFailure()
		return fmt.Errorf("failed to open %s: %w", device.Path, err)
	}
	defer func() { _ = reader.Close() }()

	if err := reader.Init(); err != nil {
		s.output.TestFailure()
		return fmt.Errorf("failed to initialize %s: %w", device.Path, err)
	}

	version, err := reader.Version()
	if err != nil {
		s.output.TestFailure()
		return fmt.Errorf("failed to read chip version: %w", err)
	}
	s.output.TestSuccess(device, version)

	if !mfrc522.KnownVersion(version) {
		s.output.Warning("Unrecognized chip version %#02x, possibly a clone", version)
	}
	return nil
}

// WaitAndReadCard waits for one card, classifies it and dumps its NDEF
// content. Used by the quick mode as a single-shot card check.
func (s *Session) WaitAndReadCard(ctx context.Context, device detection.DeviceInfo) error {
	reader, err := mfrc522.New(device.Path, mfrc522.WithTimeout(s.config.ConnectTimeout))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", device.Path, err)
	}
	defer func() { _ = reader.Close() }()

	if err := reader.Init(); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", device.Path, err)
	}

	s.output.Info("Present a card to %s (timeout %s)...", device.Path, s.config.DetectTimeout)

	rc := cardloop.AsCardReaderContext(reader)
	waitCtx, cancel := context.WithTimeout(ctx, s.config.DetectTimeout)
	defer cancel()

	card, err := rc.WaitForCardContext(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, cardloop.ErrNoCard) {
			s.output.Warning("No card detected within %s", s.config.DetectTimeout)
			return nil
		}
		return fmt.Errorf("card wait failed: %w", err)
	}

	s.output.CardDetected(reader.Port(), card)
	message, err := reader.ReadNDEF(card)
	s.output.NDEFResults(message, err)
	return nil
}

// monitorSlot is the one pool slot the monitor uses for removal debounce
const monitorSlot cardloop.Handle = 0

// MonitorCards polls a reader until the context is cancelled, reporting
// card arrivals, NDEF content and debounced removals. Removal timing
// runs on a timer pool fed by a tick source, the same machinery the
// badge loop uses, so monitoring doubles as a soak test for it.
func (s *Session) MonitorCards(ctx context.Context, device detection.DeviceInfo) error {
	reader, err := mfrc522.New(device.Path, mfrc522.WithTimeout(s.config.ConnectTimeout))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", device.Path, err)
	}
	defer func() { _ = reader.Close() }()

	if err := reader.Init(); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", device.Path, err)
	}

	pool, err := cardloop.NewPool(cardloop.WithSlotCount(1))
	if err != nil {
		return fmt.Errorf("failed to create timer pool: %w", err)
	}
	ticks, err := cardloop.NewTickSource(pool)
	if err != nil {
		return fmt.Errorf("failed to create tick source: %w", err)
	}
	if err := ticks.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tick source: %w", err)
	}
	defer ticks.Stop()

	params := cardloop.TunedPollParams(reader)
	graceTicks := int(s.config.RemovalDebounce / pool.TickPeriod())
	if graceTicks < 1 {
		graceTicks = 1
	}

	s.output.Info("Monitoring %s. Present and remove cards to test. Ctrl-C to stop.", device.Path)

	var present *cardloop.Card
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		pool.Scan()

		if present == nil {
			present = s.pollArrival(reader, params.WaitTimeout)
			continue
		}
		var removed bool
		present, removed = s.watchPresence(reader, pool, present, params.WaitTimeout, graceTicks)
		if removed {
			continue
		}
	}
}

// pollArrival waits one slice for a card on an empty field. Reader
// errors are reported but the monitor keeps polling; a diagnostic tool
// should survive a flaky reader.
func (s *Session) pollArrival(reader *mfrc522.Reader, slice time.Duration) *cardloop.Card {
	card, err := reader.WaitForCard(slice)
	if err != nil {
		if !errors.Is(err, cardloop.ErrNoCard) {
			s.output.Verbose("poll error: %v", err)
		}
		return nil
	}

	s.output.CardDetected(reader.Port(), card)
	message, err := reader.ReadNDEF(card)
	s.output.NDEFResults(message, err)
	return card
}

// watchPresence probes whether the tracked card is still in the field,
// starting the removal debounce when it goes missing and reporting the
// removal once the grace slot expires. A different card answering the
// poll replaces the tracked one.
func (s *Session) watchPresence(
	reader *mfrc522.Reader, pool *cardloop.Pool,
	tracked *cardloop.Card, slice time.Duration, graceTicks int,
) (*cardloop.Card, bool) {
	card, err := reader.WaitForCard(slice)
	if err == nil {
		_ = pool.Stop(monitorSlot)
		if !cardloop.CompareUID(card.UIDBytes, tracked.UIDBytes) {
			s.output.CardDetected(reader.Port(), card)
			message, ndefErr := reader.ReadNDEF(card)
			s.output.NDEFResults(message, ndefErr)
			return card, false
		}
		_ = reader.Halt()
		return tracked, false
	}
	if !errors.Is(err, cardloop.ErrNoCard) {
		s.output.Verbose("poll error: %v", err)
		return tracked, false
	}

	stillThere, err := reader.CardPresent(tracked.UIDBytes)
	if err != nil {
		s.output.Verbose("presence probe error: %v", err)
		return tracked, false
	}
	if stillThere {
		_ = pool.Stop(monitorSlot)
		return tracked, false
	}

	if enabled, _ := pool.Enabled(monitorSlot); !enabled {
		_ = pool.Start(monitorSlot, graceTicks)
		return tracked, false
	}
	if expired, _ := pool.TakeExpired(monitorSlot); expired {
		_ = pool.Stop(monitorSlot)
		s.output.CardRemoved(tracked.UID)
		return nil, true
	}
	return tracked, false
}
