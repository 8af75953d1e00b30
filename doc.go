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

/*
Package cardloop provides the building blocks for RFID badge loops: a
tick-driven timer pool, card reader abstractions and verified card
identification.

The package grew out of access-control firmware where everything is
paced by a slow periodic tick. The same shape works well in Go: a Pool
of countdown timers advanced by a TickSource, readers polled in short
slices so loops stay responsive, and higher-level behavior (hold
windows, removal debounce, heartbeats) expressed as timer slots.

Features:
  - Fixed-slot timer pool driven by an explicit or goroutine tick
  - CardReader abstraction with MFRC522, simulator and mock backends
  - Verified reads that re-read a card until its UID is stable
  - NDEF (NFC Data Exchange Format) message reading and building
  - Reader auto-detection over SPI and serial transports
  - Badge access loop with pluggable rules and status pins
  - Retry logic with configurable backoff
  - Cross-platform detection (Linux, Windows, macOS)

Basic Usage:

	import (
	    "github.com/CardloopProject/go-cardloop"
	    "github.com/CardloopProject/go-cardloop/driver/mfrc522"
	)

	// Open the reader
	reader, err := mfrc522.New("/dev/spidev0.0")
	if err != nil {
	    log.Fatal(err)
	}
	defer reader.Close()

	if err := reader.Init(); err != nil {
	    log.Fatal(err)
	}

	// Wrap it so transient misreads cannot produce a phantom UID
	verified := cardloop.NewVerifiedReader(reader, nil)

	// Wait for a card
	card, err := verified.WaitForCard(2 * time.Second)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("Card: %s\n", card)

	// Read its NDEF message, if the backing reader supports it
	if ndef, ok := cardloop.CardReader(reader).(cardloop.NDEFReader); ok {
	    msg, err := ndef.ReadNDEF(card)
	    if err == nil && len(msg.Records) > 0 {
	        fmt.Printf("NDEF Content: %s\n", msg.Records[0].Text)
	    }
	}

Timers:

The timer Pool holds a fixed number of countdown slots. Nothing in the
pool runs by itself; time advances only when Tick is called, which makes
timer behavior fully deterministic under test. For wall-clock operation
a TickSource calls Tick from a goroutine at a fixed period:

	pool, _ := cardloop.NewPool()
	ticks, _ := cardloop.NewTickSource(pool)
	_ = ticks.Start(ctx)
	defer ticks.Stop()

	_ = pool.Start(0, 100) // slot 0 expires after 100 ticks

Badge Loop:

The badge subpackage ties a reader, a pool and a ruleset into a
complete access loop:

	rules := badge.NewRuleset()
	_ = rules.AddHex("20:00:01:E4", badge.DecisionGrant)

	loop, err := badge.New(verified, pool, rules, nil,
	    badge.WithBadgeHandler(func(ev badge.BadgeEvent) {
	        fmt.Printf("%s -> %s\n", ev.UID, ev.Decision)
	    }),
	)
	if err != nil {
	    log.Fatal(err)
	}
	_ = loop.Run(ctx)

Card Support:

Currently identified card types:
  - NTAG213/215/216 (NFC Forum Type 2)
  - MIFARE Ultralight
  - MIFARE Classic 1K/4K (with NDEF format)

Error Handling:

All operations return sentinel errors that can be inspected:

	if errors.Is(err, cardloop.ErrNoCard) {
	    // Field is empty, poll again
	}

Retryability is a property of the error, queried with IsRetryable:

	if cardloop.IsRetryable(err) {
	    // Back off and retry
	}

Thread Safety:

The Pool and TickSource are safe for concurrent use. Reader
implementations are not thread-safe; drive each reader from a single
goroutine, as the badge loop does.
*/
package cardloop
