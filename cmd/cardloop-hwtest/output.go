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
	"errors"
	"fmt"

	cardloop "github.com/CardloopProject/go-cardloop"
	"github.com/CardloopProject/go-cardloop/detection"
)

// Output handles consistent formatting of messages
type Output struct {
	verbose bool
}

// NewOutput creates a new output handler
func NewOutput(verbose bool) *Output {
	return &Output{verbose: verbose}
}

// ReaderTestHeader prints the appropriate header for reader testing
func (o *Output) ReaderTestHeader(device detection.DeviceInfo) {
	if o.verbose {
		_, _ = fmt.Printf("Testing reader: %s at %s (%s confidence)\n",
			device.Name, device.Path, device.Confidence)
	} else {
		_, _ = fmt.Printf("Testing %s reader at %s... ", device.Transport, device.Path)
	}
}

// TestFailure prints the failure indicator for non-verbose mode
func (o *Output) TestFailure() {
	if !o.verbose {
		_, _ = fmt.Print("FAIL\n")
	}
}

// TestSuccess prints a success message with the chip version
func (o *Output) TestSuccess(device detection.DeviceInfo, version byte) {
	if o.verbose {
		_, _ = fmt.Printf("   OK: Chip version: %#02x\n", version)
		_, _ = fmt.Printf("   OK: Device: %s\n", device.Path)
	} else {
		_, _ = fmt.Printf("OK: (chip version %#02x)\n", version)
	}
}

// CardDetected prints a message for a newly detected card
func (*Output) CardDetected(port string, card *cardloop.Card) {
	_, _ = fmt.Printf("\nCARD: Card detected on %s: %s (UID: %s)\n",
		port, card.Type, card.UID)
}

// CardRemoved prints a message when a tracked card leaves the field
func (*Output) CardRemoved(uid string) {
	_, _ = fmt.Printf("CARD: Card %s removed - ready for next card\n", uid)
}

// NDEFResults prints NDEF results in a standard format
func (o *Output) NDEFResults(message *cardloop.NDEFMessage, err error) {
	if err != nil {
		o.ndefError(err)
		return
	}

	_, _ = fmt.Printf(" OK: Found %d record(s)\n", len(message.Records))
	for i, record := range message.Records {
		o.ndefRecord(i, &record)
	}
}

func (*Output) ndefError(err error) {
	if errors.Is(err, cardloop.ErrNoNDEF) {
		_, _ = fmt.Print(" WARNING: No NDEF data\n")
	} else {
		_, _ = fmt.Printf(" ERROR: Failed: %v\n", err)
	}
}

func (*Output) ndefRecord(i int, record *cardloop.NDEFRecord) {
	_, _ = fmt.Printf("      Record %d: Type=%s\n", i, record.Type)
	if record.Text != "" {
		_, _ = fmt.Printf("        TEXT: %s\n", record.Text)
	}
	if record.URI != "" {
		_, _ = fmt.Printf("        URI: %s\n", record.URI)
	}
}

// Error prints an error message
func (*Output) Error(format string, args ...any) {
	_, _ = fmt.Printf("ERROR: "+format+"\n", args...)
}

// Warning prints a warning message
func (*Output) Warning(format string, args ...any) {
	_, _ = fmt.Printf("WARNING: "+format+"\n", args...)
}

// Info prints an info message
func (*Output) Info(format string, args ...any) {
	_, _ = fmt.Printf("INFO: "+format+"\n", args...)
}

// OK prints a success message
func (*Output) OK(format string, args ...any) {
	_, _ = fmt.Printf("OK: "+format+"\n", args...)
}

// Verbose prints only if verbose mode is enabled
func (o *Output) Verbose(format string, args ...any) {
	if o.verbose {
		_, _ = fmt.Printf(format+"\n", args...)
	}
}
