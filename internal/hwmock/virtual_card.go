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

// Package hwmock provides an in-memory reader, cards and pins for tests
// and for running the badge loop without hardware.
package hwmock

import (
	"fmt"

	cardloop "github.com/CardloopProject/go-cardloop"
)

// Common UIDs for testing
var (
	// TestGrantUID is the sample UID accepted by the default ruleset
	TestGrantUID = []byte{0x20, 0x00, 0x01, 0xE4}

	// TestDenyUID is the sample UID rejected by the default ruleset
	TestDenyUID = []byte{0x1D, 0x7D, 0xCD, 0x73}

	// TestNTAGUID is a sample 7-byte NTAG UID
	TestNTAGUID = []byte{0x04, 0xAB, 0xCD, 0xEF, 0x12, 0x34, 0x56}
)

// VirtualCard is a simulated proximity card with block based memory
type VirtualCard struct {
	Kind     string
	UID      []byte
	ATQ      []byte
	Memory   [][]byte
	SAK      byte
	Present  bool
	halted   bool
	ndefData []byte
}

// NewVirtualNTAG creates a virtual NTAG213 card. A nil uid selects
// TestNTAGUID.
func NewVirtualNTAG(uid []byte) *VirtualCard {
	if uid == nil {
		uid = TestNTAGUID
	}

	card := &VirtualCard{
		Kind:    "ntag213",
		UID:     uid,
		ATQ:     []byte{0x00, 0x44},
		SAK:     0x00,
		Memory:  make([][]byte, 45),
		Present: true,
	}
	card.initNTAGMemory()
	return card
}

// NewVirtualMifare1K creates a virtual MIFARE Classic 1K card. A nil
// uid selects TestGrantUID.
func NewVirtualMifare1K(uid []byte) *VirtualCard {
	if uid == nil {
		uid = TestGrantUID
	}

	card := &VirtualCard{
		Kind:    "mifare1k",
		UID:     uid,
		ATQ:     []byte{0x00, 0x04},
		SAK:     0x08,
		Memory:  make([][]byte, 64),
		Present: true,
	}
	card.initMifareMemory()
	return card
}

// UIDString returns the UID as uppercase hex
func (v *VirtualCard) UIDString() string {
	return cardloop.FormatUID(v.UID)
}

// ReadBlock reads one memory block
func (v *VirtualCard) ReadBlock(block int) ([]byte, error) {
	if !v.Present {
		return nil, cardloop.ErrCardGone
	}
	if block < 0 || block >= len(v.Memory) {
		return nil, fmt.Errorf("block %d out of range", block)
	}
	if v.Memory[block] == nil {
		return make([]byte, 16), nil
	}

	data := make([]byte, len(v.Memory[block]))
	copy(data, v.Memory[block])
	return data, nil
}

// WriteBlock writes one memory block
func (v *VirtualCard) WriteBlock(block int, data []byte) error {
	if !v.Present {
		return cardloop.ErrCardGone
	}
	if block < 0 || block >= len(v.Memory) {
		return fmt.Errorf("block %d out of range", block)
	}
	if v.isBlockWriteProtected(block) {
		return fmt.Errorf("block %d is write protected", block)
	}
	if len(data) != 16 {
		return fmt.Errorf("data must be exactly 16 bytes, got %d", len(data))
	}

	v.Memory[block] = make([]byte, 16)
	copy(v.Memory[block], data)
	return nil
}

// SetNDEFText stores a single text record NDEF message on the card
func (v *VirtualCard) SetNDEFText(text string) error {
	data, err := cardloop.BuildTextMessage(text, "en")
	if err != nil {
		return err
	}
	v.ndefData = data
	return v.writeNDEFToMemory()
}

// NDEFData returns the raw TLV wrapped NDEF bytes, or nil when the card
// carries none
func (v *VirtualCard) NDEFData() []byte {
	return v.ndefData
}

// NDEFText returns the first text record of the stored NDEF message, or
// an empty string
func (v *VirtualCard) NDEFText() string {
	if len(v.ndefData) == 0 {
		return ""
	}
	msg, err := cardloop.ParseNDEFMessage(v.ndefData)
	if err != nil {
		return ""
	}
	for _, rec := range msg.Records {
		if rec.Type == cardloop.NDEFTypeText {
			return rec.Text
		}
	}
	return ""
}

// Remove takes the card out of the field
func (v *VirtualCard) Remove() {
	v.Present = false
	v.halted = false
}

// Insert puts the card back into the field, waking it from halt
func (v *VirtualCard) Insert() {
	v.Present = true
	v.halted = false
}

func (v *VirtualCard) initNTAGMemory() {
	// Block 0 holds the UID, block 2 the capability container
	v.Memory[0] = make([]byte, 16)
	copy(v.Memory[0][:len(v.UID)], v.UID)
	v.Memory[1] = make([]byte, 16)
	v.Memory[2] = []byte{
		0x00, 0x00, 0xE1, 0x10, 0x12, 0x00, 0x01, 0x03,
		0xA0, 0x10, 0x44, 0x03, 0x00, 0x00, 0x00, 0x00,
	}
	for i := 3; i < len(v.Memory); i++ {
		v.Memory[i] = make([]byte, 16)
	}
}

func (v *VirtualCard) initMifareMemory() {
	v.Memory[0] = make([]byte, 16)
	copy(v.Memory[0][:len(v.UID)], v.UID)
	for i := 1; i < len(v.Memory); i++ {
		v.Memory[i] = make([]byte, 16)
	}

	// Sector trailers carry transport keys and default access bits
	for sector := 0; sector < 16; sector++ {
		v.Memory[sector*4+3] = []byte{
			0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // Key A
			0xFF, 0x07, 0x80, 0x69, // Access bits
			0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // Key B
		}
	}
}

func (v *VirtualCard) isBlockWriteProtected(block int) bool {
	switch v.Kind {
	case "ntag213":
		// UID, lock bytes and configuration pages are read-only
		return block < 3 || block >= 40
	case "mifare1k":
		// Sector trailers
		return (block+1)%4 == 0
	}
	return false
}

// writeNDEFToMemory mirrors the TLV bytes into the user data blocks so
// block level reads see what ReadNDEF sees. User data starts at block 4
// for both kinds.
func (v *VirtualCard) writeNDEFToMemory() error {
	limit := (len(v.Memory) - 4) * 16
	if len(v.ndefData) > limit {
		return fmt.Errorf("%w: %d bytes exceed card capacity %d",
			cardloop.ErrNDEFTooLarge, len(v.ndefData), limit)
	}

	offset := 0
	for block := 4; block < len(v.Memory) && offset < len(v.ndefData); block++ {
		if v.isBlockWriteProtected(block) {
			continue
		}
		data := make([]byte, 16)
		end := offset + 16
		if end > len(v.ndefData) {
			end = len(v.ndefData)
		}
		copy(data, v.ndefData[offset:end])
		v.Memory[block] = data
		offset += 16
	}
	return nil
}
