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

// Package frame provides ISO/IEC 14443 Type A protocol constants and
// checksums for contactless card communication
package frame

// Request commands - short frames that wake cards in the field
const (
	ReqA  = 0x26 // REQA, wakes cards in IDLE state
	WupA  = 0x52 // WUPA, also wakes cards in HALT state
	HaltA = 0x50 // HLTA, first byte of the halt frame
)

// Anticollision and select commands - one per cascade level
const (
	SelCL1 = 0x93 // Cascade level 1 (UID bytes 0-3)
	SelCL2 = 0x95 // Cascade level 2 (UID bytes 3-6)
	SelCL3 = 0x97 // Cascade level 3 (10-byte UIDs)
)

// NVB (number of valid bits) values used during selection
const (
	NvbAnticollision = 0x20 // Full anticollision, no UID bits sent yet
	NvbSelect        = 0x70 // Complete UID part follows (4 bytes + BCC)
)

// CascadeTag prefixes the UID part when more cascade levels follow
const CascadeTag = 0x88

// SAK bits - select acknowledge from the card
const (
	SakCascadeBit  = 0x04 // UID incomplete, advance a cascade level
	SakISO14443v4  = 0x20 // Card supports ISO/IEC 14443-4
	SakMifare1K    = 0x08 // MIFARE Classic 1K
	SakMifare4K    = 0x18 // MIFARE Classic 4K
	SakUltralight  = 0x00 // MIFARE Ultralight / NTAG family
	SakMifareMini  = 0x09 // MIFARE Mini
)

// MIFARE command bytes sent after selection
const (
	MifareAuthKeyA = 0x60 // Authenticate with key A
	MifareAuthKeyB = 0x61 // Authenticate with key B
	MifareRead     = 0x30 // Read one block (Classic) or 4 pages (Ultralight)
	MifareWrite    = 0xA0 // Write one 16-byte block
)

// MIFARE acknowledge values - 4-bit responses to write-class commands
const (
	MifareAck = 0x0A // Command accepted
)

// UID sizes in bytes per ISO/IEC 14443-3 cascade levels
const (
	UIDSizeSingle = 4
	UIDSizeDouble = 7
	UIDSizeTriple = 10
)

// Frame size limits
const (
	BlockSize    = 16 // MIFARE block / read response size
	MaxFrameLen  = 64 // Largest frame this library exchanges (FIFO bound)
	AnticollLen  = 5  // Anticollision response: 4 UID bytes + BCC
	CRCALen      = 2  // CRC_A trailer size
)
