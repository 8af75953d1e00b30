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

package frame

// CRCA calculates the ISO/IEC 14443-3 CRC_A over data.
// Polynomial 0x8408 (reflected 0x1021), initial value 0x6363, no final XOR.
// The low byte is transmitted first on the wire.
func CRCA(data []byte) (lo, hi byte) {
	crc := uint16(0x6363)
	for _, b := range data {
		b ^= byte(crc)
		b ^= b << 4
		crc = (crc >> 8) ^ (uint16(b) << 8) ^ (uint16(b) << 3) ^ (uint16(b) >> 4)
	}
	return byte(crc), byte(crc >> 8)
}

// AppendCRCA returns data with its CRC_A trailer appended, low byte first
func AppendCRCA(data []byte) []byte {
	lo, hi := CRCA(data)
	out := make([]byte, 0, len(data)+CRCALen)
	out = append(out, data...)
	return append(out, lo, hi)
}

// CheckCRCA reports whether frame ends with a valid CRC_A over the
// preceding bytes. Frames shorter than the trailer itself fail.
func CheckCRCA(data []byte) bool {
	if len(data) <= CRCALen {
		return false
	}
	lo, hi := CRCA(data[:len(data)-CRCALen])
	return data[len(data)-2] == lo && data[len(data)-1] == hi
}

// BCC calculates the block check character for an anticollision UID part:
// the XOR of the four UID bytes
func BCC(uid []byte) byte {
	var bcc byte
	for _, b := range uid {
		bcc ^= b
	}
	return bcc
}

// CheckBCC reports whether a 5-byte anticollision response is internally
// consistent (byte 4 equals the XOR of bytes 0-3)
func CheckBCC(resp []byte) bool {
	if len(resp) != AnticollLen {
		return false
	}
	return BCC(resp[:AnticollLen-1]) == resp[AnticollLen-1]
}
