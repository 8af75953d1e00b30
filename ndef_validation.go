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
)

// ValidateNDEFMessage checks that raw tag memory contains a well-formed
// NDEF TLV. It does not decode the records.
func ValidateNDEFMessage(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty NDEF data")
	}

	payload, found, err := findNDEFTLV(data)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: no NDEF TLV found", ErrNoNDEF)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty NDEF TLV", ErrNoNDEF)
	}
	return nil
}

// findNDEFTLV walks the TLV structure and returns the payload of the
// first NDEF TLV. Returns found=false when the data holds no NDEF TLV
// and an error when a TLV claims more bytes than are present.
func findNDEFTLV(data []byte) (payload []byte, found bool, err error) {
	i := 0
	for i < len(data) {
		switch data[i] {
		case tlvNull:
			i++
		case tlvTerminator:
			return nil, false, nil
		case tlvNDEF:
			length, start, err := parseTLVLength(data, i)
			if err != nil {
				return nil, false, err
			}
			if start+length > len(data) {
				return nil, false, fmt.Errorf(
					"NDEF TLV truncated: claims %d bytes, %d available",
					length, len(data)-start)
			}
			return data[start : start+length], true, nil
		default:
			i = skipTLV(data, i)
		}
	}
	return nil, false, nil
}

// parseTLVLength decodes the length field of the TLV whose tag byte is
// at index i. Returns the value length and the index of the first value
// byte. The long form marker 0xFF switches to a 16-bit big endian
// length.
func parseTLVLength(data []byte, i int) (length, valueStart int, err error) {
	if i+1 >= len(data) {
		return 0, 0, errors.New("TLV missing length byte")
	}

	l := data[i+1]
	if l != tlvLongForm {
		return int(l), i + 2, nil
	}

	if i+3 >= len(data) {
		return 0, 0, errors.New("TLV long form length truncated")
	}
	return int(data[i+2])<<8 | int(data[i+3]), i + 4, nil
}

// skipTLV returns the index just past the TLV whose tag byte is at
// index i. Only the short length form is handled; callers dispatch NDEF
// TLVs through parseTLVLength before getting here.
func skipTLV(data []byte, i int) int {
	if i+1 >= len(data) {
		return i + 1
	}
	return i + 2 + int(data[i+1])
}
