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
	"bytes"
	"fmt"
	"time"
)

// CardType represents the family of a detected card
type CardType string

const (
	// CardTypeUnknown is reported when classification failed
	CardTypeUnknown CardType = "unknown"
	// CardTypeMifareClassic represents MIFARE Classic 1K/4K cards.
	CardTypeMifareClassic CardType = "mifare-classic"
	// CardTypeUltralight represents MIFARE Ultralight cards.
	CardTypeUltralight CardType = "ultralight"
	// CardTypeNTAG represents NTAG21x cards.
	CardTypeNTAG CardType = "ntag"
)

// Card represents a card detected in the reader's field
type Card struct {
	// DetectedAt is when the card entered the field
	DetectedAt time.Time

	// UID is the card UID as uppercase hex without separators
	UID string

	// UIDBytes is the raw UID
	UIDBytes []byte

	// ATQ is the answer-to-request, two bytes
	ATQ []byte

	// Type is the classified card family
	Type CardType

	// SAK is the select acknowledge byte
	SAK byte
}

// NewCard builds a Card from the selection results, filling the hex UID
// and classifying the type from SAK and UID
func NewCard(uidBytes []byte, atq []byte, sak byte) *Card {
	return &Card{
		UID:        FormatUID(uidBytes),
		UIDBytes:   uidBytes,
		ATQ:        atq,
		SAK:        sak,
		Type:       ClassifyCard(sak, uidBytes),
		DetectedAt: time.Now(),
	}
}

// String returns a short human-readable description
func (c *Card) String() string {
	return fmt.Sprintf("%s (UID %s)", c.Type, c.UID)
}

// FormatUID renders a UID as uppercase hex without separators
func FormatUID(uid []byte) string {
	return fmt.Sprintf("%X", uid)
}

// ClassifyCard determines the card family from the SAK byte, refined by
// UID characteristics for the SAK values that several families share
func ClassifyCard(sak byte, uid []byte) CardType {
	switch sak {
	case 0x08, 0x18, 0x09:
		return CardTypeMifareClassic
	case 0x00:
		// Ultralight and NTAG answer SAK 0x00; both use 7-byte NXP UIDs,
		// so the UID heuristic separates them
		if len(uid) == 7 {
			if t := DetectCardTypeFromUID(uid); t != CardTypeUnknown {
				return t
			}
		}
		return CardTypeUltralight
	default:
		return CardTypeUnknown
	}
}

// DetectCardTypeFromUID attempts to determine the card type from UID
// characteristics. This is a helper that can be used before the SAK is
// known; real classification should prefer SAK and ATQ values.
func DetectCardTypeFromUID(uid []byte) CardType {
	// This is a simplified detection based on UID patterns

	if len(uid) == 7 {
		// 7-byte UID with NXP manufacturer byte often indicates NTAG
		if uid[0] == 0x04 {
			return CardTypeNTAG
		}
	} else if len(uid) == 4 {
		// 4-byte UID often indicates MIFARE Classic
		return CardTypeMifareClassic
	}

	return CardTypeUnknown
}

// CompareUID compares two UIDs for equality
func CompareUID(uid1, uid2 []byte) bool {
	return bytes.Equal(uid1, uid2)
}
