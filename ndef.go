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
	"fmt"
	"unicode/utf16"

	ndeflib "github.com/hsanjuan/go-ndef"
)

// NDEF TLV structure bytes used in Type 2 tag memory
const (
	tlvNull       = 0x00
	tlvNDEF       = 0x03
	tlvTerminator = 0xFE
	tlvLongForm   = 0xFF
)

// maxNDEFMessageSize is the largest NDEF payload a TLV can carry, the
// long form length field being 16 bits
const maxNDEFMessageSize = 0xFFFF

// NDEFType identifies the content of an NDEF record
type NDEFType string

const (
	// NDEFTypeText is an RTD Text record
	NDEFTypeText NDEFType = "text"
	// NDEFTypeURI is an RTD URI record
	NDEFTypeURI NDEFType = "uri"
	// NDEFTypeUnknown is any record this package does not decode
	NDEFTypeUnknown NDEFType = "unknown"
)

// NDEFRecord is a single decoded NDEF record
type NDEFRecord struct {
	// Type identifies which of the content fields is populated
	Type NDEFType

	// Text is the decoded text for NDEFTypeText records
	Text string

	// Language is the IANA language code of a text record
	Language string

	// URI is the expanded URI for NDEFTypeURI records
	URI string

	// Raw is the record payload as stored on the card
	Raw []byte
}

// NDEFMessage is a decoded NDEF message
type NDEFMessage struct {
	Records []NDEFRecord
}

// ParseNDEFMessage extracts and decodes the NDEF message from raw tag
// memory. The data is expected to be TLV wrapped as read from a Type 2
// tag or a MIFARE Classic NDEF sector. Returns ErrNoNDEF when no NDEF
// TLV is present.
func ParseNDEFMessage(data []byte) (*NDEFMessage, error) {
	payload, found, err := findNDEFTLV(data)
	if err != nil {
		return nil, err
	}
	if !found || len(payload) == 0 {
		return nil, ErrNoNDEF
	}

	msg := &ndeflib.Message{}
	if _, err := msg.Unmarshal(payload); err != nil {
		return nil, fmt.Errorf("parsing NDEF message: %w", err)
	}

	out := &NDEFMessage{Records: make([]NDEFRecord, 0, len(msg.Records))}
	for _, rec := range msg.Records {
		out.Records = append(out.Records, decodeRecord(rec))
	}
	return out, nil
}

// decodeRecord converts a wire-level record into the flat form used by
// callers, decoding the well-known text and URI types
func decodeRecord(rec *ndeflib.Record) NDEFRecord {
	out := NDEFRecord{Type: NDEFTypeUnknown}

	payload, err := rec.Payload()
	if err != nil {
		return out
	}
	raw := payload.Marshal()
	out.Raw = raw

	if rec.TNF() != ndeflib.NFCForumWellKnownType {
		return out
	}

	switch rec.Type() {
	case "T":
		out.Type = NDEFTypeText
		out.Text, out.Language = decodeTextPayload(raw)
	case "U":
		out.Type = NDEFTypeURI
		out.URI = decodeURIPayload(raw)
	}
	return out
}

// decodeTextPayload decodes an RTD Text payload. The status byte carries
// the language code length in its low six bits and the UTF-16 flag in
// its high bit.
func decodeTextPayload(payload []byte) (text, language string) {
	if len(payload) == 0 {
		return "", ""
	}

	status := payload[0]
	langLen := int(status & 0x3F)
	if 1+langLen > len(payload) {
		return "", ""
	}

	language = string(payload[1 : 1+langLen])
	body := payload[1+langLen:]

	if status&0x80 != 0 {
		return decodeUTF16(body), language
	}
	return string(body), language
}

// decodeUTF16 decodes UTF-16 text, big endian unless a little endian
// byte order mark says otherwise
func decodeUTF16(b []byte) string {
	if len(b) < 2 {
		return ""
	}

	littleEndian := false
	if b[0] == 0xFF && b[1] == 0xFE {
		littleEndian = true
		b = b[2:]
	} else if b[0] == 0xFE && b[1] == 0xFF {
		b = b[2:]
	}

	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		if littleEndian {
			units = append(units, uint16(b[i])|uint16(b[i+1])<<8)
		} else {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		}
	}
	return string(utf16.Decode(units))
}

// uriPrefixes maps RTD URI identifier codes to their expansion
var uriPrefixes = [...]string{
	0x00: "",
	0x01: "http://www.",
	0x02: "https://www.",
	0x03: "http://",
	0x04: "https://",
	0x05: "tel:",
	0x06: "mailto:",
	0x07: "ftp://anonymous:anonymous@",
	0x08: "ftp://ftp.",
	0x09: "ftps://",
	0x0A: "sftp://",
	0x0B: "smb://",
	0x0C: "nfs://",
	0x0D: "ftp://",
	0x0E: "dav://",
	0x0F: "news:",
	0x10: "telnet://",
	0x11: "imap:",
	0x12: "rtsp://",
	0x13: "urn:",
	0x14: "pop:",
	0x15: "sip:",
	0x16: "sips:",
	0x17: "tftp:",
	0x18: "btspp://",
	0x19: "btl2cap://",
	0x1A: "btgoep://",
	0x1B: "tcpobex://",
	0x1C: "irdaobex://",
	0x1D: "file://",
	0x1E: "urn:epc:id:",
	0x1F: "urn:epc:tag:",
	0x20: "urn:epc:pat:",
	0x21: "urn:epc:raw:",
	0x22: "urn:epc:",
	0x23: "urn:nfc:",
}

// decodeURIPayload decodes an RTD URI payload, expanding the identifier
// code prefix
func decodeURIPayload(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	prefix := ""
	if int(payload[0]) < len(uriPrefixes) {
		prefix = uriPrefixes[payload[0]]
	}
	return prefix + string(payload[1:])
}

// BuildTextMessage encodes text as a single-record NDEF message wrapped
// in an NDEF TLV with terminator, ready to be written to tag memory.
// The language is an IANA code such as "en".
func BuildTextMessage(text, language string) ([]byte, error) {
	msg := ndeflib.NewTextMessage(text, language)
	payload, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encoding NDEF text record: %w", err)
	}
	return wrapNDEFTLV(payload)
}

// BuildURIMessage encodes a URI as a single-record NDEF message wrapped
// in an NDEF TLV with terminator
func BuildURIMessage(uri string) ([]byte, error) {
	msg := ndeflib.NewURIMessage(uri)
	payload, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encoding NDEF URI record: %w", err)
	}
	return wrapNDEFTLV(payload)
}

// wrapNDEFTLV wraps an NDEF message in the TLV framing used by tag
// memory, choosing the short or long length form as needed
func wrapNDEFTLV(payload []byte) ([]byte, error) {
	if len(payload) > maxNDEFMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrNDEFTooLarge, len(payload))
	}

	var out []byte
	if len(payload) < tlvLongForm {
		out = make([]byte, 0, len(payload)+3)
		out = append(out, tlvNDEF, byte(len(payload)))
	} else {
		out = make([]byte, 0, len(payload)+5)
		out = append(out, tlvNDEF, tlvLongForm,
			byte(len(payload)>>8), byte(len(payload)))
	}
	out = append(out, payload...)
	out = append(out, tlvTerminator)
	return out, nil
}

// extractNDEFPayload walks tag memory and returns the payload of the
// first NDEF TLV, or nil when none is present. Unlike findNDEFTLV it
// reports malformed data as absence rather than an error.
func extractNDEFPayload(data []byte) []byte {
	i := 0
	for i < len(data) {
		switch data[i] {
		case tlvNull:
			i++
		case tlvTerminator:
			return nil
		case tlvNDEF:
			return extractTLVPayload(data, i)
		default:
			i = skipTLV(data, i)
		}
	}
	return nil
}

// extractTLVPayload returns the value of the TLV starting at offset, or
// nil when the data is truncated
func extractTLVPayload(data []byte, offset int) []byte {
	if offset+1 >= len(data) {
		return nil
	}
	if data[offset+1] == tlvLongForm {
		return extractLongFormatPayload(data, offset)
	}
	return extractShortFormatPayload(data, offset)
}

// extractShortFormatPayload handles the one byte length form
func extractShortFormatPayload(data []byte, offset int) []byte {
	if offset+1 >= len(data) {
		return nil
	}
	length := int(data[offset+1])
	start := offset + 2
	if start+length > len(data) {
		return nil
	}
	return data[start : start+length]
}

// extractLongFormatPayload handles the three byte length form with a
// 16-bit big endian length
func extractLongFormatPayload(data []byte, offset int) []byte {
	if offset+3 >= len(data) {
		return nil
	}
	length := int(data[offset+2])<<8 | int(data[offset+3])
	start := offset + 4
	if start+length > len(data) {
		return nil
	}
	return data[start : start+length]
}
