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

package detection

import (
	"path/filepath"
	"strings"
)

// DefaultBlocklist returns VID:PID pairs of USB devices known to react
// badly to serial probing. Entries are hexadecimal, case-insensitive.
func DefaultBlocklist() []string {
	return []string{
		// Populated as problem devices are reported. Example:
		// "1234:5678", // vendor X bootloader that resets on open
	}
}

// IsBlocked reports whether a VID:PID pair appears in the blocklist
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// ParseVIDPID extracts a normalized "VID:PID" pair from the descriptor
// formats platform enumerators produce: "1234:5678", "VID:1234 PID:5678"
// or "vendor=1234 product=5678". Returns "" when no pair is found.
func ParseVIDPID(descriptor string) string {
	descriptor = strings.ToUpper(descriptor)

	vid := firstHexAfter(descriptor, "VID:", "VID=", "VENDOR=")
	pid := firstHexAfter(descriptor, "PID:", "PID=", "PRODUCT=")
	if vid != "" && pid != "" {
		return vid + ":" + pid
	}

	// Already the plain form
	if parts := strings.Split(descriptor, ":"); len(parts) == 2 &&
		isHex(parts[0]) && isHex(parts[1]) {
		return descriptor
	}
	return ""
}

// firstHexAfter returns the hex run following the first marker present
func firstHexAfter(s string, markers ...string) string {
	for _, marker := range markers {
		idx := strings.Index(s, marker)
		if idx < 0 {
			continue
		}
		return leadingHex(s[idx+len(marker):])
	}
	return ""
}

// leadingHex returns the leading run of uppercase hex digits
func leadingHex(s string) string {
	end := 0
	for end < len(s) && isHexDigit(s[end]) {
		end++
	}
	return s[:end]
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isHexDigit(c) && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// IsPathIgnored reports whether a device path appears in the ignore
// list, comparing cleaned, case-folded paths so "/dev/../dev/ttyUSB0"
// and Windows COM names in any case still match
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" || len(ignorePaths) == 0 {
		return false
	}

	normalized := normalizePath(devicePath)
	for _, ignore := range ignorePaths {
		if ignore == "" {
			continue
		}
		if devicePath == ignore || normalized == normalizePath(ignore) {
			return true
		}
	}
	return false
}

func normalizePath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
