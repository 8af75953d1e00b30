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
	"io"
	"os"
	"sync"
	"sync/atomic"
)

var (
	debugEnabled atomic.Bool
	debugMu      sync.Mutex
	debugOut     io.Writer = os.Stderr
)

// SetDebugEnabled turns library debug output on or off. Output is off by
// default. The check on the logging path is a single atomic load, so
// leaving it off costs nothing measurable.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled returns whether debug output is currently enabled
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetDebugOutput redirects debug output. The default is stderr; a serial
// console opened with the console package also satisfies io.Writer, which
// mirrors routing diagnostics out the wire the way the firmware did.
// A nil writer restores stderr.
func SetDebugOutput(w io.Writer) {
	debugMu.Lock()
	defer debugMu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	debugOut = w
}

// Debugf writes a formatted line to the debug stream when debug output
// is enabled. Sub-packages share the library's stream through it.
func Debugf(format string, args ...any) {
	debugf(format, args...)
}

// debugf writes formatted debug output when enabled
func debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	debugMu.Lock()
	defer debugMu.Unlock()
	_, _ = fmt.Fprintf(debugOut, "[cardloop] "+format+"\n", args...)
}

// debugln writes line debug output when enabled
func debugln(args ...any) {
	if !debugEnabled.Load() {
		return
	}
	debugMu.Lock()
	defer debugMu.Unlock()
	withPrefix := make([]any, 0, len(args)+1)
	withPrefix = append(withPrefix, "[cardloop]")
	withPrefix = append(withPrefix, args...)
	_, _ = fmt.Fprintln(debugOut, withPrefix...)
}
