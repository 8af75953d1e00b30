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

// Package console writes operator-facing status lines to a serial
// terminal or any io.Writer, with the CRLF line endings a terminal
// expects. It doubles as the sink for the library debug stream.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	cardloop "github.com/CardloopProject/go-cardloop"
	"go.bug.st/serial"
)

// DefaultBaudRate matches the 115200 8N1 settings badge terminals
// conventionally run at
const DefaultBaudRate = 115200

// timestampLayout prefixes lines when WithTimestamps is set
const timestampLayout = "15:04:05.000 "

// Console serializes line output to one writer. The zero value is not
// usable; construct with Open or New.
//
// Console is safe for concurrent use.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer

	baud       int
	timestamps bool
}

var _ io.Writer = (*Console)(nil)

// Option configures a Console
type Option func(*Console) error

// WithBaudRate overrides the serial baud rate used by Open. It has no
// effect on a Console built over a plain writer.
func WithBaudRate(baud int) Option {
	return func(c *Console) error {
		if baud <= 0 {
			return fmt.Errorf("%w: baud rate must be positive, got %d",
				cardloop.ErrInvalidParameter, baud)
		}
		c.baud = baud
		return nil
	}
}

// WithTimestamps prefixes every line with a wall-clock timestamp
func WithTimestamps() Option {
	return func(c *Console) error {
		c.timestamps = true
		return nil
	}
}

// Open opens the named serial port at 8N1 and builds a Console over it.
// Close releases the port.
func Open(port string, opts ...Option) (*Console, error) {
	c := &Console{baud: DefaultBaudRate}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	mode := &serial.Mode{
		BaudRate: c.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open console port %q: %w", port, err)
	}

	c.w = p
	c.closer = p
	return c, nil
}

// New builds a Console over an existing writer. The caller keeps
// ownership of the writer; Close is a no-op.
func New(w io.Writer, opts ...Option) (*Console, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil writer", cardloop.ErrInvalidParameter)
	}

	c := &Console{w: w, baud: DefaultBaudRate}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Printf formats one line and terminates it with CRLF. A trailing
// newline in the format is absorbed, so printf-style callers migrate
// unchanged. Write errors are swallowed like a disconnected terminal.
func (c *Console) Printf(format string, args ...any) {
	c.writeLine(fmt.Sprintf(format, args...))
}

// Println writes its arguments as one CRLF-terminated line
func (c *Console) Println(args ...any) {
	c.writeLine(fmt.Sprint(args...))
}

func (c *Console) writeLine(line string) {
	line = strings.TrimRight(line, "\r\n")

	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	b.Grow(len(timestampLayout) + len(line) + 2)
	if c.timestamps {
		b.WriteString(time.Now().Format(timestampLayout))
	}
	b.WriteString(line)
	b.WriteString("\r\n")
	_, _ = io.WriteString(c.w, b.String())
}

// Write implements io.Writer, translating bare LF line endings to CRLF
// on the way through. This lets the Console serve as the sink for
// cardloop.SetDebugOutput.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]byte, 0, len(p)+8)
	for i, ch := range p {
		if ch == '\n' && (i == 0 || p[i-1] != '\r') {
			out = append(out, '\r')
		}
		out = append(out, ch)
	}
	if _, err := c.w.Write(out); err != nil {
		return 0, fmt.Errorf("console write: %w", err)
	}
	return len(p), nil
}

// Close releases the serial port when the Console owns one
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	if err != nil {
		return fmt.Errorf("closing console port: %w", err)
	}
	return nil
}
