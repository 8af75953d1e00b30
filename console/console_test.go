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

package console

import (
	"bytes"
	"testing"

	cardloop "github.com/CardloopProject/go-cardloop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NilWriter(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, cardloop.ErrInvalidParameter)
}

func TestWithBaudRate_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(&bytes.Buffer{}, WithBaudRate(0))
	require.ErrorIs(t, err, cardloop.ErrInvalidParameter)
	_, err = New(&bytes.Buffer{}, WithBaudRate(-9600))
	require.ErrorIs(t, err, cardloop.ErrInvalidParameter)
}

func TestPrintf_TerminatesWithCRLF(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c, err := New(&buf)
	require.NoError(t, err)

	c.Printf("card %s granted", "200001E4")
	assert.Equal(t, "card 200001E4 granted\r\n", buf.String())
}

func TestPrintf_AbsorbsTrailingNewline(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c, err := New(&buf)
	require.NoError(t, err)

	c.Printf("ready\n")
	c.Printf("waiting\r\n")
	assert.Equal(t, "ready\r\nwaiting\r\n", buf.String())
}

func TestPrintln(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c, err := New(&buf)
	require.NoError(t, err)

	c.Println("badge reader up")
	assert.Equal(t, "badge reader up\r\n", buf.String())
}

func TestWithTimestamps(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c, err := New(&buf, WithTimestamps())
	require.NoError(t, err)

	c.Printf("hello")
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2}\.\d{3} hello\r\n$`, buf.String())
}

func TestWrite_TranslatesNewlines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c, err := New(&buf)
	require.NoError(t, err)

	in := []byte("one\ntwo\r\nthree\n")
	n, err := c.Write(in)
	require.NoError(t, err)
	assert.Equal(t, len(in), n)
	assert.Equal(t, "one\r\ntwo\r\nthree\r\n", buf.String())
}

func TestWrite_ServesAsDebugSink(t *testing.T) {
	var buf bytes.Buffer
	c, err := New(&buf)
	require.NoError(t, err)

	cardloop.SetDebugOutput(c)
	cardloop.SetDebugEnabled(true)
	defer func() {
		cardloop.SetDebugEnabled(false)
		cardloop.SetDebugOutput(nil)
	}()

	cardloop.Debugf("status %d", 7)
	assert.Contains(t, buf.String(), "status 7")
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\r\n")))
}

func TestClose_WithoutPort(t *testing.T) {
	t.Parallel()

	c, err := New(&bytes.Buffer{})
	require.NoError(t, err)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
