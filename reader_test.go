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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitReader is a minimal CardReader whose WaitForCard behavior is a
// single injectable function
type waitReader struct {
	wait func(timeout time.Duration) (*Card, error)
}

func (r *waitReader) Init() error                        { return nil }
func (r *waitReader) CardPresent(_ []byte) (bool, error) { return false, nil }
func (r *waitReader) Halt() error                        { return nil }
func (r *waitReader) Close() error                       { return nil }
func (r *waitReader) Type() ReaderType                   { return ReaderMock }
func (r *waitReader) Port() string                       { return "wait0" }

func (r *waitReader) WaitForCard(timeout time.Duration) (*Card, error) {
	return r.wait(timeout)
}

// contextReader implements CardReaderContext natively
type contextReader struct {
	waitReader
}

func (r *contextReader) WaitForCardContext(_ context.Context) (*Card, error) {
	return nil, ErrNoCard
}

func TestAsCardReaderContext_PassesThroughNativeImplementation(t *testing.T) {
	t.Parallel()

	native := &contextReader{}
	adapted := AsCardReaderContext(native)

	assert.Same(t, native, adapted)
}

func TestAsCardReaderContext_AdapterReturnsCard(t *testing.T) {
	t.Parallel()

	uid := []byte{0x20, 0x00, 0x01, 0xE4}
	reader := &waitReader{wait: func(_ time.Duration) (*Card, error) {
		return NewCard(uid, []byte{0x00, 0x04}, 0x08), nil
	}}

	adapted := AsCardReaderContext(reader)
	card, err := adapted.WaitForCardContext(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "200001E4", card.UID)
}

func TestAsCardReaderContext_AdapterHonorsCancellation(t *testing.T) {
	t.Parallel()

	reader := &waitReader{wait: func(_ time.Duration) (*Card, error) {
		return nil, ErrNoCard
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapted := AsCardReaderContext(reader)
	card, err := adapted.WaitForCardContext(ctx)

	require.Error(t, err)
	assert.Nil(t, card)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAsCardReaderContext_AdapterStopsBetweenSlices(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	reader := &waitReader{wait: func(_ time.Duration) (*Card, error) {
		calls++
		cancel()
		return nil, NewTimeoutError("waitForCard", "wait0")
	}}

	adapted := AsCardReaderContext(reader)
	_, err := adapted.WaitForCardContext(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestAsCardReaderContext_AdapterPropagatesHardErrors(t *testing.T) {
	t.Parallel()

	busErr := errors.New("bus stuck low")
	reader := &waitReader{wait: func(_ time.Duration) (*Card, error) {
		return nil, busErr
	}}

	adapted := AsCardReaderContext(reader)
	card, err := adapted.WaitForCardContext(context.Background())

	require.Error(t, err)
	assert.Nil(t, card)
	assert.ErrorIs(t, err, busErr)
}

func TestTunedPollParams(t *testing.T) {
	t.Parallel()

	plain := &waitReader{}
	assert.Equal(t, DefaultPollParams(), TunedPollParams(plain))

	tuned := &scriptedReader{tuned: &PollParams{
		WaitTimeout:     10 * time.Millisecond,
		RemovalPoll:     20 * time.Millisecond,
		RemovalDebounce: 30 * time.Millisecond,
		InitRetries:     1,
	}}
	assert.Equal(t, *tuned.tuned, TunedPollParams(tuned))
}

func TestDefaultPollParams(t *testing.T) {
	t.Parallel()

	params := DefaultPollParams()
	assert.Equal(t, 250*time.Millisecond, params.WaitTimeout)
	assert.Equal(t, 100*time.Millisecond, params.RemovalPoll)
	assert.Equal(t, 300*time.Millisecond, params.RemovalDebounce)
	assert.Equal(t, 3, params.InitRetries)
}
