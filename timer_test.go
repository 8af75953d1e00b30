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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// advance delivers n ticks to the pool, scanning after each one
func advance(t *testing.T, p *Pool, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		p.Tick()
		require.True(t, p.Scan(), "scan %d should consume a tick", i)
	}
}

func TestNewPool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		opts      []PoolOption
		wantSlots int
		wantErr   bool
	}{
		{
			name:      "Defaults",
			opts:      nil,
			wantSlots: DefaultSlotCount,
		},
		{
			name:      "Custom_Slot_Count",
			opts:      []PoolOption{WithSlotCount(4)},
			wantSlots: 4,
		},
		{
			name:    "Zero_Slot_Count",
			opts:    []PoolOption{WithSlotCount(0)},
			wantErr: true,
		},
		{
			name:    "Negative_Slot_Count",
			opts:    []PoolOption{WithSlotCount(-3)},
			wantErr: true,
		},
		{
			name:    "Non_Positive_Tick_Period",
			opts:    []PoolOption{WithTickPeriod(0)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pool, err := NewPool(tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidParameter)
				assert.Nil(t, pool)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantSlots, pool.SlotCount())

			// All slots start disabled and cleared
			for h := Handle(0); h < Handle(pool.SlotCount()); h++ {
				snap, snapErr := pool.Slot(h)
				require.NoError(t, snapErr)
				assert.Equal(t, Snapshot{}, snap)
			}
		})
	}
}

func TestNewPool_TickPeriod(t *testing.T) {
	t.Parallel()

	pool, err := NewPool()
	require.NoError(t, err)
	assert.Equal(t, DefaultTickPeriod, pool.TickPeriod())

	pool, err = NewPool(WithTickPeriod(25 * time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 25*time.Millisecond, pool.TickPeriod())
}

func TestPool_StartStoresSetpointMinusOne(t *testing.T) {
	t.Parallel()

	pool, err := NewPool()
	require.NoError(t, err)

	require.NoError(t, pool.Start(0, 5))

	snap, err := pool.Slot(0)
	require.NoError(t, err)
	assert.True(t, snap.Enabled)
	assert.False(t, snap.Expired)
	assert.Equal(t, 4, snap.Setpoint)
	assert.Equal(t, 0, snap.Elapsed)
}

func TestPool_StartClampsTicks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		ticks        int
		wantSetpoint int
	}{
		{name: "zero clamps to one", ticks: 0, wantSetpoint: 0},
		{name: "negative clamps to one", ticks: -7, wantSetpoint: 0},
		{name: "one stays one", ticks: 1, wantSetpoint: 0},
		{name: "large value", ticks: 1000, wantSetpoint: 999},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pool, err := NewPool()
			require.NoError(t, err)
			require.NoError(t, pool.Start(0, tt.ticks))

			setpoint, err := pool.Setpoint(0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSetpoint, setpoint)
		})
	}
}

func TestPool_StartIsIdempotentWhileRunning(t *testing.T) {
	t.Parallel()

	pool, err := NewPool()
	require.NoError(t, err)

	require.NoError(t, pool.Start(0, 5))
	advance(t, pool, 2)

	// Re-starting a running slot must not restart the cycle, even with a
	// different tick count.
	require.NoError(t, pool.Start(0, 99))

	snap, err := pool.Slot(0)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Setpoint)
	assert.Equal(t, 2, snap.Elapsed)
}

func TestPool_StopZeroesSlot(t *testing.T) {
	t.Parallel()

	pool, err := NewPool()
	require.NoError(t, err)

	require.NoError(t, pool.Start(0, 2))
	advance(t, pool, 2) // expires on the second tick

	expired, err := pool.Expired(0)
	require.NoError(t, err)
	require.True(t, expired)

	require.NoError(t, pool.Stop(0))

	snap, err := pool.Slot(0)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, snap)

	// Stopping an already stopped slot is harmless
	require.NoError(t, pool.Stop(0))
}

func TestPool_ExpiresOnConfiguredTick(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ticks int
	}{
		{name: "single tick", ticks: 1},
		{name: "three ticks", ticks: 3},
		{name: "ten ticks", ticks: 10},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pool, err := NewPool()
			require.NoError(t, err)
			require.NoError(t, pool.Start(0, tt.ticks))

			// Not expired on any tick before the configured count
			for i := 1; i < tt.ticks; i++ {
				advance(t, pool, 1)
				expired, expErr := pool.Expired(0)
				require.NoError(t, expErr)
				assert.False(t, expired, "should not expire on tick %d of %d", i, tt.ticks)
			}

			// Expires exactly on the configured tick, elapsed wraps to zero
			advance(t, pool, 1)
			expired, err := pool.Expired(0)
			require.NoError(t, err)
			assert.True(t, expired)

			elapsed, err := pool.Elapsed(0)
			require.NoError(t, err)
			assert.Equal(t, 0, elapsed)
		})
	}
}

func TestPool_FreeRunningRestart(t *testing.T) {
	t.Parallel()

	pool, err := NewPool()
	require.NoError(t, err)
	require.NoError(t, pool.Start(0, 3))

	// The slot keeps running after expiry and expires again every 3 ticks
	for cycle := 0; cycle < 4; cycle++ {
		advance(t, pool, 3)

		taken, takeErr := pool.TakeExpired(0)
		require.NoError(t, takeErr)
		assert.True(t, taken, "cycle %d should expire", cycle)

		enabled, enErr := pool.Enabled(0)
		require.NoError(t, enErr)
		assert.True(t, enabled, "slot stays running after cycle %d", cycle)
	}
}

func TestPool_ExpiredLatchesUntilTaken(t *testing.T) {
	t.Parallel()

	pool, err := NewPool()
	require.NoError(t, err)
	require.NoError(t, pool.Start(0, 2))

	advance(t, pool, 2)

	// Peeking does not clear the latch
	for i := 0; i < 3; i++ {
		expired, expErr := pool.Expired(0)
		require.NoError(t, expErr)
		assert.True(t, expired)
	}

	// The latch survives further scans that do not wrap the slot
	advance(t, pool, 1)
	expired, err := pool.Expired(0)
	require.NoError(t, err)
	assert.True(t, expired)

	// Taking clears it exactly once
	taken, err := pool.TakeExpired(0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = pool.TakeExpired(0)
	require.NoError(t, err)
	assert.False(t, taken)

	// And the next wrap latches it again
	advance(t, pool, 1) // elapsed was 1 after the earlier extra tick
	expired, err = pool.Expired(0)
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestPool_ScanWithoutTickDoesNothing(t *testing.T) {
	t.Parallel()

	pool, err := NewPool()
	require.NoError(t, err)
	require.NoError(t, pool.Start(0, 1))

	assert.False(t, pool.Scan())

	elapsed, err := pool.Elapsed(0)
	require.NoError(t, err)
	assert.Equal(t, 0, elapsed)

	expired, err := pool.Expired(0)
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestPool_ScanSkipsDisabledSlots(t *testing.T) {
	t.Parallel()

	pool, err := NewPool()
	require.NoError(t, err)
	require.NoError(t, pool.Start(1, 2))

	advance(t, pool, 5)

	// Slot 0 was never started and stays untouched
	snap, err := pool.Slot(0)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, snap)
}

func TestPool_TicksCoalesce(t *testing.T) {
	t.Parallel()

	pool, err := NewPool()
	require.NoError(t, err)
	require.NoError(t, pool.Start(0, 10))

	// Three ticks before anyone scans fold into a single pending pass
	pool.Tick()
	pool.Tick()
	pool.Tick()

	assert.True(t, pool.Pending())
	assert.Equal(t, uint64(2), pool.CoalescedTicks())

	assert.True(t, pool.Scan())
	assert.False(t, pool.Scan())

	elapsed, err := pool.Elapsed(0)
	require.NoError(t, err)
	assert.Equal(t, 1, elapsed, "coalesced ticks advance the slot only once")
}

func TestPool_ScanConsumesTickWithNoSlotsRunning(t *testing.T) {
	t.Parallel()

	pool, err := NewPool()
	require.NoError(t, err)

	pool.Tick()
	assert.True(t, pool.Scan(), "a pending tick is consumed even when no slot is armed")
	assert.False(t, pool.Pending())
}

func TestPool_Reset(t *testing.T) {
	t.Parallel()

	pool, err := NewPool()
	require.NoError(t, err)

	require.NoError(t, pool.Start(0, 1))
	require.NoError(t, pool.Start(5, 3))
	advance(t, pool, 1)
	pool.Tick()
	pool.Tick() // leaves one pending plus one coalesced

	pool.Reset()

	assert.False(t, pool.Pending())
	assert.Equal(t, uint64(0), pool.CoalescedTicks())
	for h := Handle(0); h < Handle(pool.SlotCount()); h++ {
		snap, snapErr := pool.Slot(h)
		require.NoError(t, snapErr)
		assert.Equal(t, Snapshot{}, snap)
	}
}

func TestPool_InvalidHandles(t *testing.T) {
	t.Parallel()

	pool, err := NewPool(WithSlotCount(3))
	require.NoError(t, err)

	handles := []Handle{-1, 3, 100}
	for _, h := range handles {
		assert.ErrorIs(t, pool.Start(h, 1), ErrInvalidHandle)
		assert.ErrorIs(t, pool.Stop(h), ErrInvalidHandle)

		_, err = pool.Enabled(h)
		assert.ErrorIs(t, err, ErrInvalidHandle)

		_, err = pool.Expired(h)
		assert.ErrorIs(t, err, ErrInvalidHandle)

		_, err = pool.TakeExpired(h)
		assert.ErrorIs(t, err, ErrInvalidHandle)

		_, err = pool.Elapsed(h)
		assert.ErrorIs(t, err, ErrInvalidHandle)

		_, err = pool.Setpoint(h)
		assert.ErrorIs(t, err, ErrInvalidHandle)

		_, err = pool.Slot(h)
		assert.ErrorIs(t, err, ErrInvalidHandle)
	}
}

func TestPool_IndependentSlots(t *testing.T) {
	t.Parallel()

	pool, err := NewPool()
	require.NoError(t, err)

	require.NoError(t, pool.Start(0, 2))
	require.NoError(t, pool.Start(1, 5))

	advance(t, pool, 2)

	expired0, err := pool.Expired(0)
	require.NoError(t, err)
	expired1, err := pool.Expired(1)
	require.NoError(t, err)
	assert.True(t, expired0)
	assert.False(t, expired1)

	advance(t, pool, 3)

	expired1, err = pool.Expired(1)
	require.NoError(t, err)
	assert.True(t, expired1)
}

func TestPool_ConcurrentTickers(t *testing.T) {
	t.Parallel()

	pool, err := NewPool()
	require.NoError(t, err)
	require.NoError(t, pool.Start(0, 1))

	const tickers = 8
	const ticksEach = 500

	var wg sync.WaitGroup
	wg.Add(tickers + 1)

	// Hammer Tick from several goroutines while one consumer scans
	for i := 0; i < tickers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < ticksEach; j++ {
				pool.Tick()
			}
		}()
	}

	scans := 0
	go func() {
		defer wg.Done()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if pool.Scan() {
				scans++
			}
			if scans+int(pool.CoalescedTicks()) >= tickers*ticksEach && !pool.Pending() {
				return
			}
		}
	}()

	wg.Wait()

	// Every produced tick was either consumed by a scan or coalesced
	assert.Equal(t, uint64(tickers*ticksEach), uint64(scans)+pool.CoalescedTicks())
	assert.False(t, pool.Pending())
}
