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

package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cardloop "github.com/CardloopProject/go-cardloop"
)

func TestWithRetry(t *testing.T) {
	t.Parallel()

	errBroken := errors.New("broken")

	tests := []struct {
		wantErr      error
		name         string
		succeedAfter int
		maxRetries   int
		wantAttempts int
		wantResult   int
	}{
		{
			name:         "first attempt succeeds",
			succeedAfter: 1,
			maxRetries:   3,
			wantAttempts: 1,
			wantResult:   42,
		},
		{
			name:         "succeeds on final attempt",
			succeedAfter: 4,
			maxRetries:   3,
			wantAttempts: 4,
			wantResult:   42,
		},
		{
			name:         "attempts exhausted",
			succeedAfter: 5,
			maxRetries:   3,
			wantAttempts: 4,
			wantErr:      cardloop.ErrTransceiveFailed,
		},
		{
			name:         "no retries allowed",
			succeedAfter: 2,
			maxRetries:   0,
			wantAttempts: 1,
			wantErr:      cardloop.ErrTransceiveFailed,
		},
	}

	for _, tt := range tests {
		tt := tt // capture loop variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			attempts := 0
			result, err := WithRetry(Config{
				Description: "probe chip",
				MaxRetries:  tt.maxRetries,
			}, func() (int, bool, error) {
				attempts++
				if attempts >= tt.succeedAfter {
					return 42, false, nil
				}
				return 0, true, nil
			})

			assert.Equal(t, tt.wantAttempts, attempts)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, cardloop.ErrorTypeTransient, cardloop.GetErrorType(err))
				assert.Contains(t, err.Error(), "probe chip",
					"exhaustion error names the operation")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantResult, result)
		})
	}

	t.Run("permanent error stops immediately", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		_, err := WithRetry(Config{MaxRetries: 5}, func() (int, bool, error) {
			attempts++
			return 0, false, errBroken
		})
		require.ErrorIs(t, err, errBroken)
		assert.Equal(t, 1, attempts)
	})
}

func TestWithRetry_Callbacks(t *testing.T) {
	t.Parallel()

	t.Run("OnRetry runs between attempts", func(t *testing.T) {
		t.Parallel()

		retries := 0
		_, err := WithRetry(Config{
			MaxRetries: 2,
			OnRetry: func() error {
				retries++
				return nil
			},
		}, func() (struct{}, bool, error) {
			return struct{}{}, true, nil
		})
		require.Error(t, err)
		assert.Equal(t, 2, retries, "one callback per repeat attempt")
	})

	t.Run("OnRetry error aborts the loop", func(t *testing.T) {
		t.Parallel()

		errReset := errors.New("reset failed")
		attempts := 0
		_, err := WithRetry(Config{
			MaxRetries: 5,
			OnRetry:    func() error { return errReset },
		}, func() (struct{}, bool, error) {
			attempts++
			return struct{}{}, true, nil
		})
		require.ErrorIs(t, err, errReset)
		assert.Equal(t, 1, attempts)
	})

	t.Run("OnRetryFailed replaces the exhaustion error", func(t *testing.T) {
		t.Parallel()

		errGaveUp := errors.New("gave up")
		_, err := WithRetry(Config{
			MaxRetries:    1,
			OnRetryFailed: func() error { return errGaveUp },
		}, func() (struct{}, bool, error) {
			return struct{}{}, true, nil
		})
		require.ErrorIs(t, err, errGaveUp)
	})
}

// Not parallel: swaps the package sleep hook.
func TestWithRetry_DelayPacing(t *testing.T) {
	var slept []time.Duration
	orig := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	defer func() { sleep = orig }()

	_, err := WithRetry(Config{
		MaxRetries: 2,
		RetryDelay: 30 * time.Millisecond,
	}, func() (struct{}, bool, error) {
		return struct{}{}, true, nil
	})
	require.Error(t, err)
	assert.Equal(t,
		[]time.Duration{30 * time.Millisecond, 30 * time.Millisecond},
		slept, "one delay per repeat attempt, none after the last")
}

func TestTimeoutRetry(t *testing.T) {
	t.Parallel()

	t.Run("returns first accepted result", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		result, err := TimeoutRetry(time.Second, func() (string, bool, error) {
			attempts++
			if attempts < 3 {
				return "", true, nil
			}
			return "ready", false, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ready", result)
		assert.Equal(t, 3, attempts)
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		t.Parallel()

		errBus := errors.New("bus fault")
		attempts := 0
		_, err := TimeoutRetry(time.Second, func() (struct{}, bool, error) {
			attempts++
			return struct{}{}, false, errBus
		})
		require.ErrorIs(t, err, errBus)
		assert.Equal(t, 1, attempts)
	})

	t.Run("expiry is classified as timeout", func(t *testing.T) {
		t.Parallel()

		_, err := TimeoutRetry(5*time.Millisecond, func() (struct{}, bool, error) {
			return struct{}{}, true, nil
		})
		require.ErrorIs(t, err, cardloop.ErrReaderTimeout)
		assert.Equal(t, cardloop.ErrorTypeTimeout, cardloop.GetErrorType(err))
		assert.True(t, cardloop.IsRetryable(err))
	})

	t.Run("zero timeout still runs one attempt", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		result, err := TimeoutRetry(0, func() (int, bool, error) {
			attempts++
			return 7, false, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, result)
		assert.Equal(t, 1, attempts)

		attempts = 0
		_, err = TimeoutRetry(0, func() (int, bool, error) {
			attempts++
			return 0, true, nil
		})
		require.ErrorIs(t, err, cardloop.ErrReaderTimeout)
		assert.Equal(t, 1, attempts)
	})
}
