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

// Package retry holds the bounded-retry helpers the reader driver and
// badge loop share: attempt-counted retries for one-shot commands and
// deadline-bounded polls for hardware that needs time to settle.
package retry

import (
	"time"

	cardloop "github.com/CardloopProject/go-cardloop"
)

// sleep paces attempts; tests swap it out to run without real delays
var sleep = time.Sleep

// pollInterval spaces TimeoutRetry attempts. Register polls over SPI are
// microsecond-scale, so a millisecond keeps bus pressure low without
// adding visible latency to card detection.
const pollInterval = time.Millisecond

// Operation is one retryable attempt. It reports the result, whether the
// caller wants another attempt, and any permanent error that ends the
// loop immediately.
type Operation[T any] func() (T, bool, error)

// Config bounds a WithRetry loop
type Config struct {
	// OnRetry runs before each repeat attempt; an error aborts the loop
	OnRetry func() error

	// OnRetryFailed runs once when every attempt is used up; a non-nil
	// error from it replaces the generic exhaustion error
	OnRetryFailed func() error

	// Description names the operation in the exhaustion error
	Description string

	// MaxRetries is the number of repeat attempts after the first
	MaxRetries int

	// RetryDelay spaces consecutive attempts
	RetryDelay time.Duration
}

// WithRetry runs operation until it succeeds, fails permanently or uses
// up its 1+MaxRetries attempts. Exhaustion yields a transient
// ReaderError so callers can fold it into their usual classification.
func WithRetry[T any](config Config, operation Operation[T]) (T, error) {
	var zero T

	for remaining := config.MaxRetries; ; remaining-- {
		result, again, err := operation()
		if err != nil {
			return zero, err
		}
		if !again {
			return result, nil
		}
		if remaining == 0 {
			return zero, exhausted(config)
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(); err != nil {
				return zero, err
			}
		}
		if config.RetryDelay > 0 {
			sleep(config.RetryDelay)
		}
	}
}

// exhausted builds the error for a loop that used every attempt
func exhausted(config Config) error {
	if config.OnRetryFailed != nil {
		if err := config.OnRetryFailed(); err != nil {
			return err
		}
	}

	op := config.Description
	if op == "" {
		op = "retry"
	}
	return cardloop.NewReaderError(op, "", cardloop.ErrTransceiveFailed,
		cardloop.ErrorTypeTransient)
}

// TimeoutRetry polls operation until it stops asking for repeats or the
// deadline passes, pacing attempts at pollInterval. The operation always
// runs at least once, so a zero timeout degrades to a single attempt.
// Expiry yields a timeout-classified ReaderError.
func TimeoutRetry[T any](timeout time.Duration, operation Operation[T]) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for {
		result, again, err := operation()
		if err != nil {
			return zero, err
		}
		if !again {
			return result, nil
		}
		if !time.Now().Before(deadline) {
			return zero, cardloop.NewTimeoutError("poll", "")
		}
		sleep(pollInterval)
	}
}
