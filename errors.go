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
	"errors"
	"fmt"
)

// Timer pool errors
var (
	// ErrInvalidHandle indicates a slot handle outside the pool's range
	ErrInvalidHandle = errors.New("invalid timer handle")

	// ErrInvalidParameter indicates an invalid parameter was provided
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrTickSourceRunning indicates Start was called on a running tick source
	ErrTickSourceRunning = errors.New("tick source already running")
)

// Reader errors
var (
	// ErrNoCard indicates no card was found in the field before the deadline
	ErrNoCard = errors.New("no card in field")

	// ErrCardGone indicates the card left the field mid-operation
	ErrCardGone = errors.New("card left the field")

	// ErrReaderNotReady indicates the reader is not initialized or still starting
	ErrReaderNotReady = errors.New("reader not ready")

	// ErrReaderTimeout indicates a reader operation timed out
	ErrReaderTimeout = errors.New("reader timeout")

	// ErrReaderRead indicates a read from the reader failed
	ErrReaderRead = errors.New("reader read failed")

	// ErrReaderWrite indicates a write to the reader failed
	ErrReaderWrite = errors.New("reader write failed")

	// ErrTransceiveFailed indicates a card exchange failed at the RF level
	ErrTransceiveFailed = errors.New("transceive failed")

	// ErrChecksumMismatch indicates checksum validation failed
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrAuthFailed indicates MIFARE authentication was rejected
	ErrAuthFailed = errors.New("authentication failed")
)

// NDEF errors
var (
	// ErrNoNDEF indicates the card carries no NDEF message
	ErrNoNDEF = errors.New("no ndef message found")

	// ErrNDEFTooLarge indicates an NDEF message exceeds the supported size
	ErrNDEFTooLarge = errors.New("ndef message too large")
)

// ErrorType classifies reader errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent indicates an error that will not resolve by retrying
	ErrorTypePermanent ErrorType = iota

	// ErrorTypeTransient indicates a temporary error that may succeed on retry
	ErrorTypeTransient

	// ErrorTypeTimeout indicates a deadline expired
	ErrorTypeTimeout
)

// String returns a human-readable name for the error type
func (t ErrorType) String() string {
	switch t {
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ReaderError provides structured context for reader failures
type ReaderError struct {
	// Err is the underlying error
	Err error

	// Op is the operation that failed, e.g. "waitForCard"
	Op string

	// Port is the port or bus the reader is attached to
	Port string

	// Type classifies the failure
	Type ErrorType

	// Retryable indicates whether retrying the operation may succeed
	Retryable bool
}

// Error implements the error interface
func (e *ReaderError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *ReaderError) Unwrap() error {
	return e.Err
}

// NewReaderError creates a reader error with explicit classification.
// Retryable is derived from the type: transient and timeout errors retry.
func NewReaderError(op, port string, err error, errType ErrorType) *ReaderError {
	return &ReaderError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(op, port string) *ReaderError {
	return &ReaderError{
		Op:        op,
		Port:      port,
		Err:       ErrReaderTimeout,
		Type:      ErrorTypeTimeout,
		Retryable: true,
	}
}

// NewChecksumError creates a retryable checksum error
func NewChecksumError(op, port string) *ReaderError {
	return &ReaderError{
		Op:        op,
		Port:      port,
		Err:       ErrChecksumMismatch,
		Type:      ErrorTypeTransient,
		Retryable: true,
	}
}

// NewNotReadyError creates a retryable not-ready error
func NewNotReadyError(op, port string) *ReaderError {
	return &ReaderError{
		Op:        op,
		Port:      port,
		Err:       ErrReaderNotReady,
		Type:      ErrorTypeTransient,
		Retryable: true,
	}
}

// NewAuthError creates a permanent authentication error
func NewAuthError(op, port string) *ReaderError {
	return &ReaderError{
		Op:        op,
		Port:      port,
		Err:       ErrAuthFailed,
		Type:      ErrorTypePermanent,
		Retryable: false,
	}
}

// NewCardGoneError creates a permanent card-gone error. Retrying the same
// exchange cannot succeed; the caller has to wait for a card again.
func NewCardGoneError(op, port string) *ReaderError {
	return &ReaderError{
		Op:        op,
		Port:      port,
		Err:       ErrCardGone,
		Type:      ErrorTypePermanent,
		Retryable: false,
	}
}

// IsRetryable returns whether an operation that failed with err is worth
// retrying. ReaderError carries an explicit flag; bare sentinels fall back
// to a classification table.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var readerErr *ReaderError
	if errors.As(err, &readerErr) {
		return readerErr.Retryable
	}

	switch {
	case errors.Is(err, ErrReaderTimeout),
		errors.Is(err, ErrReaderRead),
		errors.Is(err, ErrReaderWrite),
		errors.Is(err, ErrTransceiveFailed),
		errors.Is(err, ErrChecksumMismatch),
		errors.Is(err, ErrReaderNotReady):
		return true
	default:
		return false
	}
}

// GetErrorType classifies err. Unknown errors are treated as permanent so
// callers never loop on something they cannot fix.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var readerErr *ReaderError
	if errors.As(err, &readerErr) {
		return readerErr.Type
	}

	switch {
	case errors.Is(err, ErrReaderTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrReaderRead),
		errors.Is(err, ErrReaderWrite),
		errors.Is(err, ErrTransceiveFailed),
		errors.Is(err, ErrChecksumMismatch),
		errors.Is(err, ErrReaderNotReady):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
