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
	"strings"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := getIsRetryableTestCases()

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsRetryable(tt.err)
			if got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func getIsRetryableTestCases() []struct {
	err  error
	name string
	want bool
} {
	return []struct {
		err  error
		name string
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "reader timeout retryable",
			err:  ErrReaderTimeout,
			want: true,
		},
		{
			name: "reader read retryable",
			err:  ErrReaderRead,
			want: true,
		},
		{
			name: "reader write retryable",
			err:  ErrReaderWrite,
			want: true,
		},
		{
			name: "transceive failed retryable",
			err:  ErrTransceiveFailed,
			want: true,
		},
		{
			name: "checksum mismatch retryable",
			err:  ErrChecksumMismatch,
			want: true,
		},
		{
			name: "reader not ready retryable",
			err:  ErrReaderNotReady,
			want: true,
		},
		{
			name: "no card not retryable",
			err:  ErrNoCard,
			want: false,
		},
		{
			name: "card gone not retryable",
			err:  ErrCardGone,
			want: false,
		},
		{
			name: "auth failed not retryable",
			err:  ErrAuthFailed,
			want: false,
		},
		{
			name: "invalid handle not retryable",
			err:  ErrInvalidHandle,
			want: false,
		},
		{
			name: "invalid parameter not retryable",
			err:  ErrInvalidParameter,
			want: false,
		},
		{
			name: "wrapped retryable error",
			err:  errors.New("outer: " + ErrReaderTimeout.Error()),
			want: false,
		},
	}
}

func TestIsRetryable_ReaderError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		reader *ReaderError
		name   string
		want   bool
	}{
		{
			name: "reader error retryable=true",
			reader: &ReaderError{
				Err:       errors.New("test error"),
				Op:        "read",
				Port:      "SPI0.0",
				Type:      ErrorTypeTransient,
				Retryable: true,
			},
			want: true,
		},
		{
			name: "reader error retryable=false",
			reader: &ReaderError{
				Err:       errors.New("test error"),
				Op:        "write",
				Port:      "SPI0.0",
				Type:      ErrorTypeTransient,
				Retryable: false,
			},
			want: false,
		},
		{
			name: "reader error with retryable underlying error but retryable=false",
			reader: &ReaderError{
				Err:       ErrReaderTimeout,
				Op:        "read",
				Port:      "SPI0.0",
				Type:      ErrorTypeTimeout,
				Retryable: false,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsRetryable(tt.reader)
			if got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want ErrorType
	}{
		{
			name: "nil error",
			err:  nil,
			want: ErrorTypePermanent,
		},
		{
			name: "reader timeout",
			err:  ErrReaderTimeout,
			want: ErrorTypeTimeout,
		},
		{
			name: "reader read",
			err:  ErrReaderRead,
			want: ErrorTypeTransient,
		},
		{
			name: "reader write",
			err:  ErrReaderWrite,
			want: ErrorTypeTransient,
		},
		{
			name: "transceive failed",
			err:  ErrTransceiveFailed,
			want: ErrorTypeTransient,
		},
		{
			name: "checksum mismatch",
			err:  ErrChecksumMismatch,
			want: ErrorTypeTransient,
		},
		{
			name: "reader not ready",
			err:  ErrReaderNotReady,
			want: ErrorTypeTransient,
		},
		{
			name: "no card",
			err:  ErrNoCard,
			want: ErrorTypePermanent,
		},
		{
			name: "card gone",
			err:  ErrCardGone,
			want: ErrorTypePermanent,
		},
		{
			name: "unknown error",
			err:  errors.New("unknown error"),
			want: ErrorTypePermanent,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := GetErrorType(tt.err)
			if got != tt.want {
				t.Errorf("GetErrorType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetErrorType_ReaderError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		reader *ReaderError
		name   string
		want   ErrorType
	}{
		{
			name: "reader error transient",
			reader: &ReaderError{
				Err:       errors.New("test error"),
				Op:        "read",
				Port:      "SPI0.0",
				Type:      ErrorTypeTransient,
				Retryable: true,
			},
			want: ErrorTypeTransient,
		},
		{
			name: "reader error timeout",
			reader: &ReaderError{
				Err:       errors.New("test error"),
				Op:        "read",
				Port:      "SPI0.0",
				Type:      ErrorTypeTimeout,
				Retryable: true,
			},
			want: ErrorTypeTimeout,
		},
		{
			name: "reader error permanent",
			reader: &ReaderError{
				Err:       errors.New("test error"),
				Op:        "open",
				Port:      "SPI0.0",
				Type:      ErrorTypePermanent,
				Retryable: false,
			},
			want: ErrorTypePermanent,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := GetErrorType(tt.reader)
			if got != tt.want {
				t.Errorf("GetErrorType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewReaderError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err           error
		name          string
		op            string
		port          string
		errType       ErrorType
		wantRetryable bool
	}{
		{
			name:          "permanent error",
			op:            "open",
			port:          "SPI0.0",
			err:           errors.New("permission denied"),
			errType:       ErrorTypePermanent,
			wantRetryable: false,
		},
		{
			name:          "empty port transient",
			op:            "transceive",
			port:          "",
			err:           errors.New("connection lost"),
			errType:       ErrorTypeTransient,
			wantRetryable: true,
		},
		{
			name:          "timeout error",
			op:            "waitForCard",
			port:          "SPI1.0",
			err:           ErrReaderTimeout,
			errType:       ErrorTypeTimeout,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := NewReaderError(tt.op, tt.port, tt.err, tt.errType)

			if re.Op != tt.op {
				t.Errorf("Op = %q, want %q", re.Op, tt.op)
			}
			if re.Port != tt.port {
				t.Errorf("Port = %q, want %q", re.Port, tt.port)
			}
			if !errors.Is(re.Err, tt.err) {
				t.Errorf("Err = %v, want %v", re.Err, tt.err)
			}
			if re.Type != tt.errType {
				t.Errorf("Type = %v, want %v", re.Type, tt.errType)
			}
			if re.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", re.Retryable, tt.wantRetryable)
			}
		})
	}
}

func TestReaderError_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		re   *ReaderError
		want []string // Substrings that should be present
	}{
		{
			name: "with port",
			re: &ReaderError{
				Err:  errors.New("connection failed"),
				Op:   "read",
				Port: "SPI0.0",
			},
			want: []string{"read", "SPI0.0", "connection failed"},
		},
		{
			name: "without port",
			re: &ReaderError{
				Err:  errors.New("device busy"),
				Op:   "write",
				Port: "",
			},
			want: []string{"write", "device busy"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.re.Error()
			for _, substr := range tt.want {
				if !strings.Contains(got, substr) {
					t.Errorf("Error() = %q, should contain %q", got, substr)
				}
			}
		})
	}
}

func TestReaderError_Unwrap(t *testing.T) {
	t.Parallel()
	originalErr := errors.New("original error")
	re := &ReaderError{
		Err:  originalErr,
		Op:   "test",
		Port: "SPI0.0",
	}

	unwrapped := re.Unwrap()
	if !errors.Is(unwrapped, originalErr) {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, originalErr)
	}
}

func TestNewTimeoutError(t *testing.T) {
	t.Parallel()
	re := NewTimeoutError("read", "SPI0.0")

	if re.Op != "read" {
		t.Errorf("Op = %q, want %q", re.Op, "read")
	}
	if re.Port != "SPI0.0" {
		t.Errorf("Port = %q, want %q", re.Port, "SPI0.0")
	}
	if re.Type != ErrorTypeTimeout {
		t.Errorf("Type = %v, want %v", re.Type, ErrorTypeTimeout)
	}
	if !re.Retryable {
		t.Error("Retryable should be true for timeout errors")
	}
	if !errors.Is(re, ErrReaderTimeout) {
		t.Error("timeout errors should unwrap to ErrReaderTimeout")
	}
}

func TestNewChecksumError(t *testing.T) {
	t.Parallel()
	re := NewChecksumError("anticollision", "SPI0.0")

	if re.Type != ErrorTypeTransient {
		t.Errorf("Type = %v, want %v", re.Type, ErrorTypeTransient)
	}
	if !re.Retryable {
		t.Error("Retryable should be true for checksum errors")
	}
	if !errors.Is(re, ErrChecksumMismatch) {
		t.Error("checksum errors should unwrap to ErrChecksumMismatch")
	}
}

func TestNewAuthError(t *testing.T) {
	t.Parallel()
	re := NewAuthError("readNDEF", "SPI0.0")

	if re.Type != ErrorTypePermanent {
		t.Errorf("Type = %v, want %v", re.Type, ErrorTypePermanent)
	}
	if re.Retryable {
		t.Error("Retryable should be false for auth errors")
	}
	if !errors.Is(re, ErrAuthFailed) {
		t.Error("auth errors should unwrap to ErrAuthFailed")
	}
}

func TestNewCardGoneError(t *testing.T) {
	t.Parallel()
	re := NewCardGoneError("readNDEF", "SPI0.0")

	if re.Type != ErrorTypePermanent {
		t.Errorf("Type = %v, want %v", re.Type, ErrorTypePermanent)
	}
	if re.Retryable {
		t.Error("Retryable should be false once the card is gone")
	}
	if !errors.Is(re, ErrCardGone) {
		t.Error("card-gone errors should unwrap to ErrCardGone")
	}
}

func TestErrorTypeString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		typ  ErrorType
		want string
	}{
		{name: "permanent", typ: ErrorTypePermanent, want: "permanent"},
		{name: "transient", typ: ErrorTypeTransient, want: "transient"},
		{name: "timeout", typ: ErrorTypeTimeout, want: "timeout"},
		{name: "unknown value", typ: ErrorType(42), want: "unknown"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.typ.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
