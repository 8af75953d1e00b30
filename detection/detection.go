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

// Package detection discovers reader hardware and console ports. Probe
// backends register themselves on import; import the subpackages for the
// transports the binary should search:
//
//	import (
//		_ "github.com/CardloopProject/go-cardloop/detection/spi"
//		_ "github.com/CardloopProject/go-cardloop/detection/serial"
//	)
package detection

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNoDevicesFound indicates no candidate devices were discovered
	ErrNoDevicesFound = errors.New("no devices found")

	// ErrDetectionTimeout indicates detection ran out of time
	ErrDetectionTimeout = errors.New("detection timed out")

	// ErrUnsupportedPlatform indicates the transport cannot be probed on
	// this operating system
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
)

// IgnorePortsEnv names the environment variable holding a comma-separated
// list of device paths detection must skip
const IgnorePortsEnv = "CARDLOOP_IGNORE_PORTS"

// Confidence grades how certain a detector is that a device is real
// reader hardware rather than just a plausible port
type Confidence int

const (
	// Low marks a port that merely exists
	Low Confidence = iota

	// Medium marks a port whose metadata fits known reader or adapter
	// hardware
	Medium

	// High marks a device that answered a probe
	High
)

// String implements fmt.Stringer
func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// Mode selects how intrusive detection may be
type Mode int

const (
	// Passive only enumerates ports and never opens them
	Passive Mode = iota

	// Safe opens candidate ports for read-only probes such as reading a
	// version register
	Safe

	// Full additionally allows probes that change device state, such as
	// switching an antenna on briefly
	Full
)

// String implements fmt.Stringer
func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// DeviceInfo describes one discovered device
type DeviceInfo struct {
	// Metadata carries transport-specific details such as VID:PID or a
	// probed version byte
	Metadata map[string]string

	// Transport names the detector that found the device, "spi" or
	// "serial"
	Transport string

	// Path is the device path to open, such as "/dev/spidev0.0" or "COM3"
	Path string

	// Name is a human-readable description
	Name string

	// Confidence grades how likely this is reader hardware
	Confidence Confidence
}

// Options tunes a detection run
type Options struct {
	// IgnorePaths lists device paths to skip entirely
	IgnorePaths []string

	// Blocklist lists VID:PID pairs never to probe
	Blocklist []string

	// Timeout bounds the whole run. Zero means no limit beyond the
	// caller's context.
	Timeout time.Duration

	// Mode selects how intrusive probing may be
	Mode Mode
}

// DefaultOptions returns the options detection runs with when callers
// pass nothing: safe probing, a two second budget, the built-in
// blocklist and any paths named in CARDLOOP_IGNORE_PORTS.
func DefaultOptions() Options {
	return Options{
		IgnorePaths: ignorePathsFromEnv(),
		Blocklist:   DefaultBlocklist(),
		Timeout:     2 * time.Second,
		Mode:        Safe,
	}
}

func ignorePathsFromEnv() []string {
	raw := os.Getenv(IgnorePortsEnv)
	if raw == "" {
		return nil
	}
	var paths []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Detector probes one transport for candidate devices
type Detector interface {
	// Transport names the transport this detector searches
	Transport() string

	// Detect returns the devices found. ErrNoDevicesFound and
	// ErrUnsupportedPlatform are clean "nothing here" answers.
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	registryMu sync.RWMutex
	registry   []Detector
)

// RegisterDetector adds a detector to the set DetectAll consults.
// Transport subpackages call it from init.
func RegisterDetector(d Detector) {
	if d == nil {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, d)
}

func registeredDetectors() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Detector, len(registry))
	copy(out, registry)
	return out
}

// DetectAll runs every registered detector with a background context
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	return DetectAllContext(context.Background(), opts)
}

// DetectAllContext runs every registered detector and merges their
// results, best confidence first. Detectors that answer "nothing here"
// or "not on this platform" are skipped; a detector failure skips that
// transport rather than aborting the run.
func DetectAllContext(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		def := DefaultOptions()
		opts = &def
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var devices []DeviceInfo
	for _, d := range registeredDetectors() {
		select {
		case <-ctx.Done():
			return nil, ErrDetectionTimeout
		default:
		}

		found, err := d.Detect(ctx, opts)
		if err != nil {
			if errors.Is(err, ErrDetectionTimeout) || errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrDetectionTimeout
			}
			continue
		}
		devices = append(devices, found...)
	}

	if len(devices) == 0 {
		return nil, ErrNoDevicesFound
	}
	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	return devices, nil
}
