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

// Package spi probes SPI ports for MFRC522 reader chips
package spi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/CardloopProject/go-cardloop/detection"
	"github.com/CardloopProject/go-cardloop/driver/mfrc522"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// detector implements detection.Detector for SPI ports
type detector struct{}

// New creates an SPI detector
func New() detection.Detector {
	return &detector{}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "spi"
}

// Detect enumerates the host's SPI ports. In safe mode each candidate is
// opened and its version register read; a known MFRC522 revision lifts
// the port to high confidence.
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	refs := spireg.All()
	if len(refs) == 0 {
		return nil, detection.ErrNoDevicesFound
	}

	devices := make([]detection.DeviceInfo, 0, len(refs))
	for _, ref := range refs {
		select {
		case <-ctx.Done():
			return nil, detection.ErrDetectionTimeout
		default:
		}

		if detection.IsPathIgnored(ref.Name, opts.IgnorePaths) {
			continue
		}

		device := detection.DeviceInfo{
			Transport:  "spi",
			Path:       ref.Name,
			Name:       fmt.Sprintf("SPI port %s", ref.Name),
			Confidence: detection.Low,
			Metadata: map[string]string{
				"number": strconv.Itoa(ref.Number),
			},
		}
		if len(ref.Aliases) > 0 {
			device.Metadata["aliases"] = strings.Join(ref.Aliases, ",")
		}

		if opts.Mode != detection.Passive {
			probePort(&device)
		}
		devices = append(devices, device)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// probePort reads the version register of a candidate port and upgrades
// its confidence. Read-only traffic, safe on unknown hardware.
func probePort(device *detection.DeviceInfo) {
	r, err := mfrc522.New(device.Path)
	if err != nil {
		return
	}
	defer func() { _ = r.Close() }()

	version, err := r.Version()
	if err != nil {
		return
	}
	device.Metadata["version"] = fmt.Sprintf("%#02x", version)

	switch {
	case mfrc522.KnownVersion(version):
		device.Confidence = detection.High
	case version != 0x00 && version != 0xFF:
		// Something answered, but not with a known revision. A floating
		// bus reads all zeros or all ones.
		device.Confidence = detection.Medium
	}
}
