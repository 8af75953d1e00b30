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

// Package serial enumerates serial ports as console candidates. Ports
// are never opened; confidence comes from USB metadata, since a console
// endpoint answers nothing that could be probed for.
package serial

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/CardloopProject/go-cardloop/detection"
)

// serialPort is one enumerated port with whatever metadata the platform
// exposes
type serialPort struct {
	Path         string
	Name         string
	VIDPID       string
	Manufacturer string
	Product      string
	SerialNumber string
}

// knownAdapters maps the VID:PID pairs of common USB serial bridges to
// a friendly name. Seeing one means a console cable is plausible.
var knownAdapters = map[string]string{
	"0403:6001": "FTDI FT232R",
	"0403:6015": "FTDI FT231X",
	"10C4:EA60": "Silicon Labs CP210x",
	"1A86:7523": "WCH CH340",
	"067B:2303": "Prolific PL2303",
}

// detector implements detection.Detector for serial ports
type detector struct{}

// New creates a serial port detector
func New() detection.Detector {
	return &detector{}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "serial"
}

// enumerate lists candidate ports. The platform files provide the
// implementation; tests substitute their own.
var enumerate = listPorts

// Detect enumerates serial ports, dropping ignored paths and blocklisted
// USB devices. Detection mode makes no difference here; serial ports are
// reported from metadata alone.
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := enumerate(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]detection.DeviceInfo, 0, len(ports))
	for _, port := range ports {
		select {
		case <-ctx.Done():
			return nil, detection.ErrDetectionTimeout
		default:
		}

		if detection.IsPathIgnored(port.Path, opts.IgnorePaths) {
			continue
		}
		if port.VIDPID != "" && detection.IsBlocked(port.VIDPID, opts.Blocklist) {
			continue
		}
		devices = append(devices, deviceFromPort(port))
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// deviceFromPort converts an enumerated port into a DeviceInfo, grading
// known USB serial bridges as medium confidence
func deviceFromPort(port serialPort) detection.DeviceInfo {
	name := port.Name
	if name == "" {
		name = filepath.Base(port.Path)
	}

	device := detection.DeviceInfo{
		Transport:  "serial",
		Path:       port.Path,
		Name:       name,
		Confidence: detection.Low,
		Metadata:   make(map[string]string),
	}
	if port.VIDPID != "" {
		device.Metadata["vidpid"] = port.VIDPID
	}
	if port.Manufacturer != "" {
		device.Metadata["manufacturer"] = port.Manufacturer
	}
	if port.Product != "" {
		device.Metadata["product"] = port.Product
	}
	if port.SerialNumber != "" {
		device.Metadata["serial"] = port.SerialNumber
	}

	if adapter, ok := knownAdapters[strings.ToUpper(port.VIDPID)]; ok {
		device.Confidence = detection.Medium
		device.Metadata["adapter"] = adapter
	}
	return device
}
