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

package serial

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CardloopProject/go-cardloop/detection"
)

// withPorts substitutes the port enumerator for one test. Tests using
// it stay sequential because the seam is a package global.
func withPorts(t *testing.T, ports []serialPort, err error) {
	t.Helper()
	saved := enumerate
	enumerate = func(context.Context) ([]serialPort, error) {
		return ports, err
	}
	t.Cleanup(func() { enumerate = saved })
}

func TestTransportName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "serial", New().Transport())
}

func TestDetect_ClassifiesKnownAdapters(t *testing.T) {
	withPorts(t, []serialPort{
		{Path: "/dev/ttyUSB0", Name: "ttyUSB0", VIDPID: "0403:6001", Manufacturer: "FTDI", SerialNumber: "A5069RR4"},
		{Path: "/dev/ttyUSB1", Name: "ttyUSB1", VIDPID: "1234:abcd"},
		{Path: "/dev/ttyAMA0", Name: "ttyAMA0"},
	}, nil)

	opts := detection.DefaultOptions()
	devices, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 3)

	byPath := make(map[string]detection.DeviceInfo)
	for _, device := range devices {
		byPath[device.Path] = device
	}

	ftdi := byPath["/dev/ttyUSB0"]
	assert.Equal(t, "serial", ftdi.Transport)
	assert.Equal(t, detection.Medium, ftdi.Confidence)
	assert.Equal(t, "FTDI FT232R", ftdi.Metadata["adapter"])
	assert.Equal(t, "0403:6001", ftdi.Metadata["vidpid"])
	assert.Equal(t, "FTDI", ftdi.Metadata["manufacturer"])
	assert.Equal(t, "A5069RR4", ftdi.Metadata["serial"])

	unknown := byPath["/dev/ttyUSB1"]
	assert.Equal(t, detection.Low, unknown.Confidence)
	assert.NotContains(t, unknown.Metadata, "adapter")

	onchip := byPath["/dev/ttyAMA0"]
	assert.Equal(t, detection.Low, onchip.Confidence)
	assert.NotContains(t, onchip.Metadata, "vidpid")
}

func TestDetect_LowercaseVIDPIDMatchesAdapter(t *testing.T) {
	withPorts(t, []serialPort{
		{Path: "/dev/ttyUSB0", Name: "ttyUSB0", VIDPID: "10c4:ea60"},
	}, nil)

	opts := detection.DefaultOptions()
	devices, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, detection.Medium, devices[0].Confidence)
	assert.Equal(t, "Silicon Labs CP210x", devices[0].Metadata["adapter"])
}

func TestDetect_FiltersIgnoredAndBlocked(t *testing.T) {
	withPorts(t, []serialPort{
		{Path: "/dev/ttyUSB0", Name: "ttyUSB0", VIDPID: "0403:6001"},
		{Path: "/dev/ttyUSB1", Name: "ttyUSB1", VIDPID: "1111:2222"},
		{Path: "/dev/ttyUSB2", Name: "ttyUSB2"},
	}, nil)

	opts := detection.DefaultOptions()
	opts.IgnorePaths = []string{"/dev/ttyUSB2"}
	opts.Blocklist = []string{"1111:2222"}

	devices, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "/dev/ttyUSB0", devices[0].Path)
}

func TestDetect_AllPortsFilteredOut(t *testing.T) {
	withPorts(t, []serialPort{
		{Path: "COM3", Name: "COM3"},
	}, nil)

	opts := detection.DefaultOptions()
	opts.IgnorePaths = []string{"COM3"}

	_, err := New().Detect(context.Background(), &opts)
	assert.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestDetect_NoPorts(t *testing.T) {
	withPorts(t, nil, nil)

	opts := detection.DefaultOptions()
	_, err := New().Detect(context.Background(), &opts)
	assert.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestDetect_EnumerationError(t *testing.T) {
	enumErr := errors.New("udev lookup failed")
	withPorts(t, nil, enumErr)

	opts := detection.DefaultOptions()
	_, err := New().Detect(context.Background(), &opts)
	assert.ErrorIs(t, err, enumErr)
}

func TestDetect_CancelledContext(t *testing.T) {
	withPorts(t, []serialPort{
		{Path: "/dev/ttyUSB0", Name: "ttyUSB0"},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := detection.DefaultOptions()
	_, err := New().Detect(ctx, &opts)
	assert.ErrorIs(t, err, detection.ErrDetectionTimeout)
}

func TestDeviceFromPort_NameFallsBackToPathBase(t *testing.T) {
	t.Parallel()

	device := deviceFromPort(serialPort{Path: "/dev/cu.usbserial-0001"})
	assert.Equal(t, "cu.usbserial-0001", device.Name)
}
