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

//go:build linux

package serial

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// candidateGlobs lists device patterns worth reporting. Legacy ttyS*
// ports are skipped; boards expose their console UART as ttyAMA* or
// through a serial* alias.
var candidateGlobs = []string{
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/ttyAMA*",
	"/dev/serial[0-9]*",
}

func listPorts(_ context.Context) ([]serialPort, error) {
	var ports []serialPort
	for _, pattern := range candidateGlobs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, path := range matches {
			port := serialPort{Path: path, Name: filepath.Base(path)}
			fillUSBMetadata(&port)
			ports = append(ports, port)
		}
	}
	return ports, nil
}

// fillUSBMetadata walks sysfs upward from the tty device until it finds
// the USB device directory carrying the descriptor files. On-chip UARTs
// have no such ancestor and keep empty metadata.
func fillUSBMetadata(port *serialPort) {
	base := filepath.Join("/sys/class/tty", port.Name, "device")
	resolved, err := filepath.EvalSymlinks(base)
	if err != nil {
		return
	}

	dir := resolved
	for depth := 0; depth < 4; depth++ {
		vid := readSysfsFile(filepath.Join(dir, "idVendor"))
		pid := readSysfsFile(filepath.Join(dir, "idProduct"))
		if vid != "" && pid != "" {
			port.VIDPID = strings.ToUpper(vid + ":" + pid)
			port.Manufacturer = readSysfsFile(filepath.Join(dir, "manufacturer"))
			port.Product = readSysfsFile(filepath.Join(dir, "product"))
			port.SerialNumber = readSysfsFile(filepath.Join(dir, "serial"))
			return
		}
		dir = filepath.Dir(dir)
	}
}

func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
