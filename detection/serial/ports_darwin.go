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

//go:build darwin

package serial

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	calloutRe  = regexp.MustCompile(`"IOCalloutDevice"\s*=\s*"([^"]+)"`)
	vendorRe   = regexp.MustCompile(`"idVendor"\s*=\s*(\d+)`)
	productRe  = regexp.MustCompile(`"idProduct"\s*=\s*(\d+)`)
	mfgRe      = regexp.MustCompile(`"USB Vendor Name"\s*=\s*"([^"]+)"`)
	prodNameRe = regexp.MustCompile(`"USB Product Name"\s*=\s*"([^"]+)"`)
	serialRe   = regexp.MustCompile(`"USB Serial Number"\s*=\s*"([^"]+)"`)
)

// listPorts asks the IO registry for serial clients, which carries USB
// metadata alongside the device path. If ioreg is unavailable the /dev
// glob fallback still finds the ports, just without metadata.
func listPorts(ctx context.Context) ([]serialPort, error) {
	out, err := exec.CommandContext(ctx, "ioreg", "-r", "-c", "IOSerialBSDClient", "-a").Output()
	if err != nil {
		return globPorts(), nil
	}

	var ports []serialPort
	for _, entry := range strings.Split(string(out), "+-o ") {
		m := calloutRe.FindStringSubmatch(entry)
		if len(m) < 2 {
			continue
		}
		path := m[1]
		name := filepath.Base(path)
		if !includeDarwinDevice(name) {
			continue
		}

		port := serialPort{Path: path, Name: name, VIDPID: vidpidFromIoreg(entry)}
		if mm := mfgRe.FindStringSubmatch(entry); len(mm) >= 2 {
			port.Manufacturer = mm[1]
		}
		if pm := prodNameRe.FindStringSubmatch(entry); len(pm) >= 2 {
			port.Product = pm[1]
		}
		if sm := serialRe.FindStringSubmatch(entry); len(sm) >= 2 {
			port.SerialNumber = sm[1]
		}
		ports = append(ports, port)
	}

	if len(ports) == 0 {
		return globPorts(), nil
	}
	return ports, nil
}

// vidpidFromIoreg converts the decimal idVendor/idProduct values ioreg
// prints into hex VID:PID form
func vidpidFromIoreg(entry string) string {
	vm := vendorRe.FindStringSubmatch(entry)
	pm := productRe.FindStringSubmatch(entry)
	if len(vm) < 2 || len(pm) < 2 {
		return ""
	}
	vid, vidErr := strconv.Atoi(vm[1])
	pid, pidErr := strconv.Atoi(pm[1])
	if vidErr != nil || pidErr != nil {
		return ""
	}
	return fmt.Sprintf("%04X:%04X", vid, pid)
}

// globPorts lists callout devices without metadata. The cu form is
// preferred; a tty device is added only when it has no cu twin.
func globPorts() []serialPort {
	var ports []serialPort
	seen := make(map[string]bool)

	cu, _ := filepath.Glob("/dev/cu.*")
	for _, path := range cu {
		name := filepath.Base(path)
		if !includeDarwinDevice(name) {
			continue
		}
		ports = append(ports, serialPort{Path: path, Name: name})
		seen[strings.TrimPrefix(name, "cu.")] = true
	}

	tty, _ := filepath.Glob("/dev/tty.*")
	for _, path := range tty {
		name := filepath.Base(path)
		if seen[strings.TrimPrefix(name, "tty.")] || !includeDarwinDevice(name) {
			continue
		}
		ports = append(ports, serialPort{Path: path, Name: name})
	}
	return ports
}

// includeDarwinDevice drops Bluetooth endpoints and system consoles
func includeDarwinDevice(name string) bool {
	lower := strings.ToLower(name)
	for _, skip := range []string{"bluetooth", "console", "debug", "system", "kernel"} {
		if strings.Contains(lower, skip) {
			return false
		}
	}
	return true
}
