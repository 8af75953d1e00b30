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

//go:build windows

package serial

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

// listPorts merges the SERIALCOMM device map with SetupAPI metadata.
// SetupAPI results carry VID:PID and manufacturer, so they win when a
// port shows up in both.
func listPorts(_ context.Context) ([]serialPort, error) {
	regPorts, regErr := registryPorts()
	apiPorts, apiErr := setupAPIPorts()
	if regErr != nil && apiErr != nil {
		return nil, errors.Join(regErr, apiErr)
	}

	merged := make(map[string]serialPort)
	for _, port := range regPorts {
		merged[port.Path] = port
	}
	for _, port := range apiPorts {
		merged[port.Path] = port
	}

	ports := make([]serialPort, 0, len(merged))
	for _, port := range merged {
		ports = append(ports, port)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Path < ports[j].Path })
	return ports, nil
}

// registryPorts lists COM ports from the SERIALCOMM device map. Every
// live serial device registers there, including virtual ports.
func registryPorts() ([]serialPort, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE,
		`HARDWARE\DEVICEMAP\SERIALCOMM`, registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	names, err := key.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}

	ports := make([]serialPort, 0, len(names))
	for _, name := range names {
		com, _, err := key.GetStringValue(name)
		if err != nil || com == "" {
			continue
		}
		ports = append(ports, serialPort{Path: com, Name: com})
	}
	return ports, nil
}

var (
	setupapi                      = windows.NewLazySystemDLL("setupapi.dll")
	procGetClassDevs              = setupapi.NewProc("SetupDiGetClassDevsW")
	procEnumDeviceInfo            = setupapi.NewProc("SetupDiEnumDeviceInfo")
	procGetDeviceRegistryProperty = setupapi.NewProc("SetupDiGetDeviceRegistryPropertyW")
	procDestroyDeviceInfoList     = setupapi.NewProc("SetupDiDestroyDeviceInfoList")
)

// GUID_DEVCLASS_PORTS
var portsClassGUID = windows.GUID{
	Data1: 0x4d36e978,
	Data2: 0xe325,
	Data3: 0x11ce,
	Data4: [8]byte{0xbf, 0xc1, 0x08, 0x00, 0x2b, 0xe1, 0x03, 0x18},
}

const (
	digcfPresent      = 0x00000002
	spdrpHardwareID   = 0x00000001
	spdrpMfg          = 0x0000000B
	spdrpFriendlyName = 0x0000000C
)

type devInfoData struct {
	cbSize    uint32
	classGUID windows.GUID
	devInst   uint32
	reserved  uintptr
}

// setupAPIPorts enumerates the Ports device class. The friendly name
// ends with "(COMn)", which yields the path.
func setupAPIPorts() ([]serialPort, error) {
	devInfo, _, callErr := procGetClassDevs.Call(
		uintptr(unsafe.Pointer(&portsClassGUID)), 0, 0, digcfPresent)
	if windows.Handle(devInfo) == windows.InvalidHandle {
		return nil, callErr
	}
	defer procDestroyDeviceInfoList.Call(devInfo)

	var ports []serialPort
	var data devInfoData
	data.cbSize = uint32(unsafe.Sizeof(data))

	for i := uint32(0); ; i++ {
		ret, _, _ := procEnumDeviceInfo.Call(devInfo, uintptr(i), uintptr(unsafe.Pointer(&data)))
		if ret == 0 {
			break
		}

		friendly := deviceProperty(devInfo, &data, spdrpFriendlyName)
		com := comPortFromFriendlyName(friendly)
		if com == "" {
			continue
		}

		port := serialPort{Path: com, Name: friendly}
		if hwid := deviceProperty(devInfo, &data, spdrpHardwareID); hwid != "" {
			port.VIDPID = vidpidFromHardwareID(hwid)
		}
		port.Manufacturer = deviceProperty(devInfo, &data, spdrpMfg)
		if n := strings.Index(friendly, " ("); n > 0 {
			port.Product = friendly[:n]
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// deviceProperty reads one device registry property using the usual
// two-call size-then-data pattern
func deviceProperty(devInfo uintptr, data *devInfoData, prop uintptr) string {
	var size uint32
	_, _, _ = procGetDeviceRegistryProperty.Call(devInfo,
		uintptr(unsafe.Pointer(data)), prop, 0, 0, 0,
		uintptr(unsafe.Pointer(&size)))
	if size == 0 {
		return ""
	}

	buf := make([]uint16, size/2+1)
	var propType uint32
	ret, _, _ := procGetDeviceRegistryProperty.Call(devInfo,
		uintptr(unsafe.Pointer(data)), prop,
		uintptr(unsafe.Pointer(&propType)),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(size), 0)
	if ret == 0 {
		return ""
	}
	return windows.UTF16ToString(buf)
}

// comPortFromFriendlyName extracts "COMn" from a name like
// "USB Serial Port (COM7)"
func comPortFromFriendlyName(name string) string {
	start := strings.LastIndex(name, "(COM")
	if start < 0 {
		return ""
	}
	end := strings.Index(name[start:], ")")
	if end < 0 {
		return ""
	}
	return name[start+1 : start+end]
}

// vidpidFromHardwareID extracts "VID:PID" from a hardware ID like
// "USB\VID_0403&PID_6001&REV_0600"
func vidpidFromHardwareID(hwid string) string {
	hwid = strings.ToUpper(hwid)
	vid := fourHexAfter(hwid, "VID_")
	pid := fourHexAfter(hwid, "PID_")
	if vid == "" || pid == "" {
		return ""
	}
	return vid + ":" + pid
}

func fourHexAfter(s, marker string) string {
	idx := strings.Index(s, marker)
	if idx < 0 || idx+len(marker)+4 > len(s) {
		return ""
	}
	hex := s[idx+len(marker) : idx+len(marker)+4]
	for i := 0; i < len(hex); i++ {
		c := hex[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return ""
		}
	}
	return hex
}
