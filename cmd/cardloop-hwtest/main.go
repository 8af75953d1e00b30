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

// cardloop-hwtest exercises attached reader hardware end to end:
// discovery, chip bring-up, card detection, NDEF reading and removal
// tracking. It is the tool to run when wiring up a new board.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/CardloopProject/go-cardloop/detection"

	// Import detection packages to register detectors
	_ "github.com/CardloopProject/go-cardloop/detection/serial"
	_ "github.com/CardloopProject/go-cardloop/detection/spi"
)

// Mode selects what the tool does after discovery
type Mode int

const (
	// ModeComprehensive tests every reader and then waits for a card
	ModeComprehensive Mode = iota
	// ModeQuick tests readers without touching any cards
	ModeQuick
	// ModeMonitor tracks card arrivals and removals until interrupted
	ModeMonitor
)

// Config holds the test run settings
type Config struct {
	// Port opens this device directly instead of discovering
	Port string
	// Mode is the operating mode
	Mode Mode
	// ConnectTimeout bounds reader bring-up
	ConnectTimeout time.Duration
	// DetectTimeout bounds discovery and single-shot card waits
	DetectTimeout time.Duration
	// RemovalDebounce is how long a card must stay missing before the
	// monitor reports removal
	RemovalDebounce time.Duration
	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns the settings the tool runs with by default
func DefaultConfig() *Config {
	return &Config{
		Mode:            ModeComprehensive,
		ConnectTimeout:  10 * time.Second,
		DetectTimeout:   30 * time.Second,
		RemovalDebounce: 300 * time.Millisecond,
	}
}

func main() {
	if run() != 0 {
		os.Exit(1)
	}
}

func run() int {
	// Parse command line flags
	quick := flag.Bool("quick", false, "Quick mode - test readers without card interaction")
	monitor := flag.Bool("monitor", false, "Monitor mode - track cards until interrupted")
	portFlag := flag.String("port", "", "Open this device directly, skipping discovery")
	connectTimeoutFlag := flag.Duration("connect-timeout", 10*time.Second, "Reader connection timeout")
	detectTimeoutFlag := flag.Duration("detect-timeout", 30*time.Second, "Card detection timeout")
	removalFlag := flag.Duration("removal-debounce", 300*time.Millisecond, "Card removal debounce")
	verboseFlag := flag.Bool("verbose", false, "Enable verbose output")

	flag.Parse()

	// Create configuration
	config := DefaultConfig()

	// Determine operating mode
	switch {
	case *quick:
		config.Mode = ModeQuick
	case *monitor:
		config.Mode = ModeMonitor
	default:
		config.Mode = ModeComprehensive
	}

	config.Port = *portFlag
	config.ConnectTimeout = *connectTimeoutFlag
	config.DetectTimeout = *detectTimeoutFlag
	config.RemovalDebounce = *removalFlag
	config.Verbose = *verboseFlag

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Print("\nShutting down gracefully...\n")
		cancel()
	}()

	// Initialize components
	output := NewOutput(config.Verbose)
	session := NewSession(config, output)

	// Run the appropriate mode
	var err error
	switch config.Mode {
	case ModeComprehensive:
		err = runComprehensive(ctx, config, output, session)
	case ModeQuick:
		err = runQuick(ctx, config, output, session)
	case ModeMonitor:
		err = runMonitor(ctx, config, output, session)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		output.Error("%v", err)
		return 1
	}
	return 0
}

// readerCandidates resolves which devices to test, either the port
// given on the command line or whatever discovery turns up
func readerCandidates(ctx context.Context, config *Config, session *Session) ([]detection.DeviceInfo, error) {
	if config.Port != "" {
		return []detection.DeviceInfo{{
			Transport:  "spi",
			Path:       config.Port,
			Name:       filepath.Base(config.Port),
			Confidence: detection.High,
		}}, nil
	}

	devices, err := session.DiscoverReaders(ctx)
	if err != nil {
		return nil, err
	}
	readers := session.SPIDevices(devices)
	if len(readers) == 0 {
		return nil, fmt.Errorf("no reader candidates: %w", detection.ErrNoDevicesFound)
	}
	return readers, nil
}

// testAll brings up every candidate and returns those that passed
func testAll(ctx context.Context, output *Output, session *Session, devices []detection.DeviceInfo) []detection.DeviceInfo {
	var working []detection.DeviceInfo
	for _, device := range devices {
		if err := session.TestReader(ctx, device); err != nil {
			output.Warning("Reader at %s failed: %v", device.Path, err)
			continue
		}
		working = append(working, device)
	}
	return working
}

func runQuick(ctx context.Context, config *Config, output *Output, session *Session) error {
	devices, err := readerCandidates(ctx, config, session)
	if err != nil {
		return err
	}

	working := testAll(ctx, output, session, devices)
	if len(working) == 0 {
		return errors.New("no working readers found")
	}
	output.OK("%d of %d reader(s) passed", len(working), len(devices))
	return nil
}

func runComprehensive(ctx context.Context, config *Config, output *Output, session *Session) error {
	devices, err := readerCandidates(ctx, config, session)
	if err != nil {
		return err
	}

	working := testAll(ctx, output, session, devices)
	if len(working) == 0 {
		return errors.New("no working readers found")
	}
	output.OK("%d of %d reader(s) passed", len(working), len(devices))

	// Card check on the first working reader
	return session.WaitAndReadCard(ctx, working[0])
}

func runMonitor(ctx context.Context, config *Config, output *Output, session *Session) error {
	devices, err := readerCandidates(ctx, config, session)
	if err != nil {
		return err
	}

	working := testAll(ctx, output, session, devices)
	if len(working) == 0 {
		return errors.New("no working readers found")
	}

	return session.MonitorCards(ctx, working[0])
}
