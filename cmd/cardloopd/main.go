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

// cardloopd runs the badge access loop against an MFRC522 reader:
// it polls for cards, matches UIDs against a ruleset and pulses the
// grant/deny indicator pins, reporting on an operator console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cardloop "github.com/CardloopProject/go-cardloop"
	"github.com/CardloopProject/go-cardloop/badge"
	"github.com/CardloopProject/go-cardloop/console"
	"github.com/CardloopProject/go-cardloop/detection"

	// Import detectors to register them
	_ "github.com/CardloopProject/go-cardloop/detection/serial"
	_ "github.com/CardloopProject/go-cardloop/detection/spi"
	"github.com/CardloopProject/go-cardloop/driver/mfrc522"
	"github.com/CardloopProject/go-cardloop/gpio"
)

type config struct {
	port          *string
	resetPin      *string
	grantLED      *string
	denyLED       *string
	statusLED     *string
	consolePort   *string
	baudRate      *int
	grantUIDs     *string
	denyUIDs      *string
	tickPeriod    *time.Duration
	pollInterval  *time.Duration
	detectTimeout *time.Duration
	debug         *bool
}

func parseFlags() *config {
	cfg := &config{
		port: flag.String("port", "",
			"SPI port of the MFRC522 (e.g. SPI0.0). Leave empty for auto-detection."),
		resetPin:  flag.String("reset", "", "GPIO name of the reader reset line (optional)"),
		grantLED:  flag.String("grant-led", "", "GPIO name of the grant indicator (optional)"),
		denyLED:   flag.String("deny-led", "", "GPIO name of the deny indicator (optional)"),
		statusLED: flag.String("status-led", "", "GPIO name of the heartbeat indicator (optional)"),
		consolePort: flag.String("console", "",
			"Serial port for the operator console. Leave empty for stdout."),
		baudRate:  flag.Int("baud", console.DefaultBaudRate, "Console baud rate"),
		grantUIDs: flag.String("grant", "", "Comma-separated hex UIDs to grant (replaces built-in rules)"),
		denyUIDs:  flag.String("deny", "", "Comma-separated hex UIDs to deny (replaces built-in rules)"),
		tickPeriod: flag.Duration("tick", cardloop.DefaultTickPeriod,
			"Timer pool tick period"),
		pollInterval: flag.Duration("poll-interval", 0,
			"Card polling interval (default: tuned to the reader)"),
		detectTimeout: flag.Duration("detect-timeout", 10*time.Second, "Reader auto-detection timeout"),
		debug:         flag.Bool("debug", false, "Enable debug output"),
	}
	flag.Parse()
	return cfg
}

func openConsole(cfg *config) (*console.Console, error) {
	if *cfg.consolePort == "" {
		return console.New(os.Stdout)
	}
	return console.Open(*cfg.consolePort,
		console.WithBaudRate(*cfg.baudRate), console.WithTimestamps())
}

// autoDetectPort picks the best SPI reader candidate. Detectors sort by
// confidence, so the first SPI hit is the one to try.
func autoDetectPort(ctx context.Context, timeout time.Duration, out *console.Console) (string, error) {
	out.Printf("Auto-detecting reader...")

	opts := detection.DefaultOptions()
	opts.Timeout = timeout

	devices, err := detection.DetectAllContext(ctx, &opts)
	if err != nil {
		return "", fmt.Errorf("auto-detection failed: %w", err)
	}
	for _, device := range devices {
		if device.Transport != "spi" {
			continue
		}
		out.Printf("Found %s (confidence %s)", device.Path, device.Confidence)
		return device.Path, nil
	}
	return "", errors.New("no SPI reader candidates found")
}

func openReader(ctx context.Context, cfg *config, out *console.Console) (*mfrc522.Reader, error) {
	port := *cfg.port
	if port == "" {
		detected, err := autoDetectPort(ctx, *cfg.detectTimeout, out)
		if err != nil {
			return nil, err
		}
		port = detected
	}

	var opts []mfrc522.Option
	if *cfg.resetPin != "" {
		opts = append(opts, mfrc522.WithResetPin(*cfg.resetPin))
	}

	reader, err := mfrc522.New(port, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open reader on %s: %w", port, err)
	}
	return reader, nil
}

// buildRules returns the built-in ruleset unless UID flags replace it
func buildRules(cfg *config) (*badge.Ruleset, error) {
	if *cfg.grantUIDs == "" && *cfg.denyUIDs == "" {
		return badge.DefaultRuleset(), nil
	}

	rules := badge.NewRuleset()
	if err := addRules(rules, *cfg.grantUIDs, badge.DecisionGrant); err != nil {
		return nil, err
	}
	if err := addRules(rules, *cfg.denyUIDs, badge.DecisionDeny); err != nil {
		return nil, err
	}
	return rules, nil
}

func addRules(rules *badge.Ruleset, list string, decision badge.Decision) error {
	for _, uid := range strings.Split(list, ",") {
		uid = strings.TrimSpace(uid)
		if uid == "" {
			continue
		}
		if err := rules.AddHex(uid, decision); err != nil {
			return fmt.Errorf("bad %s UID %q: %w", decision, uid, err)
		}
	}
	return nil
}

// buildLoopOptions wires console reporting and whichever indicator pins
// were configured
func buildLoopOptions(cfg *config, out *console.Console) ([]badge.Option, error) {
	opts := []badge.Option{
		badge.WithLogf(out.Printf),
		badge.WithBadgeHandler(func(event badge.BadgeEvent) {
			out.Printf("card %s -> %s", event.UID, event.Decision)
		}),
		badge.WithRemovalHandler(func(uid string) {
			out.Printf("card %s removed", uid)
		}),
	}

	pins := []struct {
		option func(cardloop.StatusPin) badge.Option
		name   string
		role   string
	}{
		{badge.WithGrantPin, *cfg.grantLED, "grant"},
		{badge.WithDenyPin, *cfg.denyLED, "deny"},
		{badge.WithStatusPin, *cfg.statusLED, "status"},
	}
	for _, p := range pins {
		if p.name == "" {
			continue
		}
		pin, err := gpio.Open(p.name)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s LED: %w", p.role, err)
		}
		opts = append(opts, p.option(pin))
	}
	return opts, nil
}

func main() {
	if run() != 0 {
		os.Exit(1)
	}
}

func run() int {
	cfg := parseFlags()

	out, err := openConsole(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to open console: %v\n", err)
		return 1
	}
	defer func() { _ = out.Close() }()

	if *cfg.debug {
		cardloop.SetDebugOutput(out)
		cardloop.SetDebugEnabled(true)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		out.Printf("Shutting down...")
		cancel()
	}()

	reader, err := openReader(ctx, cfg, out)
	if err != nil {
		out.Printf("Failed to open reader: %v", err)
		return 1
	}
	defer func() { _ = reader.Close() }()

	pool, err := cardloop.NewPool(cardloop.WithTickPeriod(*cfg.tickPeriod))
	if err != nil {
		out.Printf("Failed to create timer pool: %v", err)
		return 1
	}

	ticks, err := cardloop.NewTickSource(pool)
	if err != nil {
		out.Printf("Failed to create tick source: %v", err)
		return 1
	}
	if err := ticks.Start(ctx); err != nil {
		out.Printf("Failed to start tick source: %v", err)
		return 1
	}
	defer ticks.Stop()

	rules, err := buildRules(cfg)
	if err != nil {
		out.Printf("%v", err)
		return 1
	}

	loopOpts, err := buildLoopOptions(cfg, out)
	if err != nil {
		out.Printf("%v", err)
		return 1
	}

	loopConfig := badge.DefaultConfig()
	if *cfg.pollInterval > 0 {
		loopConfig.PollInterval = *cfg.pollInterval
	}

	verified := cardloop.NewVerifiedReader(reader, nil)
	loop, err := badge.New(verified, pool, rules, loopConfig, loopOpts...)
	if err != nil {
		out.Printf("Failed to build badge loop: %v", err)
		return 1
	}

	out.Printf("cardloopd on %s (%d rules, tick %s)", reader.Port(), rules.Len(), pool.TickPeriod())

	if err := loop.Run(ctx); err != nil {
		out.Printf("Badge loop stopped: %v", err)
		return 1
	}
	return 0
}
