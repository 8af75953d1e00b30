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

// Package badge implements the card scanning control loop: it polls a
// reader for cards, decides grant or deny per a UID ruleset, drives
// status pins, and times pin pulses and removal debounce on shared
// timer pool slots instead of sleeps.
package badge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	cardloop "github.com/CardloopProject/go-cardloop"
	"github.com/CardloopProject/go-cardloop/internal/retry"
)

// Timer pool slot plan. The loop owns the first MinSlots slots of the
// pool it is given; callers are free to use the rest.
const (
	// SlotHeartbeat paces the status pin heartbeat
	SlotHeartbeat cardloop.Handle = 0
	// SlotGrantHold times the grant pin pulse
	SlotGrantHold cardloop.Handle = 1
	// SlotDenyHold times the deny pin pulse
	SlotDenyHold cardloop.Handle = 2
	// SlotRemovalGrace debounces card removal
	SlotRemovalGrace cardloop.Handle = 3

	// MinSlots is the pool capacity the loop requires
	MinSlots = 4
)

// initRetryDelay is the pause between reader init attempts
const initRetryDelay = 100 * time.Millisecond

// ErrAlreadyRunning is returned by Run when the loop is active
var ErrAlreadyRunning = errors.New("badge loop is already running")

// BadgeEvent describes a badge decision
type BadgeEvent struct {
	// When is the decision time
	When time.Time

	// Card is the detected card
	Card *cardloop.Card

	// UID is the card UID as uppercase hex
	UID string

	// Decision is the ruleset outcome
	Decision Decision
}

// Option configures a Loop
type Option func(*Loop) error

// WithGrantPin binds the pin pulsed on granted badges
func WithGrantPin(pin cardloop.StatusPin) Option {
	return func(l *Loop) error {
		if pin == nil {
			return fmt.Errorf("%w: nil grant pin", cardloop.ErrInvalidParameter)
		}
		l.grantPin = pin
		return nil
	}
}

// WithDenyPin binds the pin pulsed on denied badges
func WithDenyPin(pin cardloop.StatusPin) Option {
	return func(l *Loop) error {
		if pin == nil {
			return fmt.Errorf("%w: nil deny pin", cardloop.ErrInvalidParameter)
		}
		l.denyPin = pin
		return nil
	}
}

// WithStatusPin binds the heartbeat and unknown-card pin
func WithStatusPin(pin cardloop.StatusPin) Option {
	return func(l *Loop) error {
		if pin == nil {
			return fmt.Errorf("%w: nil status pin", cardloop.ErrInvalidParameter)
		}
		l.statusPin = pin
		return nil
	}
}

// WithBadgeHandler registers a callback fired on every badge decision.
// The callback runs on the loop goroutine; keep it short.
func WithBadgeHandler(fn func(BadgeEvent)) Option {
	return func(l *Loop) error {
		if fn == nil {
			return fmt.Errorf("%w: nil badge handler", cardloop.ErrInvalidParameter)
		}
		l.onBadge = fn
		return nil
	}
}

// WithRemovalHandler registers a callback fired when a tracked card
// leaves the field, after the removal debounce
func WithRemovalHandler(fn func(uid string)) Option {
	return func(l *Loop) error {
		if fn == nil {
			return fmt.Errorf("%w: nil removal handler", cardloop.ErrInvalidParameter)
		}
		l.onRemoved = fn
		return nil
	}
}

// WithLogf routes loop logging through a printf-style function, such as
// a console.Console
func WithLogf(fn func(format string, args ...any)) Option {
	return func(l *Loop) error {
		if fn == nil {
			return fmt.Errorf("%w: nil log function", cardloop.ErrInvalidParameter)
		}
		l.logf = fn
		return nil
	}
}

// Loop is the badge control loop. Create one with New and drive it with
// Run; ticking the pool is the caller's job, usually via a TickSource
// sharing the same pool.
type Loop struct {
	reader cardloop.CardReader
	pool   *cardloop.Pool
	rules  *Ruleset
	config *Config

	grantPin  cardloop.StatusPin
	denyPin   cardloop.StatusPin
	statusPin cardloop.StatusPin

	onBadge   func(BadgeEvent)
	onRemoved func(uid string)
	logf      func(format string, args ...any)

	presence   *Presence
	params     cardloop.PollParams
	pollSlice  time.Duration
	graceTicks int

	running atomic.Bool
}

// New creates a badge loop. A nil rules selects DefaultRuleset, a nil
// config selects DefaultConfig. The pool needs at least MinSlots slots.
func New(reader cardloop.CardReader, pool *cardloop.Pool, rules *Ruleset,
	config *Config, opts ...Option,
) (*Loop, error) {
	if reader == nil {
		return nil, fmt.Errorf("%w: nil reader", cardloop.ErrInvalidParameter)
	}
	if pool == nil {
		return nil, fmt.Errorf("%w: nil timer pool", cardloop.ErrInvalidParameter)
	}
	if pool.SlotCount() < MinSlots {
		return nil, fmt.Errorf("%w: pool has %d slots, the loop needs %d",
			cardloop.ErrInvalidParameter, pool.SlotCount(), MinSlots)
	}
	if rules == nil {
		rules = DefaultRuleset()
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	l := &Loop{
		reader:   reader,
		pool:     pool,
		rules:    rules,
		config:   config.Clone(),
		presence: NewPresence(),
		params:   cardloop.TunedPollParams(reader),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	l.pollSlice = l.config.PollInterval
	if l.pollSlice == 0 {
		l.pollSlice = l.params.WaitTimeout
	}
	debounce := l.config.RemovalDebounce
	if debounce == 0 {
		debounce = l.params.RemovalDebounce
	}
	l.graceTicks = int(debounce / pool.TickPeriod())
	if l.graceTicks < 1 {
		l.graceTicks = 1
	}

	return l, nil
}

// Running reports whether Run is active
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Run drives the loop until the context is cancelled. It initializes
// the reader (with retries), arms the heartbeat slot and then
// alternates between consuming pool ticks and polling the field. Pin
// pulse and debounce expiries are serviced between polls, so their
// latency is bounded by the poll interval. Returns nil on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	if err := l.initReader(); err != nil {
		return err
	}

	if err := l.pool.Start(SlotHeartbeat, l.config.HeartbeatTicks); err != nil {
		return fmt.Errorf("arming heartbeat slot: %w", err)
	}
	defer l.shutdown()

	l.logff("badge loop started on %s reader at %s", l.reader.Type(), l.reader.Port())

	consecutive := 0
	for {
		select {
		case <-ctx.Done():
			l.logff("badge loop stopping")
			return nil
		default:
		}

		l.pool.Scan()
		l.serviceExpiries()

		if err := l.step(); err != nil {
			if cardloop.GetErrorType(err) == cardloop.ErrorTypePermanent {
				return fmt.Errorf("badge loop: %w", err)
			}
			consecutive++
			l.logff("badge loop: reader error (%d in a row): %v", consecutive, err)
			if consecutive >= l.config.MaxConsecutiveErrors {
				return fmt.Errorf("badge loop: %d consecutive reader errors, last: %w",
					consecutive, err)
			}
			continue
		}
		consecutive = 0
	}
}

// initReader brings the reader up, retrying per its poll tuning
func (l *Loop) initReader() error {
	var lastErr error
	_, err := retry.WithRetry(retry.Config{
		Description: "reader init",
		MaxRetries:  l.params.InitRetries,
		RetryDelay:  initRetryDelay,
	}, func() (struct{}, bool, error) {
		lastErr = l.reader.Init()
		return struct{}{}, lastErr != nil, nil
	})
	if err != nil {
		if lastErr != nil {
			return fmt.Errorf("reader init: %w", lastErr)
		}
		return err
	}
	return nil
}

// step advances the presence machine by one poll
func (l *Loop) step() error {
	if l.presence.State() == StateIdle {
		return l.pollForCard()
	}
	return l.watchCard()
}

// pollForCard waits one slice for a card to enter the empty field
func (l *Loop) pollForCard() error {
	card, err := l.reader.WaitForCard(l.pollSlice)
	if err != nil {
		if isNoCard(err) {
			return nil
		}
		return err
	}
	return l.handleCard(card)
}

// watchCard polls for new cards while probing that the tracked card is
// still in the field. The tracked card is halted, so it ignores the
// poll; only a new or replaced card answers it.
func (l *Loop) watchCard() error {
	card, err := l.reader.WaitForCard(l.pollSlice)
	if err == nil {
		return l.handleCard(card)
	}
	if !isNoCard(err) {
		return err
	}

	present, err := l.reader.CardPresent(l.presence.UID())
	if err != nil {
		return err
	}
	if present {
		l.presence.Seen(l.presence.UID())
		l.stopGrace()
		return nil
	}
	if l.presence.Missed() {
		_ = l.pool.Start(SlotRemovalGrace, l.graceTicks)
	}
	return nil
}

// handleCard runs the badge decision for a sighted card
func (l *Loop) handleCard(card *cardloop.Card) error {
	newArrival := l.presence.Seen(card.UIDBytes)
	l.stopGrace()

	// Put the card to sleep so the next poll slice blocks instead of
	// re-selecting it
	if err := l.reader.Halt(); err != nil {
		l.logff("halt after select: %v", err)
	}

	if !newArrival {
		return nil
	}

	decision := l.rules.Lookup(card.UIDBytes)
	l.applyDecision(decision)
	l.logff("badge %s: %s", card.UID, decision)

	if l.onBadge != nil {
		l.onBadge(BadgeEvent{
			When:     time.Now(),
			Card:     card,
			UID:      card.UID,
			Decision: decision,
		})
	}
	return nil
}

// applyDecision drives the pins for a decision and arms the pulse hold
// slots
func (l *Loop) applyDecision(decision Decision) {
	switch decision {
	case DecisionGrant:
		pinSet(l.grantPin)
		l.armHold(SlotGrantHold)
	case DecisionDeny:
		pinSet(l.denyPin)
		l.armHold(SlotDenyHold)
	default:
		if l.config.UnknownTogglesStatus {
			pinToggle(l.statusPin)
		}
	}
}

// armHold restarts a hold slot so a fresh decision always gets a full
// pulse. Slot handles are package constants and the pool size is
// checked in New, so the pool calls cannot fail.
func (l *Loop) armHold(slot cardloop.Handle) {
	_ = l.pool.Stop(slot)
	_ = l.pool.Start(slot, l.config.HoldTicks)
}

func (l *Loop) stopGrace() {
	_ = l.pool.Stop(SlotRemovalGrace)
}

// serviceExpiries consumes expired slots and performs their pin work.
// Hold slots are stopped after firing so a pulse is one shot even
// though pool slots free-run.
func (l *Loop) serviceExpiries() {
	if fired, _ := l.pool.TakeExpired(SlotHeartbeat); fired {
		pinToggle(l.statusPin)
	}
	if fired, _ := l.pool.TakeExpired(SlotGrantHold); fired {
		_ = l.pool.Stop(SlotGrantHold)
		pinClear(l.grantPin)
	}
	if fired, _ := l.pool.TakeExpired(SlotDenyHold); fired {
		_ = l.pool.Stop(SlotDenyHold)
		pinClear(l.denyPin)
	}
	if fired, _ := l.pool.TakeExpired(SlotRemovalGrace); fired {
		_ = l.pool.Stop(SlotRemovalGrace)
		if uid := l.presence.Gone(); uid != nil {
			uidHex := cardloop.FormatUID(uid)
			l.logff("badge %s: removed", uidHex)
			if l.onRemoved != nil {
				l.onRemoved(uidHex)
			}
		}
	}
}

// shutdown releases the loop's pool slots and parks the pins
func (l *Loop) shutdown() {
	for _, slot := range []cardloop.Handle{
		SlotHeartbeat, SlotGrantHold, SlotDenyHold, SlotRemovalGrace,
	} {
		_ = l.pool.Stop(slot)
	}
	pinClear(l.grantPin)
	pinClear(l.denyPin)
	pinClear(l.statusPin)
	_ = l.reader.Halt()
	l.presence.Reset()
}

func (l *Loop) logff(format string, args ...any) {
	if l.logf != nil {
		l.logf(format, args...)
	}
}

// isNoCard reports whether an error is the normal empty-field result
func isNoCard(err error) bool {
	return errors.Is(err, cardloop.ErrNoCard) ||
		cardloop.GetErrorType(err) == cardloop.ErrorTypeTimeout
}

func pinSet(pin cardloop.StatusPin) {
	if pin != nil {
		_ = pin.Set()
	}
}

func pinClear(pin cardloop.StatusPin) {
	if pin != nil {
		_ = pin.Clear()
	}
}

func pinToggle(pin cardloop.StatusPin) {
	if pin != nil {
		_ = pin.Toggle()
	}
}
