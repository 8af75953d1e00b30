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

// Package mfrc522 provides a CardReader driver for the NXP MFRC522
// reader IC over SPI
package mfrc522

import (
	"fmt"
	"time"

	cardloop "github.com/CardloopProject/go-cardloop"
	"github.com/CardloopProject/go-cardloop/internal/frame"
	"github.com/CardloopProject/go-cardloop/internal/retry"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// defaultSpeed is the SPI clock used when WithSpeed is not given.
	// The chip tops out at 10 MHz.
	defaultSpeed = 10 * physic.MegaHertz

	// defaultTimeout bounds one transceive poll loop
	defaultTimeout = 50 * time.Millisecond

	// resetTimeout bounds the wait for the chip to come back after a
	// soft reset
	resetTimeout = 50 * time.Millisecond

	// startupDelay is the settle time after releasing the reset pin
	startupDelay = 50 * time.Millisecond

	// ndefFirstBlock is the first data block of the NDEF sector on a
	// MIFARE Classic card laid out per the NFC Forum mapping
	ndefFirstBlock = 4

	// ndefBlocks is how many blocks of that sector hold NDEF data
	ndefBlocks = 3
)

// ndefKeys returns the key A candidates tried when authenticating the
// NDEF sector: the NFC Forum NDEF key, the factory default and the MAD
// key
func ndefKeys() [][]byte {
	return [][]byte{
		{0xD3, 0xF7, 0xD3, 0xF7, 0xD3, 0xF7},
		{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5},
	}
}

// Reader drives an MFRC522 over SPI and implements cardloop.CardReader.
//
// Reader is not safe for concurrent use. All methods must be called from
// a single goroutine, which is how the badge loop drives it.
type Reader struct {
	conn  spi.Conn
	port  spi.PortCloser
	reset gpio.PinIO

	portName string
	speed    physic.Frequency
	timeout  time.Duration

	gain    byte
	hasGain bool
	inited  bool
}

var (
	_ cardloop.CardReader = (*Reader)(nil)
	_ cardloop.NDEFReader = (*Reader)(nil)
	_ cardloop.PollTuner  = (*Reader)(nil)
)

// Option configures a Reader
type Option func(*Reader) error

// WithSpeed overrides the SPI clock frequency
func WithSpeed(f physic.Frequency) Option {
	return func(r *Reader) error {
		if f <= 0 {
			return fmt.Errorf("%w: SPI speed must be positive, got %v",
				cardloop.ErrInvalidParameter, f)
		}
		r.speed = f
		return nil
	}
}

// WithResetPin binds the chip's NRSTPD line to a GPIO by name. Init
// pulses it for a hardware reset before the soft reset.
func WithResetPin(name string) Option {
	return func(r *Reader) error {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return fmt.Errorf("%w: unknown GPIO pin %q",
				cardloop.ErrInvalidParameter, name)
		}
		r.reset = pin
		return nil
	}
}

// WithAntennaGain sets the receiver gain, 0 (18 dB) through 7 (48 dB).
// Without it the chip's reset default applies.
func WithAntennaGain(gain byte) Option {
	return func(r *Reader) error {
		if gain > 7 {
			return fmt.Errorf("%w: antenna gain must be 0-7, got %d",
				cardloop.ErrInvalidParameter, gain)
		}
		r.gain = gain
		r.hasGain = true
		return nil
	}
}

// WithTimeout overrides the per-transceive poll budget
func WithTimeout(timeout time.Duration) Option {
	return func(r *Reader) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: timeout must be positive, got %v",
				cardloop.ErrInvalidParameter, timeout)
		}
		r.timeout = timeout
		return nil
	}
}

// New opens the named SPI port and creates a reader on it. An empty port
// name selects the first registered port. Call Init before the card
// operations.
func New(port string, opts ...Option) (*Reader, error) {
	// Initialize host
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	r := &Reader{
		portName: port,
		speed:    defaultSpeed,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %q: %w", port, err)
	}

	conn, err := p.Connect(r.speed, spi.Mode0, 8)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to connect on SPI port %q: %w", port, err)
	}

	r.port = p
	r.conn = conn
	if r.portName == "" {
		r.portName = p.String()
	}
	return r, nil
}

// NewFromConn creates a reader on an already connected SPI channel. The
// caller keeps ownership of the port; Close does not release it.
func NewFromConn(conn spi.Conn, port string, opts ...Option) (*Reader, error) {
	if conn == nil {
		return nil, fmt.Errorf("%w: nil SPI connection", cardloop.ErrInvalidParameter)
	}

	r := &Reader{
		conn:     conn,
		portName: port,
		speed:    defaultSpeed,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Init resets the chip, configures its timer and modulation, switches
// the antenna on and sanity checks the version register. Unknown version
// values are reported on the debug stream but accepted, since clone
// chips answer with all sorts of bytes.
func (r *Reader) Init() error {
	if r.reset != nil {
		if err := r.hardReset(); err != nil {
			return err
		}
	}

	if err := r.writeReg(regCommand, cmdSoftReset); err != nil {
		return fmt.Errorf("soft reset: %w", err)
	}
	if err := r.waitPowerUp(); err != nil {
		return err
	}

	setup := []struct{ reg, value byte }{
		{regTMode, initTMode},
		{regTPrescaler, initTPrescaler},
		{regTReloadHi, initTReloadHi},
		{regTReloadLo, initTReloadLo},
		{regTxASK, initTxASK},
		{regMode, initMode},
	}
	for _, s := range setup {
		if err := r.writeReg(s.reg, s.value); err != nil {
			return fmt.Errorf("configuring chip: %w", err)
		}
	}

	if r.hasGain {
		if err := r.writeReg(regRFCfg, r.gain<<4); err != nil {
			return fmt.Errorf("setting antenna gain: %w", err)
		}
	}
	if err := r.setBits(regTxControl, txControlAntennaOn); err != nil {
		return fmt.Errorf("enabling antenna: %w", err)
	}

	version, err := r.Version()
	if err != nil {
		return err
	}
	switch version {
	case versionV1, versionV2:
	default:
		cardloop.Debugf("mfrc522 %s: unexpected version byte %#02x", r.portName, version)
	}

	r.inited = true
	return nil
}

// hardReset pulses the NRSTPD pin and waits for the chip to start up
func (r *Reader) hardReset() error {
	if err := r.reset.Out(gpio.Low); err != nil {
		return fmt.Errorf("driving reset pin low: %w", err)
	}
	time.Sleep(time.Millisecond)
	if err := r.reset.Out(gpio.High); err != nil {
		return fmt.Errorf("releasing reset pin: %w", err)
	}
	time.Sleep(startupDelay)
	return nil
}

// waitPowerUp polls the command register until the PowerDown bit set by
// the soft reset clears
func (r *Reader) waitPowerUp() error {
	_, err := retry.TimeoutRetry(resetTimeout, func() (struct{}, bool, error) {
		value, err := r.readReg(regCommand)
		if err != nil {
			return struct{}{}, false, err
		}
		return struct{}{}, value&commandPowerDown != 0, nil
	})
	if err != nil {
		if isTimeout(err) {
			return cardloop.NewNotReadyError("init", r.portName)
		}
		return err
	}
	return nil
}

// Version reads the chip version register
func (r *Reader) Version() (byte, error) {
	return r.readReg(regVersion)
}

// KnownVersion reports whether a version byte matches a known MFRC522
// silicon revision. Clones answer other values and still mostly work.
func KnownVersion(version byte) bool {
	return version == versionV1 || version == versionV2
}

// WaitForCard polls the field with REQA until a card answers or the
// timeout runs out, then walks the anticollision cascade to a full UID
// and SAK. Cards that were halted do not answer REQA, so a freshly
// halted card stays invisible here until it leaves and re-enters the
// field or a wakeup probe revives it.
func (r *Reader) WaitForCard(timeout time.Duration) (*cardloop.Card, error) {
	if err := r.ensureInited("waitForCard"); err != nil {
		return nil, err
	}

	card, err := retry.TimeoutRetry(timeout, func() (*cardloop.Card, bool, error) {
		atq, err := r.request()
		if err != nil {
			if isTimeout(err) {
				return nil, true, nil
			}
			if cardloop.IsRetryable(err) {
				return nil, true, nil
			}
			return nil, false, err
		}

		uid, sak, err := r.selectCard()
		if err != nil {
			if isTimeout(err) || cardloop.IsRetryable(err) {
				return nil, true, nil
			}
			return nil, false, err
		}
		return cardloop.NewCard(uid, atq, sak), false, nil
	})
	if err != nil {
		if isTimeout(err) {
			return nil, cardloop.NewReaderError(
				"waitForCard", r.portName, cardloop.ErrNoCard, cardloop.ErrorTypeTimeout)
		}
		return nil, err
	}
	return card, nil
}

// CardPresent probes whether the card with the given UID is still in the
// field. The probe wakes halted cards with WUPA, reselects and compares
// UIDs. A matching card is halted again so it keeps ignoring the REQA
// poll; a foreign card is left active for the normal poll to claim.
func (r *Reader) CardPresent(uid []byte) (bool, error) {
	if err := r.ensureInited("cardPresent"); err != nil {
		return false, err
	}

	if _, err := r.wakeup(); err != nil {
		if isTimeout(err) || cardloop.IsRetryable(err) {
			return false, nil
		}
		return false, err
	}

	got, _, err := r.selectCard()
	if err != nil {
		if isTimeout(err) || cardloop.IsRetryable(err) {
			return false, nil
		}
		return false, err
	}

	present := cardloop.CompareUID(got, uid)
	if present {
		_ = r.Halt()
	}
	return present, nil
}

// Halt sends HLTA to the active card. Per ISO/IEC 14443-3 the card must
// not answer, so a transceive timeout is the success case.
func (r *Reader) Halt() error {
	halt := frame.AppendCRCA([]byte{frame.HaltA, 0x00})
	_, err := r.transceive(halt, 0)
	if err == nil {
		// An answer to HLTA is a protocol violation
		return cardloop.NewReaderError(
			"halt", r.portName, cardloop.ErrTransceiveFailed, cardloop.ErrorTypeTransient)
	}
	if isTimeout(err) {
		return nil
	}
	return err
}

// ReadNDEF reactivates the given card and reads its NDEF area: blocks
// 4-6 of the first data sector on MIFARE Classic (after NDEF key
// authentication), pages 4-15 on the NTAG/Ultralight family. The card is
// left halted.
func (r *Reader) ReadNDEF(card *cardloop.Card) (*cardloop.NDEFMessage, error) {
	if err := r.ensureInited("readNDEF"); err != nil {
		return nil, err
	}
	if card == nil {
		return nil, fmt.Errorf("%w: nil card", cardloop.ErrInvalidParameter)
	}

	// Park whatever is active, then wake and reselect the target so the
	// read starts from a known state
	_ = r.Halt()
	uid, sak, err := r.reactivate()
	if err != nil {
		return nil, err
	}
	if !cardloop.CompareUID(uid, card.UIDBytes) {
		_ = r.Halt()
		return nil, cardloop.NewCardGoneError("readNDEF", r.portName)
	}

	var payload []byte
	var readErr error
	switch cardloop.ClassifyCard(sak, uid) {
	case cardloop.CardTypeMifareClassic:
		payload, readErr = r.readMifareNDEF(uid)
	case cardloop.CardTypeNTAG, cardloop.CardTypeUltralight:
		payload, readErr = r.readNTAGNDEF()
	default:
		readErr = fmt.Errorf("%w: no NDEF read path for card type %s",
			cardloop.ErrInvalidParameter, cardloop.ClassifyCard(sak, uid))
	}

	_ = r.Halt()
	_ = r.stopCrypto()

	if readErr != nil {
		return nil, readErr
	}
	return cardloop.ParseNDEFMessage(payload)
}

// reactivate wakes a halted or idle card and selects it
func (r *Reader) reactivate() ([]byte, byte, error) {
	if _, err := r.wakeup(); err != nil {
		if isTimeout(err) {
			return nil, 0, cardloop.NewCardGoneError("readNDEF", r.portName)
		}
		return nil, 0, err
	}
	uid, sak, err := r.selectCard()
	if err != nil {
		if isTimeout(err) {
			return nil, 0, cardloop.NewCardGoneError("readNDEF", r.portName)
		}
		return nil, 0, err
	}
	return uid, sak, nil
}

// readMifareNDEF authenticates the NDEF sector and reads its data blocks
func (r *Reader) readMifareNDEF(uid []byte) ([]byte, error) {
	var authErr error
	for i, key := range ndefKeys() {
		if i > 0 {
			// A failed authentication mutes the card; wake and reselect
			// before the next key
			if _, _, err := r.reactivate(); err != nil {
				return nil, err
			}
		}
		if authErr = r.authenticate(ndefFirstBlock, key, uid); authErr == nil {
			break
		}
	}
	if authErr != nil {
		return nil, authErr
	}

	data := make([]byte, 0, ndefBlocks*frame.BlockSize)
	for block := byte(ndefFirstBlock); block < ndefFirstBlock+ndefBlocks; block++ {
		blockData, err := r.readBlock(block)
		if err != nil {
			return nil, err
		}
		data = append(data, blockData...)
	}
	return data, nil
}

// readNTAGNDEF reads the NTAG user memory pages that carry the NDEF TLV.
// Each READ returns four pages.
func (r *Reader) readNTAGNDEF() ([]byte, error) {
	data := make([]byte, 0, 3*frame.BlockSize)
	for _, page := range []byte{4, 8, 12} {
		chunk, err := r.readBlock(page)
		if err != nil {
			return nil, err
		}
		data = append(data, chunk...)
	}
	return data, nil
}

// PollParams implements cardloop.PollTuner with SPI-scale timing
func (*Reader) PollParams() cardloop.PollParams {
	return cardloop.PollParams{
		WaitTimeout:     250 * time.Millisecond,
		RemovalPoll:     100 * time.Millisecond,
		RemovalDebounce: 300 * time.Millisecond,
		InitRetries:     3,
	}
}

// Close switches the antenna off and releases the SPI port if the reader
// opened it. A reader that was never initialized leaves the chip
// untouched, so a detection probe stays read-only.
func (r *Reader) Close() error {
	if r.inited && r.conn != nil {
		_ = r.clearBits(regTxControl, txControlAntennaOn)
	}
	r.inited = false
	if r.port != nil {
		if err := r.port.Close(); err != nil {
			return fmt.Errorf("closing SPI port %q: %w", r.portName, err)
		}
	}
	return nil
}

// Type implements cardloop.CardReader
func (*Reader) Type() cardloop.ReaderType {
	return cardloop.ReaderMFRC522
}

// Port implements cardloop.CardReader
func (r *Reader) Port() string {
	return r.portName
}

// String returns a short description for logs
func (r *Reader) String() string {
	return fmt.Sprintf("mfrc522[%s]", r.portName)
}

func (r *Reader) ensureInited(op string) error {
	if !r.inited {
		return cardloop.NewNotReadyError(op, r.portName)
	}
	return nil
}

// request polls the field with REQA. Only idle cards answer.
func (r *Reader) request() ([]byte, error) {
	return r.shortFrame(frame.ReqA)
}

// wakeup polls the field with WUPA, which also wakes halted cards
func (r *Reader) wakeup() ([]byte, error) {
	return r.shortFrame(frame.WupA)
}

// shortFrame transmits a 7-bit short frame and expects a 2-byte ATQA
func (r *Reader) shortFrame(cmd byte) ([]byte, error) {
	atq, err := r.transceive([]byte{cmd}, 7)
	if err != nil {
		return nil, err
	}
	if len(atq) != 2 {
		return nil, cardloop.NewReaderError(
			"request", r.portName, cardloop.ErrTransceiveFailed, cardloop.ErrorTypeTransient)
	}
	return atq, nil
}

// selectCard walks the anticollision cascade after an answered request
// and returns the complete UID and final SAK
func (r *Reader) selectCard() ([]byte, byte, error) {
	uid := make([]byte, 0, frame.UIDSizeDouble)
	sel := byte(frame.SelCL1)

	for level := 0; level < 3; level++ {
		part, err := r.transceive([]byte{sel, frame.NvbAnticollision}, 0)
		if err != nil {
			return nil, 0, err
		}
		if !frame.CheckBCC(part) {
			return nil, 0, cardloop.NewChecksumError("anticollision", r.portName)
		}

		selFrame := make([]byte, 0, 2+frame.AnticollLen)
		selFrame = append(selFrame, sel, frame.NvbSelect)
		selFrame = append(selFrame, part...)
		resp, err := r.transceive(frame.AppendCRCA(selFrame), 0)
		if err != nil {
			return nil, 0, err
		}
		if len(resp) != 1+frame.CRCALen || !frame.CheckCRCA(resp) {
			return nil, 0, cardloop.NewChecksumError("select", r.portName)
		}
		sak := resp[0]

		if part[0] == frame.CascadeTag {
			uid = append(uid, part[1:4]...)
		} else {
			uid = append(uid, part[:4]...)
		}

		if sak&frame.SakCascadeBit == 0 {
			return uid, sak, nil
		}
		switch sel {
		case frame.SelCL1:
			sel = frame.SelCL2
		case frame.SelCL2:
			sel = frame.SelCL3
		default:
			return nil, 0, cardloop.NewReaderError(
				"select", r.portName, cardloop.ErrTransceiveFailed, cardloop.ErrorTypeTransient)
		}
	}

	return nil, 0, cardloop.NewReaderError(
		"select", r.portName, cardloop.ErrTransceiveFailed, cardloop.ErrorTypeTransient)
}

// authenticate runs the Crypto1 authentication for a block with key A
func (r *Reader) authenticate(block byte, key, uid []byte) error {
	if len(uid) < 4 {
		return fmt.Errorf("%w: UID too short for authentication", cardloop.ErrInvalidParameter)
	}

	buf := make([]byte, 0, 2+len(key)+4)
	buf = append(buf, frame.MifareAuthKeyA, block)
	buf = append(buf, key...)
	// Crypto1 uses the last four UID bytes
	buf = append(buf, uid[len(uid)-4:]...)

	if err := r.startCommand(cmdMFAuthent, buf); err != nil {
		return err
	}

	irq, err := r.waitIrq(irqIdle)
	if err != nil {
		if isTimeout(err) {
			return cardloop.NewAuthError("authenticate", r.portName)
		}
		return err
	}
	if irq&irqTimer != 0 {
		return cardloop.NewAuthError("authenticate", r.portName)
	}

	status, err := r.readReg(regStatus2)
	if err != nil {
		return err
	}
	if status&statusCrypto1On == 0 {
		return cardloop.NewAuthError("authenticate", r.portName)
	}
	return nil
}

// stopCrypto switches the Crypto1 unit off after MIFARE traffic
func (r *Reader) stopCrypto() error {
	return r.clearBits(regStatus2, statusCrypto1On)
}

// readBlock reads one 16-byte block. The same wire command serves MIFARE
// Classic blocks and NTAG page groups.
func (r *Reader) readBlock(block byte) ([]byte, error) {
	cmd := frame.AppendCRCA([]byte{frame.MifareRead, block})
	resp, err := r.transceive(cmd, 0)
	if err != nil {
		return nil, err
	}
	if len(resp) != frame.BlockSize+frame.CRCALen || !frame.CheckCRCA(resp) {
		return nil, cardloop.NewChecksumError("readBlock", r.portName)
	}
	return resp[:frame.BlockSize], nil
}

// transceive loads a frame into the FIFO, transmits it and collects the
// response. txLastBits selects a short frame when not zero. The chip
// timer armed in Init fires when no card answers, which surfaces as a
// timeout error.
func (r *Reader) transceive(send []byte, txLastBits byte) ([]byte, error) {
	if len(send) > fifoSize {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds the FIFO",
			cardloop.ErrInvalidParameter, len(send))
	}

	if err := r.startCommand(cmdTransceive, send); err != nil {
		return nil, err
	}
	if err := r.writeReg(regBitFraming, framingStartSend|txLastBits&framingBitsMask); err != nil {
		return nil, err
	}

	irq, err := r.waitIrq(irqRx | irqIdle)
	if err != nil {
		return nil, err
	}
	if irq&irqTimer != 0 && irq&irqRx == 0 {
		return nil, cardloop.NewTimeoutError("transceive", r.portName)
	}

	errBits, err := r.readReg(regError)
	if err != nil {
		return nil, err
	}
	if errBits&errFatal != 0 {
		return nil, cardloop.NewReaderError(
			"transceive", r.portName, cardloop.ErrTransceiveFailed, cardloop.ErrorTypeTransient)
	}

	level, err := r.readReg(regFIFOLevel)
	if err != nil {
		return nil, err
	}
	n := int(level)
	if n > fifoSize {
		n = fifoSize
	}
	if n == 0 {
		return nil, nil
	}
	return r.readFIFO(n)
}

// startCommand idles the chip, clears interrupts, loads the FIFO and
// starts the given command
func (r *Reader) startCommand(cmd byte, data []byte) error {
	if err := r.writeReg(regCommand, cmdIdle); err != nil {
		return err
	}
	if err := r.writeReg(regComIrq, irqClearAll); err != nil {
		return err
	}
	if err := r.writeReg(regFIFOLevel, fifoFlush); err != nil {
		return err
	}
	if err := r.writeFIFO(data); err != nil {
		return err
	}
	return r.writeReg(regCommand, cmd)
}

// waitIrq polls the interrupt register until one of the wanted bits or
// the timer bit is set
func (r *Reader) waitIrq(want byte) (byte, error) {
	irq, err := retry.TimeoutRetry(r.timeout, func() (byte, bool, error) {
		value, err := r.readReg(regComIrq)
		if err != nil {
			return 0, false, err
		}
		if value&(want|irqTimer) != 0 {
			return value, false, nil
		}
		return 0, true, nil
	})
	if err != nil {
		if isTimeout(err) {
			return 0, cardloop.NewTimeoutError("transceive", r.portName)
		}
		return 0, err
	}
	return irq, nil
}

// Register access. The SPI address byte carries the register address in
// bits 6-1 with bit 7 set for reads; FIFO bursts repeat the address byte
// for every data byte.

func writeAddr(reg byte) byte { return (reg << 1) & 0x7E }
func readAddr(reg byte) byte  { return 0x80 | (reg << 1) }

func (r *Reader) writeReg(reg, value byte) error {
	if err := r.conn.Tx([]byte{writeAddr(reg), value}, nil); err != nil {
		return fmt.Errorf("SPI write of register %#02x failed: %w", reg, err)
	}
	return nil
}

func (r *Reader) readReg(reg byte) (byte, error) {
	buf := make([]byte, 2)
	if err := r.conn.Tx([]byte{readAddr(reg), 0x00}, buf); err != nil {
		return 0, fmt.Errorf("SPI read of register %#02x failed: %w", reg, err)
	}
	return buf[1], nil
}

func (r *Reader) writeFIFO(data []byte) error {
	w := make([]byte, 0, len(data)+1)
	w = append(w, writeAddr(regFIFOData))
	w = append(w, data...)
	if err := r.conn.Tx(w, nil); err != nil {
		return fmt.Errorf("SPI FIFO write of %d bytes failed: %w", len(data), err)
	}
	return nil
}

func (r *Reader) readFIFO(n int) ([]byte, error) {
	w := make([]byte, n+1)
	for i := 0; i < n; i++ {
		w[i] = readAddr(regFIFOData)
	}
	buf := make([]byte, n+1)
	if err := r.conn.Tx(w, buf); err != nil {
		return nil, fmt.Errorf("SPI FIFO read of %d bytes failed: %w", n, err)
	}
	return buf[1:], nil
}

func (r *Reader) setBits(reg, mask byte) error {
	value, err := r.readReg(reg)
	if err != nil {
		return err
	}
	return r.writeReg(reg, value|mask)
}

func (r *Reader) clearBits(reg, mask byte) error {
	value, err := r.readReg(reg)
	if err != nil {
		return err
	}
	return r.writeReg(reg, value&^mask)
}

// isTimeout reports whether err should be treated as "no card answered"
func isTimeout(err error) bool {
	return cardloop.GetErrorType(err) == cardloop.ErrorTypeTimeout
}
