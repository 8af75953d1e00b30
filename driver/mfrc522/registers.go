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

package mfrc522

// MFRC522 register addresses (datasheet section 9). The SPI address byte
// carries the register in bits 6-1, so all values fit in 6 bits.
const (
	regCommand     = 0x01 // starts and stops command execution
	regComIEn      = 0x02 // interrupt request enable bits
	regComIrq      = 0x04 // interrupt request bits
	regDivIrq      = 0x05 // CRC and MFIN interrupt request bits
	regError       = 0x06 // error flags of the last command
	regStatus1     = 0x07 // timer and CRC status
	regStatus2     = 0x08 // receiver/transmitter status, MFCrypto1On
	regFIFOData    = 0x09 // 64-byte FIFO read/write window
	regFIFOLevel   = 0x0A // bytes buffered in the FIFO, flush bit
	regControl     = 0x0C // miscellaneous control, RxLastBits
	regBitFraming  = 0x0D // StartSend, TxLastBits for short frames
	regColl        = 0x0E // collision position of the first collision
	regMode        = 0x11 // general mode, CRC preset value
	regTxControl   = 0x14 // antenna driver control
	regTxASK       = 0x15 // 100% ASK modulation force
	regRFCfg       = 0x26 // receiver gain
	regTMode       = 0x2A // timer auto mode, prescaler high bits
	regTPrescaler  = 0x2B // timer prescaler low bits
	regTReloadHi   = 0x2C // timer reload value high byte
	regTReloadLo   = 0x2D // timer reload value low byte
	regVersion     = 0x37 // chip and firmware version
)

// Command values written to regCommand
const (
	cmdIdle       = 0x00 // cancel the running command
	cmdCalcCRC    = 0x03 // run the CRC coprocessor
	cmdTransmit   = 0x04 // transmit FIFO contents
	cmdReceive    = 0x08 // activate the receiver
	cmdTransceive = 0x0C // transmit, then wait for a response
	cmdMFAuthent  = 0x0E // run the Crypto1 authentication
	cmdSoftReset  = 0x0F // reset the chip
)

// regCommand bits
const (
	commandPowerDown = 0x10 // set during soft reset until the chip is up
)

// regComIrq bits
const (
	irqTimer = 0x01 // the chip timer ran down
	irqErr   = 0x02 // an error bit in regError was set
	irqIdle  = 0x10 // command finished, chip idle
	irqRx    = 0x20 // receiver finished
	irqTx    = 0x40 // transmitter finished

	irqClearAll = 0x7F // writing with bit 7 low clears the marked bits
)

// regError bits
const (
	errProtocol   = 0x01 // SOF wrong or command framing violated
	errParity     = 0x02 // parity check failed
	errCRC        = 0x04 // on-chip CRC check failed
	errCollision  = 0x08 // bit collision detected
	errBufferOvfl = 0x10 // FIFO overflowed during receive

	// errFatal are the error bits that invalidate a received frame
	errFatal = errProtocol | errParity | errCollision | errBufferOvfl
)

// regFIFOLevel bits
const (
	fifoFlush = 0x80 // clears the FIFO and its overflow flag
)

// regBitFraming bits
const (
	framingStartSend = 0x80 // starts transmission in transceive mode
	framingBitsMask  = 0x07 // TxLastBits: bits of the last byte to send
)

// regControl bits
const (
	controlRxBitsMask = 0x07 // RxLastBits: valid bits in the last byte
)

// regStatus2 bits
const (
	statusCrypto1On = 0x08 // MIFARE Crypto1 unit is switched on
)

// regTxControl bits
const (
	txControlAntennaOn = 0x03 // Tx1/Tx2 output enable
)

// Init register values, matching the common MFRC522 bring-up: the chip
// timer acts as the transceive timeout (TAuto, ~25us tick, 30 reload),
// forced 100% ASK, CRC preset 0x6363.
const (
	initTMode      = 0x8D
	initTPrescaler = 0x3E
	initTReloadLo  = 30
	initTReloadHi  = 0
	initTxASK      = 0x40
	initMode       = 0x3D
)

// Known values read back from regVersion
const (
	versionV1 = 0x91
	versionV2 = 0x92
)

// fifoSize is the chip FIFO capacity in bytes
const fifoSize = 64
