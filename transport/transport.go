// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package transport defines the half-duplex serial line the Modbus master
// drives. Received bytes are not returned by the line; every adapter writes
// them into the sink it was created with, usually an RxBuffer.
package transport

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnsupportedParity = errors.New("transport: parity not supported by driver")
	ErrLineClosed        = errors.New("transport: line closed")
)

// Direction of the RS485 transceiver.
type Direction int

const (
	Receive Direction = iota
	Transmit
)

func (d Direction) String() string {
	if d == Transmit {
		return "transmit"
	}
	return "receive"
}

// Parity as encoded in the bridge configuration.
type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "N"
	case ParityEven:
		return "E"
	case ParityOdd:
		return "O"
	case ParityMark:
		return "M"
	case ParitySpace:
		return "S"
	}
	return fmt.Sprintf("Parity(%d)", uint8(p))
}

// LineConfig holds the UART parameters.
type LineConfig struct {
	BaudRate    int
	DataBits    int
	Parity      Parity
	TwoStopBits bool
}

func (c LineConfig) StopBits() int {
	if c.TwoStopBits {
		return 2
	}
	return 1
}

func (c LineConfig) String() string {
	return fmt.Sprintf("%d %d%s%d", c.BaudRate, c.DataBits, c.Parity, c.StopBits())
}

// DefaultLineConfig is 9600 baud 8N1.
var DefaultLineConfig = LineConfig{BaudRate: 9600, DataBits: 8, Parity: ParityNone}

// Line is a half-duplex serial line.
type Line interface {
	// Configure (re)opens the line with new parameters.
	Configure(cfg LineConfig) error

	// SetDirection switches the transceiver.
	SetDirection(d Direction) error

	// Transmit writes p and returns once it has left the UART or timeout
	// expired.
	Transmit(p []byte, timeout time.Duration) error

	Close() error
}
