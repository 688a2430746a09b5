// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/ffutop/legacy-modbus-bridge/transport"
)

// RTSLine drives the transceiver direction through the RTS modem line.
// RTS is asserted while transmitting.
type RTSLine struct {
	Device string

	sink io.Writer

	mu     sync.Mutex
	port   serial.Port
	reader *reader
}

func NewRTSLine(device string, sink io.Writer) *RTSLine {
	return &RTSLine{Device: device, sink: sink}
}

// serialMode maps line parameters onto the go.bug.st port mode.
func serialMode(cfg transport.LineConfig) (*serial.Mode, error) {
	mode := &serial.Mode{BaudRate: cfg.BaudRate, DataBits: cfg.DataBits, StopBits: serial.OneStopBit}
	if cfg.TwoStopBits {
		mode.StopBits = serial.TwoStopBits
	}
	switch cfg.Parity {
	case transport.ParityNone:
		mode.Parity = serial.NoParity
	case transport.ParityEven:
		mode.Parity = serial.EvenParity
	case transport.ParityOdd:
		mode.Parity = serial.OddParity
	case transport.ParityMark:
		mode.Parity = serial.MarkParity
	case transport.ParitySpace:
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("%w: %v", transport.ErrUnsupportedParity, cfg.Parity)
	}
	return mode, nil
}

func (l *RTSLine) Configure(cfg transport.LineConfig) error {
	mode, err := serialMode(cfg)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.close()

	port, err := serial.Open(l.Device, mode)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", l.Device, err)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		port.Close()
		return err
	}
	if err := port.SetRTS(false); err != nil {
		port.Close()
		return fmt.Errorf("could not release RTS on %s: %w", l.Device, err)
	}
	l.port = port
	l.reader = startReader(l.Device, port, l.sink, func(error) bool { return false })
	slog.Info("rtu: rts line open", "device", l.Device, "line", cfg)
	return nil
}

func (l *RTSLine) SetDirection(d transport.Direction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return transport.ErrLineClosed
	}
	return l.port.SetRTS(d == transport.Transmit)
}

// Transmit returns once the bytes have left the UART so the caller can
// release RTS right after.
func (l *RTSLine) Transmit(p []byte, timeout time.Duration) error {
	l.mu.Lock()
	port := l.port
	l.mu.Unlock()
	if port == nil {
		return transport.ErrLineClosed
	}
	if err := writeTimeout(port, p, timeout); err != nil {
		return err
	}
	return port.Drain()
}

func (l *RTSLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.close()
}

func (l *RTSLine) close() (err error) {
	if l.port != nil {
		err = l.reader.stop(l.port)
		l.port = nil
		l.reader = nil
	}
	return
}
