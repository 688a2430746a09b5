// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/grid-x/serial"

	"github.com/ffutop/legacy-modbus-bridge/transport"
)

// serialReadTimeout bounds each blocking read so the reader notices Close.
const serialReadTimeout = 100 * time.Millisecond

// SerialLine is a port whose transceiver direction is switched by the
// kernel RS485 mode. SetDirection only records the requested direction.
type SerialLine struct {
	// Serial port configuration. Address and RS485 are kept across
	// Configure calls.
	serial.Config

	sink io.Writer

	mu        sync.Mutex
	port      io.ReadWriteCloser
	reader    *reader
	direction transport.Direction
}

// NewSerialLine creates a closed line for device. Received bytes go to sink.
func NewSerialLine(device string, rs485 serial.RS485Config, sink io.Writer) *SerialLine {
	l := &SerialLine{sink: sink}
	l.Config.Address = device
	l.Config.RS485 = rs485
	l.Config.Timeout = serialReadTimeout
	return l
}

// serialConfig maps line parameters onto the grid-x port settings.
func serialConfig(base serial.Config, cfg transport.LineConfig) (serial.Config, error) {
	switch cfg.Parity {
	case transport.ParityNone, transport.ParityEven, transport.ParityOdd:
	default:
		return base, fmt.Errorf("%w: %v", transport.ErrUnsupportedParity, cfg.Parity)
	}
	base.BaudRate = cfg.BaudRate
	base.DataBits = cfg.DataBits
	base.StopBits = cfg.StopBits()
	base.Parity = cfg.Parity.String()
	return base, nil
}

func (l *SerialLine) Configure(cfg transport.LineConfig) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := serialConfig(l.Config, cfg)
	if err != nil {
		return err
	}
	l.close()
	l.Config = c
	port, err := serial.Open(&l.Config)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", l.Config.Address, err)
	}
	l.port = port
	l.reader = startReader(l.Config.Address, port, l.sink, func(err error) bool {
		return errors.Is(err, serial.ErrTimeout)
	})
	slog.Info("rtu: serial line open", "device", l.Config.Address, "line", cfg, "rs485", l.Config.RS485.Enabled)
	return nil
}

func (l *SerialLine) SetDirection(d transport.Direction) error {
	l.mu.Lock()
	l.direction = d
	l.mu.Unlock()
	return nil
}

func (l *SerialLine) Transmit(p []byte, timeout time.Duration) error {
	l.mu.Lock()
	port := l.port
	l.mu.Unlock()
	if port == nil {
		return transport.ErrLineClosed
	}
	return writeTimeout(port, p, timeout)
}

func (l *SerialLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.close()
}

// close closes the serial port if it is connected. Caller must hold the mutex.
func (l *SerialLine) close() (err error) {
	if l.port != nil {
		err = l.reader.stop(l.port)
		l.port = nil
		l.reader = nil
	}
	return
}
