// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ffutop/legacy-modbus-bridge/transport"
)

const dialTimeout = 10 * time.Second

// TCPLine carries raw RTU frames to a serial device server. Line
// parameters are set on the device server itself, so Configure only
// (re)connects.
type TCPLine struct {
	Address string
	Timeout time.Duration

	sink io.Writer

	mu     sync.Mutex
	conn   net.Conn
	reader *reader
}

func NewTCPLine(address string, sink io.Writer) *TCPLine {
	return &TCPLine{Address: address, Timeout: dialTimeout, sink: sink}
}

func (l *TCPLine) Configure(cfg transport.LineConfig) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.close()
	if err := l.connect(); err != nil {
		return err
	}
	slog.Info("rtu: tcp line connected", "address", l.Address, "line", cfg)
	return nil
}

func (l *TCPLine) SetDirection(transport.Direction) error { return nil }

func (l *TCPLine) Transmit(p []byte, timeout time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.connect(); err != nil {
		return err
	}
	if timeout > 0 {
		if err := l.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			l.close()
			return err
		}
	}
	if _, err := l.conn.Write(p); err != nil {
		// Force a reconnect on the next transmit.
		l.close()
		return fmt.Errorf("failed to write to %s: %w", l.Address, err)
	}
	return nil
}

func (l *TCPLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.close()
}

// connect establishes a new connection if none is open or the peer has
// closed the current one. Caller must hold the mutex.
func (l *TCPLine) connect() error {
	if l.conn != nil {
		if l.reader.alive() {
			return nil
		}
		slog.Info("rtu: tcp line reconnecting", "address", l.Address)
		l.close()
	}
	conn, err := net.DialTimeout("tcp", l.Address, l.Timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", l.Address, err)
	}
	l.conn = conn
	l.reader = startReader(l.Address, conn, l.sink, func(error) bool { return false })
	return nil
}

func (l *TCPLine) close() (err error) {
	if l.conn != nil {
		err = l.reader.stop(l.conn)
		l.conn = nil
		l.reader = nil
	}
	return
}
