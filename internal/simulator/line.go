// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package simulator provides in-process Modbus slaves behind a
// transport.Line, for dry runs without an RS485 bus.
package simulator

import (
	"encoding/hex"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ffutop/legacy-modbus-bridge/modbus/rtu"
	"github.com/ffutop/legacy-modbus-bridge/transport"
)

const broadcastAddress = 0

// Line is a bus segment of simulated slaves. Every transmitted frame is
// executed by the addressed slave and its response written to the sink
// before Transmit returns. Frames with a bad CRC or for an unknown address
// get no response; broadcast frames are executed by every slave silently.
type Line struct {
	sink io.Writer

	mu        sync.Mutex
	slaves    map[byte]*Slave
	config    transport.LineConfig
	direction transport.Direction
	open      bool
	frames    int
}

func NewLine(sink io.Writer) *Line {
	return &Line{sink: sink, slaves: make(map[byte]*Slave)}
}

// AddSlave attaches a slave at address and returns its memory.
func (l *Line) AddSlave(address byte) *DataModel {
	m := NewDataModel()
	l.mu.Lock()
	l.slaves[address] = NewSlave(m)
	l.mu.Unlock()
	return m
}

func (l *Line) RemoveSlave(address byte) {
	l.mu.Lock()
	delete(l.slaves, address)
	l.mu.Unlock()
}

func (l *Line) Configure(cfg transport.LineConfig) error {
	l.mu.Lock()
	l.config = cfg
	l.open = true
	l.mu.Unlock()
	slog.Info("simulator: line configured", "line", cfg)
	return nil
}

// Config returns the line parameters last passed to Configure.
func (l *Line) Config() transport.LineConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config
}

func (l *Line) SetDirection(d transport.Direction) error {
	l.mu.Lock()
	l.direction = d
	l.mu.Unlock()
	return nil
}

func (l *Line) Transmit(p []byte, _ time.Duration) error {
	l.mu.Lock()
	if !l.open {
		l.mu.Unlock()
		return transport.ErrLineClosed
	}
	l.frames++
	adu, err := rtu.Decode(p)
	if err != nil {
		l.mu.Unlock()
		slog.Debug("simulator: dropping frame", "frame", hex.EncodeToString(p), "err", err)
		return nil
	}
	if adu.SlaveID == broadcastAddress {
		for _, s := range l.slaves {
			s.Process(adu.Pdu)
		}
		l.mu.Unlock()
		return nil
	}
	slave := l.slaves[adu.SlaveID]
	l.mu.Unlock()

	if slave == nil {
		return nil
	}
	resp := rtu.ApplicationDataUnit{SlaveID: adu.SlaveID, Pdu: slave.Process(adu.Pdu)}
	raw, err := resp.Encode()
	if err != nil {
		return err
	}
	_, err = l.sink.Write(raw)
	return err
}

// Frames returns the number of frames transmitted on the line.
func (l *Line) Frames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}

func (l *Line) Close() error {
	l.mu.Lock()
	l.open = false
	l.mu.Unlock()
	return nil
}
