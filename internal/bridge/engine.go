// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package bridge is the Modbus RTU master behind the legacy extension: it
// polls the configured slaves, forwards CAN write commands and reports the
// results back to the bus.
package bridge

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ffutop/legacy-modbus-bridge/modbus/rtu"
	"github.com/ffutop/legacy-modbus-bridge/transport"
)

// Clock abstracts time for the engine and scheduler.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Observer is notified of transaction outcomes, typically for metrics.
type Observer interface {
	Transaction(functionCode byte)
	TransactionFailed(kind ErrorKind)
	Retry()
	ConfigRejected()
}

type nopObserver struct{}

func (nopObserver) Transaction(byte)            {}
func (nopObserver) TransactionFailed(ErrorKind) {}
func (nopObserver) Retry()                      {}
func (nopObserver) ConfigRejected()             {}

// Engine performs one half-duplex exchange at a time on a line.
type Engine struct {
	line     transport.Line
	rx       *transport.RxBuffer
	reporter Reporter
	clock    Clock
	observer Observer

	mu     sync.Mutex
	timing Timing
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

func WithClock(c Clock) EngineOption { return func(e *Engine) { e.clock = c } }

func WithObserver(o Observer) EngineOption { return func(e *Engine) { e.observer = o } }

// NewEngine creates an engine for line. The line must write received bytes
// into rx.
func NewEngine(line transport.Line, rx *transport.RxBuffer, reporter Reporter, opts ...EngineOption) *Engine {
	e := &Engine{
		line:     line,
		rx:       rx,
		reporter: reporter,
		clock:    SystemClock,
		observer: nopObserver{},
		timing:   DeriveTiming(DefaultConfig()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Configure reconfigures the line and applies the timing of c. A line that
// rejects the settings leaves the previous timing in place.
func (e *Engine) Configure(c Config) error {
	if err := e.line.Configure(c.Line); err != nil {
		return fmt.Errorf("bridge: configure line: %w", err)
	}
	t := DeriveTiming(c)
	e.mu.Lock()
	e.timing = t
	e.mu.Unlock()
	slog.Info("bridge: line setup", "line", c.Line, "pause", t.Pause, "timeout", t.Timeout, "char_time", t.CharacterTime)
	return nil
}

func (e *Engine) Timing() Timing {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timing
}

// Transact sends req and reports the outcome for device index. The pause
// between transactions is observed on success and failure alike.
func (e *Engine) Transact(index uint8, dev Device, req []byte) error {
	t := e.Timing()
	err := e.transact(t, index, dev, req)
	e.clock.Sleep(t.Pause)
	e.rx.Reset()
	return err
}

func (e *Engine) transact(t Timing, index uint8, dev Device, req []byte) error {
	e.observer.Transaction(req[1])
	e.rx.Reset()

	slog.Debug("bridge: send to modbus slave", "request", hex.EncodeToString(req))
	if err := e.line.SetDirection(transport.Transmit); err != nil {
		slog.Warn("bridge: set transmit direction", "err", err)
	}
	if err := e.line.Transmit(req, rtu.TransmitTimeout(len(req), t.CharacterTime)); err != nil {
		slog.Warn("bridge: transmit failed", "err", err)
	}
	e.clock.Sleep(turnaround)
	if err := e.line.SetDirection(transport.Receive); err != nil {
		slog.Warn("bridge: set receive direction", "err", err)
	}

	for waited := time.Duration(0); waited < t.Timeout; waited += responsePoll {
		e.clock.Sleep(responsePoll)
		if e.rx.Len() > 0 {
			break
		}
	}

	resp := e.rx.Bytes()
	slog.Debug("bridge: recv from modbus slave", "response", hex.EncodeToString(resp))
	if err := rtu.CheckResponse(req, resp); err != nil {
		kind := kindOf(err)
		e.observer.TransactionFailed(kind)
		e.reporter.Debug(req[1], kind, uint32(len(resp)))
		return &TransactionError{Kind: kind, Received: len(resp), Err: err}
	}
	decodeResponse(index, dev, resp, e.reporter)
	return nil
}
