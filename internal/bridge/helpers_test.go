// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bridge

import (
	"sync"
	"time"

	"github.com/ffutop/legacy-modbus-bridge/internal/legacy"
	"github.com/ffutop/legacy-modbus-bridge/modbus/crc"
	"github.com/ffutop/legacy-modbus-bridge/transport"
	"github.com/ffutop/legacy-modbus-bridge/transport/can"
)

// fakeClock advances only when slept on.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// mockLine answers each transmitted frame through respond, writing the
// reply straight into the receive buffer.
type mockLine struct {
	rx      *transport.RxBuffer
	respond func(req []byte) []byte
	// reject, if set, decides whether Configure fails.
	reject func(cfg transport.LineConfig) error

	transmits  [][]byte
	timeouts   []time.Duration
	directions []transport.Direction
	configs    []transport.LineConfig
}

func (l *mockLine) Configure(cfg transport.LineConfig) error {
	if l.reject != nil {
		if err := l.reject(cfg); err != nil {
			return err
		}
	}
	l.configs = append(l.configs, cfg)
	return nil
}

func (l *mockLine) SetDirection(d transport.Direction) error {
	l.directions = append(l.directions, d)
	return nil
}

func (l *mockLine) Transmit(p []byte, timeout time.Duration) error {
	l.transmits = append(l.transmits, append([]byte(nil), p...))
	l.timeouts = append(l.timeouts, timeout)
	if l.respond != nil {
		if resp := l.respond(p); len(resp) > 0 {
			l.rx.Write(resp)
		}
	}
	return nil
}

func (l *mockLine) Close() error { return nil }

// echo answers like a slave that acknowledges writes by echoing the first
// six bytes of the request.
func echo(req []byte) []byte {
	return crc.Append(append([]byte(nil), req[:6]...))
}

type sensorEvent struct {
	Index uint8
	Value uint32
}

type debugEvent struct {
	Code  uint8
	Kind  ErrorKind
	Value uint32
}

type recordingReporter struct {
	sensors []sensorEvent
	debugs  []debugEvent
}

func (r *recordingReporter) SensorValue(index uint8, value uint32) {
	r.sensors = append(r.sensors, sensorEvent{index, value})
}

func (r *recordingReporter) Debug(code uint8, kind ErrorKind, value uint32) {
	r.debugs = append(r.debugs, debugEvent{code, kind, value})
}

type recordingObserver struct {
	transactions int
	failures     map[ErrorKind]int
	retries      int
	rejected     int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{failures: map[ErrorKind]int{}}
}

func (o *recordingObserver) Transaction(byte)                 { o.transactions++ }
func (o *recordingObserver) TransactionFailed(kind ErrorKind) { o.failures[kind]++ }
func (o *recordingObserver) Retry()                           { o.retries++ }
func (o *recordingObserver) ConfigRejected()                  { o.rejected++ }

type recordingBus struct {
	mu   sync.Mutex
	sent []legacy.Frame
}

func (b *recordingBus) Send(f legacy.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, f)
	return nil
}

func (b *recordingBus) ErrorCounters() can.ErrorCounters { return can.ErrorCounters{} }

func (b *recordingBus) frames() []legacy.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]legacy.Frame(nil), b.sent...)
}

type harness struct {
	clock     *fakeClock
	line      *mockLine
	rx        *transport.RxBuffer
	reporter  *recordingReporter
	observer  *recordingObserver
	engine    *Engine
	queue     *Queue
	scheduler *Scheduler
}

func newHarness(respond func([]byte) []byte) *harness {
	h := &harness{
		clock:    newFakeClock(),
		rx:       transport.NewRxBuffer(transport.DefaultRxBufferSize),
		reporter: &recordingReporter{},
		observer: newRecordingObserver(),
		queue:    NewQueue(4),
	}
	h.line = &mockLine{rx: h.rx, respond: respond}
	h.engine = NewEngine(h.line, h.rx, h.reporter, WithClock(h.clock), WithObserver(h.observer))
	h.scheduler = NewScheduler(h.engine, h.queue)
	return h
}
