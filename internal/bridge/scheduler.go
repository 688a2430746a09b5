// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ffutop/legacy-modbus-bridge/modbus/rtu"
)

// queuePopTimeout bounds the wait for queued writes after each pass.
const queuePopTimeout = 10 * time.Millisecond

// Scheduler polls the configured devices and drains the write queue
// between passes.
type Scheduler struct {
	engine   *Engine
	queue    *Queue
	clock    Clock
	observer Observer

	mu         sync.Mutex
	config     Config
	due        []time.Time
	generation uint64
}

func NewScheduler(engine *Engine, queue *Queue) *Scheduler {
	return &Scheduler{
		engine:   engine,
		queue:    queue,
		clock:    engine.clock,
		observer: engine.observer,
		config:   DefaultConfig(),
	}
}

// Load replaces the configuration and makes every device due immediately.
// The line is reconfigured even if the previous configuration matched. If
// the line rejects c, the running configuration is kept.
func (s *Scheduler) Load(c Config) error {
	if err := s.engine.Configure(c); err != nil {
		return err
	}
	s.mu.Lock()
	s.config = c
	s.due = make([]time.Time, len(c.Devices))
	s.generation++
	s.mu.Unlock()

	for i, d := range c.Devices {
		slog.Debug("bridge: config device", "index", i, "address", d.Address, "function", d.FunctionCode,
			"register", d.Register, "interval", d.Cycle.Interval(), "combine", d.Cycle.Combine,
			"high_low", d.Cycle.HighLow, "little_endian", d.Cycle.LittleEndian)
	}
	return nil
}

func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// NextDue returns when device i is polled next.
func (s *Scheduler) NextDue(i int) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.due) {
		return time.Time{}, false
	}
	return s.due[i], true
}

// RunOnce polls every due device, then forwards queued writes until the
// queue stays empty for queuePopTimeout. A reload during the pass ends the
// polling part early.
func (s *Scheduler) RunOnce() {
	s.mu.Lock()
	devices := s.config.Devices
	gen := s.generation
	s.mu.Unlock()

	for i, dev := range devices {
		now := s.clock.Now()
		s.mu.Lock()
		if s.generation != gen {
			s.mu.Unlock()
			break
		}
		if now.Before(s.due[i]) {
			s.mu.Unlock()
			continue
		}
		s.due[i] = now.Add(dev.Cycle.Interval())
		s.mu.Unlock()

		req := rtu.ReadRequest(dev.Address, dev.FunctionCode, dev.Register, dev.Cycle.Combine)
		s.transactWithRetry(uint8(i), dev, req)
	}

	for {
		frame, ok := s.queue.Pop(queuePopTimeout)
		if !ok {
			return
		}
		s.transactWithRetry(0, s.firstDevice(), frame)
	}
}

// Run loops until ctx is done. A running transaction always completes.
func (s *Scheduler) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		s.RunOnce()
	}
	return ctx.Err()
}

func (s *Scheduler) transactWithRetry(index uint8, dev Device, req []byte) {
	err := s.engine.Transact(index, dev, req)
	if err == nil {
		return
	}
	s.observer.Retry()
	slog.Debug("bridge: retrying", "index", index, "err", err)
	if err = s.engine.Transact(index, dev, req); err != nil {
		var te *TransactionError
		if errors.As(err, &te) {
			slog.Info("bridge: transaction failed", "index", index, "kind", te.Kind, "received", te.Received)
		}
	}
}

// firstDevice decodes queued write responses, which are reported for
// device 0.
func (s *Scheduler) firstDevice() Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.config.Devices) == 0 {
		return Device{}
	}
	return s.config.Devices[0]
}
