// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ffutop/legacy-modbus-bridge/internal/legacy"
)

// pushTimeout bounds how long a CAN write waits for room in the queue.
const pushTimeout = time.Second

// ConfigStore persists accepted configuration blobs.
type ConfigStore interface {
	Save(blob []byte) error
}

// Bridge is the Modbus subsystem of the legacy extension.
type Bridge struct {
	sender    *legacy.Sender
	scheduler *Scheduler
	queue     *Queue
	store     ConfigStore
	observer  Observer
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithConfigStore saves every accepted configuration to s.
func WithConfigStore(s ConfigStore) Option { return func(b *Bridge) { b.store = s } }

func New(sender *legacy.Sender, scheduler *Scheduler, queue *Queue, opts ...Option) *Bridge {
	b := &Bridge{
		sender:    sender,
		scheduler: scheduler,
		queue:     queue,
		observer:  scheduler.observer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HandleDirect queues Modbus write commands. Everything else is left to the
// extension.
func (b *Bridge) HandleDirect(f legacy.Frame) bool {
	if !IsWriteCommand(f.Command) {
		return false
	}
	frame, err := WriteFrame(f.Command, f.Payload())
	if err != nil {
		slog.Warn("bridge: write command", "command", f.Command, "err", err)
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := b.queue.Push(ctx, frame); err != nil {
		slog.Warn("bridge: write command dropped", "command", f.Command, "err", err)
	}
	return true
}

// HandleFragment applies configuration transfers.
func (b *Bridge) HandleFragment(frag legacy.Fragment) {
	if frag.Command != legacy.FragmentConfig {
		slog.Debug("bridge: ignoring fragment", "command", frag.Command, "size", len(frag.Data))
		return
	}
	if err := b.ApplyConfig(frag.Data); err != nil {
		slog.Warn("bridge: config rejected", "size", len(frag.Data), "err", err)
	}
}

// ApplyConfig validates and loads blob, then persists it. An invalid blob
// leaves the running configuration untouched.
func (b *Bridge) ApplyConfig(blob []byte) error {
	if err := b.load(blob); err != nil {
		return err
	}
	if b.store != nil {
		if err := b.store.Save(blob); err != nil {
			return fmt.Errorf("bridge: save config: %w", err)
		}
	}
	return nil
}

// Restore loads a previously persisted blob without saving it again.
func (b *Bridge) Restore(blob []byte) error {
	return b.load(blob)
}

func (b *Bridge) load(blob []byte) error {
	c, err := ParseConfig(blob)
	if err != nil {
		b.observer.ConfigRejected()
		return err
	}
	if err := b.scheduler.Load(c); err != nil {
		b.observer.ConfigRejected()
		return err
	}
	slog.Info("bridge: config loaded", "devices", len(c.Devices), "line", c.Line, "manual_timing", c.ManualTiming)
	return nil
}

// StartRequest announces the configuration version, without which the
// server treats the extension as offline.
func (b *Bridge) StartRequest() {
	b.sender.Send(legacy.CmdConfigCheckCRC, 0, ConfigVersion, 0)
}

func (b *Bridge) Scheduler() *Scheduler {
	return b.scheduler
}
