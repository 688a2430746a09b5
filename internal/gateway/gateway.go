// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package gateway wires a legacy CAN extension to the Modbus bridge and
// runs it.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ffutop/legacy-modbus-bridge/internal/bridge"
	"github.com/ffutop/legacy-modbus-bridge/internal/config"
	"github.com/ffutop/legacy-modbus-bridge/internal/legacy"
	"github.com/ffutop/legacy-modbus-bridge/internal/metrics"
	"github.com/ffutop/legacy-modbus-bridge/internal/persistence"
	"github.com/ffutop/legacy-modbus-bridge/transport"
	"github.com/ffutop/legacy-modbus-bridge/transport/can"
)

// ErrReboot is returned by Run when the bus requested a device reset. The
// supervisor is expected to restart the process.
var ErrReboot = errors.New("gateway: reboot requested")

// Gateway represents a single bridge device.
type Gateway struct {
	cfg *config.Config

	bus     can.Bus
	line    transport.Line
	rx      *transport.RxBuffer
	storage persistence.Storage
	metrics *metrics.Metrics

	ext    *legacy.Extension
	bridge *bridge.Bridge

	reboot     chan struct{}
	rebootOnce sync.Once
}

// Option overrides a component that would otherwise be built from the
// configuration.
type Option func(*Gateway)

// WithBus uses bus instead of opening the configured CAN transport.
func WithBus(bus can.Bus) Option { return func(g *Gateway) { g.bus = bus } }

// WithLine uses line, which must write received bytes to rx.
func WithLine(line transport.Line, rx *transport.RxBuffer) Option {
	return func(g *Gateway) { g.line, g.rx = line, rx }
}

func WithStorage(s persistence.Storage) Option { return func(g *Gateway) { g.storage = s } }

// New builds the gateway and opens its transports.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Gateway, error) {
	g := &Gateway{cfg: cfg, reboot: make(chan struct{})}
	for _, opt := range opts {
		opt(g)
	}

	var err error
	if g.storage == nil {
		if g.storage, err = persistence.Open(cfg.Persistence.Type, cfg.Persistence.Path); err != nil {
			return nil, err
		}
	}
	if g.rx == nil {
		g.rx = transport.NewRxBuffer(cfg.Serial.ReceiveBuffer)
	}
	if g.line == nil {
		if g.line, err = openLine(cfg.Serial, g.rx); err != nil {
			return nil, err
		}
	}
	if g.bus == nil {
		if g.bus, err = openBus(ctx, cfg.CAN); err != nil {
			g.line.Close()
			return nil, err
		}
	}

	observer := bridge.Observer(nil)
	if cfg.Metrics.Listen != "" {
		g.metrics = metrics.New()
		g.metrics.CANErrors(g.bus)
		g.metrics.ReceiveOverflow(g.rx.Overflow)
		g.bus = g.metrics.CountFrames(g.bus)
		observer = g.metrics
	}

	legacyBus := legacy.CANBus{Bus: g.bus}
	id := legacy.NewIdentity(cfg.Device.Serial, legacy.DeviceTypeModbusExtension, cfg.Device.HardwareRevision, cfg.Device.FirmwareVersion)
	sender := legacy.NewSender(id, legacyBus)

	var engineOpts []bridge.EngineOption
	if observer != nil {
		engineOpts = append(engineOpts, bridge.WithObserver(observer))
	}
	engine := bridge.NewEngine(g.line, g.rx, bridge.NewCANReporter(sender), engineOpts...)

	queue := bridge.NewQueue(bridge.DefaultQueueSize)
	scheduler := bridge.NewScheduler(engine, queue)
	g.bridge = bridge.New(sender, scheduler, queue, bridge.WithConfigStore(g.storage))
	g.ext = legacy.NewExtension(sender, legacyBus,
		legacy.WithSubsystem(g.bridge),
		legacy.WithResetter(resetFunc(g.requestReboot)),
		legacy.WithIndicator(logIndicator{}),
	)
	return g, nil
}

// Extension returns the legacy protocol endpoint.
func (g *Gateway) Extension() *legacy.Extension { return g.ext }

func (g *Gateway) Bridge() *bridge.Bridge { return g.bridge }

// Restore loads the last accepted configuration from storage. Without a
// saved one the default configuration stays active.
func (g *Gateway) Restore() error {
	blob, err := g.storage.Load()
	if err != nil {
		return fmt.Errorf("failed to load saved config: %w", err)
	}
	if blob == nil {
		slog.Info("gateway: no saved config, using defaults")
		return g.bridge.Scheduler().Load(bridge.DefaultConfig())
	}
	if err := g.bridge.Restore(blob); err != nil {
		return fmt.Errorf("saved config rejected: %w", err)
	}
	slog.Info("gateway: restored config", "devices", len(g.bridge.Scheduler().Config().Devices))
	return nil
}

// Run starts the CAN receive loop, the heartbeat and the Modbus loop and
// blocks until ctx is done or a reboot is requested.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.Restore(); err != nil {
		slog.Error("gateway: restore failed", "err", err)
		if err := g.bridge.Scheduler().Load(bridge.DefaultConfig()); err != nil {
			slog.Error("gateway: could not configure line", "err", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("gateway: loop stopped", "loop", name, "err", err)
				cancel()
			}
		}()
	}
	run("can", g.receiveLoop)
	run("heartbeat", g.heartbeatLoop)
	run("modbus", g.bridge.Scheduler().Run)
	if g.metrics != nil {
		run("metrics", func(ctx context.Context) error { return g.metrics.Serve(ctx, g.cfg.Metrics.Listen) })
	}

	rebooting := false
	select {
	case <-ctx.Done():
	case <-g.reboot:
		rebooting = true
		slog.Warn("gateway: reboot requested")
	}
	cancel()

	// Closing the transports unblocks the receive loop.
	g.bus.Close()
	wg.Wait()
	g.line.Close()
	g.storage.Close()

	if rebooting {
		return ErrReboot
	}
	return nil
}

func (g *Gateway) receiveLoop(ctx context.Context) error {
	bus := legacy.CANBus{Bus: g.bus}
	for {
		f, err := bus.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		g.ext.Receive(f)
	}
}

func (g *Gateway) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(legacy.TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			g.ext.Tick()
		}
	}
}

func (g *Gateway) requestReboot() {
	g.rebootOnce.Do(func() { close(g.reboot) })
}

type resetFunc func()

func (f resetFunc) Reset() { f() }

// logIndicator shows the status LED in the log.
type logIndicator struct{}

func (logIndicator) IdentifyOn()  { slog.Info("gateway: identify on") }
func (logIndicator) IdentifyOff() { slog.Debug("gateway: identify off") }

func (logIndicator) Sync(ticks uint32) { slog.Debug("gateway: sync", "ticks", ticks) }

func (logIndicator) SetSyncOffset(offset uint32) {
	slog.Debug("gateway: sync offset", "offset", offset)
}
