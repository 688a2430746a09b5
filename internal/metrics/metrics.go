// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package metrics exports bridge counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ffutop/legacy-modbus-bridge/internal/bridge"
	"github.com/ffutop/legacy-modbus-bridge/modbus"
	"github.com/ffutop/legacy-modbus-bridge/transport/can"
)

const namespace = "legacybridge"

// Metrics implements bridge.Observer on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	transactions *prometheus.CounterVec
	failures     *prometheus.CounterVec
	retries      prometheus.Counter
	rejected     prometheus.Counter
	canFrames    *prometheus.CounterVec
}

var _ bridge.Observer = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "modbus",
			Name:      "transactions_total",
			Help:      "Modbus transactions started, by function code.",
		}, []string{"function"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "modbus",
			Name:      "transaction_errors_total",
			Help:      "Modbus transactions that failed validation, by error kind.",
		}, []string{"kind"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "modbus",
			Name:      "retries_total",
			Help:      "Modbus transactions repeated after a failure.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_rejected_total",
			Help:      "Configuration blobs rejected by validation.",
		}),
		canFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "can",
			Name:      "frames_total",
			Help:      "CAN frames handled, by direction.",
		}, []string{"direction"}),
	}
	m.registry.MustRegister(m.transactions, m.failures, m.retries, m.rejected, m.canFrames)
	return m
}

func (m *Metrics) Transaction(functionCode byte) {
	m.transactions.WithLabelValues(modbus.FunctionName(functionCode)).Inc()
}

func (m *Metrics) TransactionFailed(kind bridge.ErrorKind) {
	m.failures.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) Retry() { m.retries.Inc() }

func (m *Metrics) ConfigRejected() { m.rejected.Inc() }

// ReceiveOverflow exports the byte count dropped by a full receive buffer.
func (m *Metrics) ReceiveOverflow(overflow func() uint64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "modbus",
		Name:      "receive_overflow_bytes",
		Help:      "Bytes dropped because the receive buffer was full.",
	}, func() float64 { return float64(overflow()) }))
}

// CANErrors exports the error counters of bus.
func (m *Metrics) CANErrors(bus can.Bus) {
	gauge := func(name, help string, value func(can.ErrorCounters) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "can",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(bus.ErrorCounters()) })
	}
	m.registry.MustRegister(
		gauge("receive_errors", "CAN receive error counter.", func(c can.ErrorCounters) float64 { return float64(c.Receive) }),
		gauge("transmit_errors", "CAN transmit error counter.", func(c can.ErrorCounters) float64 { return float64(c.Transmit) }),
		gauge("errors", "CAN errors seen since start.", func(c can.ErrorCounters) float64 { return float64(c.Total) }),
	)
}

// CountFrames wraps bus so that every frame sent or received is counted.
func (m *Metrics) CountFrames(bus can.Bus) can.Bus {
	return &countingBus{
		Bus: bus,
		rx:  m.canFrames.WithLabelValues("receive"),
		tx:  m.canFrames.WithLabelValues("transmit"),
	}
}

type countingBus struct {
	can.Bus
	rx, tx prometheus.Counter
}

func (b *countingBus) Send(f can.Frame) error {
	err := b.Bus.Send(f)
	if err == nil {
		b.tx.Inc()
	}
	return err
}

func (b *countingBus) Receive() (can.Frame, error) {
	f, err := b.Bus.Receive()
	if err == nil {
		b.rx.Inc()
	}
	return f, err
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("metrics: listening", "addr", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
