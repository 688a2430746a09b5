// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bridge

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ffutop/legacy-modbus-bridge/modbus/crc"
	"github.com/ffutop/legacy-modbus-bridge/modbus/rtu"
	"github.com/ffutop/legacy-modbus-bridge/transport"
)

func TestEngineTransact(t *testing.T) {
	h := newHarness(func(req []byte) []byte {
		return crc.Append([]byte{req[0], req[1], 0x02, 0x00, 0x2A})
	})
	dev := Device{Address: 1, FunctionCode: 3, Register: 0x10, Cycle: PollingCycle{LittleEndian: true}}
	req := rtu.ReadRequest(dev.Address, dev.FunctionCode, dev.Register, false)

	if err := h.engine.Transact(4, dev, req); err != nil {
		t.Fatalf("Transact failed: %v", err)
	}
	if diff := cmp.Diff([]sensorEvent{{4, 0x002A}}, h.reporter.sensors); diff != "" {
		t.Errorf("sensor values mismatch (-want +got):\n%s", diff)
	}
	if len(h.reporter.debugs) != 0 {
		t.Errorf("unexpected debug events: %v", h.reporter.debugs)
	}

	if diff := cmp.Diff([]transport.Direction{transport.Transmit, transport.Receive}, h.line.directions); diff != "" {
		t.Errorf("directions mismatch (-want +got):\n%s", diff)
	}
	if want := 2 * 8 * 1041 * time.Microsecond; h.line.timeouts[0] != want {
		t.Errorf("transmit timeout = %v, want %v", h.line.timeouts[0], want)
	}
	// Turnaround, one receive poll, pause.
	wantSleeps := []time.Duration{time.Millisecond, 100 * time.Millisecond, 5 * time.Millisecond}
	if diff := cmp.Diff(wantSleeps, h.clock.slept); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
	if h.rx.Len() != 0 {
		t.Error("receive buffer not cleared after transaction")
	}
	if h.observer.transactions != 1 {
		t.Errorf("observed %d transactions", h.observer.transactions)
	}
}

func TestEngineValidation(t *testing.T) {
	req := rtu.ReadRequest(1, 3, 0x10, false)
	tests := []struct {
		name     string
		resp     []byte
		kind     ErrorKind
		received int
		want     error
	}{
		{"NoResponse", nil, KindNoResponse, 0, rtu.ErrNoResponse},
		{"Short", []byte{0x01, 0x03, 0x02, 0x00}, KindInvalidReceiveLength, 4, rtu.ErrShortResponse},
		{"CRC", []byte{0x01, 0x03, 0x02, 0x00, 0x2A, 0x00, 0x00}, KindCRCError, 7, rtu.ErrCRCMismatch},
		{"Address", crc.Append([]byte{0x02, 0x03, 0x02, 0x00, 0x2A}), KindInvalidResponse, 7, rtu.ErrResponseMismatch},
		{"Function", crc.Append([]byte{0x01, 0x83, 0x02}), KindInvalidResponse, 5, rtu.ErrResponseMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(func([]byte) []byte { return tt.resp })
			err := h.engine.Transact(0, Device{Address: 1, FunctionCode: 3}, req)

			var te *TransactionError
			if !errors.As(err, &te) {
				t.Fatalf("Transact() error = %v, want TransactionError", err)
			}
			if te.Kind != tt.kind || te.Received != tt.received {
				t.Errorf("TransactionError = %+v, want kind %v received %d", te, tt.kind, tt.received)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Transact() error = %v, want %v", err, tt.want)
			}
			want := []debugEvent{{0x03, tt.kind, uint32(tt.received)}}
			if diff := cmp.Diff(want, h.reporter.debugs); diff != "" {
				t.Errorf("debug events mismatch (-want +got):\n%s", diff)
			}
			if len(h.reporter.sensors) != 0 {
				t.Errorf("unexpected sensor values: %v", h.reporter.sensors)
			}
			if h.observer.failures[tt.kind] != 1 {
				t.Errorf("observer failures = %v", h.observer.failures)
			}
		})
	}
}

func TestEngineWaitsFullTimeout(t *testing.T) {
	h := newHarness(nil)
	start := h.clock.Now()
	h.engine.Transact(0, Device{}, rtu.ReadRequest(1, 3, 0, false))

	// 1ms turnaround, ten 100ms polls, 5ms pause.
	if got := h.clock.Now().Sub(start); got != 1006*time.Millisecond {
		t.Errorf("transaction took %v, want 1.006s", got)
	}
}

func TestEngineConfigure(t *testing.T) {
	h := newHarness(nil)
	c := Config{
		Line:         transport.LineConfig{BaudRate: 19200, DataBits: 8, Parity: transport.ParityEven},
		ManualTiming: true,
		Pause:        20,
		Timeout:      300,
	}
	if err := h.engine.Configure(c); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if diff := cmp.Diff([]transport.LineConfig{c.Line}, h.line.configs); diff != "" {
		t.Errorf("line configs mismatch (-want +got):\n%s", diff)
	}
	want := Timing{CharacterTime: 572 * time.Microsecond, Pause: 20 * time.Millisecond, Timeout: 300 * time.Millisecond}
	if got := h.engine.Timing(); got != want {
		t.Errorf("Timing() = %+v, want %+v", got, want)
	}

	start := h.clock.Now()
	h.engine.Transact(0, Device{}, rtu.ReadRequest(1, 3, 0, false))
	if got := h.clock.Now().Sub(start); got != 321*time.Millisecond {
		t.Errorf("transaction took %v, want 321ms", got)
	}
}
