// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ffutop/legacy-modbus-bridge/modbus/crc"
)

func oneDeviceConfig() Config {
	c := DefaultConfig()
	c.Devices = []Device{{Address: 1, FunctionCode: 3, Register: 0x0010, Cycle: PollingCycle{Count: 10}}}
	return c
}

func TestSchedulerPollsOneDevice(t *testing.T) {
	h := newHarness(func(req []byte) []byte {
		return crc.Append([]byte{req[0], req[1], 0x02, 0x00, 0x07})
	})
	if err := h.scheduler.Load(oneDeviceConfig()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	start := h.clock.Now()

	h.scheduler.RunOnce()
	want := [][]byte{crc.Append([]byte{0x01, 0x03, 0x00, 0x10, 0x00, 0x01})}
	if diff := cmp.Diff(want, h.line.transmits); diff != "" {
		t.Fatalf("transmits mismatch (-want +got):\n%s", diff)
	}
	if due, _ := h.scheduler.NextDue(0); !due.Equal(start.Add(time.Second)) {
		t.Errorf("NextDue(0) = %v, want %v", due, start.Add(time.Second))
	}

	// Not due yet: only the transaction time has passed.
	h.scheduler.RunOnce()
	if len(h.line.transmits) != 1 {
		t.Fatalf("polled %d times before due", len(h.line.transmits))
	}

	h.clock.advance(time.Second)
	h.scheduler.RunOnce()
	if len(h.line.transmits) != 2 {
		t.Fatalf("polled %d times after due, want 2", len(h.line.transmits))
	}
	if diff := cmp.Diff([]sensorEvent{{0, 0x0700}, {0, 0x0700}}, h.reporter.sensors); diff != "" {
		t.Errorf("sensor values mismatch (-want +got):\n%s", diff)
	}
}

func TestSchedulerRetriesOnce(t *testing.T) {
	h := newHarness(nil)
	if err := h.scheduler.Load(oneDeviceConfig()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.scheduler.RunOnce()

	if len(h.line.transmits) != 2 {
		t.Errorf("transmitted %d times, want 2", len(h.line.transmits))
	}
	want := []debugEvent{{0x03, KindNoResponse, 0}, {0x03, KindNoResponse, 0}}
	if diff := cmp.Diff(want, h.reporter.debugs); diff != "" {
		t.Errorf("debug events mismatch (-want +got):\n%s", diff)
	}
	if h.observer.retries != 1 {
		t.Errorf("retries = %d, want 1", h.observer.retries)
	}
}

func TestSchedulerZeroCountPollsEveryPass(t *testing.T) {
	h := newHarness(nil)
	c := oneDeviceConfig()
	c.Devices[0].Cycle.Count = 0
	h.scheduler.Load(c)
	for i := 0; i < 3; i++ {
		h.scheduler.RunOnce()
	}
	if len(h.line.transmits) != 6 {
		t.Errorf("transmitted %d times, want 6", len(h.line.transmits))
	}
}

func TestSchedulerQueuedWrites(t *testing.T) {
	h := newHarness(echo)
	frame := crc.Append([]byte{0x05, 0x06, 0x00, 0x20, 0x12, 0x34})
	if err := h.queue.Push(context.Background(), frame); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if err := h.queue.Push(context.Background(), frame[:5]); !errors.Is(err, ErrIncompleteFrame) {
		t.Fatalf("Push(partial) error = %v, want ErrIncompleteFrame", err)
	}

	h.scheduler.RunOnce()
	if diff := cmp.Diff([][]byte{frame}, h.line.transmits); diff != "" {
		t.Fatalf("transmits mismatch (-want +got):\n%s", diff)
	}
	want := []debugEvent{{0x05, KindActorResponse, 0x34122000}}
	if diff := cmp.Diff(want, h.reporter.debugs); diff != "" {
		t.Errorf("debug events mismatch (-want +got):\n%s", diff)
	}
	if h.queue.Len() != 0 {
		t.Errorf("queue Len() = %d after drain", h.queue.Len())
	}
}

func TestSchedulerQueuedWriteRetry(t *testing.T) {
	h := newHarness(nil)
	frame := crc.Append([]byte{0x05, 0x06, 0x00, 0x20, 0x12, 0x34})
	h.queue.Push(context.Background(), frame)
	h.scheduler.RunOnce()
	if diff := cmp.Diff([][]byte{frame, frame}, h.line.transmits); diff != "" {
		t.Errorf("transmits mismatch (-want +got):\n%s", diff)
	}
}

func TestSchedulerLoadResetsSchedule(t *testing.T) {
	h := newHarness(nil)
	h.scheduler.Load(oneDeviceConfig())
	h.scheduler.RunOnce()
	if due, _ := h.scheduler.NextDue(0); due.IsZero() {
		t.Fatal("device not rescheduled")
	}

	h.scheduler.Load(oneDeviceConfig())
	if due, ok := h.scheduler.NextDue(0); !ok || !due.IsZero() {
		t.Errorf("NextDue(0) = %v, %v after reload, want immediately due", due, ok)
	}
	if len(h.line.configs) != 2 {
		t.Errorf("line configured %d times, want 2", len(h.line.configs))
	}
	if _, ok := h.scheduler.NextDue(1); ok {
		t.Error("NextDue(1) reported for a single device config")
	}
}

func TestSchedulerRunStops(t *testing.T) {
	h := newHarness(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.scheduler.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
