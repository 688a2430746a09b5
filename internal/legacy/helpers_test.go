// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package legacy

import (
	"sync"

	"github.com/ffutop/legacy-modbus-bridge/transport/can"
)

const (
	testSerial  = 0x123456
	testVersion = 10020326
)

type mockBus struct {
	mu       sync.Mutex
	sent     []Frame
	counters can.ErrorCounters
}

func (b *mockBus) Send(f Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, f)
	return nil
}

func (b *mockBus) ErrorCounters() can.ErrorCounters {
	return b.counters
}

func (b *mockBus) frames() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Frame(nil), b.sent...)
}

func (b *mockBus) commands() []Command {
	var cmds []Command
	for _, f := range b.frames() {
		cmds = append(cmds, f.Command)
	}
	return cmds
}

func (b *mockBus) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = nil
}

type mockIndicator struct {
	identify   bool
	syncTicks  uint32
	syncOffset uint32
	calls      int
}

func (m *mockIndicator) IdentifyOn()                 { m.identify = true; m.calls++ }
func (m *mockIndicator) IdentifyOff()                { m.identify = false; m.calls++ }
func (m *mockIndicator) Sync(ticks uint32)           { m.syncTicks = ticks; m.calls++ }
func (m *mockIndicator) SetSyncOffset(offset uint32) { m.syncOffset = offset; m.calls++ }

type mockResetter struct {
	resets int
}

func (m *mockResetter) Reset() { m.resets++ }

type mockSubsystem struct {
	consume   map[Command]bool
	direct    []Frame
	fragments []Fragment
	starts    int
}

func (m *mockSubsystem) HandleDirect(f Frame) bool {
	if m.consume[f.Command] {
		m.direct = append(m.direct, f)
		return true
	}
	return false
}

func (m *mockSubsystem) HandleFragment(frag Fragment) { m.fragments = append(m.fragments, frag) }

func (m *mockSubsystem) StartRequest() { m.starts++ }

type fixture struct {
	ext       *Extension
	bus       *mockBus
	indicator *mockIndicator
	resetter  *mockResetter
	sub       *mockSubsystem
}

func newFixture() *fixture {
	id := NewIdentity(testSerial, DeviceTypeModbusExtension, 0, testVersion)
	fx := &fixture{
		bus:       &mockBus{},
		indicator: &mockIndicator{},
		resetter:  &mockResetter{},
		sub:       &mockSubsystem{consume: map[Command]bool{}},
	}
	fx.ext = NewExtension(NewSender(id, fx.bus), fx.bus,
		WithIndicator(fx.indicator),
		WithResetter(fx.resetter),
		WithSubsystem(fx.sub),
	)
	return fx
}

func (fx *fixture) broadcast(cmd Command, v8 uint8, v16 uint16, v32 uint32) {
	fx.ext.Receive(Frame{Identifier: 0, Command: cmd, Value8: v8, Value16: v16, Value32: v32})
}

func (fx *fixture) multicast(cmd Command, v8 uint8, v16 uint16, v32 uint32) {
	id := uint32(fx.ext.Identity().Type) << 24
	fx.ext.Receive(Frame{Identifier: id, Command: cmd, Value8: v8, Value16: v16, Value32: v32})
}

func (fx *fixture) direct(cmd Command, v8 uint8, v16 uint16, v32 uint32) {
	id := fx.ext.Identity().Serial | 0x10000000
	fx.ext.Receive(Frame{Identifier: id, Command: cmd, Value8: v8, Value16: v16, Value32: v32})
}
