// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package legacy

import (
	"log/slog"

	"github.com/ffutop/legacy-modbus-bridge/transport/can"
)

// Bus is the CAN side as seen by an extension.
type Bus interface {
	Send(f Frame) error
	ErrorCounters() can.ErrorCounters
}

// Sender emits frames on behalf of one device.
type Sender struct {
	id  Identity
	bus Bus
}

func NewSender(id Identity, bus Bus) *Sender {
	return &Sender{id: id, bus: bus}
}

// Send transmits a from-device frame addressed with the device serial.
// Transmit failures are logged; the legacy bus has no acknowledgement.
func (s *Sender) Send(cmd Command, val8 uint8, val16 uint16, val32 uint32) error {
	f := Frame{
		Identifier: s.id.Serial,
		Direction:  FromDevice,
		Command:    cmd,
		Value8:     val8,
		Value16:    val16,
		Value32:    val32,
	}
	if err := s.bus.Send(f); err != nil {
		slog.Warn("legacy: send failed", "command", cmd, "err", err)
		return err
	}
	return nil
}

// SendVersion transmits cmd carrying the running firmware version.
func (s *Sender) SendVersion(cmd Command) error {
	return s.Send(cmd, 0, 0, s.id.Version)
}

func (s *Sender) Identity() Identity {
	return s.id
}

// CANBus adapts a raw CAN bus to the legacy frame format.
type CANBus struct {
	can.Bus
}

func (b CANBus) Send(f Frame) error {
	return b.Bus.Send(f.MarshalCAN())
}

// Receive returns the next frame that decodes as a legacy frame; anything
// else on the bus is skipped.
func (b CANBus) Receive() (Frame, error) {
	for {
		cf, err := b.Bus.Receive()
		if err != nil {
			return Frame{}, err
		}
		f, err := UnmarshalCAN(cf)
		if err != nil {
			slog.Debug("legacy: skipping frame", "frame", cf, "err", err)
			continue
		}
		return f, nil
	}
}
