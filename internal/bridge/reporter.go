// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bridge

import (
	"github.com/ffutop/legacy-modbus-bridge/internal/legacy"
)

// Reporter receives the outcome of Modbus transactions.
type Reporter interface {
	// SensorValue reports a decoded value for a configured device.
	SensorValue(index uint8, value uint32)

	// Debug reports an error or an actor response.
	Debug(code uint8, kind ErrorKind, value uint32)
}

// CANReporter forwards results to the legacy bus.
type CANReporter struct {
	sender *legacy.Sender
}

func NewCANReporter(sender *legacy.Sender) *CANReporter {
	return &CANReporter{sender: sender}
}

func (r *CANReporter) SensorValue(index uint8, value uint32) {
	r.sender.Send(legacy.CmdModbusSensorValue, index, 0, value)
}

func (r *CANReporter) Debug(code uint8, kind ErrorKind, value uint32) {
	r.sender.Send(legacy.CmdDebug, code, uint16(kind), value)
}
