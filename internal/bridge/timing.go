// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bridge

import (
	"time"

	"github.com/ffutop/legacy-modbus-bridge/modbus/rtu"
	"github.com/ffutop/legacy-modbus-bridge/transport"
)

const (
	minLineTime = 5 * time.Millisecond
	maxLineTime = 10 * time.Second

	autoTimeout = time.Second

	// responsePoll is how often the receive buffer is checked while waiting
	// for a reply.
	responsePoll = 100 * time.Millisecond

	// turnaround is held after transmitting before releasing the line.
	turnaround = time.Millisecond
)

// Timing is derived from a Config each time one is loaded.
type Timing struct {
	CharacterTime time.Duration
	Pause         time.Duration
	Timeout       time.Duration
}

func DeriveTiming(c Config) Timing {
	t := Timing{
		CharacterTime: rtu.CharacterTime(c.Line.BaudRate, c.Line.DataBits, c.Line.Parity != transport.ParityNone, c.Line.TwoStopBits),
	}
	if c.ManualTiming {
		t.Pause = time.Duration(c.Pause) * time.Millisecond
		t.Timeout = time.Duration(c.Timeout) * time.Millisecond
	} else if c.Line.BaudRate > 0 {
		// 3.5 characters of 10 bits, in whole milliseconds.
		t.Pause = time.Duration((10*1000/c.Line.BaudRate)*35/10) * time.Millisecond
		t.Timeout = autoTimeout
	}
	t.Pause = clamp(t.Pause, minLineTime, maxLineTime)
	t.Timeout = clamp(t.Timeout, minLineTime, maxLineTime)
	return t
}

func clamp(d, lo, hi time.Duration) time.Duration {
	return max(lo, min(d, hi))
}
