// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package legacy

import "time"

// TickPeriod is the interval Tick must be called at.
const TickPeriod = 10 * time.Millisecond

// Tick advances the heartbeat by one TickPeriod. A pending start
// announcement wins over a due heartbeat; both reseed the countdown.
func (e *Extension) Tick() {
	var cmd Command

	e.mu.Lock()
	switch {
	case e.forceStart:
		e.forceStart = false
		e.aliveCountdown = e.id.AliveInterval()
		cmd = CmdStartRequest
	case e.aliveCountdown <= 0:
		e.aliveCountdown = e.id.AliveInterval()
		cmd = CmdAlive
	}
	e.aliveCountdown -= int32(TickPeriod / time.Millisecond)
	e.mu.Unlock()

	switch cmd {
	case CmdStartRequest:
		e.sender.SendVersion(CmdStartRequest)
		e.sub.StartRequest()
	case CmdAlive:
		e.sender.SendVersion(CmdAlive)
	}
}
