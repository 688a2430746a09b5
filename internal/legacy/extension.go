// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package legacy implements a device on the legacy CAN bus: address
// classification, the bus-wide control commands, the heartbeat and the
// firmware-update handshake. Device specific behaviour plugs in through
// Subsystem.
package legacy

import (
	"log/slog"
	"sync"
)

// OperationalState of the device as announced on the bus.
type OperationalState int

const (
	Offline OperationalState = iota
	Online
)

func (s OperationalState) String() string {
	if s == Online {
		return "online"
	}
	return "offline"
}

// Indicator is the status LED.
type Indicator interface {
	IdentifyOn()
	IdentifyOff()
	Sync(ticks uint32)
	SetSyncOffset(offset uint32)
}

// Resetter performs the hard device reset.
type Resetter interface {
	Reset()
}

// Subsystem is the device specific part of an extension.
type Subsystem interface {
	// HandleDirect is offered every direct frame before the generic
	// handling and reports whether it consumed it.
	HandleDirect(f Frame) bool

	// HandleFragment receives completed fragmented transfers.
	HandleFragment(frag Fragment)

	// StartRequest runs after every start announcement.
	StartRequest()
}

// State is a snapshot of the device runtime state.
type State struct {
	Operational     OperationalState
	Muted           bool
	Identified      bool
	ForceStart      bool
	AliveCountdown  int32
	Update          UpdateState
	IncomingVersion uint32
}

// Extension is the legacy protocol endpoint of one device.
type Extension struct {
	id        Identity
	sender    *Sender
	bus       Bus
	indicator Indicator
	resetter  Resetter
	sub       Subsystem

	mu             sync.Mutex
	state          OperationalState
	muted          bool
	identified     bool
	forceStart     bool
	aliveCountdown int32
	update         firmwareUpdate
	fragments      fragmentAssembler
}

// Option configures an Extension.
type Option func(*Extension)

func WithIndicator(i Indicator) Option { return func(e *Extension) { e.indicator = i } }

func WithResetter(r Resetter) Option { return func(e *Extension) { e.resetter = r } }

func WithSubsystem(s Subsystem) Option { return func(e *Extension) { e.sub = s } }

// NewExtension creates an offline device that announces itself on the
// first Tick.
func NewExtension(sender *Sender, bus Bus, opts ...Option) *Extension {
	e := &Extension{
		id:         sender.Identity(),
		sender:     sender,
		bus:        bus,
		indicator:  nopIndicator{},
		resetter:   nopResetter{},
		sub:        nopSubsystem{},
		state:      Offline,
		forceStart: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.indicator.IdentifyOff()
	return e
}

func (e *Extension) Identity() Identity {
	return e.id
}

func (e *Extension) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Operational:     e.state,
		Muted:           e.muted,
		Identified:      e.identified,
		ForceStart:      e.forceStart,
		AliveCountdown:  e.aliveCountdown,
		Update:          e.update.state,
		IncomingVersion: e.update.incomingVersion,
	}
}

// PageCRC returns the recorded CRC of a firmware page.
func (e *Extension) PageCRC(page int) (uint32, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if page < 0 || page >= FirmwarePages || !e.update.active() {
		return 0, false
	}
	return e.update.pageCRCs[page], true
}

// Receive dispatches one inbound frame. NAT frames and frames echoed from
// other devices are dropped, as is anything not addressed to this device.
func (e *Extension) Receive(f Frame) {
	if f.NAT || (f.Direction == FromDevice && f.Identifier != 0) {
		return
	}
	class := e.id.Classify(f.Identifier)
	if class != ClassNone {
		slog.Debug("legacy: received", "class", class, "frame", f)
	}
	switch class {
	case ClassBroadcast:
		e.broadcast(f)
	case ClassTypeMulticast:
		e.typeMulticast(f)
	case ClassDirect:
		if e.sub.HandleDirect(f) {
			return
		}
		e.direct(f)
	case ClassFromDevice, ClassFirmwareUpdate:
		// A device ignores its own announcements; update data for this
		// device type is not used by the configuration path.
	}
}

func (e *Extension) broadcast(f Frame) {
	switch f.Command {
	case CmdIdentifyLED:
		e.indicator.IdentifyOff()
	case CmdIdentifyUnknownExtensions:
		e.mu.Lock()
		e.muted = false
		if !e.identified {
			e.forceStart = true
		}
		e.mu.Unlock()
	case CmdExtensionOffline, CmdParkExtension:
		e.park()
	case CmdSyncTicks:
		e.indicator.Sync(f.Value32)
	case CmdSyncDateTime:
	}
}

func (e *Extension) typeMulticast(f Frame) {
	switch f.Command {
	case CmdSoftwareUpdateInit:
		e.mu.Lock()
		accepted := e.update.init(e.id, f)
		e.mu.Unlock()
		if accepted {
			slog.Info("legacy: firmware update accepted", "version", f.Value32, "forced", f.Value16 == ForcedMarker)
			e.sender.SendVersion(CmdAck)
		} else {
			slog.Info("legacy: firmware update rejected", "version", f.Value32, "min_hw", f.Value8)
			e.sender.SendVersion(CmdNak)
		}
	case CmdRebootAll:
		e.mu.Lock()
		e.muted = false
		e.update.cancel()
		e.mu.Unlock()
		if f.Value16 == ForcedMarker || f.Value32 != e.id.Version {
			slog.Warn("legacy: reboot requested", "version", f.Value32)
			e.resetter.Reset()
		}
	case CmdSoftwareUpdateVerify:
		e.mu.Lock()
		e.update.verify(e.id, f)
		e.mu.Unlock()
	case CmdSoftwareUpdatePageCRC:
		e.mu.Lock()
		ok := e.update.pageCRC(f)
		e.mu.Unlock()
		if !ok {
			slog.Debug("legacy: page crc dropped", "page", f.Value16)
		}
	case CmdMuteAll:
		e.mu.Lock()
		e.muted = true
		e.mu.Unlock()
	}
}

func (e *Extension) direct(f Frame) {
	switch f.Command {
	case CmdIdentify:
		e.mu.Lock()
		e.identified = true
		e.muted = false
		e.forceStart = true
		e.state = Online
		e.update.cancel()
		e.mu.Unlock()
	case CmdIdentifyLED:
		e.indicator.IdentifyOn()
	case CmdAlive:
		e.sender.SendVersion(CmdAliveReply)
	case CmdExtensionOffline, CmdParkExtension:
		e.park()
	case CmdLEDFlashPosition:
		e.indicator.SetSyncOffset(f.Value32)
	case CmdAliveReply:
	case CmdLinkDiagnosisRequest:
		c := e.bus.ErrorCounters()
		e.sender.Send(CmdLinkDiagnosisReply, 0, uint16(c.Receive&0x7F)+uint16(c.Transmit&0x7F)<<8, c.Total)
	case CmdMuteAll:
		e.mu.Lock()
		e.muted = true
		e.mu.Unlock()
	case CmdFragmentStart:
		e.mu.Lock()
		ok := e.fragments.start(f)
		e.mu.Unlock()
		if !ok {
			slog.Warn("legacy: fragmented transfer rejected", "size", f.Value16)
		}
	case CmdFragmentData:
		e.mu.Lock()
		frag, done := e.fragments.push(f)
		e.mu.Unlock()
		if done {
			slog.Debug("legacy: fragmented transfer complete", "command", frag.Command, "size", len(frag.Data), "checksum", frag.Checksum)
			e.sub.HandleFragment(frag)
		}
	}
}

func (e *Extension) park() {
	e.mu.Lock()
	e.muted = false
	e.identified = false
	e.state = Offline
	e.mu.Unlock()
}

type nopIndicator struct{}

func (nopIndicator) IdentifyOn()          {}
func (nopIndicator) IdentifyOff()         {}
func (nopIndicator) Sync(uint32)          {}
func (nopIndicator) SetSyncOffset(uint32) {}

type nopResetter struct{}

func (nopResetter) Reset() {}

type nopSubsystem struct{}

func (nopSubsystem) HandleDirect(Frame) bool { return false }
func (nopSubsystem) HandleFragment(Fragment) {}
func (nopSubsystem) StartRequest()           {}
