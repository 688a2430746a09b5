// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package legacy

// FirmwarePages is the size of the per-page CRC table.
const FirmwarePages = 128

// UpdateState is the firmware-update handshake state.
type UpdateState int

const (
	UpdateIdle UpdateState = iota
	UpdateAccepted
	UpdateVerifying
	UpdatePageCollecting
)

func (s UpdateState) String() string {
	switch s {
	case UpdateAccepted:
		return "accepted"
	case UpdateVerifying:
		return "verifying"
	case UpdatePageCollecting:
		return "page-collecting"
	}
	return "idle"
}

// firmwareUpdate is bookkeeping only: image pages are stored elsewhere and
// the device never resets from here.
type firmwareUpdate struct {
	state           UpdateState
	incomingVersion uint32
	pageCRCs        [FirmwarePages]uint32
}

func (u *firmwareUpdate) active() bool {
	return u.state != UpdateIdle
}

func (u *firmwareUpdate) cancel() {
	*u = firmwareUpdate{}
}

// init handles software_update_init and reports whether it was accepted.
// Any running session is discarded first.
func (u *firmwareUpdate) init(id Identity, f Frame) bool {
	u.cancel()
	if f.Value8 > id.HardwareRevision {
		return false
	}
	if f.Value16 != ForcedMarker && f.Value32 == id.Version {
		return false
	}
	u.state = UpdateAccepted
	return true
}

func (u *firmwareUpdate) verify(id Identity, f Frame) {
	if !u.active() {
		return
	}
	u.incomingVersion = f.Value32
	u.state = UpdateVerifying
	if (f.Value8 == 0 && u.incomingVersion != id.Version) || f.Value8 == 1 {
		u.state = UpdatePageCollecting
	}
}

// pageCRC stores the CRC of one page. It reports false for frames dropped
// because no session runs or the page index is out of range.
func (u *firmwareUpdate) pageCRC(f Frame) bool {
	if !u.active() || int(f.Value16) >= len(u.pageCRCs) {
		return false
	}
	u.pageCRCs[f.Value16] = f.Value32
	return true
}
