// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package legacy

// MaxFragmentSize bounds a single fragmented transfer.
const MaxFragmentSize = 4096

// Fragment is a completed fragmented transfer.
type Fragment struct {
	Command FragmentCommand
	// Checksum is the value announced by the sender. It is not verified.
	Checksum uint32
	Data     []byte
}

// fragmentAssembler collects a fragmented transfer: a start frame
// announcing command and size followed by data frames of PayloadSize bytes.
type fragmentAssembler struct {
	pending Fragment
	size    int
	active  bool
}

func (a *fragmentAssembler) start(f Frame) bool {
	a.reset()
	if f.Value16 == 0 || int(f.Value16) > MaxFragmentSize {
		return false
	}
	a.pending = Fragment{
		Command:  FragmentCommand(f.Value8),
		Checksum: f.Value32,
		Data:     make([]byte, 0, f.Value16),
	}
	a.size = int(f.Value16)
	a.active = true
	return true
}

// push appends the payload of a data frame and returns the transfer once
// the announced size is reached.
func (a *fragmentAssembler) push(f Frame) (Fragment, bool) {
	if !a.active {
		return Fragment{}, false
	}
	p := f.Payload()
	n := min(a.size-len(a.pending.Data), PayloadSize)
	a.pending.Data = append(a.pending.Data, p[:n]...)
	if len(a.pending.Data) < a.size {
		return Fragment{}, false
	}
	done := a.pending
	a.reset()
	return done, true
}

func (a *fragmentAssembler) reset() {
	*a = fragmentAssembler{}
}
