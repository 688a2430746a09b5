// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package legacy

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ffutop/legacy-modbus-bridge/transport/can"
)

// PayloadSize is the number of bytes following the command byte.
const PayloadSize = 7

var ErrNotLegacy = errors.New("legacy: not a legacy frame")

// Frame is one legacy message. On the wire it is an extended CAN frame
// carrying the identifier, with eight data bytes:
//
//	0     command (bits 0-6), direction (bit 7, set = from device)
//	1     value8
//	2..3  value16, little endian
//	4..7  value32, little endian
type Frame struct {
	Identifier uint32
	Direction  Direction
	Command    Command
	Value8     uint8
	Value16    uint16
	Value32    uint32

	// NAT is set by the transport for frames of the NAT protocol sharing
	// the bus.
	NAT bool
}

// Payload returns the raw bytes after the command byte.
func (f Frame) Payload() [PayloadSize]byte {
	var p [PayloadSize]byte
	p[0] = f.Value8
	binary.LittleEndian.PutUint16(p[1:3], f.Value16)
	binary.LittleEndian.PutUint32(p[3:7], f.Value32)
	return p
}

// MarshalCAN encodes the frame for the CAN transport.
func (f Frame) MarshalCAN() can.Frame {
	cf := can.Frame{
		ID:       f.Identifier & can.MaxExtendedID,
		Extended: true,
		Len:      8,
	}
	cf.Data[0] = byte(f.Command) & commandMask
	if f.Direction == FromDevice {
		cf.Data[0] |= 0x80
	}
	p := f.Payload()
	copy(cf.Data[1:], p[:])
	return cf
}

// UnmarshalCAN decodes a CAN frame. Standard frames decode with NAT set.
// Missing data bytes read as zero.
func UnmarshalCAN(cf can.Frame) (Frame, error) {
	if cf.RTR || cf.Len == 0 {
		return Frame{}, fmt.Errorf("%w: %v", ErrNotLegacy, cf)
	}
	var data [8]byte
	copy(data[:], cf.Data[:min(int(cf.Len), 8)])
	f := Frame{
		Identifier: cf.ID,
		Command:    Command(data[0] & commandMask),
		Value8:     data[1],
		Value16:    binary.LittleEndian.Uint16(data[2:4]),
		Value32:    binary.LittleEndian.Uint32(data[4:8]),
		NAT:        !cf.Extended,
	}
	if data[0]&0x80 != 0 {
		f.Direction = FromDevice
	}
	return f, nil
}

func (f Frame) String() string {
	return fmt.Sprintf("%08X %s %s v8=%02X v16=%04X v32=%08X", f.Identifier, f.Direction, f.Command, f.Value8, f.Value16, f.Value32)
}
