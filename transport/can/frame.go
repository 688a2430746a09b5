// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package can moves classical CAN frames between the bridge and a CAN
// controller: a Linux SocketCAN interface, a websocket-attached remote
// gateway or an in-memory pipe.
package can

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	MaxStandardID = 0x7FF
	MaxExtendedID = 0x1FFFFFFF

	// FrameSize is the size of a Linux struct can_frame.
	FrameSize = 16

	effFlag = 0x80000000
	rtrFlag = 0x40000000
	errFlag = 0x20000000
)

var (
	ErrInvalidID  = errors.New("can: invalid identifier")
	ErrInvalidLen = errors.New("can: invalid data length")
	ErrClosed     = errors.New("can: closed")
)

// Frame is a classical CAN 2.0A/2.0B frame.
type Frame struct {
	ID       uint32 // 11-bit (std) or 29-bit (ext)
	Extended bool
	RTR      bool
	Len      uint8 // 0..8
	Data     [8]byte
}

// Validate returns an error if the frame is not valid.
func (f Frame) Validate() error {
	if f.Len > 8 {
		return ErrInvalidLen
	}
	max := uint32(MaxStandardID)
	if f.Extended {
		max = MaxExtendedID
	}
	if f.ID > max {
		return fmt.Errorf("%w: 0x%X", ErrInvalidID, f.ID)
	}
	return nil
}

// MarshalBinary encodes the frame in the SocketCAN can_frame layout:
//
//	0..3  can_id, little endian, with EFF/RTR flags
//	4     can_dlc
//	5..7  padding
//	8..15 data
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	id := f.ID
	if f.Extended {
		id |= effFlag
	}
	if f.RTR {
		id |= rtrFlag
	}
	buf := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:16], f.Data[:])
	return buf, nil
}

// UnmarshalBinary decodes a SocketCAN can_frame. Error frames are rejected.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < FrameSize {
		return fmt.Errorf("can: need %d bytes, got %d", FrameSize, len(data))
	}
	id := binary.LittleEndian.Uint32(data[0:4])
	if id&errFlag != 0 {
		return fmt.Errorf("can: error frame 0x%08X", id)
	}
	f.Extended = id&effFlag != 0
	f.RTR = id&rtrFlag != 0
	if f.Extended {
		f.ID = id & MaxExtendedID
	} else {
		f.ID = id & MaxStandardID
	}
	f.Len = data[4]
	copy(f.Data[:], data[8:16])
	return f.Validate()
}

func (f Frame) String() string {
	if f.Extended {
		return fmt.Sprintf("%08X [%d] % X", f.ID, f.Len, f.Data[:min(int(f.Len), 8)])
	}
	return fmt.Sprintf("%03X [%d] % X", f.ID, f.Len, f.Data[:min(int(f.Len), 8)])
}
