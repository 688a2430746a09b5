// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc computes the CRC-16/Modbus checksum (poly 0xA001 reflected,
// init 0xFFFF) that terminates every RTU frame.
package crc

import "github.com/sigurn/crc16"

var table = crc16.MakeTable(crc16.CRC16_MODBUS)

// CRC accumulates a running checksum. The zero value must be Reset before use.
type CRC struct {
	sum uint16
}

func (crc *CRC) Reset() *CRC {
	crc.sum = crc16.Init(table)
	return crc
}

func (crc *CRC) PushBytes(bs []byte) *CRC {
	crc.sum = crc16.Update(crc.sum, bs, table)
	return crc
}

func (crc *CRC) Value() uint16 {
	return crc16.Complete(crc.sum, table)
}

// Checksum returns the CRC of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, table)
}

// Append appends the checksum of frame to it, low byte first.
func Append(frame []byte) []byte {
	sum := Checksum(frame)
	return append(frame, byte(sum), byte(sum>>8))
}

// Valid reports whether the last two bytes of frame are its checksum.
func Valid(frame []byte) bool {
	n := len(frame)
	if n < 2 {
		return false
	}
	sum := Checksum(frame[:n-2])
	return frame[n-2] == byte(sum) && frame[n-1] == byte(sum>>8)
}
