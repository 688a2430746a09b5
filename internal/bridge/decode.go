// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bridge

import (
	"encoding/binary"

	"github.com/ffutop/legacy-modbus-bridge/modbus"
)

// le32 reads a little endian word at off, zero-padding past the end of p.
func le32(p []byte, off int) uint32 {
	var w [4]byte
	if off < len(p) {
		copy(w[:], p[off:])
	}
	return binary.LittleEndian.Uint32(w[:])
}

// decodeResponse reports a validated response. The length checks count the
// bytes after address, function, byte count and CRC.
func decodeResponse(index uint8, dev Device, resp []byte, r Reporter) {
	count := len(resp) - 5
	value := le32(resp, 3)
	fc := resp[1]

	switch fc {
	case modbus.FuncCodeReadCoils, modbus.FuncCodeReadDiscreteInputs:
		if count < 1 {
			r.SensorValue(index, uint32(resp[3]))
			return
		}
		r.Debug(fc, KindInvalidReceiveLength, value)

	case modbus.FuncCodeReadHoldingRegisters, modbus.FuncCodeReadInputRegisters:
		if dev.Cycle.Combine {
			if count > 4 {
				r.Debug(fc, KindInvalidReceiveLength, value)
				return
			}
			if dev.Cycle.HighLow {
				value = value>>16 | value<<16
			}
			if dev.Cycle.LittleEndian {
				value = (value>>8)&0x00FF00FF | (value<<8)&0xFF00FF00
			}
			r.SensorValue(index, value)
			return
		}
		if count > 2 {
			r.Debug(fc, KindInvalidReceiveLength, value)
			return
		}
		value &= 0xFFFF
		if dev.Cycle.LittleEndian {
			value = (value>>8)&0x00FF | (value<<8)&0xFF00
		}
		r.SensorValue(index, value)

	case modbus.FuncCodeWriteSingleCoil, modbus.FuncCodeWriteSingleRegister,
		modbus.FuncCodeWriteMultipleCoils, modbus.FuncCodeWriteMultipleRegisters:
		r.Debug(resp[0], KindActorResponse, le32(resp, 2))

	case modbus.FuncCodeReadExceptionStatus:
		r.SensorValue(index, uint32(resp[2]))

	default:
		r.Debug(fc, KindUnexpectedError, value)
	}
}
