// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"github.com/ffutop/legacy-modbus-bridge/modbus"
	"github.com/ffutop/legacy-modbus-bridge/modbus/crc"
)

// ReadRequest builds the poll frame for one configured slave value.
//
//	Slave Address   : 1 byte
//	Function        : 1 byte (masked with FunctionCodeMask)
//	Register        : 2 bytes, big endian
//	Quantity        : 2 bytes (1, or 2 for combined register reads)
//	CRC             : 2 bytes
//
// Function codes other than the four read functions carry no quantity.
func ReadRequest(slaveID, functionCode byte, register uint16, combine bool) []byte {
	fc := functionCode & FunctionCodeMask
	raw := make([]byte, 0, 8)
	raw = append(raw, slaveID, fc, byte(register>>8), byte(register))
	switch fc {
	case modbus.FuncCodeReadCoils, modbus.FuncCodeReadDiscreteInputs:
		raw = append(raw, 0, 1)
	case modbus.FuncCodeReadHoldingRegisters, modbus.FuncCodeReadInputRegisters:
		quantity := byte(1)
		if combine {
			quantity = 2
		}
		raw = append(raw, 0, quantity)
	}
	return crc.Append(raw)
}
