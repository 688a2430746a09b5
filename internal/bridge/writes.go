// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bridge

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ffutop/legacy-modbus-bridge/internal/legacy"
	"github.com/ffutop/legacy-modbus-bridge/modbus"
	"github.com/ffutop/legacy-modbus-bridge/modbus/crc"
)

var ErrNotWriteCommand = errors.New("bridge: not a Modbus write command")

type writeMapping struct {
	functionCode byte
	// regCount is zero for the single write functions, which carry no
	// quantity field.
	regCount  uint16
	byteCount int
}

var writeMappings = map[legacy.Command]writeMapping{
	legacy.CmdModbusWriteSingleCoil:         {modbus.FuncCodeWriteSingleCoil, 0, 2},
	legacy.CmdModbusWriteSingleRegister:     {modbus.FuncCodeWriteSingleRegister, 0, 2},
	legacy.CmdModbusWriteMultipleRegisters:  {modbus.FuncCodeWriteMultipleRegisters, 2, 2},
	legacy.CmdModbusWriteMultipleRegisters2: {modbus.FuncCodeWriteMultipleRegisters, 1, 4},
	legacy.CmdModbusWriteSingleRegister4:    {modbus.FuncCodeWriteSingleRegister, 0, 4},
	legacy.CmdModbusWriteMultipleRegisters4: {modbus.FuncCodeWriteMultipleRegisters, 1, 2},
}

// IsWriteCommand reports whether cmd is forwarded to the Modbus line.
func IsWriteCommand(cmd legacy.Command) bool {
	_, ok := writeMappings[cmd]
	return ok
}

// WriteFrame builds the RTU frame for a write command. The payload carries
// the slave address, the register in little endian and the value bytes,
// which are copied unchanged.
func WriteFrame(cmd legacy.Command, payload [legacy.PayloadSize]byte) ([]byte, error) {
	m, ok := writeMappings[cmd]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotWriteCommand, cmd)
	}
	register := binary.LittleEndian.Uint16(payload[1:3])

	raw := make([]byte, 0, 16)
	raw = append(raw, payload[0], m.functionCode, byte(register>>8), byte(register))
	if m.functionCode == modbus.FuncCodeWriteMultipleRegisters {
		raw = append(raw, byte(m.regCount>>8), byte(m.regCount), byte(m.byteCount))
	}
	raw = append(raw, payload[3:3+m.byteCount]...)
	return crc.Append(raw), nil
}
