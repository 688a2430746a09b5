// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package simulator

import (
	"encoding/binary"

	"github.com/ffutop/legacy-modbus-bridge/modbus"
)

// Slave executes Modbus functions against a DataModel.
type Slave struct {
	model *DataModel
}

func NewSlave(m *DataModel) *Slave {
	return &Slave{model: m}
}

func (s *Slave) Model() *DataModel {
	return s.model
}

// Process executes the function code of req and returns the response PDU.
// Failures are reported as exception responses.
func (s *Slave) Process(req modbus.ProtocolDataUnit) modbus.ProtocolDataUnit {
	switch req.FunctionCode {
	case modbus.FuncCodeReadCoils:
		return s.read(req, 2000, s.model.ReadCoils)
	case modbus.FuncCodeReadDiscreteInputs:
		return s.read(req, 2000, s.model.ReadDiscreteInputs)
	case modbus.FuncCodeReadHoldingRegisters:
		return s.read(req, 125, s.model.ReadHoldingRegisters)
	case modbus.FuncCodeReadInputRegisters:
		return s.read(req, 125, s.model.ReadInputRegisters)
	case modbus.FuncCodeReadExceptionStatus:
		if len(req.Data) != 0 {
			return exception(req.FunctionCode, modbus.ExceptionCodeIllegalDataValue)
		}
		return modbus.ProtocolDataUnit{FunctionCode: req.FunctionCode, Data: []byte{s.model.ReadExceptionStatus()}}
	case modbus.FuncCodeWriteSingleCoil:
		return s.writeSingle(req, s.model.WriteSingleCoil)
	case modbus.FuncCodeWriteSingleRegister:
		return s.writeSingle(req, s.model.WriteSingleRegister)
	case modbus.FuncCodeWriteMultipleCoils:
		return s.writeMultiple(req, 1968, s.model.WriteMultipleCoils)
	case modbus.FuncCodeWriteMultipleRegisters:
		return s.writeMultiple(req, 123, s.model.WriteMultipleRegisters)
	default:
		return exception(req.FunctionCode, modbus.ExceptionCodeIllegalFunction)
	}
}

func (s *Slave) read(req modbus.ProtocolDataUnit, maxQuantity uint16, read func(address, quantity uint16) ([]byte, error)) modbus.ProtocolDataUnit {
	if len(req.Data) != 4 {
		return exception(req.FunctionCode, modbus.ExceptionCodeIllegalDataValue)
	}
	address := binary.BigEndian.Uint16(req.Data[0:2])
	quantity := binary.BigEndian.Uint16(req.Data[2:4])
	if quantity < 1 || quantity > maxQuantity {
		return exception(req.FunctionCode, modbus.ExceptionCodeIllegalDataValue)
	}
	data, err := read(address, quantity)
	if err != nil {
		return exception(req.FunctionCode, modbus.ExceptionCodeIllegalDataAddress)
	}
	return modbus.ProtocolDataUnit{
		FunctionCode: req.FunctionCode,
		Data:         append([]byte{byte(len(data))}, data...),
	}
}

// writeSingle echoes the request.
func (s *Slave) writeSingle(req modbus.ProtocolDataUnit, write func(address, value uint16)) modbus.ProtocolDataUnit {
	if len(req.Data) != 4 {
		return exception(req.FunctionCode, modbus.ExceptionCodeIllegalDataValue)
	}
	write(binary.BigEndian.Uint16(req.Data[0:2]), binary.BigEndian.Uint16(req.Data[2:4]))
	return modbus.ProtocolDataUnit{FunctionCode: req.FunctionCode, Data: append([]byte(nil), req.Data...)}
}

func (s *Slave) writeMultiple(req modbus.ProtocolDataUnit, maxQuantity uint16, write func(address, quantity uint16, data []byte) error) modbus.ProtocolDataUnit {
	if len(req.Data) < 6 {
		return exception(req.FunctionCode, modbus.ExceptionCodeIllegalDataValue)
	}
	address := binary.BigEndian.Uint16(req.Data[0:2])
	quantity := binary.BigEndian.Uint16(req.Data[2:4])
	byteCount := req.Data[4]
	if quantity < 1 || quantity > maxQuantity || int(byteCount) != len(req.Data)-5 {
		return exception(req.FunctionCode, modbus.ExceptionCodeIllegalDataValue)
	}
	switch err := write(address, quantity, req.Data[5:]); err {
	case nil:
	case ErrShortData:
		return exception(req.FunctionCode, modbus.ExceptionCodeIllegalDataValue)
	default:
		return exception(req.FunctionCode, modbus.ExceptionCodeIllegalDataAddress)
	}
	return modbus.ProtocolDataUnit{FunctionCode: req.FunctionCode, Data: append([]byte(nil), req.Data[0:4]...)}
}

func exception(funcCode, code byte) modbus.ProtocolDataUnit {
	return modbus.ProtocolDataUnit{
		FunctionCode: funcCode | 0x80,
		Data:         []byte{code},
	}
}
