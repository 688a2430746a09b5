// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package simulator

import (
	"encoding/binary"
	"errors"
	"sync"
)

const MaxAddress = 65535

var (
	ErrQuantity     = errors.New("simulator: quantity must be greater than 0")
	ErrAddressRange = errors.New("simulator: address range out of bounds")
	ErrShortData    = errors.New("simulator: insufficient data length")
)

// DataModel is the memory of one simulated slave, covering the full 16-bit
// address space of every table.
type DataModel struct {
	mu sync.RWMutex

	// Bit tables hold one byte per address, 1 = ON.
	Coils          []byte
	DiscreteInputs []byte

	HoldingRegisters []uint16
	InputRegisters   []uint16

	// ExceptionStatus is returned by function 0x07.
	ExceptionStatus byte
}

// NewDataModel creates a new memory model initialized to zero.
func NewDataModel() *DataModel {
	return &DataModel{
		Coils:            make([]byte, MaxAddress+1),
		DiscreteInputs:   make([]byte, MaxAddress+1),
		HoldingRegisters: make([]uint16, MaxAddress+1),
		InputRegisters:   make([]uint16, MaxAddress+1),
	}
}

func validateRange(address, quantity uint16) error {
	if quantity == 0 {
		return ErrQuantity
	}
	if int(address)+int(quantity) > MaxAddress+1 {
		return ErrAddressRange
	}
	return nil
}

// packBits returns table[address:address+quantity] packed LSB first.
func packBits(table []byte, address, quantity uint16) []byte {
	out := make([]byte, (int(quantity)+7)/8)
	for i := 0; i < int(quantity); i++ {
		if table[int(address)+i] != 0 {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// packRegisters returns table[address:address+quantity] as big-endian bytes.
func packRegisters(table []uint16, address, quantity uint16) []byte {
	out := make([]byte, int(quantity)*2)
	for i := 0; i < int(quantity); i++ {
		binary.BigEndian.PutUint16(out[i*2:], table[int(address)+i])
	}
	return out
}

func (m *DataModel) ReadCoils(address, quantity uint16) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}
	return packBits(m.Coils, address, quantity), nil
}

func (m *DataModel) ReadDiscreteInputs(address, quantity uint16) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}
	return packBits(m.DiscreteInputs, address, quantity), nil
}

func (m *DataModel) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}
	return packRegisters(m.HoldingRegisters, address, quantity), nil
}

func (m *DataModel) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}
	return packRegisters(m.InputRegisters, address, quantity), nil
}

func (m *DataModel) ReadExceptionStatus() byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ExceptionStatus
}

// WriteSingleCoil writes a single coil. Only 0xFF00 (ON) and 0x0000 (OFF)
// change the coil.
func (m *DataModel) WriteSingleCoil(address, value uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch value {
	case 0xFF00:
		m.Coils[address] = 1
	case 0x0000:
		m.Coils[address] = 0
	}
}

// WriteMultipleCoils writes a range of coils from packed bytes.
func (m *DataModel) WriteMultipleCoils(address, quantity uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := validateRange(address, quantity); err != nil {
		return err
	}
	if len(data) < (int(quantity)+7)/8 {
		return ErrShortData
	}
	for i := 0; i < int(quantity); i++ {
		m.Coils[int(address)+i] = (data[i/8] >> uint(i%8)) & 1
	}
	return nil
}

func (m *DataModel) WriteSingleRegister(address, value uint16) {
	m.mu.Lock()
	m.HoldingRegisters[address] = value
	m.mu.Unlock()
}

// WriteMultipleRegisters writes a range of holding registers from
// big-endian bytes.
func (m *DataModel) WriteMultipleRegisters(address, quantity uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := validateRange(address, quantity); err != nil {
		return err
	}
	if len(data) < int(quantity)*2 {
		return ErrShortData
	}
	for i := 0; i < int(quantity); i++ {
		m.HoldingRegisters[int(address)+i] = binary.BigEndian.Uint16(data[i*2:])
	}
	return nil
}

// SetInputRegister sets an input register; the bus side can only read them.
func (m *DataModel) SetInputRegister(address, value uint16) {
	m.mu.Lock()
	m.InputRegisters[address] = value
	m.mu.Unlock()
}

func (m *DataModel) SetDiscreteInput(address uint16, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DiscreteInputs[address] = 0
	if on {
		m.DiscreteInputs[address] = 1
	}
}

// Holding returns one holding register.
func (m *DataModel) Holding(address uint16) uint16 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.HoldingRegisters[address]
}

func (m *DataModel) Coil(address uint16) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Coils[address] != 0
}
