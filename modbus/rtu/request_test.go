// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"bytes"
	"testing"
	"time"

	"github.com/ffutop/legacy-modbus-bridge/modbus/crc"
)

func TestReadRequest(t *testing.T) {
	tests := []struct {
		name     string
		slaveID  byte
		funcCode byte
		register uint16
		combine  bool
		want     []byte
	}{
		{"ReadHolding", 0x01, 0x03, 0x0010, false, []byte{0x01, 0x03, 0x00, 0x10, 0x00, 0x01}},
		{"ReadHoldingCombined", 0x01, 0x03, 0x0010, true, []byte{0x01, 0x03, 0x00, 0x10, 0x00, 0x02}},
		{"ReadInput", 0x07, 0x04, 0x1234, false, []byte{0x07, 0x04, 0x12, 0x34, 0x00, 0x01}},
		{"ReadCoilsIgnoresCombine", 0x02, 0x01, 0x0100, true, []byte{0x02, 0x01, 0x01, 0x00, 0x00, 0x01}},
		{"ReadDiscrete", 0x02, 0x02, 0x0001, false, []byte{0x02, 0x02, 0x00, 0x01, 0x00, 0x01}},
		{"MaskedFunction", 0x03, 0x23, 0x0000, false, []byte{0x03, 0x03, 0x00, 0x00, 0x00, 0x01}},
		{"ExceptionStatusNoQuantity", 0x03, 0x07, 0x0000, false, []byte{0x03, 0x07, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReadRequest(tt.slaveID, tt.funcCode, tt.register, tt.combine)
			want := crc.Append(append([]byte(nil), tt.want...))
			if !bytes.Equal(got, want) {
				t.Errorf("ReadRequest() = %X, want %X", got, want)
			}
			if !crc.Valid(got) {
				t.Errorf("ReadRequest() = %X has invalid crc", got)
			}
		})
	}
}

func TestCharacterTime(t *testing.T) {
	tests := []struct {
		name     string
		baud     int
		dataBits int
		parity   bool
		twoStop  bool
		want     time.Duration
	}{
		{"9600_8N1", 9600, 8, false, false, 1041 * time.Microsecond},
		{"9600_8E1", 9600, 8, true, false, 1145 * time.Microsecond},
		{"19200_8N2", 19200, 8, false, true, 572 * time.Microsecond},
		{"115200_9N1", 115200, 9, false, false, 95 * time.Microsecond},
		{"ZeroBaud", 0, 8, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CharacterTime(tt.baud, tt.dataBits, tt.parity, tt.twoStop); got != tt.want {
				t.Errorf("CharacterTime() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := TransmitTimeout(8, 1041*time.Microsecond); got != 16656*time.Microsecond {
		t.Errorf("TransmitTimeout() = %v", got)
	}
}
