// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ffutop/legacy-modbus-bridge/modbus"
	"github.com/ffutop/legacy-modbus-bridge/modbus/crc"
)

func TestEncodeDecode(t *testing.T) {
	adu := &ApplicationDataUnit{
		SlaveID: 0x11,
		Pdu:     modbus.ProtocolDataUnit{FunctionCode: 0x03, Data: []byte{0x00, 0x6B, 0x00, 0x03}},
	}
	raw, err := adu.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := []byte{0x11, 0x03, 0x00, 0x6B, 0x00, 0x03}
	if !bytes.Equal(raw[:len(want)], want) {
		t.Fatalf("Encode = %X, want prefix %X", raw, want)
	}

	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.SlaveID != 0x11 || decoded.Pdu.FunctionCode != 0x03 {
		t.Errorf("Decode header = %02X %02X", decoded.SlaveID, decoded.Pdu.FunctionCode)
	}
	if !bytes.Equal(decoded.Pdu.Data, adu.Pdu.Data) {
		t.Errorf("Decode data = %X, want %X", decoded.Pdu.Data, adu.Pdu.Data)
	}
}

func TestEncodeTooLong(t *testing.T) {
	adu := &ApplicationDataUnit{SlaveID: 1, Pdu: modbus.ProtocolDataUnit{FunctionCode: 0x10, Data: make([]byte, 253)}}
	if _, err := adu.Encode(); err == nil {
		t.Fatal("expected error for oversized frame")
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte{0x01, 0x03}); err == nil {
		t.Error("expected length error")
	}
	if _, err := Decode([]byte{0x01, 0x03, 0x02, 0xAA, 0xBB, 0xFF, 0xFF}); !errors.Is(err, ErrCRCMismatch) {
		t.Errorf("Decode bad crc err = %v, want ErrCRCMismatch", err)
	}
}

func TestCheckResponse(t *testing.T) {
	req := ReadRequest(0x01, 0x03, 0x0010, false)
	good := crc.Append([]byte{0x01, 0x03, 0x02, 0x12, 0x34})
	badCRC := append([]byte(nil), good...)
	badCRC[len(badCRC)-1] ^= 0x55
	otherSlave := crc.Append([]byte{0x02, 0x03, 0x02, 0x12, 0x34})
	exception := crc.Append([]byte{0x01, 0x83, 0x02})

	tests := []struct {
		name string
		resp []byte
		want error
	}{
		{"Valid", good, nil},
		{"Empty", nil, ErrNoResponse},
		{"FourBytes", []byte{0x01, 0x03, 0x00, 0x00}, ErrShortResponse},
		{"BadCRC", badCRC, ErrCRCMismatch},
		{"OtherSlave", otherSlave, ErrResponseMismatch},
		{"Exception", exception, ErrResponseMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckResponse(req, tt.resp)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("CheckResponse() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("CheckResponse() = %v, want %v", err, tt.want)
			}
		})
	}
}
