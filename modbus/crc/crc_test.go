// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package crc

import (
	"testing"
)

func TestCRC(t *testing.T) {
	var crc CRC
	crc.Reset()
	crc.PushBytes([]byte{0x02, 0x07})

	if crc.Value() != 0x1241 {
		t.Fatalf("crc expected %v, actual %v", 0x1241, crc.Value())
	}
}

func TestCRCIncremental(t *testing.T) {
	data := []byte{0x01, 0x03, 0x00, 0x10, 0x00, 0x01}

	var crc CRC
	crc.Reset().PushBytes(data[:2]).PushBytes(data[2:])
	if got, want := crc.Value(), Checksum(data); got != want {
		t.Fatalf("incremental crc %04X, one-shot %04X", got, want)
	}
}

func TestAppendValid(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"ReadHolding", []byte{0x01, 0x03, 0x00, 0x10, 0x00, 0x01}},
		{"WriteCoil", []byte{0x11, 0x05, 0x00, 0xAC, 0xFF, 0x00}},
		{"Empty", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			framed := Append(append([]byte(nil), tt.frame...))
			if len(framed) != len(tt.frame)+2 {
				t.Fatalf("length %d, want %d", len(framed), len(tt.frame)+2)
			}
			if !Valid(framed) {
				t.Fatalf("Valid(%X) = false", framed)
			}
			framed[0] ^= 0xFF
			if len(tt.frame) > 0 && Valid(framed) {
				t.Fatalf("Valid(%X) = true after corruption", framed)
			}
		})
	}
}

func TestKnownFrame(t *testing.T) {
	// 01 03 00 00 00 01 84 0A is the canonical "read holding register 0" request.
	frame := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A}
	if !Valid(frame) {
		t.Fatalf("Valid(%X) = false", frame)
	}
	if Valid(frame[:1]) {
		t.Fatal("single byte frame reported valid")
	}
}
