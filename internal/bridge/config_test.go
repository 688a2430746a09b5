// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bridge

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ffutop/legacy-modbus-bridge/transport"
)

// header builds a config header with entries device slots following.
func header(entries uint16, baud uint32) []byte {
	raw := make([]byte, configHeaderSize+int(entries)*deviceRecordSize)
	raw[0] = ConfigVersion
	binary.LittleEndian.PutUint16(raw[2:4], entries)
	binary.LittleEndian.PutUint32(raw[4:8], baud)
	raw[8] = 8
	return raw
}

func TestParseConfig(t *testing.T) {
	raw := header(2, 19200)
	raw[1] = 1
	raw[9] = byte(transport.ParityEven)
	raw[10] = 1
	binary.LittleEndian.PutUint16(raw[12:14], 50)
	binary.LittleEndian.PutUint16(raw[14:16], 700)
	copy(raw[16:], []byte{0x01, 0x03, 0x10, 0x00, 0x0A, 0x00, 0x00, 0x00})
	copy(raw[24:], []byte{0x02, 0x04, 0x34, 0x12, 0x05, 0x00, 0x0F, 0x00})

	got, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	want := Config{
		Line:         transport.LineConfig{BaudRate: 19200, DataBits: 8, Parity: transport.ParityEven, TwoStopBits: true},
		ManualTiming: true,
		Pause:        50,
		Timeout:      700,
		Devices: []Device{
			{Address: 1, FunctionCode: 3, Register: 0x0010, Cycle: PollingCycle{Count: 10}},
			{Address: 2, FunctionCode: 4, Register: 0x1234, Cycle: PollingCycle{Count: 5, Seconds: true, Combine: true, HighLow: true, LittleEndian: true}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseConfig() mismatch (-want +got):\n%s", diff)
	}

	blob, err := got.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(blob) != ConfigSize {
		t.Fatalf("MarshalBinary() = %d bytes, want %d", len(blob), ConfigSize)
	}
	back, err := ParseConfig(blob)
	if err != nil {
		t.Fatalf("ParseConfig(MarshalBinary()) failed: %v", err)
	}
	if diff := cmp.Diff(want, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseConfigErrors(t *testing.T) {
	badVersion := header(0, 9600)
	badVersion[0] = 2
	entries := header(0, 9600)
	binary.LittleEndian.PutUint16(entries[2:4], MaxDevices+1)

	tests := []struct {
		name string
		blob []byte
		want error
	}{
		{"Empty", nil, ErrConfigVersion},
		{"Version", badVersion, ErrConfigVersion},
		{"TooLarge", append(header(0, 9600), make([]byte, ConfigSize)...), ErrConfigSize},
		{"Entries", entries, ErrConfigEntries},
		{"ZeroBaud", header(0, 0), ErrConfigBaud},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig(tt.blob); !errors.Is(err, tt.want) {
				t.Errorf("ParseConfig() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseConfigZeroPadded(t *testing.T) {
	// Entry count announces three devices but only the header arrived.
	c, err := ParseConfig(header(3, 9600)[:configHeaderSize])
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if len(c.Devices) != 3 {
		t.Fatalf("got %d devices, want 3", len(c.Devices))
	}
	for i, d := range c.Devices {
		if d != (Device{}) {
			t.Errorf("device %d = %+v, want zero", i, d)
		}
	}
}

func TestParseConfigMaxSize(t *testing.T) {
	raw := make([]byte, ConfigSize)
	copy(raw, header(MaxDevices, 9600))
	c, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if len(c.Devices) != MaxDevices {
		t.Errorf("got %d devices, want %d", len(c.Devices), MaxDevices)
	}
}

func TestPollingCycle(t *testing.T) {
	tests := []struct {
		word     uint32
		want     PollingCycle
		interval time.Duration
	}{
		{0x00000000, PollingCycle{}, 0},
		{0x0000000A, PollingCycle{Count: 10}, time.Second},
		{0x0008000A, PollingCycle{Count: 10, Seconds: true}, 10 * time.Second},
		{0x00010FFF, PollingCycle{Count: 0xFFF, Combine: true}, 409500 * time.Millisecond},
		{0x00020001, PollingCycle{Count: 1, HighLow: true}, 100 * time.Millisecond},
		{0x00040002, PollingCycle{Count: 2, LittleEndian: true}, 200 * time.Millisecond},
		// Bits 12-15 are not part of the count.
		{0x0000F003, PollingCycle{Count: 3}, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		got := DecodePollingCycle(tt.word)
		if got != tt.want {
			t.Errorf("DecodePollingCycle(%08X) = %+v, want %+v", tt.word, got, tt.want)
		}
		if d := got.Interval(); d != tt.interval {
			t.Errorf("DecodePollingCycle(%08X).Interval() = %v, want %v", tt.word, d, tt.interval)
		}
		if w := got.Word(); w != tt.word&0x000F0FFF {
			t.Errorf("DecodePollingCycle(%08X).Word() = %08X", tt.word, w)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.Line != transport.DefaultLineConfig || c.ManualTiming || len(c.Devices) != 0 {
		t.Errorf("DefaultConfig() = %+v", c)
	}
}
