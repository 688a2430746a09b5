// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package legacy

import (
	"math/rand"
	"testing"
)

func TestNewIdentity(t *testing.T) {
	id := NewIdentity(0xAB123456, DeviceTypeModbusExtension, 0, testVersion)
	if id.Serial != 0x0D123456 {
		t.Errorf("Serial = %08X, want 0D123456", id.Serial)
	}
	// 0x123456 & 0x3F = 0x16 = 22 seconds of jitter.
	if got := id.AliveInterval(); got != 382000 {
		t.Errorf("AliveInterval() = %d, want 382000", got)
	}
}

func TestClassify(t *testing.T) {
	id := NewIdentity(testSerial, DeviceTypeModbusExtension, 0, testVersion)

	tests := []struct {
		name       string
		identifier uint32
		want       AddressClass
	}{
		{"Broadcast", 0, ClassBroadcast},
		{"TypeMulticast", 0x0D000000, ClassTypeMulticast},
		{"Direct", 0x1D123456, ClassDirect},
		{"FromDevice", 0x0D123456, ClassFromDevice},
		{"FirmwareUpdate", 0x1F0D0000, ClassFirmwareUpdate},
		{"FirmwareUpdatePage", 0x1F0DABCD, ClassFirmwareUpdate},
		{"OtherTypeMulticast", 0x0E000000, ClassNone},
		{"OtherDevice", 0x1D654321, ClassNone},
		{"OtherTypeFirmware", 0x1F0E0000, ClassNone},
		{"Random", 0x0ABCDEF0, ClassNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := id.Classify(tt.identifier); got != tt.want {
				t.Errorf("Classify(%08X) = %v, want %v", tt.identifier, got, tt.want)
			}
		})
	}
}

// TestClassifyExclusive checks that every identifier matches at most one
// of the raw class predicates, so precedence never hides a second match.
func TestClassifyExclusive(t *testing.T) {
	id := NewIdentity(testSerial, DeviceTypeModbusExtension, 0, testVersion)
	typ := uint32(id.Type)
	predicates := []func(uint32) bool{
		func(v uint32) bool { return v == 0 },
		func(v uint32) bool { return v == typ<<24 },
		func(v uint32) bool { return v == id.Serial|0x10000000 },
		func(v uint32) bool { return v == id.Serial },
		func(v uint32) bool { return v&0x1FFF0000 == typ<<16|0x1F000000 },
	}

	candidates := []uint32{0, typ << 24, id.Serial, id.Serial | 0x10000000, 0x1F0D0000, 0x1F0DFFFF}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		candidates = append(candidates, r.Uint32()&0x1FFFFFFF)
	}

	for _, v := range candidates {
		matches := 0
		for _, p := range predicates {
			if p(v) {
				matches++
			}
		}
		if matches > 1 {
			t.Fatalf("identifier %08X matches %d classes", v, matches)
		}
		if (matches == 0) != (id.Classify(v) == ClassNone) {
			t.Fatalf("identifier %08X: Classify() = %v with %d matches", v, id.Classify(v), matches)
		}
	}
}
