// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package legacy

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// sendFragment pushes data as a fragmented transfer in direct frames.
func sendFragment(fx *fixture, cmd FragmentCommand, data []byte, checksum uint32) {
	fx.direct(CmdFragmentStart, uint8(cmd), uint16(len(data)), checksum)
	for off := 0; off < len(data); off += PayloadSize {
		var chunk [PayloadSize]byte
		copy(chunk[:], data[off:])
		fx.direct(CmdFragmentData, chunk[0], binary.LittleEndian.Uint16(chunk[1:3]), binary.LittleEndian.Uint32(chunk[3:7]))
	}
}

func TestFragmentTransfer(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"Single", 1},
		{"ExactFrames", 3 * PayloadSize},
		{"Partial", 2*PayloadSize + 3},
		{"Max", MaxFragmentSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			data := make([]byte, tt.size)
			for i := range data {
				data[i] = byte(i*7 + 1)
			}
			sendFragment(fx, FragmentConfig, data, 0xA5A5)

			if len(fx.sub.fragments) != 1 {
				t.Fatalf("got %d fragments, want 1", len(fx.sub.fragments))
			}
			got := fx.sub.fragments[0]
			if got.Command != FragmentConfig || got.Checksum != 0xA5A5 {
				t.Errorf("fragment header = %v/%X", got.Command, got.Checksum)
			}
			if !bytes.Equal(got.Data, data) {
				t.Errorf("fragment data mismatch: got %d bytes, want %d", len(got.Data), len(data))
			}
		})
	}
}

func TestFragmentRejected(t *testing.T) {
	for _, size := range []uint16{0, MaxFragmentSize + 1} {
		fx := newFixture()
		fx.direct(CmdFragmentStart, uint8(FragmentConfig), size, 0)
		fx.direct(CmdFragmentData, 1, 2, 3)
		if len(fx.sub.fragments) != 0 {
			t.Errorf("size %d: fragment delivered", size)
		}
	}
}

func TestFragmentDataWithoutStart(t *testing.T) {
	fx := newFixture()
	fx.direct(CmdFragmentData, 1, 2, 3)
	if len(fx.sub.fragments) != 0 {
		t.Error("fragment delivered without start")
	}
}

func TestFragmentRestart(t *testing.T) {
	fx := newFixture()
	fx.direct(CmdFragmentStart, uint8(FragmentConfig), 10, 0)
	fx.direct(CmdFragmentData, 0xFF, 0xFFFF, 0xFFFFFFFF)

	data := []byte{1, 2, 3, 4}
	sendFragment(fx, FragmentConfig, data, 0)
	if len(fx.sub.fragments) != 1 || !bytes.Equal(fx.sub.fragments[0].Data, data) {
		t.Fatalf("fragments = %v", fx.sub.fragments)
	}
}
