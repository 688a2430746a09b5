// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"encoding/binary"
	"fmt"
)

// Record layout used by the file and mmap backends:
//
//	0..3  blob length, little endian (0 = nothing saved)
//	4..   blob, zero padded to MaxBlobSize
const (
	headerSize = 4
	recordSize = headerSize + MaxBlobSize
)

// encodeRecord writes blob into rec, which must be recordSize long.
func encodeRecord(rec, blob []byte) {
	binary.LittleEndian.PutUint32(rec[0:headerSize], uint32(len(blob)))
	n := copy(rec[headerSize:], blob)
	clear(rec[headerSize+n:])
}

// decodeRecord returns a copy of the blob held in rec.
func decodeRecord(rec []byte) ([]byte, error) {
	if len(rec) < recordSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(rec))
	}
	n := binary.LittleEndian.Uint32(rec[0:headerSize])
	if n == 0 {
		return nil, nil
	}
	if n > MaxBlobSize {
		return nil, fmt.Errorf("%w: length %d", ErrCorrupt, n)
	}
	return append([]byte(nil), rec[headerSize:headerSize+n]...), nil
}
