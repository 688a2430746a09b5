// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

const (
	MinSize = 4
	MaxSize = 256

	// MinResponseSize is the shortest response the bridge accepts:
	// address, function, one data byte and the CRC.
	MinResponseSize = 5

	// FunctionCodeMask clips configured function codes to the valid range.
	FunctionCodeMask = 0x1F
)
