// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import "time"

// CharacterTime returns the time one character occupies on the line: a
// start bit, the data bits, an optional parity bit and one or two stop bits.
// The result is truncated to whole microseconds.
func CharacterTime(baudRate, dataBits int, parity, twoStopBits bool) time.Duration {
	if baudRate <= 0 {
		return 0
	}
	bits := 1 + dataBits + 1
	if parity {
		bits++
	}
	if twoStopBits {
		bits++
	}
	return time.Duration(1000000*bits/baudRate) * time.Microsecond
}

// TransmitTimeout allows twice the nominal transmission time of n characters.
func TransmitTimeout(n int, characterTime time.Duration) time.Duration {
	return 2 * time.Duration(n) * characterTime
}
