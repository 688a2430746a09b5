// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bridge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/ffutop/legacy-modbus-bridge/transport"
)

const (
	ConfigVersion = 1

	// ConfigSize is the size of a complete configuration blob: a 16 byte
	// header followed by MaxDevices device records.
	ConfigSize = configHeaderSize + MaxDevices*deviceRecordSize

	MaxDevices = 256

	configHeaderSize = 16
	deviceRecordSize = 8
)

var (
	ErrConfigVersion = errors.New("bridge: unsupported config version")
	ErrConfigSize    = errors.New("bridge: config too large")
	ErrConfigEntries = errors.New("bridge: too many config entries")
	ErrConfigBaud    = errors.New("bridge: invalid baud rate")
)

// Polling cycle word flags, stored in the upper half of the word.
const (
	cycleCountMask    = 0x0FFF
	flagCombine       = 1 << 16
	flagHighLow       = 1 << 17
	flagLittleEndian  = 1 << 18
	flagSecondsCycles = 1 << 19
)

// PollingCycle is the decoded polling cycle word of a device record.
type PollingCycle struct {
	// Count is in units of 100ms, or seconds when Seconds is set. Zero
	// polls on every pass.
	Count        uint16
	Seconds      bool
	Combine      bool
	HighLow      bool
	LittleEndian bool
}

func DecodePollingCycle(word uint32) PollingCycle {
	return PollingCycle{
		Count:        uint16(word & cycleCountMask),
		Seconds:      word&flagSecondsCycles != 0,
		Combine:      word&flagCombine != 0,
		HighLow:      word&flagHighLow != 0,
		LittleEndian: word&flagLittleEndian != 0,
	}
}

// Word encodes p back into the on-wire polling cycle word.
func (p PollingCycle) Word() uint32 {
	w := uint32(p.Count) & cycleCountMask
	if p.Seconds {
		w |= flagSecondsCycles
	}
	if p.Combine {
		w |= flagCombine
	}
	if p.HighLow {
		w |= flagHighLow
	}
	if p.LittleEndian {
		w |= flagLittleEndian
	}
	return w
}

func (p PollingCycle) Interval() time.Duration {
	d := time.Duration(p.Count) * 100 * time.Millisecond
	if p.Seconds {
		d *= 10
	}
	return d
}

// Device is one polled slave value.
type Device struct {
	Address      uint8
	FunctionCode uint8
	Register     uint16
	Cycle        PollingCycle
}

// Config is a decoded configuration blob.
type Config struct {
	Line transport.LineConfig

	// ManualTiming selects Pause and Timeout (milliseconds) over the values
	// derived from the baud rate.
	ManualTiming bool
	Pause        uint16
	Timeout      uint16

	Devices []Device
}

// DefaultConfig is used until a configuration has been received: 9600 8N1,
// automatic timing and no devices.
func DefaultConfig() Config {
	return Config{Line: transport.DefaultLineConfig}
}

// ParseConfig decodes a configuration blob. Blobs shorter than ConfigSize
// are zero-padded.
func ParseConfig(blob []byte) (Config, error) {
	if len(blob) > ConfigSize {
		return Config{}, fmt.Errorf("%w: %d bytes", ErrConfigSize, len(blob))
	}
	raw := make([]byte, ConfigSize)
	copy(raw, blob)

	if raw[0] != ConfigVersion {
		return Config{}, fmt.Errorf("%w: %d", ErrConfigVersion, raw[0])
	}
	entries := int(binary.LittleEndian.Uint16(raw[2:4]))
	if entries > MaxDevices {
		return Config{}, fmt.Errorf("%w: %d", ErrConfigEntries, entries)
	}
	baud := binary.LittleEndian.Uint32(raw[4:8])
	if baud == 0 || baud > 1<<31-1 {
		return Config{}, fmt.Errorf("%w: %d", ErrConfigBaud, baud)
	}

	c := Config{
		Line: transport.LineConfig{
			BaudRate:    int(baud),
			DataBits:    int(raw[8]),
			Parity:      transport.Parity(raw[9]),
			TwoStopBits: raw[10] != 0,
		},
		ManualTiming: raw[1] != 0,
		Pause:        binary.LittleEndian.Uint16(raw[12:14]),
		Timeout:      binary.LittleEndian.Uint16(raw[14:16]),
		Devices:      make([]Device, entries),
	}
	for i := range c.Devices {
		rec := raw[configHeaderSize+i*deviceRecordSize:]
		c.Devices[i] = Device{
			Address:      rec[0],
			FunctionCode: rec[1],
			Register:     binary.LittleEndian.Uint16(rec[2:4]),
			Cycle:        DecodePollingCycle(binary.LittleEndian.Uint32(rec[4:8])),
		}
	}
	return c, nil
}

// MarshalBinary encodes c as a full ConfigSize blob.
func (c Config) MarshalBinary() ([]byte, error) {
	if len(c.Devices) > MaxDevices {
		return nil, fmt.Errorf("%w: %d", ErrConfigEntries, len(c.Devices))
	}
	if c.Line.BaudRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrConfigBaud, c.Line.BaudRate)
	}
	raw := make([]byte, ConfigSize)
	raw[0] = ConfigVersion
	if c.ManualTiming {
		raw[1] = 1
	}
	binary.LittleEndian.PutUint16(raw[2:4], uint16(len(c.Devices)))
	binary.LittleEndian.PutUint32(raw[4:8], uint32(c.Line.BaudRate))
	raw[8] = byte(c.Line.DataBits)
	raw[9] = byte(c.Line.Parity)
	if c.Line.TwoStopBits {
		raw[10] = 1
	}
	binary.LittleEndian.PutUint16(raw[12:14], c.Pause)
	binary.LittleEndian.PutUint16(raw[14:16], c.Timeout)
	for i, d := range c.Devices {
		rec := raw[configHeaderSize+i*deviceRecordSize:]
		rec[0] = d.Address
		rec[1] = d.FunctionCode
		binary.LittleEndian.PutUint16(rec[2:4], d.Register)
		binary.LittleEndian.PutUint32(rec[4:8], d.Cycle.Word())
	}
	return raw, nil
}
