// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"fmt"
	"strings"

	"github.com/ffutop/legacy-modbus-bridge/internal/bridge"
	"github.com/ffutop/legacy-modbus-bridge/transport"
)

// configDocument is the YAML form of a bridge configuration blob.
type configDocument struct {
	BaudRate     int              `yaml:"baud_rate"`
	DataBits     int              `yaml:"data_bits"`
	Parity       string           `yaml:"parity"`
	StopBits     int              `yaml:"stop_bits"`
	ManualTiming bool             `yaml:"manual_timing,omitempty"`
	PauseMs      uint16           `yaml:"pause_ms,omitempty"`
	TimeoutMs    uint16           `yaml:"timeout_ms,omitempty"`
	Devices      []deviceDocument `yaml:"devices"`
}

type deviceDocument struct {
	Address      uint8  `yaml:"address"`
	Function     uint8  `yaml:"function"`
	Register     uint16 `yaml:"register"`
	Cycle        uint16 `yaml:"cycle"` // 100ms units, or seconds
	Seconds      bool   `yaml:"seconds,omitempty"`
	Combine      bool   `yaml:"combine,omitempty"`
	HighLow      bool   `yaml:"high_low,omitempty"`
	LittleEndian bool   `yaml:"little_endian,omitempty"`
}

var parities = map[string]transport.Parity{
	"N": transport.ParityNone,
	"E": transport.ParityEven,
	"O": transport.ParityOdd,
	"M": transport.ParityMark,
	"S": transport.ParitySpace,
}

func newDocument(c bridge.Config) configDocument {
	doc := configDocument{
		BaudRate:     c.Line.BaudRate,
		DataBits:     c.Line.DataBits,
		Parity:       c.Line.Parity.String(),
		StopBits:     c.Line.StopBits(),
		ManualTiming: c.ManualTiming,
		PauseMs:      c.Pause,
		TimeoutMs:    c.Timeout,
		Devices:      make([]deviceDocument, len(c.Devices)),
	}
	for i, d := range c.Devices {
		doc.Devices[i] = deviceDocument{
			Address:      d.Address,
			Function:     d.FunctionCode,
			Register:     d.Register,
			Cycle:        d.Cycle.Count,
			Seconds:      d.Cycle.Seconds,
			Combine:      d.Cycle.Combine,
			HighLow:      d.Cycle.HighLow,
			LittleEndian: d.Cycle.LittleEndian,
		}
	}
	return doc
}

// Config converts the document back. Omitted line fields fall back to
// 9600 8N1.
func (doc configDocument) Config() (bridge.Config, error) {
	line := transport.DefaultLineConfig
	if doc.BaudRate != 0 {
		line.BaudRate = doc.BaudRate
	}
	if doc.DataBits != 0 {
		line.DataBits = doc.DataBits
	}
	if doc.Parity != "" {
		p, ok := parities[strings.ToUpper(doc.Parity)]
		if !ok {
			return bridge.Config{}, fmt.Errorf("unknown parity %q", doc.Parity)
		}
		line.Parity = p
	}
	switch doc.StopBits {
	case 0, 1:
	case 2:
		line.TwoStopBits = true
	default:
		return bridge.Config{}, fmt.Errorf("invalid stop bits %d", doc.StopBits)
	}

	c := bridge.Config{
		Line:         line,
		ManualTiming: doc.ManualTiming,
		Pause:        doc.PauseMs,
		Timeout:      doc.TimeoutMs,
		Devices:      make([]bridge.Device, len(doc.Devices)),
	}
	for i, d := range doc.Devices {
		if d.Cycle > 0x0FFF {
			return bridge.Config{}, fmt.Errorf("device %d: cycle %d out of range", i, d.Cycle)
		}
		c.Devices[i] = bridge.Device{
			Address:      d.Address,
			FunctionCode: d.Function,
			Register:     d.Register,
			Cycle: bridge.PollingCycle{
				Count:        d.Cycle,
				Seconds:      d.Seconds,
				Combine:      d.Combine,
				HighLow:      d.HighLow,
				LittleEndian: d.LittleEndian,
			},
		}
	}
	return c, nil
}
