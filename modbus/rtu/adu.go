// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"errors"
	"fmt"

	"github.com/ffutop/legacy-modbus-bridge/modbus"
	"github.com/ffutop/legacy-modbus-bridge/modbus/crc"
)

var (
	ErrNoResponse       = errors.New("modbus: no response")
	ErrShortResponse    = errors.New("modbus: response too short")
	ErrCRCMismatch      = errors.New("modbus: response crc mismatch")
	ErrResponseMismatch = errors.New("modbus: response address or function mismatch")
)

// ApplicationDataUnit is an RTU frame split into its slave address and PDU.
type ApplicationDataUnit struct {
	SlaveID byte
	Pdu     modbus.ProtocolDataUnit
}

func Decode(raw []byte) (adu *ApplicationDataUnit, err error) {
	length := len(raw)
	// Minimum size (including address, function and CRC)
	if length < MinSize {
		err = fmt.Errorf("modbus: request length '%v' does not meet minimum '%v'", length, MinSize)
		return
	}

	var sum crc.CRC
	sum.Reset().PushBytes(raw[0 : length-2])
	checksum := uint16(raw[length-1])<<8 | uint16(raw[length-2])
	if checksum != sum.Value() {
		err = fmt.Errorf("%w: '%v' does not match expected '%v'", ErrCRCMismatch, checksum, sum.Value())
		return
	}
	adu = &ApplicationDataUnit{}
	adu.SlaveID = raw[0]
	adu.Pdu.FunctionCode = raw[1]
	adu.Pdu.Data = raw[2 : length-2]
	return
}

// Encode encodes PDU in an RTU frame:
//
//	Slave Address   : 1 byte
//	Function        : 1 byte
//	Data            : 0 up to 252 bytes
//	CRC             : 2 bytes
func (adu *ApplicationDataUnit) Encode() (raw []byte, err error) {
	length := len(adu.Pdu.Data) + 4
	if length > MaxSize {
		err = fmt.Errorf("modbus: length of data '%v' must not be bigger than '%v'", length, MaxSize)
		return
	}
	raw = make([]byte, 2, length)
	raw[0] = adu.SlaveID
	raw[1] = adu.Pdu.FunctionCode
	raw = append(raw, adu.Pdu.Data...)
	raw = crc.Append(raw)
	return
}

// CheckResponse applies the acceptance rules for a raw response to req, in
// order: non-empty, longer than MinSize, valid trailing CRC, and address and
// function code echoed from the request.
func CheckResponse(req, resp []byte) error {
	switch {
	case len(resp) == 0:
		return ErrNoResponse
	case len(resp) < MinResponseSize:
		return fmt.Errorf("%w: %d bytes", ErrShortResponse, len(resp))
	case !crc.Valid(resp):
		return ErrCRCMismatch
	case len(req) < 2 || resp[0] != req[0] || resp[1] != req[1]:
		return fmt.Errorf("%w: got %02X %02X", ErrResponseMismatch, resp[0], resp[1])
	}
	return nil
}
