// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package legacy

// DeviceType is the 8-bit extension category.
type DeviceType uint8

// Types must stay below 0x10 so that bit 28 distinguishes direct frames from
// the device's own identifier.
const DeviceTypeModbusExtension DeviceType = 0x0D

// Identity is fixed for the process lifetime.
type Identity struct {
	Serial           uint32
	Type             DeviceType
	HardwareRevision uint8
	Version          uint32
}

// NewIdentity keeps the low 24 bits of serial and stores the device type in
// the top byte, as every extension announces itself.
func NewIdentity(serial uint32, deviceType DeviceType, hardwareRevision uint8, version uint32) Identity {
	return Identity{
		Serial:           serial&0xFFFFFF | uint32(deviceType)<<24,
		Type:             deviceType,
		HardwareRevision: hardwareRevision,
		Version:          version,
	}
}

// AliveInterval is the heartbeat period in milliseconds: a 360 s base plus
// up to 63 s derived from the serial so devices do not announce together.
func (id Identity) AliveInterval() int32 {
	return int32(1000 * ((id.Serial & 0x3F) + 360))
}

// AddressClass is the addressing form of an inbound identifier.
type AddressClass int

const (
	ClassNone AddressClass = iota
	ClassBroadcast
	ClassTypeMulticast
	ClassDirect
	ClassFromDevice
	ClassFirmwareUpdate
)

func (c AddressClass) String() string {
	switch c {
	case ClassBroadcast:
		return "broadcast"
	case ClassTypeMulticast:
		return "type-multicast"
	case ClassDirect:
		return "direct"
	case ClassFromDevice:
		return "from-device"
	case ClassFirmwareUpdate:
		return "firmware-update"
	}
	return "none"
}

// Classify maps an identifier to exactly one class, checked in precedence
// order.
func (id Identity) Classify(identifier uint32) AddressClass {
	typ := uint32(id.Type)
	switch {
	case identifier == 0:
		return ClassBroadcast
	case identifier == typ<<24:
		return ClassTypeMulticast
	case identifier == id.Serial|0x10000000:
		return ClassDirect
	case identifier == id.Serial:
		return ClassFromDevice
	case identifier&0x1FFF0000 == typ<<16|0x1F000000:
		return ClassFirmwareUpdate
	}
	return ClassNone
}
