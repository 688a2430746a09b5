// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package legacy

import "fmt"

// Command is the 7-bit legacy command carried in the first data byte.
type Command uint8

const (
	CmdVersionRequest            Command = 0x01
	CmdStartRequest              Command = 0x02
	CmdAlive                     Command = 0x03
	CmdExtensionOffline          Command = 0x04
	CmdAliveReply                Command = 0x05
	CmdAck                       Command = 0x06
	CmdNak                       Command = 0x07
	CmdParkExtension             Command = 0x08
	CmdIdentifyUnknownExtensions Command = 0x09
	CmdIdentify                  Command = 0x0A
	CmdIdentifyLED               Command = 0x0B
	CmdSyncTicks                 Command = 0x0C
	CmdSyncDateTime              Command = 0x0D
	CmdMuteAll                   Command = 0x0E
	CmdRebootAll                 Command = 0x0F
	CmdLEDFlashPosition          Command = 0x10
	CmdLinkDiagnosisRequest      Command = 0x11
	CmdLinkDiagnosisReply        Command = 0x12
	CmdConfigCheckCRC            Command = 0x13
	CmdDebug                     Command = 0x14
	CmdFragmentStart             Command = 0x15
	CmdFragmentData              Command = 0x16

	CmdModbusSensorValue             Command = 0x20
	CmdModbusWriteSingleCoil         Command = 0x21
	CmdModbusWriteSingleRegister     Command = 0x22
	CmdModbusWriteMultipleRegisters  Command = 0x23
	CmdModbusWriteMultipleRegisters2 Command = 0x24
	CmdModbusWriteSingleRegister4    Command = 0x25
	CmdModbusWriteMultipleRegisters4 Command = 0x26

	CmdSoftwareUpdateInit    Command = 0x70
	CmdSoftwareUpdateVerify  Command = 0x71
	CmdSoftwareUpdatePageCRC Command = 0x72
	CmdSoftwareUpdateData    Command = 0x73

	commandMask = 0x7F
)

var commandNames = map[Command]string{
	CmdVersionRequest:                "version_request",
	CmdStartRequest:                  "start_request",
	CmdAlive:                         "alive",
	CmdExtensionOffline:              "extension_offline",
	CmdAliveReply:                    "alive_reply",
	CmdAck:                           "BC_ACK",
	CmdNak:                           "BC_NAK",
	CmdParkExtension:                 "park_extension",
	CmdIdentifyUnknownExtensions:     "identify_unknown_extensions",
	CmdIdentify:                      "identify",
	CmdIdentifyLED:                   "identify_LED",
	CmdSyncTicks:                     "sync_ticks",
	CmdSyncDateTime:                  "sync_date_time",
	CmdMuteAll:                       "mute_all",
	CmdRebootAll:                     "reboot_all",
	CmdLEDFlashPosition:              "LED_flash_position",
	CmdLinkDiagnosisRequest:          "LinkDiagnosis_request",
	CmdLinkDiagnosisReply:            "LinkDiagnosis_reply",
	CmdConfigCheckCRC:                "config_check_CRC",
	CmdDebug:                         "debug",
	CmdFragmentStart:                 "fragment_start",
	CmdFragmentData:                  "fragment_data",
	CmdModbusSensorValue:             "Modbus_485_SensorValue",
	CmdModbusWriteSingleCoil:         "Modbus_485_WriteSingleCoil",
	CmdModbusWriteSingleRegister:     "Modbus_485_WriteSingleRegister",
	CmdModbusWriteMultipleRegisters:  "Modbus_485_WriteMultipleRegisters",
	CmdModbusWriteMultipleRegisters2: "Modbus_485_WriteMultipleRegisters2",
	CmdModbusWriteSingleRegister4:    "Modbus_485_WriteSingleRegister4",
	CmdModbusWriteMultipleRegisters4: "Modbus_485_WriteMultipleRegisters4",
	CmdSoftwareUpdateInit:            "software_update_init",
	CmdSoftwareUpdateVerify:          "software_update_verify",
	CmdSoftwareUpdatePageCRC:         "software_update_page_crc",
	CmdSoftwareUpdateData:            "software_update_data",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(0x%02X)", uint8(c))
}

// Direction tells whether a frame travels to a device or comes from one.
type Direction uint8

const (
	ToDevice Direction = iota
	FromDevice
)

func (d Direction) String() string {
	if d == FromDevice {
		return "from-device"
	}
	return "to-device"
}

// FragmentCommand names the payload carried by a fragmented transfer.
type FragmentCommand uint8

const (
	FragmentConfig FragmentCommand = 0x01
)

// ForcedMarker in value16 forces an update or reboot regardless of version.
const ForcedMarker = 0xDEAD
