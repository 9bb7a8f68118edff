/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package wire

import "encoding/binary"

// Frame wrapper sizes for the health-monitor telemetry frames. Every
// accepted frame is a full Ethernet + IPv4 + UDP frame; classification
// happens on the total wire length.
const (
	healthEthHeaderSize = 14
	healthIPHeaderSize  = 20
	healthUDPHeaderSize = 8
	healthWrapperSize   = healthEthHeaderSize + healthIPHeaderSize + healthUDPHeaderSize // 42

	// DeviceHeaderFixedSize is the size, within the UDP payload, of the
	// fixed device-identity/telemetry block that precedes the per-port
	// blocks in a full (1187-byte) frame.
	DeviceHeaderFixedSize = 113
	// PortBlockSize is the size of one per-port counter block.
	PortBlockSize = 129
	// continuationMiniHeaderSize is the size of the small marker that
	// replaces the device header in a continuation frame (1083/438 bytes).
	continuationMiniHeaderSize = 9

	// FullDeviceFrameLen is the wire length of a full FPGA frame: device
	// header + 8 port blocks.
	FullDeviceFrameLen = healthWrapperSize + DeviceHeaderFixedSize + 8*PortBlockSize // 1187
	// ContinuationFrameLen8 is the wire length of an 8-port continuation frame.
	ContinuationFrameLen8 = healthWrapperSize + continuationMiniHeaderSize + 8*PortBlockSize // 1083
	// ContinuationFrameLen3 is the wire length of a 3-port continuation frame.
	ContinuationFrameLen3 = healthWrapperSize + continuationMiniHeaderSize + 3*PortBlockSize // 438
)

// Offsets of fields inside the 113-byte device header block, relative to
// the start of the UDP payload (i.e. byte 0 of that block is byte 42 of
// the full frame). StatusEnableOffset is pinned at 6: byte 6 of the UDP
// payload identifies which FPGA personality produced the frame.
const (
	OperationCodeOffset      = 0
	ConfigurationCodeOffset  = 1
	StatusEnableOffset       = 6
	deviceIdentityOffset     = 8  // 8 bytes
	deviceTxCountOffset      = 16 // 48-bit
	deviceRxCountOffset      = 22 // 48-bit
	deviceErrorCountOffset   = 28 // 48-bit
	deviceHeartbeatOffset    = 34 // 64-bit
	deviceRailStatusOffset   = 42 // 1 byte, bitfield
	deviceFWVersionOffset    = 43 // 2x uint16: major, minor
	deviceFIFOSizesOffset    = 47 // 2x uint16: tx fifo, rx fifo
	deviceTODSecondsOffset   = 51 // 40-bit
	deviceTODNanosOffset     = 56 // 40-bit
	deviceVoltageRawOffset   = 61 // uint16
	deviceTemperatureRawOffset = 63 // uint16
	deviceConfigIDOffset     = 65 // uint32
)

// StatusEnableAssistant and StatusEnableManager are the two FPGA
// personalities distinguished by StatusEnableOffset.
const (
	StatusEnableAssistant byte = 0x03
	StatusEnableManager   byte = 0x01
)

// HealthDeviceFrame is the decoded fixed block of a full FPGA telemetry
// frame.
type HealthDeviceFrame struct {
	OperationCode     uint8
	ConfigurationCode uint8
	StatusEnable      uint8
	Identity          [8]byte
	TxCount           uint64 // 48-bit
	RxCount           uint64 // 48-bit
	ErrorCount        uint64 // 48-bit
	Heartbeat         uint64
	RailStatus        uint8
	FWVersionMajor    uint16
	FWVersionMinor    uint16
	FIFOTxSize        uint16
	FIFORxSize        uint16
	TODSeconds        uint64 // 40-bit
	TODNanoseconds    uint64 // 40-bit
	VoltageVolts      float64
	TemperatureCelsius float64
	ConfigurationID   uint32
}

func read48(b []byte) uint64 {
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
}

func read40(b []byte) uint64 {
	return uint64(b[0])<<32 | uint64(b[1])<<24 | uint64(b[2])<<16 |
		uint64(b[3])<<8 | uint64(b[4])
}

// DecodeFPGAVoltage applies the FPGA fixed-point voltage decoding:
// raw>>3&0xFFF is the integer part in millivolts-ish units, raw&7 is a
// tenths fractional part, and the whole thing is scaled to volts by /1000.
func DecodeFPGAVoltage(raw uint16) float64 {
	integer := float64((raw >> 3) & 0xFFF)
	frac := float64(raw & 0x7)
	return (integer + frac/10) / 1000
}

// DecodeFPGATemperature applies the FPGA fixed-point temperature
// decoding: result is Kelvin until the 273.15 subtraction
// converts it to Celsius.
func DecodeFPGATemperature(raw uint16) float64 {
	integer := float64((raw >> 4) & 0xFFF)
	fracRaw := float64(raw & 0xF)
	var divisor float64 = 10
	if fracRaw >= 10 {
		divisor = 100
	}
	kelvin := integer + fracRaw/divisor
	return kelvin - 273.15
}

// ParseDeviceHeader decodes the fixed device-header block of a full
// (1187-byte) FPGA frame. buf must be the whole wire frame (Ethernet
// through UDP payload).
func ParseDeviceHeader(buf []byte) (HealthDeviceFrame, error) {
	if len(buf) < healthWrapperSize+DeviceHeaderFixedSize {
		return HealthDeviceFrame{}, ErrShortFrame
	}
	b := buf[healthWrapperSize:]
	var d HealthDeviceFrame
	d.OperationCode = b[OperationCodeOffset]
	d.ConfigurationCode = b[ConfigurationCodeOffset]
	d.StatusEnable = b[StatusEnableOffset]
	copy(d.Identity[:], b[deviceIdentityOffset:deviceIdentityOffset+8])
	d.TxCount = read48(b[deviceTxCountOffset:])
	d.RxCount = read48(b[deviceRxCountOffset:])
	d.ErrorCount = read48(b[deviceErrorCountOffset:])
	d.Heartbeat = binary.BigEndian.Uint64(b[deviceHeartbeatOffset:])
	d.RailStatus = b[deviceRailStatusOffset]
	d.FWVersionMajor = binary.BigEndian.Uint16(b[deviceFWVersionOffset:])
	d.FWVersionMinor = binary.BigEndian.Uint16(b[deviceFWVersionOffset+2:])
	d.FIFOTxSize = binary.BigEndian.Uint16(b[deviceFIFOSizesOffset:])
	d.FIFORxSize = binary.BigEndian.Uint16(b[deviceFIFOSizesOffset+2:])
	d.TODSeconds = read40(b[deviceTODSecondsOffset:])
	d.TODNanoseconds = read40(b[deviceTODNanosOffset:])
	rawVoltage := binary.BigEndian.Uint16(b[deviceVoltageRawOffset:])
	d.VoltageVolts = DecodeFPGAVoltage(rawVoltage)
	rawTemp := binary.BigEndian.Uint16(b[deviceTemperatureRawOffset:])
	d.TemperatureCelsius = DecodeFPGATemperature(rawTemp)
	d.ConfigurationID = binary.BigEndian.Uint32(b[deviceConfigIDOffset:])
	return d, nil
}

// HealthPortFrame is one decoded 129-byte per-port counter block.
type HealthPortFrame struct {
	PortIndex     uint8
	LinkUp        bool
	SpeedMbps     uint16
	TxPackets     uint64 // 48-bit
	RxPackets     uint64 // 48-bit
	TxBytes       uint64 // 48-bit
	RxBytes       uint64 // 48-bit
	CRCErrors     uint64 // 48-bit
	TxErrors      uint64 // 48-bit
	RxErrors      uint64 // 48-bit
	XcvrVoltsRaw  uint16
	XcvrTempRaw   uint16
}

const (
	portIndexOffset  = 0
	portLinkOffset   = 1
	portSpeedOffset  = 2
	portTxPktOffset  = 4
	portRxPktOffset  = 10
	portTxByteOffset = 16
	portRxByteOffset = 22
	portCRCOffset    = 28
	portTxErrOffset  = 34
	portRxErrOffset  = 40
	portXcvrVOffset  = 46
	portXcvrTOffset  = 48
)

// ParsePortBlock decodes one 129-byte per-port block starting at buf[0].
func ParsePortBlock(buf []byte) (HealthPortFrame, error) {
	if len(buf) < PortBlockSize {
		return HealthPortFrame{}, ErrShortFrame
	}
	var p HealthPortFrame
	p.PortIndex = buf[portIndexOffset]
	p.LinkUp = buf[portLinkOffset] != 0
	p.SpeedMbps = binary.BigEndian.Uint16(buf[portSpeedOffset:])
	p.TxPackets = read48(buf[portTxPktOffset:])
	p.RxPackets = read48(buf[portRxPktOffset:])
	p.TxBytes = read48(buf[portTxByteOffset:])
	p.RxBytes = read48(buf[portRxByteOffset:])
	p.CRCErrors = read48(buf[portCRCOffset:])
	p.TxErrors = read48(buf[portTxErrOffset:])
	p.RxErrors = read48(buf[portRxErrOffset:])
	p.XcvrVoltsRaw = binary.BigEndian.Uint16(buf[portXcvrVOffset:])
	p.XcvrTempRaw = binary.BigEndian.Uint16(buf[portXcvrTOffset:])
	return p, nil
}

// ParsePortBlocks decodes n consecutive port blocks starting right after
// the device header (full frame) or the continuation mini-header.
func ParsePortBlocks(buf []byte, n int) ([]HealthPortFrame, error) {
	out := make([]HealthPortFrame, 0, n)
	for i := 0; i < n; i++ {
		start := i * PortBlockSize
		if start+PortBlockSize > len(buf) {
			return nil, ErrShortFrame
		}
		p, err := ParsePortBlock(buf[start : start+PortBlockSize])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// PortBlocksFromFullFrame returns the 8 port blocks that follow the
// device header in a FullDeviceFrameLen frame.
func PortBlocksFromFullFrame(buf []byte) ([]HealthPortFrame, error) {
	if len(buf) < healthWrapperSize+DeviceHeaderFixedSize {
		return nil, ErrShortFrame
	}
	return ParsePortBlocks(buf[healthWrapperSize+DeviceHeaderFixedSize:], 8)
}

// PortBlocksFromContinuationFrame returns the n port blocks carried by a
// continuation frame (n is 8 for ContinuationFrameLen8, 3 for
// ContinuationFrameLen3).
func PortBlocksFromContinuationFrame(buf []byte, n int) ([]HealthPortFrame, error) {
	if len(buf) < healthWrapperSize+continuationMiniHeaderSize {
		return nil, ErrShortFrame
	}
	return ParsePortBlocks(buf[healthWrapperSize+continuationMiniHeaderSize:], n)
}

// MCU telemetry frame field offsets, relative to the start of the UDP
// payload. FoTransceiverTemperatureOffset is the last fixed field and
// is used as the minimum-length gate for MCU classification.
const (
	mcuFWVersionOffset       = 0
	mcuComponentStatusOffset = 2
	mcuRail1VoltageOffset    = 3
	mcuRail1CurrentOffset    = 5
	mcuRail2VoltageOffset    = 7
	mcuRail2CurrentOffset    = 9
	mcuTempMCUOffset         = 11
	mcuTempBoardOffset       = 13
	mcuXcvrVoltageOffset     = 15
	// FoTransceiverTemperatureOffset is the last fixed field; a frame
	// must be at least this offset + 2 bytes to decode as MCU telemetry.
	FoTransceiverTemperatureOffset = 17
)

// MCUMinLength is the minimum UDP-payload-relative length accepted as an
// MCU frame: any frame not matching the full-device, continuation-8, or
// continuation-3 lengths but at least this long falls back to MCU telemetry.
const MCUMinLength = FoTransceiverTemperatureOffset + 2

// HealthMcuFrame is the decoded short telemetry frame from the device
// MCU.
type HealthMcuFrame struct {
	FWVersion             uint16
	ComponentStatus       uint8
	Rail1VoltageVolts     float64
	Rail1CurrentAmps      float64
	Rail2VoltageVolts     float64
	Rail2CurrentAmps      float64
	TempMCUCelsius        float64
	TempBoardCelsius      float64
	XcvrVoltageVolts      float64
	XcvrTemperatureCelsius float64
}

// ParseMCU decodes an MCU telemetry frame. buf must be the full wire
// frame (Ethernet through UDP payload); the caller is responsible for
// having already checked the length against MCUMinLength.
func ParseMCU(buf []byte) (HealthMcuFrame, error) {
	if len(buf) < healthWrapperSize+MCUMinLength {
		return HealthMcuFrame{}, ErrShortFrame
	}
	b := buf[healthWrapperSize:]
	var m HealthMcuFrame
	m.FWVersion = binary.BigEndian.Uint16(b[mcuFWVersionOffset:])
	m.ComponentStatus = b[mcuComponentStatusOffset]
	m.Rail1VoltageVolts = float64(binary.BigEndian.Uint16(b[mcuRail1VoltageOffset:])) / 1000
	m.Rail1CurrentAmps = float64(binary.BigEndian.Uint16(b[mcuRail1CurrentOffset:])) / 1000
	m.Rail2VoltageVolts = float64(binary.BigEndian.Uint16(b[mcuRail2VoltageOffset:])) / 1000
	m.Rail2CurrentAmps = float64(binary.BigEndian.Uint16(b[mcuRail2CurrentOffset:])) / 1000
	m.TempMCUCelsius = float64(binary.BigEndian.Uint16(b[mcuTempMCUOffset:])) / 100
	m.TempBoardCelsius = float64(binary.BigEndian.Uint16(b[mcuTempBoardOffset:])) / 100
	m.XcvrVoltageVolts = float64(binary.BigEndian.Uint16(b[mcuXcvrVoltageOffset:])) / 1000
	m.XcvrTemperatureCelsius = float64(binary.BigEndian.Uint16(b[FoTransceiverTemperatureOffset:])) / 100
	return m, nil
}

// FrameClass is the byte-length-directed classification of an accepted
// response frame, as returned by Classify.
type FrameClass int

const (
	// FrameUnknown is returned for lengths that match none of the known
	// classes and fall below MCUMinLength too.
	FrameUnknown FrameClass = iota
	FrameFullDevice
	FrameContinuation8
	FrameContinuation3
	FrameMCU
)

// Classify implements the size-directed classification rule.
func Classify(frameLen int) FrameClass {
	switch frameLen {
	case FullDeviceFrameLen:
		return FrameFullDevice
	case ContinuationFrameLen8:
		return FrameContinuation8
	case ContinuationFrameLen3:
		return FrameContinuation3
	}
	if frameLen-healthWrapperSize >= MCUMinLength {
		return FrameMCU
	}
	return FrameUnknown
}

// DestMACSentinel is the destination MAC byte pair (positions 4 and 5)
// the health engine filters inbound frames by.
var DestMACSentinel = [2]byte{0x11, 0x84}

// MatchesDestSentinel reports whether buf's destination MAC bytes 4..5
// equal DestMACSentinel.
func MatchesDestSentinel(buf []byte) bool {
	if len(buf) < 6 {
		return false
	}
	return buf[4] == DestMACSentinel[0] && buf[5] == DestMACSentinel[1]
}
