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

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func fullDeviceFrame(statusEnable byte) []byte {
	buf := make([]byte, FullDeviceFrameLen)
	d := buf[healthWrapperSize:]
	d[StatusEnableOffset] = statusEnable
	binary.BigEndian.PutUint16(d[deviceFWVersionOffset:], 3)
	binary.BigEndian.PutUint16(d[deviceFWVersionOffset+2:], 7)
	return buf
}

func TestClassifyKnownLengths(t *testing.T) {
	require.Equal(t, FrameFullDevice, Classify(FullDeviceFrameLen))
	require.Equal(t, FrameContinuation8, Classify(ContinuationFrameLen8))
	require.Equal(t, FrameContinuation3, Classify(ContinuationFrameLen3))
	require.Equal(t, FrameUnknown, Classify(10))
}

func TestClassifyMCUByLength(t *testing.T) {
	require.Equal(t, FrameMCU, Classify(healthWrapperSize+MCUMinLength))
	require.Equal(t, FrameMCU, Classify(94))
}

func TestParseDeviceHeaderAssistant(t *testing.T) {
	buf := fullDeviceFrame(StatusEnableAssistant)
	d, err := ParseDeviceHeader(buf)
	require.NoError(t, err)
	require.Equal(t, StatusEnableAssistant, d.StatusEnable)
	require.Equal(t, uint16(3), d.FWVersionMajor)
	require.Equal(t, uint16(7), d.FWVersionMinor)
}

func TestParseDeviceHeaderShort(t *testing.T) {
	_, err := ParseDeviceHeader(make([]byte, healthWrapperSize+DeviceHeaderFixedSize-1))
	require.ErrorIs(t, err, ErrShortFrame)
}

func TestPortBlocksFromFullFrame(t *testing.T) {
	buf := fullDeviceFrame(StatusEnableManager)
	ports := buf[healthWrapperSize+DeviceHeaderFixedSize:]
	ports[0*PortBlockSize+portIndexOffset] = 0
	ports[0*PortBlockSize+portLinkOffset] = 1
	ports[1*PortBlockSize+portIndexOffset] = 1

	blocks, err := PortBlocksFromFullFrame(buf)
	require.NoError(t, err)
	require.Len(t, blocks, 8)
	require.True(t, blocks[0].LinkUp)
	require.Equal(t, uint8(1), blocks[1].PortIndex)
}

func TestPortBlocksFromContinuationFrame(t *testing.T) {
	buf := make([]byte, ContinuationFrameLen3)
	blocks, err := PortBlocksFromContinuationFrame(buf, 3)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
}

func TestDecodeFPGAVoltage(t *testing.T) {
	raw := uint16(1000<<3 | 5)
	v := DecodeFPGAVoltage(raw)
	require.InDelta(t, 1.0005, v, 1e-9)
}

func TestDecodeFPGATemperatureLowFraction(t *testing.T) {
	raw := uint16(300<<4 | 5)
	c := DecodeFPGATemperature(raw)
	require.InDelta(t, 300.5-273.15, c, 1e-9)
}

func TestDecodeFPGATemperatureHighFraction(t *testing.T) {
	raw := uint16(300<<4 | 12)
	c := DecodeFPGATemperature(raw)
	require.InDelta(t, 300.12-273.15, c, 1e-9)
}

func TestParseMCU(t *testing.T) {
	buf := make([]byte, healthWrapperSize+MCUMinLength)
	b := buf[healthWrapperSize:]
	binary.BigEndian.PutUint16(b[mcuFWVersionOffset:], 42)
	b[mcuComponentStatusOffset] = 1
	binary.BigEndian.PutUint16(b[mcuRail1VoltageOffset:], 3300)
	binary.BigEndian.PutUint16(b[mcuTempMCUOffset:], 4250)
	binary.BigEndian.PutUint16(b[FoTransceiverTemperatureOffset:], 3500)

	m, err := ParseMCU(buf)
	require.NoError(t, err)
	require.Equal(t, uint16(42), m.FWVersion)
	require.InDelta(t, 3.3, m.Rail1VoltageVolts, 1e-9)
	require.InDelta(t, 42.5, m.TempMCUCelsius, 1e-9)
	require.InDelta(t, 35.0, m.XcvrTemperatureCelsius, 1e-9)
}

func TestMatchesDestSentinel(t *testing.T) {
	buf := make([]byte, 6)
	buf[4] = 0x11
	buf[5] = 0x84
	require.True(t, MatchesDestSentinel(buf))
	buf[5] = 0x85
	require.False(t, MatchesDestSentinel(buf))
}
