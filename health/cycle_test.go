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

package health

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linksync/ptpslave/wire"
)

// wrapperSize is the Ethernet+IPv4+UDP header size preceding the UDP
// payload in every health-monitor frame (14 + 20 + 8).
const wrapperSize = 42

func fullDeviceFrame(statusEnable byte) []byte {
	buf := make([]byte, wire.FullDeviceFrameLen)
	buf[wrapperSize+wire.StatusEnableOffset] = statusEnable
	return buf
}

func continuationFrame(n int) []byte {
	if n == 8 {
		return make([]byte, wire.ContinuationFrameLen8)
	}
	return make([]byte, wire.ContinuationFrameLen3)
}

func mcuFrame() []byte {
	return make([]byte, wrapperSize+wire.MCUMinLength)
}

func TestCycleAcceptsFullDeviceThenAttributesContinuation(t *testing.T) {
	c := newCycle(1)
	c.acceptFrame(fullDeviceFrame(wire.StatusEnableAssistant))
	require.NotNil(t, c.Assistant.Device)
	require.Len(t, c.Assistant.PortBlocks, 8)

	c.acceptFrame(continuationFrame(3))
	require.Len(t, c.Assistant.PortBlocks, 11)
	require.Equal(t, 2, c.ResponsesAccepted)
	require.Equal(t, 0, c.ResponsesDropped)
}

func TestCycleDropsContinuationBeforeFullDevice(t *testing.T) {
	c := newCycle(1)
	c.acceptFrame(continuationFrame(8))
	require.Equal(t, 0, c.ResponsesAccepted)
	require.Equal(t, 1, c.ResponsesDropped)
}

func TestCycleRoutesContinuationToLastIdentifiedFPGA(t *testing.T) {
	c := newCycle(1)
	c.acceptFrame(fullDeviceFrame(wire.StatusEnableAssistant))
	c.acceptFrame(fullDeviceFrame(wire.StatusEnableManager))
	c.acceptFrame(continuationFrame(3))

	require.Len(t, c.Assistant.PortBlocks, 8)
	require.Len(t, c.Manager.PortBlocks, 11)
}

func TestCycleAcceptsMCU(t *testing.T) {
	c := newCycle(1)
	c.acceptFrame(mcuFrame())
	require.NotNil(t, c.MCU)
	require.Equal(t, 1, c.ResponsesAccepted)
}

func TestCycleDropsUnrecognizedLength(t *testing.T) {
	c := newCycle(1)
	c.acceptFrame(make([]byte, 10))
	require.Equal(t, 0, c.ResponsesAccepted)
	require.Equal(t, 1, c.ResponsesDropped)
}
