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

func TestEvaluateAlarmsFlagsOutOfRangePort(t *testing.T) {
	c := newCycle(1)
	c.acceptFrame(fullDeviceFrame(wire.StatusEnableAssistant))

	low, err := NewAlarm("rail-low", "voltage < 0.1")
	require.NoError(t, err)

	c.EvaluateAlarms([]*Alarm{low})
	require.NotEmpty(t, c.Findings)
	require.Equal(t, "rail-low", c.Findings[0].AlarmName)
}

func TestEvaluateAlarmsNoneConfiguredProducesNoFindings(t *testing.T) {
	c := newCycle(1)
	c.acceptFrame(fullDeviceFrame(wire.StatusEnableAssistant))

	c.EvaluateAlarms(nil)
	require.Empty(t, c.Findings)
}

func TestEvaluateFirmwareFlagsStaleFPGA(t *testing.T) {
	c := newCycle(1)
	buf := fullDeviceFrame(wire.StatusEnableManager)
	c.acceptFrame(buf)
	c.Manager.Device.FWVersionMajor = 1
	c.Manager.Device.FWVersionMinor = 0

	check, err := NewFirmwareCheck("2.0.0")
	require.NoError(t, err)

	c.EvaluateFirmware(check)
	require.Equal(t, []string{"manager"}, c.FirmwareStale)
}

func TestEvaluateFirmwareSkipsUnidentifiedFPGA(t *testing.T) {
	c := newCycle(1)
	check, err := NewFirmwareCheck("2.0.0")
	require.NoError(t, err)

	c.EvaluateFirmware(check)
	require.Empty(t, c.FirmwareStale)
}
