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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/linksync/ptpslave/wire"
)

// EvaluateAlarms runs every alarm against each FPGA's per-port
// transceiver readings and the MCU's rail/board readings, appending a
// Finding to c.Findings for each one that fires.
func (c *Cycle) EvaluateAlarms(alarms []*Alarm) {
	if len(alarms) == 0 {
		return
	}
	c.evaluateFPGAPorts("assistant", c.Assistant, alarms)
	c.evaluateFPGAPorts("manager", c.Manager, alarms)
	c.evaluateMCU(alarms)
}

func (c *Cycle) evaluateFPGAPorts(label string, acc fpgaAccumulator, alarms []*Alarm) {
	for _, p := range acc.PortBlocks {
		voltage := wire.DecodeFPGAVoltage(p.XcvrVoltsRaw)
		temperature := wire.DecodeFPGATemperature(p.XcvrTempRaw)
		c.evaluateAll(alarms, fmt.Sprintf("%s port %d transceiver", label, p.PortIndex), voltage, temperature)
	}
}

func (c *Cycle) evaluateMCU(alarms []*Alarm) {
	if c.MCU == nil {
		return
	}
	c.evaluateAll(alarms, "mcu rail1", c.MCU.Rail1VoltageVolts, c.MCU.TempMCUCelsius)
	c.evaluateAll(alarms, "mcu rail2", c.MCU.Rail2VoltageVolts, c.MCU.TempBoardCelsius)
	c.evaluateAll(alarms, "mcu transceiver", c.MCU.XcvrVoltageVolts, c.MCU.XcvrTemperatureCelsius)
}

func (c *Cycle) evaluateAll(alarms []*Alarm, subject string, voltage, temperature float64) {
	for _, a := range alarms {
		fired, err := a.Evaluate(voltage, temperature)
		if err != nil {
			logrus.Warnf("health: alarm %q evaluation for %s: %v", a.Name, subject, err)
			continue
		}
		if fired {
			c.Findings = append(c.Findings, Finding{
				AlarmName:   a.Name,
				Subject:     subject,
				Voltage:     voltage,
				Temperature: temperature,
			})
		}
	}
}

// EvaluateFirmware flags every identified FPGA whose reported firmware
// version is below check's configured minimum.
func (c *Cycle) EvaluateFirmware(check *FirmwareCheck) {
	if check == nil {
		return
	}
	c.checkFirmware("assistant", c.Assistant, check)
	c.checkFirmware("manager", c.Manager, check)
}

func (c *Cycle) checkFirmware(label string, acc fpgaAccumulator, check *FirmwareCheck) {
	if acc.Device == nil {
		return
	}
	stale, err := check.IsStale(acc.Device.FWVersionMajor, acc.Device.FWVersionMinor)
	if err != nil {
		logrus.Warnf("health: firmware check for %s: %v", label, err)
		return
	}
	if stale {
		c.FirmwareStale = append(c.FirmwareStale, label)
	}
}
