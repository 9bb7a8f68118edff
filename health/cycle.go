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
	"github.com/sirupsen/logrus"

	"github.com/linksync/ptpslave/wire"
)

// fpgaAccumulator holds one FPGA's decoded device header and the port
// blocks attributed to it over a cycle, built up across a full frame
// plus zero or more continuation frames.
type fpgaAccumulator struct {
	Device     *wire.HealthDeviceFrame
	PortBlocks []wire.HealthPortFrame
}

// Cycle is the accumulator for one health-monitor query cycle: two FPGA
// personalities, one MCU record, and the "last FPGA identified" marker
// continuation frames are attributed to.
type Cycle struct {
	SequenceID byte

	Assistant fpgaAccumulator
	Manager   fpgaAccumulator
	MCU       *wire.HealthMcuFrame

	lastIdentified byte // wire.StatusEnableAssistant / StatusEnableManager, 0 = none yet

	ResponsesAccepted int
	ResponsesDropped  int

	// Findings and FirmwareStale are populated by EvaluateAlarms and
	// EvaluateFirmware respectively; the engine calls both once a
	// cycle's frames are collected.
	Findings      []Finding
	FirmwareStale []string
}

// newCycle starts a fresh accumulator for sequence seq.
func newCycle(seq byte) *Cycle {
	return &Cycle{SequenceID: seq}
}

// acceptFrame classifies and folds one accepted response frame into the
// cycle. Continuation frames received before any full frame identifies
// an FPGA are logged and discarded, per the engine's attribution
// invariant.
func (c *Cycle) acceptFrame(buf []byte) {
	class := wire.Classify(len(buf))
	var ok bool
	switch class {
	case wire.FrameFullDevice:
		ok = c.acceptFullDevice(buf)
	case wire.FrameContinuation8:
		ok = c.acceptContinuation(buf, 8)
	case wire.FrameContinuation3:
		ok = c.acceptContinuation(buf, 3)
	case wire.FrameMCU:
		ok = c.acceptMCU(buf)
	default:
		logrus.Debugf("health: dropping frame of unrecognized length %d", len(buf))
		ok = false
	}
	if ok {
		c.ResponsesAccepted++
	} else {
		c.ResponsesDropped++
	}
}

func (c *Cycle) acceptFullDevice(buf []byte) bool {
	dev, err := wire.ParseDeviceHeader(buf)
	if err != nil {
		logrus.Warnf("health: parsing device header: %v", err)
		return false
	}
	ports, err := wire.PortBlocksFromFullFrame(buf)
	if err != nil {
		logrus.Warnf("health: parsing port blocks: %v", err)
		return false
	}
	acc := c.accumulatorFor(dev.StatusEnable)
	if acc == nil {
		logrus.Warnf("health: unrecognized FPGA personality byte 0x%02x", dev.StatusEnable)
		return false
	}
	acc.Device = &dev
	acc.PortBlocks = ports
	c.lastIdentified = dev.StatusEnable
	return true
}

func (c *Cycle) acceptContinuation(buf []byte, n int) bool {
	if c.lastIdentified == 0 {
		logrus.Warnf("health: continuation frame (%d ports) with no FPGA identified yet, discarding", n)
		return false
	}
	ports, err := wire.PortBlocksFromContinuationFrame(buf, n)
	if err != nil {
		logrus.Warnf("health: parsing continuation frame: %v", err)
		return false
	}
	acc := c.accumulatorFor(c.lastIdentified)
	acc.PortBlocks = append(acc.PortBlocks, ports...)
	return true
}

func (c *Cycle) acceptMCU(buf []byte) bool {
	m, err := wire.ParseMCU(buf)
	if err != nil {
		logrus.Warnf("health: parsing MCU frame: %v", err)
		return false
	}
	c.MCU = &m
	return true
}

func (c *Cycle) accumulatorFor(statusEnable uint8) *fpgaAccumulator {
	switch statusEnable {
	case wire.StatusEnableAssistant:
		return &c.Assistant
	case wire.StatusEnableManager:
		return &c.Manager
	default:
		return nil
	}
}
