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
	"context"
	"time"

	"github.com/google/gopacket/pcap"
	"github.com/sirupsen/logrus"

	"github.com/linksync/ptpslave/wire"
)

// ExpectedResponses is the number of responses a healthy cycle collects
// before its deadline: one full device frame and 1083/438-byte
// continuation frames from each of the two FPGA personalities, plus the
// MCU record.
const ExpectedResponses = 6

// Config holds the query engine's per-cycle timing.
type Config struct {
	QueryInterval   time.Duration
	ResponseTimeout time.Duration
}

// DefaultConfig returns the 1s/500ms cycle timing.
func DefaultConfig() Config {
	return Config{
		QueryInterval:   time.Second,
		ResponseTimeout: 500 * time.Millisecond,
	}
}

// CycleObserver is notified once a cycle completes, for report rendering
// or metrics export.
type CycleObserver func(*Cycle)

// Engine is the single-threaded health-monitor query/response worker.
type Engine struct {
	socket Socket
	cfg    Config
	seq    *sequenceCounter
	stats  Stats

	// Alarms and Firmware are evaluated against every collected cycle,
	// if set. Neither is required: an Engine with both nil still runs
	// the query/response loop and classification.
	Alarms   []*Alarm
	Firmware *FirmwareCheck

	OnCycle CycleObserver
}

// NewEngine builds an Engine bound to socket.
func NewEngine(socket Socket, cfg Config) *Engine {
	return &Engine{
		socket: socket,
		cfg:    cfg,
		seq:    newSequenceCounter(),
	}
}

// Stats returns the engine's counter block for external reporting.
func (e *Engine) Stats() *Stats {
	return &e.stats
}

// Run drives the cycle loop until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		start := time.Now()
		cycle, err := e.RunOnce()
		if err != nil {
			logrus.Errorf("health: cycle failed: %v", err)
		} else if e.OnCycle != nil {
			e.OnCycle(cycle)
		}
		elapsed := time.Since(start)
		if sleep := e.cfg.QueryInterval - elapsed; sleep > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		}
	}
}

// RunOnce executes one query/response cycle: send, collect up to
// ExpectedResponses accepted frames within ResponseTimeout, classify
// and fold each into a Cycle.
func (e *Engine) RunOnce() (*Cycle, error) {
	seq := e.seq.Next()
	cycle := newCycle(seq)

	if err := e.socket.Send(buildQuery(seq)); err != nil {
		return cycle, err
	}

	deadline := time.Now().Add(e.cfg.ResponseTimeout)
	for cycle.ResponsesAccepted < ExpectedResponses {
		frame, err := e.socket.ReadFrame(deadline)
		if err != nil {
			if err == pcap.NextErrorTimeoutExpired {
				break
			}
			logrus.Warnf("health: reading response: %v", err)
			break
		}
		if !wire.MatchesDestSentinel(frame) {
			continue
		}
		cycle.acceptFrame(frame)
	}

	cycle.EvaluateAlarms(e.Alarms)
	cycle.EvaluateFirmware(e.Firmware)

	e.stats.cyclesRun.Add(1)
	e.stats.framesDropped.Add(uint64(cycle.ResponsesDropped))
	e.stats.alarmsFired.Add(uint64(len(cycle.Findings)))
	if cycle.ResponsesAccepted < ExpectedResponses {
		e.stats.cycleTimeouts.Add(1)
	}
	return cycle, nil
}
