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

// Package timesource abstracts the monotonic tick and epoch-aligned
// wall-clock readings the PTP workers need (the health-monitor engine
// times its cycles with the time package instead). The core
// is otherwise timestamp-source agnostic: callers supply a Source and
// everything downstream works in ticks and nanoseconds.
package timesource

import (
	"time"

	"golang.org/x/sys/unix"
)

// Source is the minimal time abstraction the core requires.
type Source interface {
	// TickNow returns a free-running monotonic counter value. Non-decreasing
	// on one worker.
	TickNow() uint64
	// TickHz returns the frequency of TickNow, in ticks per second.
	TickHz() uint64
	// RealtimeNowNs returns wall-clock nanoseconds since the Unix epoch,
	// the same epoch the PTP wire timestamps use.
	RealtimeNowNs() uint64
}

// TickToNs converts a tick count to nanoseconds given a tick frequency.
func TickToNs(tick uint64, hz uint64) uint64 {
	if hz == 0 {
		return 0
	}
	// order of operations avoids overflow for realistic tick/hz ranges
	// (hz is in the MHz-GHz range, tick fits in 64 bits for centuries of uptime)
	sec := tick / hz
	rem := tick % hz
	return sec*uint64(time.Second) + (rem*uint64(time.Second))/hz
}

// clockSource is the default Source backed by CLOCK_MONOTONIC_RAW and the
// process wall clock, following the same clock_gettime-based approach
// phc.Time uses for hardware clocks.
type clockSource struct {
	hz uint64
}

// NewClockSource returns a Source backed by the host's monotonic and
// realtime clocks. hz is the resolution callers should assume for
// TickHz; callers not metering against a hardware tick typically pass
// 1e9 (TickNow reports nanoseconds directly).
func NewClockSource(hz uint64) Source {
	if hz == 0 {
		hz = uint64(time.Second)
	}
	return &clockSource{hz: hz}
}

// TickNow returns CLOCK_MONOTONIC_RAW nanoseconds, scaled to TickHz.
func (c *clockSource) TickNow() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		return 0
	}
	ns := uint64(ts.Sec)*uint64(time.Second) + uint64(ts.Nsec)
	if c.hz == uint64(time.Second) {
		return ns
	}
	return (ns * c.hz) / uint64(time.Second)
}

// TickHz returns the configured tick frequency.
func (c *clockSource) TickHz() uint64 {
	return c.hz
}

// RealtimeNowNs returns CLOCK_REALTIME nanoseconds since the Unix epoch.
func (c *clockSource) RealtimeNowNs() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return uint64(ts.Sec)*uint64(time.Second) + uint64(ts.Nsec)
}
