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

import "sync/atomic"

// Stats is the lock-free counter block owned by the query engine; only
// the engine goroutine mutates it, a reporting goroutine reads through
// Snapshot.
type Stats struct {
	cyclesRun     atomic.Uint64
	cycleTimeouts atomic.Uint64
	framesDropped atomic.Uint64
	alarmsFired   atomic.Uint64
}

// StatsSnapshot is a consistent point-in-time read of Stats.
type StatsSnapshot struct {
	CyclesRun     uint64
	CycleTimeouts uint64
	FramesDropped uint64
	AlarmsFired   uint64
}

// Snapshot reads every counter independently; since each is a single
// atomic word this is consistent enough for reporting purposes.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		CyclesRun:     s.cyclesRun.Load(),
		CycleTimeouts: s.cycleTimeouts.Load(),
		FramesDropped: s.framesDropped.Load(),
		AlarmsFired:   s.alarmsFired.Load(),
	}
}
