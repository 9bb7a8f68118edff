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

package timesource

import "sync/atomic"

// FakeSource is a deterministic, manually-advanced Source used by the
// worker and ptpcontext test suites. TickHz is fixed at 1e9 so tick
// units are nanoseconds.
type FakeSource struct {
	tick     uint64
	realtime uint64
}

// NewFakeSource creates a FakeSource starting at the given tick/realtime.
func NewFakeSource(startTick, startRealtime uint64) *FakeSource {
	return &FakeSource{tick: startTick, realtime: startRealtime}
}

// TickNow returns the current fake tick.
func (f *FakeSource) TickNow() uint64 {
	return atomic.LoadUint64(&f.tick)
}

// TickHz always reports a nanosecond tick.
func (f *FakeSource) TickHz() uint64 {
	return 1_000_000_000
}

// RealtimeNowNs returns the current fake wall-clock reading.
func (f *FakeSource) RealtimeNowNs() uint64 {
	return atomic.LoadUint64(&f.realtime)
}

// Advance moves both the tick and the wall clock forward by deltaNs.
func (f *FakeSource) Advance(deltaNs uint64) {
	atomic.AddUint64(&f.tick, deltaNs)
	atomic.AddUint64(&f.realtime, deltaNs)
}

// SetRealtime pins the wall-clock reading independent of the tick, for
// scenarios that stage t2/t3 realtime values explicitly.
func (f *FakeSource) SetRealtime(ns uint64) {
	atomic.StoreUint64(&f.realtime, ns)
}

// SetTick pins the monotonic tick independent of the wall clock.
func (f *FakeSource) SetTick(ns uint64) {
	atomic.StoreUint64(&f.tick, ns)
}
