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

package session

import (
	"sync/atomic"

	"github.com/eclesh/welford"
)

// counters is the lock-free counter block owned by a Session. Every
// field is only ever mutated by the worker goroutine that owns the
// session's rx_port; a reporting goroutine reads through SnapshotStats.
type counters struct {
	syncRxCount          atomic.Uint64
	delayReqTxCount      atomic.Uint64
	delayRespRxCount     atomic.Uint64
	syncTimeoutCount     atomic.Uint64
	validationErrorCount atomic.Uint64
	syncCount            atomic.Uint64
	syncErrors           atomic.Uint64
	missingT4Count       atomic.Uint64
}

func (c *counters) reset() {
	c.syncRxCount.Store(0)
	c.delayReqTxCount.Store(0)
	c.delayRespRxCount.Store(0)
	c.syncTimeoutCount.Store(0)
	c.validationErrorCount.Store(0)
	c.syncCount.Store(0)
	c.syncErrors.Store(0)
	c.missingT4Count.Store(0)
}

// Stats is a consistent, point-in-time read of one session's counters
// and the current offset/delay together with their running mean and
// variance over the session's lifetime.
type Stats struct {
	State                State
	SyncRxCount          uint64
	DelayReqTxCount      uint64
	DelayRespRxCount     uint64
	SyncTimeoutCount     uint64
	ValidationErrorCount uint64
	SyncCount            uint64
	SyncErrors           uint64
	MissingT4Count       uint64
	OffsetNs             int64
	DelayNs              int64
	OffsetMeanNs         float64
	OffsetVarianceNs2    float64
	DelayMeanNs          float64
	DelayVarianceNs2     float64
	IsSynced             bool
}

// runningStats tracks the Welford running mean/variance of offset and
// delay, the same estimator the c4u and fbclock daemons use for clock
// quality math.
type runningStats struct {
	offset *welford.Stats
	delay  *welford.Stats
}

func newRunningStats() *runningStats {
	return &runningStats{
		offset: welford.New(),
		delay:  welford.New(),
	}
}

func (r *runningStats) add(offsetNs, delayNs int64) {
	r.offset.Add(float64(offsetNs))
	r.delay.Add(float64(delayNs))
}

func (r *runningStats) reset() {
	r.offset = welford.New()
	r.delay = welford.New()
}
