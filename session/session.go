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
	"sync"

	"github.com/linksync/ptpslave/wire"
)

// Session owns one Sync/Delay_Req/Delay_Resp exchange with the master
// through a single VLAN. It is mutated only by the worker owning
// RxPort; SnapshotStats is safe to call from any goroutine.
type Session struct {
	RxPort       int
	RxVlan       uint16
	TxPort       int
	TxVlan       uint16
	TxVLIdx      uint16
	SessionIndex int

	LocalPortIdentity wire.PortIdentity
	TickHz            uint64
	cfg               Config

	mu sync.Mutex

	rxVlIdx            uint16
	masterPortIdentity wire.PortIdentity
	masterDomain       uint8

	lastSyncSeqID     uint16
	delayReqSeqID     uint16
	lastDelayReqSeqID uint16

	t1          uint64 // ns, from wire Sync timestamp
	t2Tick      uint64
	t2Realtime  uint64
	t3Tick      uint64
	t3Realtime  uint64
	t4          uint64 // ns, from wire Delay_Resp timestamp
	t4Valid     bool

	offsetNs int64
	delayNs  int64

	state           State
	lastStateChange uint64
	lastSyncTick    uint64
	isSynced        bool

	counters counters
	running  runningStats
}

// NewSession creates a session in state INIT with zeroed statistics.
func NewSession(rxPort, txPort, sessionIndex int, rxVlan, txVlan, txVLIdx uint16, localID wire.PortIdentity, tickHz uint64, cfg Config) *Session {
	return &Session{
		RxPort:            rxPort,
		RxVlan:            rxVlan,
		TxPort:            txPort,
		TxVlan:            txVlan,
		TxVLIdx:           txVLIdx,
		SessionIndex:      sessionIndex,
		LocalPortIdentity: localID,
		TickHz:            tickHz,
		cfg:               cfg,
		state:             StateInit,
		running:           *newRunningStats(),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RxVLIdx returns the learned receive VL-IDX (zero until the first Sync).
func (s *Session) RxVLIdx() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rxVlIdx
}

// HandleSync applies a received Sync message.
func (s *Session) HandleSync(h wire.Header, ts wire.Timestamp, rxTick uint64, nowRealtime uint64, rxVlIdx uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.masterPortIdentity = h.SourcePortIdentity
	s.masterDomain = h.DomainNumber
	s.lastSyncSeqID = h.SequenceID
	s.rxVlIdx = rxVlIdx
	s.lastSyncTick = rxTick

	switch s.state {
	case StateListening, StateSynced, StateError:
		s.t1 = ts.ToNanoseconds(false)
		s.t2Tick = rxTick
		s.t2Realtime = nowRealtime
		s.t4Valid = false
		s.state = StateSyncReceived
		s.counters.syncRxCount.Add(1)
	case StateSyncReceived, StateDelayReqSent:
		// mid-cycle Sync: track liveness only, never clobber t1/t2.
	}
}

// HandleDelayResp applies a received Delay_Resp message.
// It returns true if the message advanced this session to SYNCED.
func (s *Session) HandleDelayResp(h wire.Header, ts wire.Timestamp) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.SequenceID != s.lastDelayReqSeqID {
		s.counters.validationErrorCount.Add(1)
		return false
	}

	if ts.Empty() {
		s.counters.missingT4Count.Add(1)
		s.t4Valid = false
		return false
	}

	s.t4 = ts.ToNanoseconds(false)
	s.t4Valid = true
	s.counters.delayRespRxCount.Add(1)

	if s.state != StateDelayReqSent {
		return false
	}

	s.computeOffsetDelayLocked()
	s.state = StateSynced
	s.isSynced = true
	s.counters.syncCount.Add(1)
	return true
}

// computeOffsetDelayLocked derives offset and mean path delay from the
// four timestamp exchange: offset = (a-b)/2, delay = (a+b)/2, where
// a = t2-t1 and b = t4-t3. Caller holds s.mu.
func (s *Session) computeOffsetDelayLocked() {
	if s.t1 == 0 || s.t2Realtime == 0 || s.t3Realtime == 0 || !s.t4Valid {
		s.counters.missingT4Count.Add(1)
		return
	}
	a := int64(s.t2Realtime) - int64(s.t1)
	b := int64(s.t4) - int64(s.t3Realtime)
	offset := (a - b) / 2
	delay := (a + b) / 2
	s.offsetNs = offset
	s.delayNs = delay
	s.running.add(offset, delay)
}

// TxResult is the outcome of a Delay_Req transmission attempt, reported
// back into Tick by the worker that owns this session.
type TxResult int

// Transmit outcomes for a pending Delay_Req.
const (
	TxNone TxResult = iota
	TxSucceeded
	TxFailed
)

// DelayReqOrder carries the parameters the worker needs to build and
// send a Delay_Req, returned by Tick when the state machine wants one
// transmitted.
type DelayReqOrder struct {
	SequenceID uint16
}

// Tick advances the state machine by elapsed-time events: sync
// timeouts, the Delay_Req send interval, and Delay_Resp timeouts.
// now is the caller's monotonic tick reading. If the state
// machine wants a Delay_Req sent this call, order is non-nil; the
// caller must report the outcome via CompleteDelayReq once it knows
// whether the transmit succeeded, along with the t3 readings.
func (s *Session) Tick(now uint64) *DelayReqOrder {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateInit:
		s.state = StateListening
		s.lastStateChange = now
	case StateListening:
		if s.lastSyncTick > 0 && now-s.lastSyncTick > durationToTicks(s.cfg.SyncTimeout, s.TickHz) {
			s.counters.syncTimeoutCount.Add(1)
			s.lastSyncTick = now
		}
	case StateSyncReceived:
		if now-s.lastStateChange >= durationToTicks(s.cfg.DelayReqInterval, s.TickHz) {
			s.delayReqSeqID++
			order := DelayReqOrder{SequenceID: s.delayReqSeqID}
			s.lastDelayReqSeqID = s.delayReqSeqID
			return &order
		}
	case StateDelayReqSent:
		if now-s.lastStateChange > durationToTicks(s.cfg.DelayRespTimeout, s.TickHz) {
			s.state = StateListening
			s.counters.syncTimeoutCount.Add(1)
		}
	case StateSynced:
		if now-s.lastSyncTick > durationToTicks(s.cfg.SyncTimeout, s.TickHz) {
			s.state = StateListening
			s.isSynced = false
			s.counters.syncTimeoutCount.Add(1)
		}
	case StateError:
		if now-s.lastStateChange > durationToTicks(s.cfg.SyncTimeout, s.TickHz) {
			s.state = StateListening
			s.lastStateChange = now
		}
	}
	return nil
}

// CompleteDelayReq records the outcome of a Delay_Req transmission the
// worker initiated after Tick returned a non-nil DelayReqOrder.
// t3Tick/t3Realtime are the timestamps captured around the transmit
// call.
func (s *Session) CompleteDelayReq(now uint64, result TxResult, t3Tick, t3Realtime uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch result {
	case TxSucceeded:
		s.t3Tick = t3Tick
		s.t3Realtime = t3Realtime
		s.state = StateDelayReqSent
		s.lastStateChange = now
		s.counters.delayReqTxCount.Add(1)
	case TxFailed:
		s.state = StateError
		s.lastStateChange = now
		s.counters.syncErrors.Add(1)
	}
}

// SnapshotStats returns a consistent read of this session's counters
// and derived values.
func (s *Session) SnapshotStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		State:                s.state,
		SyncRxCount:          s.counters.syncRxCount.Load(),
		DelayReqTxCount:      s.counters.delayReqTxCount.Load(),
		DelayRespRxCount:     s.counters.delayRespRxCount.Load(),
		SyncTimeoutCount:     s.counters.syncTimeoutCount.Load(),
		ValidationErrorCount: s.counters.validationErrorCount.Load(),
		SyncCount:            s.counters.syncCount.Load(),
		SyncErrors:           s.counters.syncErrors.Load(),
		MissingT4Count:       s.counters.missingT4Count.Load(),
		OffsetNs:             s.offsetNs,
		DelayNs:              s.delayNs,
		OffsetMeanNs:         s.running.offset.Mean(),
		OffsetVarianceNs2:    s.running.offset.Variance(),
		DelayMeanNs:          s.running.delay.Mean(),
		DelayVarianceNs2:     s.running.delay.Variance(),
		IsSynced:             s.isSynced,
	}
}

// ResetStats zeroes all counters and the running offset/delay estimators.
func (s *Session) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.reset()
	s.running.reset()
}
