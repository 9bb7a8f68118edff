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

// Package worker runs the per-port PTP event loop: drain the dedicated
// receive queue, classify and dispatch frames to the right session by
// VLAN, tick every session on the port, and emit Delay_Req frames when
// the state machine calls for one.
package worker

import (
	"context"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/linksync/ptpslave/ptpio"
	"github.com/linksync/ptpslave/session"
	"github.com/linksync/ptpslave/timesource"
	"github.com/linksync/ptpslave/wire"
)

// BurstSize is the maximum number of frames polled per receive call.
const BurstSize = 32

// QueueID is the dedicated PTP receive queue index the flow rule steers
// traffic into.
const QueueID = 5

// Worker runs the event loop for every session anchored at one rx_port.
type Worker struct {
	PortID   uint16
	CPU      int // -1 disables CPU pinning
	IO       ptpio.PacketIO
	Src      timesource.Source
	Sessions []*session.Session

	// RXByMessageType counts received frames by wire.MessageType index
	// (0..15), a debug aid printed in the worker's debug heartbeat.
	RXByMessageType [16]uint64
	nonPTPCount     uint64
	shortFrameCount uint64
	totalRx         uint64

	// DebugInterval, when non-zero, makes Run log a one-line counter
	// summary at roughly that cadence.
	DebugInterval time.Duration
	lastDebugTick uint64
}

// NewWorker builds a Worker for one port and its sessions.
func NewWorker(portID uint16, cpu int, io ptpio.PacketIO, src timesource.Source, sessions []*session.Session) *Worker {
	return &Worker{
		PortID:   portID,
		CPU:      cpu,
		IO:       io,
		Src:      src,
		Sessions: sessions,
	}
}

// pinCurrentThread locks the calling goroutine to its OS thread and, if
// CPU >= 0, pins that thread to the configured core.
func (w *Worker) pinCurrentThread() error {
	runtime.LockOSThread()
	if w.CPU < 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(w.CPU)
	return unix.SchedSetaffinity(0, &set)
}

// Run busy-polls until ctx is cancelled. It pins the current goroutine's
// OS thread to w.CPU first, so callers should invoke Run from its own
// dedicated goroutine.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.pinCurrentThread(); err != nil {
		log.Warnf("worker: port %d: cpu pin failed: %v", w.PortID, err)
	}
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		w.RunOnce()
	}
}

// RunOnce drains one burst from the receive queue, dispatches it, ticks
// every session, and sends any Delay_Req the tick calls for.
func (w *Worker) RunOnce() {
	bufs := make([]ptpio.Buffer, BurstSize)
	n, err := w.IO.RxBurst(w.PortID, QueueID, bufs)
	if err != nil {
		log.Warnf("worker: port %d: rx_burst: %v", w.PortID, err)
		n = 0
	}

	w.totalRx += uint64(n)
	for i := 0; i < n; i++ {
		rxTick := w.Src.TickNow()
		w.handleFrame(bufs[i], rxTick)
		bufs[i].Release()
	}

	now := w.Src.TickNow()
	for _, sess := range w.Sessions {
		order := sess.Tick(now)
		if order != nil {
			w.sendDelayReq(sess, *order)
		}
	}
	w.maybeLogDebugHeartbeat(now)
}

// maybeLogDebugHeartbeat logs a counter summary roughly every
// DebugInterval of tick time, mirroring the periodic debug print the
// DPDK worker loop this package is modeled on emits every 5 seconds.
func (w *Worker) maybeLogDebugHeartbeat(now uint64) {
	if w.DebugInterval == 0 || w.Src.TickHz() == 0 {
		return
	}
	intervalTicks := uint64(w.DebugInterval.Seconds() * float64(w.Src.TickHz()))
	if w.lastDebugTick != 0 && now-w.lastDebugTick < intervalTicks {
		return
	}
	w.lastDebugTick = now
	log.Debugf("worker: port %d total_rx=%d non_ptp=%d short=%d rx_by_type=%v",
		w.PortID, w.totalRx, w.nonPTPCount, w.shortFrameCount, w.RXByMessageType)
}

func (w *Worker) handleFrame(buf ptpio.Buffer, rxTick uint64) {
	data := buf.Bytes()
	ev, err := wire.ParseEthVlan(data)
	if err != nil {
		w.shortFrameCount++
		return
	}
	if ev.InnerEtherType != wire.PTPEtherType {
		w.nonPTPCount++
		return
	}
	ptpBuf := data[ev.PayloadOffset:]
	if len(ptpBuf) < wire.HeaderSize {
		w.shortFrameCount++
		return
	}

	msgType := wire.MessageType(ptpBuf[0] & 0x0F)
	if int(msgType) < len(w.RXByMessageType) {
		w.RXByMessageType[msgType]++
	}

	var vlanID uint16
	if ev.VlanID != nil {
		vlanID = *ev.VlanID
	}
	sess := w.findSession(vlanID)
	if sess == nil {
		return
	}

	switch msgType {
	case wire.MessageSync:
		h, ts, err := wire.ParseSync(ptpBuf)
		if err != nil {
			return
		}
		sess.HandleSync(h, ts, rxTick, w.Src.RealtimeNowNs(), vlanID)
	case wire.MessageDelayResp:
		h, ts, _, err := wire.ParseDelayResp(ptpBuf)
		if err != nil {
			return
		}
		sess.HandleDelayResp(h, ts)
	case wire.MessageFollowUp, wire.MessageAnnounce, wire.MessageSignaling:
		// tallied above but otherwise unused by a one-step delay slave
	default:
		// counted via RXByMessageType already; no further action
	}
}

func (w *Worker) findSession(vlanID uint16) *session.Session {
	for _, sess := range w.Sessions {
		if sess.RxVlan == vlanID {
			return sess
		}
	}
	return nil
}

// sendDelayReq builds and transmits a Delay_Req for order, capturing t3
// as the mean of tick readings taken immediately before and after
// submission.
func (w *Worker) sendDelayReq(sess *session.Session, order session.DelayReqOrder) {
	frame := wire.BuildDelayReq(wire.DelayReqParams{
		TxVLAN:             sess.TxVlan,
		TxVLIdx:            sess.TxVLIdx,
		SourcePortIdentity: sess.LocalPortIdentity,
		SequenceID:         order.SequenceID,
	})

	before := w.Src.TickNow()
	buf := w.IO.AllocFrame(frame)
	n, err := w.IO.TxBurst(w.PortID, []ptpio.Buffer{buf})
	after := w.Src.TickNow()
	t3Tick := (before + after) / 2
	t3Realtime := w.Src.RealtimeNowNs()

	now := w.Src.TickNow()
	if err != nil || n != 1 {
		w.logTxFailure(sess, err)
		sess.CompleteDelayReq(now, session.TxFailed, t3Tick, t3Realtime)
		return
	}
	sess.CompleteDelayReq(now, session.TxSucceeded, t3Tick, t3Realtime)
}

func (w *Worker) logTxFailure(sess *session.Session, err error) {
	log.Warnf("worker: port %d session %d: delay_req tx failed: %v", w.PortID, sess.SessionIndex, err)
}
