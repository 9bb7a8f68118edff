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

package worker

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linksync/ptpslave/ptpio"
	"github.com/linksync/ptpslave/session"
	"github.com/linksync/ptpslave/timesource"
	"github.com/linksync/ptpslave/wire"
)

func buildSyncFrame(vlan uint16, seq uint16, originNs uint64) []byte {
	buf := make([]byte, 14+4+wire.HeaderSize+wire.SyncBodySize)
	binary.BigEndian.PutUint16(buf[12:14], wire.VLANEtherType)
	binary.BigEndian.PutUint16(buf[14:16], vlan&0x0FFF)
	binary.BigEndian.PutUint16(buf[16:18], wire.PTPEtherType)

	ptpBuf := buf[18:]
	ptpBuf[0] = byte(wire.MessageSync)
	binary.BigEndian.PutUint16(ptpBuf[30:32], seq)

	ts := wire.NewTimestampFromNanoseconds(originNs)
	copy(ptpBuf[wire.HeaderSize:wire.HeaderSize+6], ts.Seconds[:])
	binary.BigEndian.PutUint32(ptpBuf[wire.HeaderSize+6:wire.HeaderSize+10], ts.Nanoseconds)
	return buf
}

func newTestSession(rxVlan, txVlan, txVLIdx uint16) *session.Session {
	localID := wire.PortIdentity{ClockIdentity: wire.ClockIdentity{0x2c, 0x1a}, PortNumber: 0}
	return session.NewSession(0, 0, 0, rxVlan, txVlan, txVLIdx, localID, 1_000_000_000, session.DefaultConfig())
}

func TestWorkerDispatchesSyncByVLAN(t *testing.T) {
	io := ptpio.NewFakePacketIO()

	sess := newTestSession(61, 97, 4420)
	src := timesource.NewFakeSource(0, 0)
	w := NewWorker(0, -1, io, src, []*session.Session{sess})

	w.RunOnce() // first tick: INIT -> LISTENING
	require.Equal(t, session.StateListening, sess.State())

	io.Inject(buildSyncFrame(61, 1, 1000))
	w.RunOnce()

	require.Equal(t, session.StateSyncReceived, sess.State())
	require.Equal(t, uint64(1), sess.SnapshotStats().SyncRxCount)
}

func TestWorkerIgnoresNonPTPFrame(t *testing.T) {
	io := ptpio.NewFakePacketIO()
	buf := make([]byte, 14)
	binary.BigEndian.PutUint16(buf[12:14], 0x0800)
	io.Inject(buf)

	sess := newTestSession(61, 97, 4420)
	src := timesource.NewFakeSource(0, 0)
	w := NewWorker(0, -1, io, src, []*session.Session{sess})

	w.RunOnce()
	require.Equal(t, uint64(1), w.nonPTPCount)
	require.Equal(t, session.StateListening, sess.State())
}

func TestWorkerSendsDelayReqAfterInterval(t *testing.T) {
	io := ptpio.NewFakePacketIO()

	sess := newTestSession(61, 97, 4420)
	src := timesource.NewFakeSource(0, 0)
	w := NewWorker(0, -1, io, src, []*session.Session{sess})

	w.RunOnce() // first tick: INIT -> LISTENING
	io.Inject(buildSyncFrame(61, 1, 1000))
	w.RunOnce() // processes Sync -> SYNC_RECEIVED

	src.Advance(200_000_000)
	w.RunOnce() // no new frames; tick should emit Delay_Req

	require.Len(t, io.Sent, 1)
	require.Equal(t, session.StateDelayReqSent, sess.State())
}

func TestWorkerTxFailureSetsError(t *testing.T) {
	io := ptpio.NewFakePacketIO()
	io.FailTx = true

	sess := newTestSession(61, 97, 4420)
	src := timesource.NewFakeSource(0, 0)
	w := NewWorker(0, -1, io, src, []*session.Session{sess})

	w.RunOnce()
	io.Inject(buildSyncFrame(61, 1, 1000))
	w.RunOnce()
	src.Advance(200_000_000)
	w.RunOnce()

	require.Equal(t, session.StateError, sess.State())
}

func TestWorkerUnmatchedVLANIsDropped(t *testing.T) {
	io := ptpio.NewFakePacketIO()

	sess := newTestSession(61, 97, 4420)
	src := timesource.NewFakeSource(0, 0)
	w := NewWorker(0, -1, io, src, []*session.Session{sess})

	w.RunOnce()
	io.Inject(buildSyncFrame(99, 1, 1000))
	w.RunOnce()
	require.Equal(t, session.StateListening, sess.State())
}
