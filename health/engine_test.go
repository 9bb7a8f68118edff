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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linksync/ptpslave/wire"
)

func sentinelFrame(payload []byte) []byte {
	payload[4] = wire.DestMACSentinel[0]
	payload[5] = wire.DestMACSentinel[1]
	return payload
}

func TestEngineRunOnceSendsQueryWithSequence(t *testing.T) {
	sock := NewFakeSocket()
	e := NewEngine(sock, DefaultConfig())

	cycle, err := e.RunOnce()
	require.NoError(t, err)
	require.Equal(t, byte(1), cycle.SequenceID)
	require.Len(t, sock.Sent, 1)
	require.Equal(t, byte(1), sock.Sent[0][querySequenceOffset])
}

func TestEngineRunOnceIgnoresFramesWithoutSentinel(t *testing.T) {
	sock := NewFakeSocket()
	sock.Inject(make([]byte, wire.FullDeviceFrameLen)) // no sentinel bytes set
	e := NewEngine(sock, DefaultConfig())

	cycle, err := e.RunOnce()
	require.NoError(t, err)
	require.Equal(t, 0, cycle.ResponsesAccepted)
}

func TestEngineRunOnceAcceptsPartialCycleAndCountsTimeout(t *testing.T) {
	sock := NewFakeSocket()
	full := sentinelFrame(make([]byte, wire.FullDeviceFrameLen))
	full[wrapperSize+wire.StatusEnableOffset] = wire.StatusEnableAssistant
	sock.Inject(full)
	sock.Inject(sentinelFrame(make([]byte, wire.ContinuationFrameLen3)))
	e := NewEngine(sock, DefaultConfig())

	cycle, err := e.RunOnce()
	require.NoError(t, err)
	require.Equal(t, 2, cycle.ResponsesAccepted)
	stats := e.Stats().Snapshot()
	require.Equal(t, uint64(1), stats.CyclesRun)
	require.Equal(t, uint64(1), stats.CycleTimeouts) // only 2 of 6 expected arrived
}

func TestEngineSequenceAdvancesAcrossCycles(t *testing.T) {
	sock := NewFakeSocket()
	e := NewEngine(sock, DefaultConfig())

	first, err := e.RunOnce()
	require.NoError(t, err)
	second, err := e.RunOnce()
	require.NoError(t, err)

	require.Equal(t, byte(1), first.SequenceID)
	require.Equal(t, byte(2), second.SequenceID)
}
