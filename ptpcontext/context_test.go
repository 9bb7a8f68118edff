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

package ptpcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linksync/ptpslave/health"
	"github.com/linksync/ptpslave/ptpio"
	"github.com/linksync/ptpslave/timesource"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.StatsListenAddr = "" // disable the stats HTTP listener in tests
	cfg.Ports = []PortConfig{
		{
			PortID: 0,
			CPU:    -1,
			Sessions: []SessionConfig{
				{RxVlan: 100, TxVlan: 100, TxVLIdx: 1},
			},
		},
	}
	return cfg
}

func TestNewContextBuildsPortsAndSessions(t *testing.T) {
	cfg := testConfig()
	io := ptpio.NewFakePacketIO()
	flowAPI := ptpio.NewFakeFlowAPI()
	src := timesource.NewFakeSource(0, 0)

	pc, err := NewContext(cfg, io, flowAPI, nil, src, ptpio.FakeMACSource{MAC: [6]byte{0x02, 0, 0, 0, 0, 1}})
	require.NoError(t, err)
	require.Len(t, pc.Ports, 1)
	require.Len(t, pc.Ports[0].Sessions, 1)
	require.Equal(t, [6]byte{0x02, 0, 0, 0, 0, 1}, pc.Ports[0].MAC)
	require.Nil(t, pc.Health())
}

func TestNewContextToleratesNilMACSource(t *testing.T) {
	cfg := testConfig()
	pc, err := NewContext(cfg, ptpio.NewFakePacketIO(), ptpio.NewFakeFlowAPI(), nil, timesource.NewFakeSource(0, 0), nil)
	require.NoError(t, err)
	require.Equal(t, [6]byte{}, pc.Ports[0].MAC)
}

func TestNewContextRejectsEmptyPorts(t *testing.T) {
	cfg := testConfig()
	cfg.Ports = nil
	_, err := NewContext(cfg, ptpio.NewFakePacketIO(), ptpio.NewFakeFlowAPI(), nil, timesource.NewFakeSource(0, 0), nil)
	require.Error(t, err)
}

func TestStartInstallsFlowRulesAndStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	io := ptpio.NewFakePacketIO()
	flowAPI := ptpio.NewFakeFlowAPI()
	src := timesource.NewFakeSource(0, 0)
	sock := health.NewFakeSocket()

	pc, err := NewContext(cfg, io, flowAPI, sock, src, nil)
	require.NoError(t, err)
	require.NotNil(t, pc.Health())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- pc.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(flowAPI.Installed) == 1
	}, time.Second, time.Millisecond)
	require.Eventually(t, pc.IsRunning, time.Second, time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancellation")
	}

	require.False(t, pc.IsRunning())
	require.Len(t, flowAPI.Removed, 1)
}

func TestStartRejectsConcurrentStart(t *testing.T) {
	cfg := testConfig()
	io := ptpio.NewFakePacketIO()
	flowAPI := ptpio.NewFakeFlowAPI()
	src := timesource.NewFakeSource(0, 0)

	pc, err := NewContext(cfg, io, flowAPI, nil, src, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pc.Start(ctx)

	require.Eventually(t, pc.IsRunning, time.Second, time.Millisecond)
	require.Error(t, pc.Start(context.Background()))
}
