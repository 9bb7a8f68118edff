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

package ptpio

import (
	"context"
	"testing"

	"github.com/google/gopacket/pcap"
	"github.com/stretchr/testify/require"
)

func TestBPFFilterForKnownPatterns(t *testing.T) {
	filter, ok := bpfFilterFor(FlowPatternVLANAnyVID)
	require.True(t, ok)
	require.Equal(t, "vlan and ether proto 0x88f7", filter)

	filter, ok = bpfFilterFor(FlowPatternVLANExplicitEtherType)
	require.True(t, ok)
	require.Equal(t, "vlan and ether proto 0x88f7", filter)

	filter, ok = bpfFilterFor(FlowPatternUntagged)
	require.True(t, ok)
	require.Equal(t, "ether proto 0x88f7", filter)
}

func TestBPFFilterForUnknownPattern(t *testing.T) {
	_, ok := bpfFilterFor(FlowPattern(99))
	require.False(t, ok)
}

func TestPcapFlowAPIRejectsUnknownPort(t *testing.T) {
	api := NewPcapFlowAPI(map[uint16]*pcap.Handle{})
	_, err := api.InstallPattern(context.Background(), 5, 0, FlowPatternUntagged)
	require.Error(t, err)

	err = api.RemovePattern(context.Background(), pcapFlowHandle{portID: 5})
	require.Error(t, err)
}
