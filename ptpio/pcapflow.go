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
	"fmt"

	"github.com/google/gopacket/pcap"
)

// pcapFlowHandle is the FlowHandle PcapFlowAPI hands back: just enough
// to find the handle again on removal.
type pcapFlowHandle struct {
	portID uint16
}

// PcapFlowAPI steers PTP traffic at the BPF level instead of a NIC's
// hardware queues: a pcap handle has no RSS rings to install a rule
// into, so "installing a flow pattern" here means tightening the
// handle's own capture filter to the pattern's EtherType/VLAN match.
// It shares its handles with a PcapIO opened on the same interfaces.
type PcapFlowAPI struct {
	handles map[uint16]*pcap.Handle
}

// NewPcapFlowAPI wraps handles, typically PcapIO.Handles() from the
// same PacketIO the worker reads from.
func NewPcapFlowAPI(handles map[uint16]*pcap.Handle) *PcapFlowAPI {
	return &PcapFlowAPI{handles: handles}
}

// bpfFilterFor returns the BPF expression a pattern maps to. Both VLAN
// patterns collapse to the same filter at this layer: there is no
// hardware VID-wildcard-vs-explicit-EtherType distinction to make once
// capture has already moved to software.
func bpfFilterFor(pattern FlowPattern) (string, bool) {
	switch pattern {
	case FlowPatternVLANAnyVID, FlowPatternVLANExplicitEtherType:
		return "vlan and ether proto 0x88f7", true
	case FlowPatternUntagged:
		return "ether proto 0x88f7", true
	default:
		return "", false
	}
}

// InstallPattern sets portID's handle BPF filter to match pattern.
func (a *PcapFlowAPI) InstallPattern(_ context.Context, portID uint16, _ uint16, pattern FlowPattern) (FlowHandle, error) {
	h, ok := a.handles[portID]
	if !ok {
		return nil, fmt.Errorf("ptpio: no handle for port %d", portID)
	}
	filter, ok := bpfFilterFor(pattern)
	if !ok {
		return nil, fmt.Errorf("ptpio: unsupported flow pattern %s", pattern)
	}
	if err := h.SetBPFFilter(filter); err != nil {
		return nil, fmt.Errorf("ptpio: setting BPF filter %q on port %d: %w", filter, portID, err)
	}
	return pcapFlowHandle{portID: portID}, nil
}

// RemovePattern clears the BPF filter installed for handle's port.
func (a *PcapFlowAPI) RemovePattern(_ context.Context, handle FlowHandle) error {
	fh, ok := handle.(pcapFlowHandle)
	if !ok {
		return fmt.Errorf("ptpio: unrecognized flow handle %T", handle)
	}
	h, ok := a.handles[fh.portID]
	if !ok {
		return fmt.Errorf("ptpio: no handle for port %d", fh.portID)
	}
	return h.SetBPFFilter("")
}
