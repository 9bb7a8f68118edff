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
	"fmt"
	"time"

	"github.com/google/gopacket/pcap"
	"github.com/jsimonetti/rtnetlink/rtnl"
)

// PcapBuffer is a received or allocated frame backed by a plain byte
// slice; Release is a no-op since pcap hands back independent copies.
type PcapBuffer struct {
	data []byte
}

// Bytes returns the buffer's payload.
func (b *PcapBuffer) Bytes() []byte { return b.data }

// Release is a no-op: PcapBuffer owns its own copy.
func (b *PcapBuffer) Release() {}

// PcapIO is a software PacketIO backed by one promiscuous pcap handle
// per port, the same raw-capture approach the node sender/receiver use
// for PTP packet injection and capture. It has no hardware queues, so
// queueID is accepted but ignored: RxBurst drains whatever the handle's
// BPF filter has already let through.
type PcapIO struct {
	handles map[uint16]*pcap.Handle
}

const (
	pcapIOSnapshotLen = 2048
	pcapIOReadTimeout = 5 * time.Millisecond
)

// NewPcapIO opens a promiscuous handle on each port's configured
// interface.
func NewPcapIO(ifaceByPort map[uint16]string) (*PcapIO, error) {
	handles := make(map[uint16]*pcap.Handle, len(ifaceByPort))
	for port, iface := range ifaceByPort {
		h, err := pcap.OpenLive(iface, pcapIOSnapshotLen, true, pcapIOReadTimeout)
		if err != nil {
			for _, opened := range handles {
				opened.Close()
			}
			return nil, fmt.Errorf("ptpio: opening %s for port %d: %w", iface, port, err)
		}
		handles[port] = h
	}
	return &PcapIO{handles: handles}, nil
}

// Handles exposes the underlying pcap handles, keyed by port, so a
// FlowAPI built over the same interfaces can share them.
func (p *PcapIO) Handles() map[uint16]*pcap.Handle {
	return p.handles
}

// RxBurst drains up to len(out) already-buffered packets from portID's
// handle without blocking past its configured read timeout.
func (p *PcapIO) RxBurst(portID uint16, _ uint16, out []Buffer) (int, error) {
	h, ok := p.handles[portID]
	if !ok {
		return 0, fmt.Errorf("ptpio: no handle for port %d", portID)
	}
	n := 0
	for n < len(out) {
		data, _, err := h.ReadPacketData()
		if err != nil {
			break
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		out[n] = &PcapBuffer{data: cp}
		n++
	}
	return n, nil
}

// TxBurst writes each frame to portID's handle in turn, stopping at the
// first write error.
func (p *PcapIO) TxBurst(portID uint16, frames []Buffer) (int, error) {
	h, ok := p.handles[portID]
	if !ok {
		return 0, fmt.Errorf("ptpio: no handle for port %d", portID)
	}
	sent := 0
	for _, f := range frames {
		if err := h.WritePacketData(f.Bytes()); err != nil {
			return sent, fmt.Errorf("ptpio: writing frame on port %d: %w", portID, err)
		}
		sent++
	}
	return sent, nil
}

// AllocFrame copies payload into a fresh PcapBuffer.
func (p *PcapIO) AllocFrame(payload []byte) Buffer {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return &PcapBuffer{data: cp}
}

// Close releases every port's handle.
func (p *PcapIO) Close() {
	for _, h := range p.handles {
		h.Close()
	}
}

// pcapMACSource resolves a port's MAC over rtnetlink, backing MACSource
// for the PcapIO transport. This is the non-DPDK, default implementation
// of the §6 MAC discovery collaborator; a DPDK flow-API-backed one can
// satisfy the same interface in a hardware-offloaded build.
type pcapMACSource struct {
	ifaceByPort map[uint16]string
}

// NewPcapMACSource returns a MACSource that looks up each port's
// interface hardware address over rtnetlink on every call.
func NewPcapMACSource(ifaceByPort map[uint16]string) MACSource {
	return &pcapMACSource{ifaceByPort: ifaceByPort}
}

func (m *pcapMACSource) PortMAC(portID uint16) ([6]byte, error) {
	var mac [6]byte
	name, ok := m.ifaceByPort[portID]
	if !ok {
		return mac, fmt.Errorf("ptpio: no interface configured for port %d", portID)
	}
	conn, err := rtnl.Dial(nil)
	if err != nil {
		return mac, fmt.Errorf("ptpio: establishing netlink connection: %w", err)
	}
	defer conn.Close()

	link, err := conn.LinkByName(name)
	if err != nil {
		return mac, fmt.Errorf("ptpio: resolving MAC for %s: %w", name, err)
	}
	if len(link.Attrs.Address) != 6 {
		return mac, fmt.Errorf("ptpio: interface %s has no Ethernet hardware address", name)
	}
	copy(mac[:], link.Attrs.Address)
	return mac, nil
}
