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

// Package health implements the device health-monitor query/response
// engine: a raw L2 socket that sends a fixed telemetry query once per
// cycle and decodes the FPGA/MCU frames that answer it.
package health

import (
	"fmt"
	"time"

	"github.com/google/gopacket/pcap"
)

const (
	snapshotLen = 2048
	promiscuous = true
	// pollInterval is the pcap handle's own read timeout: short enough
	// that ReadFrame can re-check its caller-supplied deadline often.
	pollInterval = 20 * time.Millisecond
)

// Socket is the raw L2 transport the query engine sends queries over
// and receives responses from. A single socket is bound to one
// interface for the engine's lifetime.
type Socket interface {
	Send(frame []byte) error
	// ReadFrame blocks until a frame arrives or deadline elapses, in
	// which case it returns pcap.NextErrorTimeoutExpired.
	ReadFrame(deadline time.Time) ([]byte, error)
	Close() error
}

// pcapSocket is the production Socket, backed by libpcap in promiscuous
// mode, the same raw-capture pattern the node sender/receiver use for
// PTP packet injection and capture.
type pcapSocket struct {
	handle *pcap.Handle
}

// NewPcapSocket opens a promiscuous raw-capture handle on iface.
func NewPcapSocket(iface string) (Socket, error) {
	handle, err := pcap.OpenLive(iface, snapshotLen, promiscuous, pollInterval)
	if err != nil {
		return nil, fmt.Errorf("health: opening %s: %w", iface, err)
	}
	return &pcapSocket{handle: handle}, nil
}

func (s *pcapSocket) Send(frame []byte) error {
	return s.handle.WritePacketData(frame)
}

// ReadFrame polls the handle at pollInterval granularity until a frame
// arrives or deadline passes, since the handle's own read timeout only
// bounds a single ReadPacketData call.
func (s *pcapSocket) ReadFrame(deadline time.Time) ([]byte, error) {
	for {
		if !time.Now().Before(deadline) {
			return nil, pcap.NextErrorTimeoutExpired
		}
		data, _, err := s.handle.ReadPacketData()
		if err == nil {
			return data, nil
		}
		if err != pcap.NextErrorTimeoutExpired {
			return nil, fmt.Errorf("health: reading frame: %w", err)
		}
	}
}

func (s *pcapSocket) Close() error {
	s.handle.Close()
	return nil
}
