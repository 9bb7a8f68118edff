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

// Package wire is the byte-exact codec for the PTP slave's L2 wire
// protocol and the health-monitor telemetry frames. It only parses and
// serializes; it never interprets or mutates session state.
package wire

import (
	"errors"
	"fmt"
)

// Errors returned by the codec.
var (
	ErrShortFrame        = errors.New("wire: frame too short")
	ErrUnknownEtherType  = errors.New("wire: unrecognized ethertype")
	ErrUnknownMessageType = errors.New("wire: unrecognized ptp message type")
)

// PTPEtherType is the EtherType reserved for PTP over Ethernet (IEEE 1588 Annex F).
const PTPEtherType uint16 = 0x88F7

// VLANEtherType is the 802.1Q tag protocol identifier.
const VLANEtherType uint16 = 0x8100

// MessageType is the 4-bit PTP message type field.
type MessageType uint8

// Message types this codec cares about; the rest (PDelay*, Management)
// are recognized only far enough to be ignored or counted as unsupported.
const (
	MessageSync       MessageType = 0x0
	MessageDelayReq   MessageType = 0x1
	MessageFollowUp   MessageType = 0x8
	MessageDelayResp  MessageType = 0x9
	MessageAnnounce   MessageType = 0xB
	MessageSignaling  MessageType = 0xC
)

func (m MessageType) String() string {
	switch m {
	case MessageSync:
		return "SYNC"
	case MessageDelayReq:
		return "DELAY_REQ"
	case MessageFollowUp:
		return "FOLLOW_UP"
	case MessageDelayResp:
		return "DELAY_RESP"
	case MessageAnnounce:
		return "ANNOUNCE"
	case MessageSignaling:
		return "SIGNALING"
	default:
		return fmt.Sprintf("UNKNOWN(0x%x)", uint8(m))
	}
}

// ClockIdentity is the 8-byte EUI-64-derived clock identity.
type ClockIdentity [8]byte

func (c ClockIdentity) String() string {
	return fmt.Sprintf("%02x%02x%02x.%02x%02x.%02x%02x%02x",
		c[0], c[1], c[2], c[3], c[4], c[5], c[6], c[7])
}

// PortIdentity identifies a PTP port: an 8-byte clock identity plus a
// 16-bit port number.
type PortIdentity struct {
	ClockIdentity ClockIdentity
	PortNumber    uint16
}

func (p PortIdentity) String() string {
	return fmt.Sprintf("%s-%d", p.ClockIdentity, p.PortNumber)
}

// PTPSeconds is the 48-bit wire seconds field. The deployment's observed
// peer writes a fixed, peer-chosen constant into the top 2 bytes; by
// default the codec ignores them on receive.
type PTPSeconds [6]byte

// Seconds returns the low 32 bits of the field (bytes 2..5), the part
// the observed peer actually varies.
func (s PTPSeconds) Seconds() uint64 {
	return uint64(s[2])<<24 | uint64(s[3])<<16 | uint64(s[4])<<8 | uint64(s[5])
}

// StrictSeconds returns the full 48-bit field, for deployments where the
// peer is a standards-compliant PTP master.
func (s PTPSeconds) StrictSeconds() uint64 {
	return uint64(s[0])<<40 | uint64(s[1])<<32 | uint64(s[2])<<24 |
		uint64(s[3])<<16 | uint64(s[4])<<8 | uint64(s[5])
}

// Timestamp is the 80-bit PTP wire timestamp.
type Timestamp struct {
	Seconds     PTPSeconds
	Nanoseconds uint32
}

// Empty reports whether both fields are zero, the observed peer's way of
// signaling "no timestamp" in Delay_Resp.
func (t Timestamp) Empty() bool {
	return t.Seconds == PTPSeconds{} && t.Nanoseconds == 0
}

// ToNanoseconds returns the timestamp as nanoseconds since the epoch,
// using the full 48-bit seconds field when strict is true and the
// lenient (low-32-bit) seconds interpretation otherwise.
func (t Timestamp) ToNanoseconds(strict bool) uint64 {
	var sec uint64
	if strict {
		sec = t.Seconds.StrictSeconds()
	} else {
		sec = t.Seconds.Seconds()
	}
	return sec*1_000_000_000 + uint64(t.Nanoseconds)
}

// NewTimestampFromNanoseconds builds a Timestamp from epoch nanoseconds,
// writing zero into the high 2 bytes of the seconds field as the codec
// does for all outbound frames.
func NewTimestampFromNanoseconds(ns uint64) Timestamp {
	sec := ns / 1_000_000_000
	nsec := ns % 1_000_000_000
	var ts Timestamp
	ts.Seconds[0] = 0
	ts.Seconds[1] = 0
	ts.Seconds[2] = byte(sec >> 24)
	ts.Seconds[3] = byte(sec >> 16)
	ts.Seconds[4] = byte(sec >> 8)
	ts.Seconds[5] = byte(sec)
	ts.Nanoseconds = uint32(nsec)
	return ts
}

// Header is the common 34-byte PTP message header.
type Header struct {
	MessageType         MessageType
	TransportSpecific   uint8 // high 4 bits of the first wire byte
	Version             uint8
	MessageLength       uint16
	DomainNumber        uint8
	FlagField           uint16
	CorrectionField     int64
	SourcePortIdentity  PortIdentity
	SequenceID          uint16
	ControlField        uint8
	LogMessageInterval  int8
}

// HeaderSize is the wire size of Header.
const HeaderSize = 34

// SyncBodySize is the Sync/Delay_Req body size beyond the header: a
// single 10-byte timestamp.
const SyncBodySize = 10

// DelayRespBodySize is the Delay_Resp body size beyond the header: a
// 10-byte timestamp plus a 10-byte requesting port identity.
const DelayRespBodySize = 20

// DelayReqStandardLength is the protocol-legal Delay_Req PTP payload length.
const DelayReqStandardLength = HeaderSize + SyncBodySize // 44

// DelayReqPaddedLength mirrors the observed peer's framing expectation:
// 44 protocol bytes plus 62 zero bytes.
const DelayReqPaddedLength = 106

// PTPDomain is the fixed PTP domain number used throughout this deployment.
const PTPDomain uint8 = 10

// DelayReqFlags is the flagField value this deployment's Delay_Req carries
// on the wire, mirroring the observed peer's capture.
const DelayReqFlags uint16 = 0x0102

// DelayReqLogMessageInterval is the logMessageInterval Delay_Req carries (-1).
const DelayReqLogMessageInterval int8 = -1

// SourceMAC is the fixed source MAC address for all outbound PTP frames.
var SourceMAC = [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x20}

// DestMACBase is the constant prefix of the destination MAC; the last
// two bytes carry the big-endian VL-IDX.
var DestMACBase = [4]byte{0x03, 0x00, 0x00, 0x00}
