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

package wire

import "encoding/binary"

const (
	ethHeaderSize  = 14
	vlanHeaderSize = 4
)

// EthVlan describes a parsed Ethernet frame, optionally 802.1Q tagged.
type EthVlan struct {
	PayloadOffset  int
	VlanID         *uint16 // nil when untagged
	InnerEtherType uint16
}

// ParseEthVlan recognizes an Ethernet frame with at most one 802.1Q tag
// and reports the inner EtherType and the byte offset of the payload
// that follows it.
func ParseEthVlan(buf []byte) (EthVlan, error) {
	if len(buf) < ethHeaderSize {
		return EthVlan{}, ErrShortFrame
	}
	etherType := binary.BigEndian.Uint16(buf[12:14])
	if etherType != VLANEtherType {
		return EthVlan{PayloadOffset: ethHeaderSize, InnerEtherType: etherType}, nil
	}
	if len(buf) < ethHeaderSize+vlanHeaderSize {
		return EthVlan{}, ErrShortFrame
	}
	tci := binary.BigEndian.Uint16(buf[14:16])
	vid := tci & 0x0FFF
	inner := binary.BigEndian.Uint16(buf[16:18])
	return EthVlan{
		PayloadOffset:  ethHeaderSize + vlanHeaderSize,
		VlanID:         &vid,
		InnerEtherType: inner,
	}, nil
}

// IsPTP reports whether buf is an Ethernet frame (optionally VLAN
// tagged) whose inner EtherType is the PTP EtherType.
func IsPTP(buf []byte) bool {
	ev, err := ParseEthVlan(buf)
	if err != nil {
		return false
	}
	return ev.InnerEtherType == PTPEtherType
}
