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

// queryTemplateSize is the fixed size of the outbound query frame.
const queryTemplateSize = 64

// querySequenceOffset is the one mutable byte in the outbound template.
const querySequenceOffset = 63

// queryTemplate is the fixed Ethernet/IPv4/UDP query frame sent once
// per cycle. Only querySequenceOffset changes between cycles; everything
// else, including the IPv4/UDP headers and lengths, is static.
var queryTemplate = [queryTemplateSize]byte{
	// Ethernet header: broadcast destination, fixed source, IPv4 EtherType.
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0x02, 0x00, 0x00, 0x00, 0x00, 0x20,
	0x08, 0x00,
	// IPv4 header (20 bytes): version/IHL, DSCP, total length, ...
	0x45, 0x00, 0x00, 0x32,
	0x00, 0x00, 0x00, 0x00,
	0x40, 0x11, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0xff,
	// UDP header (8 bytes): source port, dest port, length, checksum.
	0x1f, 0x40, 0x1f, 0x40,
	0x00, 0x1e, 0x00, 0x00,
	// UDP payload (22 bytes): sequence byte at relative offset 21, wire
	// offset 63.
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0,
	0x01, // sequence, overwritten per cycle
}

// sequenceCounter produces the next byte in the 1..255 (skipping 0)
// wraparound sequence used in the query template.
type sequenceCounter struct {
	value byte
}

func newSequenceCounter() *sequenceCounter {
	return &sequenceCounter{value: 0}
}

// Next advances and returns the next sequence byte.
func (s *sequenceCounter) Next() byte {
	s.value++
	if s.value == 0 {
		s.value = 1
	}
	return s.value
}

// buildQuery renders the outbound query frame for sequence seq.
func buildQuery(seq byte) []byte {
	frame := queryTemplate
	frame[querySequenceOffset] = seq
	out := make([]byte, queryTemplateSize)
	copy(out, frame[:])
	return out
}
