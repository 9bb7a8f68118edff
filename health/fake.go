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
	"time"

	"github.com/google/gopacket/pcap"
)

// FakeSocket is a deterministic, in-memory Socket used by query engine
// tests: no pcap handle, no interface, frames queued by the test and
// drained in order.
type FakeSocket struct {
	Sent   [][]byte
	queue  [][]byte
	Closed bool
}

// NewFakeSocket returns an empty FakeSocket.
func NewFakeSocket() *FakeSocket {
	return &FakeSocket{}
}

// Inject queues frame to be returned by a future ReadFrame call.
func (f *FakeSocket) Inject(frame []byte) {
	f.queue = append(f.queue, frame)
}

func (f *FakeSocket) Send(frame []byte) error {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.Sent = append(f.Sent, cp)
	return nil
}

func (f *FakeSocket) ReadFrame(deadline time.Time) ([]byte, error) {
	if len(f.queue) == 0 {
		return nil, pcap.NextErrorTimeoutExpired
	}
	frame := f.queue[0]
	f.queue = f.queue[1:]
	return frame, nil
}

func (f *FakeSocket) Close() error {
	f.Closed = true
	return nil
}
