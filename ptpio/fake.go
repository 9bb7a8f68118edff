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
	"sync"
)

// FakeBuffer is an in-memory Buffer backed by a byte slice. Release is a
// no-op; tests can inspect Released after the fact.
type FakeBuffer struct {
	Data     []byte
	Released bool
}

// Bytes returns the buffer's payload.
func (b *FakeBuffer) Bytes() []byte { return b.Data }

// Release marks the buffer released.
func (b *FakeBuffer) Release() { b.Released = true }

// NewFakeBuffer wraps payload in a FakeBuffer.
func NewFakeBuffer(payload []byte) *FakeBuffer {
	return &FakeBuffer{Data: payload}
}

// FakePacketIO is a scripted, single-port PacketIO used to drive worker
// tests deterministically: frames queued with Inject are returned in
// FIFO order by RxBurst; transmitted frames are recorded in Sent.
type FakePacketIO struct {
	mu      sync.Mutex
	pending []Buffer
	Sent    []Buffer

	// FailTx, when true, makes TxBurst return an error without
	// recording anything, so worker tests can exercise the TX-failure
	// to ERROR transition.
	FailTx bool
}

// NewFakePacketIO returns an empty FakePacketIO.
func NewFakePacketIO() *FakePacketIO {
	return &FakePacketIO{}
}

// Inject appends frames to the pending receive queue.
func (f *FakePacketIO) Inject(frames ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, frame := range frames {
		f.pending = append(f.pending, NewFakeBuffer(frame))
	}
}

// RxBurst drains up to len(out) pending frames.
func (f *FakePacketIO) RxBurst(_ uint16, _ uint16, out []Buffer) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(out)
	if n > len(f.pending) {
		n = len(f.pending)
	}
	for i := 0; i < n; i++ {
		out[i] = f.pending[i]
	}
	f.pending = f.pending[n:]
	return n, nil
}

// TxBurst records submitted frames, unless FailTx is set.
func (f *FakePacketIO) TxBurst(_ uint16, frames []Buffer) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailTx {
		return 0, fmt.Errorf("ptpio: simulated tx failure")
	}
	f.Sent = append(f.Sent, frames...)
	return len(frames), nil
}

// AllocFrame allocates a FakeBuffer copy of payload.
func (f *FakePacketIO) AllocFrame(payload []byte) Buffer {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return NewFakeBuffer(cp)
}

// FakeFlowAPI records install/remove calls and can be configured to
// fail specific patterns, exercising the installer's fallback order.
type FakeFlowAPI struct {
	mu        sync.Mutex
	FailUntil FlowPattern // patterns strictly before FailUntil fail; -1 means none fail
	Installed []FlowPattern
	Removed   []FlowHandle
}

// NewFakeFlowAPI returns a FakeFlowAPI where every pattern succeeds.
func NewFakeFlowAPI() *FakeFlowAPI {
	return &FakeFlowAPI{FailUntil: -1}
}

type fakeFlowHandle struct {
	portID  uint16
	pattern FlowPattern
}

// InstallPattern fails for every pattern ordered before FailUntil.
func (f *FakeFlowAPI) InstallPattern(_ context.Context, portID uint16, _ uint16, pattern FlowPattern) (FlowHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailUntil >= 0 && pattern < f.FailUntil {
		return nil, fmt.Errorf("ptpio: pattern %s rejected by NIC", pattern)
	}
	f.Installed = append(f.Installed, pattern)
	return fakeFlowHandle{portID: portID, pattern: pattern}, nil
}

// RemovePattern records the removed handle.
func (f *FakeFlowAPI) RemovePattern(_ context.Context, handle FlowHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Removed = append(f.Removed, handle)
	return nil
}

// FakeMACSource returns a fixed MAC for every port.
type FakeMACSource struct {
	MAC [6]byte
}

// PortMAC always returns the configured MAC.
func (f FakeMACSource) PortMAC(_ uint16) ([6]byte, error) {
	return f.MAC, nil
}
