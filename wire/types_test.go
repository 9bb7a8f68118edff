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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTimestampFromNanosecondsRoundTrip(t *testing.T) {
	ns := uint64(1_700_000_000)*1_000_000_000 + 123_456_789
	ts := NewTimestampFromNanoseconds(ns)
	require.Equal(t, uint32(123_456_789), ts.Nanoseconds)
	require.Equal(t, ns, ts.ToNanoseconds(false))
	require.Equal(t, byte(0), ts.Seconds[0])
	require.Equal(t, byte(0), ts.Seconds[1])
}

func TestMessageTypeString(t *testing.T) {
	require.Equal(t, "SYNC", MessageSync.String())
	require.Equal(t, "DELAY_REQ", MessageDelayReq.String())
	require.Contains(t, MessageType(0xF).String(), "UNKNOWN")
}

func TestClockIdentityString(t *testing.T) {
	c := ClockIdentity{0x2c, 0x1a, 0, 0, 0, 0, 0, 1}
	require.Equal(t, "2c1a00.0000.000001", c.String())
}

func TestPortIdentityString(t *testing.T) {
	p := PortIdentity{ClockIdentity: ClockIdentity{0x2c, 0x1a, 0, 0, 0, 0, 0, 0}, PortNumber: 3}
	require.Equal(t, "2c1a00.0000.000000-3", p.String())
}
