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

package timesource

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTickToNs(t *testing.T) {
	require.Equal(t, uint64(1_000_000_000), TickToNs(1_000_000, 1_000_000))
	require.Equal(t, uint64(500_000_000), TickToNs(500_000, 1_000_000))
	require.Equal(t, uint64(0), TickToNs(123, 0))
}

func TestClockSourceMonotonic(t *testing.T) {
	src := NewClockSource(1_000_000_000)
	a := src.TickNow()
	b := src.TickNow()
	require.GreaterOrEqual(t, b, a)
	require.Equal(t, uint64(1_000_000_000), src.TickHz())
	require.Greater(t, src.RealtimeNowNs(), uint64(0))
}

func TestFakeSourceAdvance(t *testing.T) {
	f := NewFakeSource(1000, 2000)
	require.Equal(t, uint64(1000), f.TickNow())
	require.Equal(t, uint64(2000), f.RealtimeNowNs())
	f.Advance(500)
	require.Equal(t, uint64(1500), f.TickNow())
	require.Equal(t, uint64(2500), f.RealtimeNowNs())
	f.SetRealtime(9999)
	require.Equal(t, uint64(9999), f.RealtimeNowNs())
	require.Equal(t, uint64(1500), f.TickNow())
}
