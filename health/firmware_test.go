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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirmwareCheckDisabledWhenEmpty(t *testing.T) {
	fc, err := NewFirmwareCheck("")
	require.NoError(t, err)
	stale, err := fc.IsStale(1, 0)
	require.NoError(t, err)
	require.False(t, stale)
}

func TestFirmwareCheckFlagsStale(t *testing.T) {
	fc, err := NewFirmwareCheck("2.3.0")
	require.NoError(t, err)

	stale, err := fc.IsStale(2, 1)
	require.NoError(t, err)
	require.True(t, stale)

	stale, err = fc.IsStale(2, 5)
	require.NoError(t, err)
	require.False(t, stale)
}

func TestFirmwareCheckRejectsBadMinimum(t *testing.T) {
	_, err := NewFirmwareCheck("not-a-version")
	require.Error(t, err)
}
