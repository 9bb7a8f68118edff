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

func TestAlarmFiresOutsideThreshold(t *testing.T) {
	a, err := NewAlarm("rail1-voltage", "voltage < 0.85 || voltage > 1.15")
	require.NoError(t, err)

	fired, err := a.Evaluate(1.0, 40)
	require.NoError(t, err)
	require.False(t, fired)

	fired, err = a.Evaluate(1.2, 40)
	require.NoError(t, err)
	require.True(t, fired)
}

func TestAlarmRejectsUnsupportedVariable(t *testing.T) {
	_, err := NewAlarm("bad", "current > 5")
	require.Error(t, err)
}
