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

package flowrule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linksync/ptpslave/ptpio"
)

func TestInstallPrefersMostSpecificPattern(t *testing.T) {
	api := ptpio.NewFakeFlowAPI()
	in := NewInstaller(api)
	err := in.Install(context.Background(), 0, 5)
	require.NoError(t, err)
	require.Equal(t, []ptpio.FlowPattern{ptpio.FlowPatternVLANAnyVID}, api.Installed)
}

func TestInstallFallsBackOnRejection(t *testing.T) {
	api := ptpio.NewFakeFlowAPI()
	api.FailUntil = ptpio.FlowPatternUntagged
	in := NewInstaller(api)
	err := in.Install(context.Background(), 0, 5)
	require.NoError(t, err)
	require.Equal(t, []ptpio.FlowPattern{ptpio.FlowPatternUntagged}, api.Installed)
}

func TestInstallAllPatternsRejectedDoesNotError(t *testing.T) {
	api := ptpio.NewFakeFlowAPI()
	api.FailUntil = ptpio.FlowPatternUntagged + 1
	in := NewInstaller(api)
	err := in.Install(context.Background(), 0, 5)
	require.NoError(t, err)
	require.Empty(t, api.Installed)
}

func TestRemoveAll(t *testing.T) {
	api := ptpio.NewFakeFlowAPI()
	in := NewInstaller(api)
	require.NoError(t, in.Install(context.Background(), 0, 5))
	require.NoError(t, in.Install(context.Background(), 1, 5))
	require.NoError(t, in.RemoveAll(context.Background()))
	require.Len(t, api.Removed, 2)
}
