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

// Package flowrule installs and removes the NIC flow-steering rules
// that route PTP traffic into a port's dedicated receive queue, trying
// progressively less specific patterns until one is accepted.
package flowrule

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/linksync/ptpslave/ptpio"
)

// patternOrder is the fallback sequence tried on each port: most
// specific pattern first, untagged last.
var patternOrder = []ptpio.FlowPattern{
	ptpio.FlowPatternVLANAnyVID,
	ptpio.FlowPatternVLANExplicitEtherType,
	ptpio.FlowPatternUntagged,
}

// Installer installs and tears down the PTP flow rule for every enabled
// port it is asked about.
type Installer struct {
	api ptpio.FlowAPI

	installed map[uint16]ptpio.FlowHandle
}

// NewInstaller returns an Installer backed by api.
func NewInstaller(api ptpio.FlowAPI) *Installer {
	return &Installer{
		api:       api,
		installed: make(map[uint16]ptpio.FlowHandle),
	}
}

// Install tries each pattern in order on portID/queueID, stopping at the
// first the NIC accepts. If every pattern fails it logs and returns nil
// error: the port still runs, receiving PTP frames via the general
// receive path instead of the dedicated queue.
func (in *Installer) Install(ctx context.Context, portID, queueID uint16) error {
	for _, pattern := range patternOrder {
		handle, err := in.api.InstallPattern(ctx, portID, queueID, pattern)
		if err == nil {
			in.installed[portID] = handle
			log.Infof("flowrule: port %d steering PTP traffic via pattern %s", portID, pattern)
			return nil
		}
		log.Warnf("flowrule: port %d pattern %s rejected: %v", portID, pattern, err)
	}
	log.Errorf("flowrule: port %d: all flow patterns rejected, falling back to the general receive path", portID)
	return nil
}

// Remove destroys the rule installed for portID, if any.
func (in *Installer) Remove(ctx context.Context, portID uint16) error {
	handle, ok := in.installed[portID]
	if !ok {
		return nil
	}
	delete(in.installed, portID)
	if err := in.api.RemovePattern(ctx, handle); err != nil {
		return fmt.Errorf("flowrule: removing rule for port %d: %w", portID, err)
	}
	return nil
}

// RemoveAll destroys every rule this Installer has installed, in
// arbitrary order, continuing past individual failures and returning
// the last error seen.
func (in *Installer) RemoveAll(ctx context.Context) error {
	var lastErr error
	for portID := range in.installed {
		if err := in.Remove(ctx, portID); err != nil {
			log.Errorf("flowrule: %v", err)
			lastErr = err
		}
	}
	return lastErr
}
