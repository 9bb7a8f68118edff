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
	"fmt"

	version "github.com/hashicorp/go-version"
)

// FirmwareCheck compares a decoded device's firmware version against a
// configured minimum, the same stale-firmware detection calnex's
// firmware package applies to its own targets.
type FirmwareCheck struct {
	minimum *version.Version
}

// NewFirmwareCheck parses minVersion (e.g. "2.3.0") into a FirmwareCheck.
// An empty minVersion disables the check.
func NewFirmwareCheck(minVersion string) (*FirmwareCheck, error) {
	if minVersion == "" {
		return &FirmwareCheck{}, nil
	}
	v, err := version.NewVersion(minVersion)
	if err != nil {
		return nil, fmt.Errorf("health: parsing minimum firmware version %q: %w", minVersion, err)
	}
	return &FirmwareCheck{minimum: v}, nil
}

// IsStale reports whether major.minor is below the configured minimum.
// It always returns false if no minimum was configured.
func (f *FirmwareCheck) IsStale(major, minor uint16) (bool, error) {
	if f.minimum == nil {
		return false, nil
	}
	observed, err := version.NewVersion(fmt.Sprintf("%d.%d.0", major, minor))
	if err != nil {
		return false, fmt.Errorf("health: parsing observed firmware version %d.%d: %w", major, minor, err)
	}
	return observed.LessThan(f.minimum), nil
}
