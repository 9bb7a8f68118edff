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

// Package ptpcontext wires the wire codec, session, worker and
// flow-rule packages into a running multi-port PTP slave: it owns
// configuration, per-port lifecycle, and statistics aggregation.
package ptpcontext

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/linksync/ptpslave/session"
	"github.com/linksync/ptpslave/wire"
)

// SessionConfig describes one VLAN session anchored at a port.
type SessionConfig struct {
	RxVlan  uint16 `yaml:"rx_vlan"`
	TxVlan  uint16 `yaml:"tx_vlan"`
	TxVLIdx uint16 `yaml:"tx_vl_idx"`
}

// PortConfig describes one enabled PTP port and the sessions it owns.
type PortConfig struct {
	PortID    uint16          `yaml:"port_id"`
	Interface string          `yaml:"interface"`
	CPU       int             `yaml:"cpu"`
	Sessions  []SessionConfig `yaml:"sessions"`
}

// Config is the top-level configuration for the PTP slave context.
type Config struct {
	Ports []PortConfig `yaml:"ports"`

	// LocalClockIdentity is the fixed 8-byte identity this slave
	// presents on the wire, sourced from configuration.
	LocalClockIdentity [8]byte `yaml:"-"`
	LocalClockIdentityHex string `yaml:"local_clock_identity"`
	LocalPortNumber       uint16 `yaml:"local_port_number"`

	SyncTimeout      time.Duration `yaml:"sync_timeout"`
	DelayRespTimeout time.Duration `yaml:"delay_resp_timeout"`
	DelayReqInterval time.Duration `yaml:"delay_req_interval"`

	HealthQueryInterval   time.Duration `yaml:"health_query_interval"`
	HealthResponseTimeout time.Duration `yaml:"health_response_timeout"`
	HealthInterface       string        `yaml:"health_interface"`

	// HealthAlarms maps an operator-chosen alarm name to a govaluate
	// expression over "voltage" and "temperature".
	HealthAlarms             map[string]string `yaml:"health_alarms"`
	HealthMinFirmwareVersion string            `yaml:"health_min_firmware_version"`

	StatsListenAddr string `yaml:"stats_listen_addr"`

	WorkerDebugInterval time.Duration `yaml:"worker_debug_interval"`
}

// defaultLocalClockIdentity mirrors the observed peer's fixed slave
// identity: 2c:1a:00:00:00:00:00:00,
// port 0.
var defaultLocalClockIdentity = [8]byte{0x2c, 0x1a, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// DefaultConfig returns a Config with the state-machine and health-cycle
// timing constants this slave ships with, and the observed peer's
// default local port identity.
func DefaultConfig() *Config {
	return &Config{
		LocalClockIdentity:    defaultLocalClockIdentity,
		LocalPortNumber:       0,
		SyncTimeout:           3 * time.Second,
		DelayRespTimeout:      2 * time.Second,
		DelayReqInterval:      100 * time.Millisecond,
		HealthQueryInterval:   time.Second,
		HealthResponseTimeout: 500 * time.Millisecond,
		StatsListenAddr:       ":8080",
		WorkerDebugInterval:   5 * time.Second,
	}
}

// SessionStateMachineConfig returns the session.Config derived from c.
func (c *Config) SessionStateMachineConfig() session.Config {
	return session.Config{
		SyncTimeout:      c.SyncTimeout,
		DelayRespTimeout: c.DelayRespTimeout,
		DelayReqInterval: c.DelayReqInterval,
	}
}

// InterfaceByPort returns the port_id -> interface mapping every
// PcapIO-backed transport needs to open its handles.
func (c *Config) InterfaceByPort() map[uint16]string {
	out := make(map[uint16]string, len(c.Ports))
	for _, p := range c.Ports {
		out[p.PortID] = p.Interface
	}
	return out
}

// LocalPortIdentity returns the configured fixed local PortIdentity.
func (c *Config) LocalPortIdentity() wire.PortIdentity {
	return wire.PortIdentity{
		ClockIdentity: wire.ClockIdentity(c.LocalClockIdentity),
		PortNumber:    c.LocalPortNumber,
	}
}

// ReadConfig reads and parses a yaml Config file, applying defaults
// first so a partial file only overrides what it sets.
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ptpcontext: reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("ptpcontext: parsing config: %w", err)
	}
	if c.LocalClockIdentityHex != "" {
		parsed, err := parseClockIdentityHex(c.LocalClockIdentityHex)
		if err != nil {
			return nil, fmt.Errorf("ptpcontext: local_clock_identity: %w", err)
		}
		c.LocalClockIdentity = parsed
	}
	return c, nil
}

func parseClockIdentityHex(s string) ([8]byte, error) {
	var out [8]byte
	clean := strings.NewReplacer(":", "", "-", "", ".", "").Replace(s)
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return out, err
	}
	if len(raw) != 8 {
		return out, fmt.Errorf("expected 8 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
