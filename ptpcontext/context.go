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

package ptpcontext

import (
	"context"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/linksync/ptpslave/flowrule"
	"github.com/linksync/ptpslave/health"
	"github.com/linksync/ptpslave/ptpio"
	"github.com/linksync/ptpslave/session"
	"github.com/linksync/ptpslave/timesource"
	"github.com/linksync/ptpslave/worker"
)

// PTPPort owns the set of sessions anchored at one rx_port and the
// worker event loop that drains it.
type PTPPort struct {
	PortID   uint16
	MAC      [6]byte
	Worker   *worker.Worker
	Sessions []*session.Session
}

// PTPContext is a running multi-port PTP slave: the set of enabled
// ports and the worker draining each, the NIC flow-rule installer that
// steers traffic to them, the device health-monitor engine, and the
// stats server exposing both.
type PTPContext struct {
	cfg *Config

	Ports []*PTPPort
	flows *flowrule.Installer

	health *health.Engine
	stats  *StatsServer

	mu      sync.Mutex
	running bool
}

// NewContext builds a session and worker for every configured port,
// and a health engine if healthSocket is non-nil. It installs no flow
// rules and starts no goroutines; call Start for that. macSource may be
// nil, in which case every PTPPort's MAC is left as the zero value;
// it is used only for reporting, never by the wire codec.
func NewContext(cfg *Config, io ptpio.PacketIO, flowAPI ptpio.FlowAPI, healthSocket health.Socket, src timesource.Source, macSource ptpio.MACSource) (*PTPContext, error) {
	if len(cfg.Ports) == 0 {
		return nil, fmt.Errorf("ptpcontext: no ports configured")
	}

	pc := &PTPContext{
		cfg:   cfg,
		flows: flowrule.NewInstaller(flowAPI),
	}

	localID := cfg.LocalPortIdentity()
	sessCfg := cfg.SessionStateMachineConfig()
	tickHz := src.TickHz()

	for _, portCfg := range cfg.Ports {
		if len(portCfg.Sessions) == 0 {
			return nil, fmt.Errorf("ptpcontext: port %d has no sessions configured", portCfg.PortID)
		}
		sessions := make([]*session.Session, 0, len(portCfg.Sessions))
		for i, sc := range portCfg.Sessions {
			sessions = append(sessions, session.NewSession(
				int(portCfg.PortID), int(portCfg.PortID), i,
				sc.RxVlan, sc.TxVlan, sc.TxVLIdx,
				localID, tickHz, sessCfg,
			))
		}
		w := worker.NewWorker(portCfg.PortID, portCfg.CPU, io, src, sessions)
		w.DebugInterval = cfg.WorkerDebugInterval

		var mac [6]byte
		if macSource != nil {
			resolved, err := macSource.PortMAC(portCfg.PortID)
			if err != nil {
				log.Warnf("ptpcontext: resolving MAC for port %d: %v", portCfg.PortID, err)
			} else {
				mac = resolved
			}
		}

		pc.Ports = append(pc.Ports, &PTPPort{
			PortID:   portCfg.PortID,
			MAC:      mac,
			Worker:   w,
			Sessions: sessions,
		})
	}

	if healthSocket != nil {
		engine := health.NewEngine(healthSocket, health.Config{
			QueryInterval:   cfg.HealthQueryInterval,
			ResponseTimeout: cfg.HealthResponseTimeout,
		})
		alarms, err := buildAlarms(cfg.HealthAlarms)
		if err != nil {
			return nil, fmt.Errorf("ptpcontext: %w", err)
		}
		engine.Alarms = alarms
		firmware, err := health.NewFirmwareCheck(cfg.HealthMinFirmwareVersion)
		if err != nil {
			return nil, fmt.Errorf("ptpcontext: %w", err)
		}
		engine.Firmware = firmware
		pc.health = engine
	}

	pc.stats = NewStatsServer(cfg.StatsListenAddr, pc)
	return pc, nil
}

// Health returns the device health-monitor engine, or nil if none was
// configured.
func (pc *PTPContext) Health() *health.Engine {
	return pc.health
}

// IsRunning reports whether Start is currently driving this context.
func (pc *PTPContext) IsRunning() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.running
}

// Start installs the flow rule for every configured port, then runs
// each port's worker, the health engine (if configured), and the stats
// server concurrently. It blocks until ctx is cancelled or one of them
// returns a non-cancellation error, at which point it tears down every
// flow rule it installed before returning.
func (pc *PTPContext) Start(ctx context.Context) error {
	pc.mu.Lock()
	if pc.running {
		pc.mu.Unlock()
		return fmt.Errorf("ptpcontext: already running")
	}
	pc.running = true
	pc.mu.Unlock()

	defer func() {
		pc.mu.Lock()
		pc.running = false
		pc.mu.Unlock()
	}()

	for _, port := range pc.Ports {
		if err := pc.flows.Install(ctx, port.PortID, worker.QueueID); err != nil {
			return fmt.Errorf("ptpcontext: installing flow rule on port %d: %w", port.PortID, err)
		}
	}
	defer func() {
		if err := pc.flows.RemoveAll(context.Background()); err != nil {
			log.Errorf("ptpcontext: tearing down flow rules: %v", err)
		}
	}()

	eg, egCtx := errgroup.WithContext(ctx)
	for _, port := range pc.Ports {
		port := port
		eg.Go(func() error {
			return port.Worker.Run(egCtx)
		})
	}
	if pc.health != nil {
		eg.Go(func() error {
			return pc.health.Run(egCtx)
		})
	}
	eg.Go(func() error {
		return pc.stats.Run(egCtx)
	})

	if err := eg.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// buildAlarms compiles every configured alarm expression, sorting by
// name first so NewContext's error messages and engine.Alarms ordering
// don't depend on Go's randomized map iteration.
func buildAlarms(exprs map[string]string) ([]*health.Alarm, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(exprs))
	for name := range exprs {
		names = append(names, name)
	}
	sort.Strings(names)

	alarms := make([]*health.Alarm, 0, len(names))
	for _, name := range names {
		alarm, err := health.NewAlarm(name, exprs[name])
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, alarm)
	}
	return alarms, nil
}
