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
	"fmt"
	"io"
	"net"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/linksync/ptpslave/health"
	"github.com/linksync/ptpslave/session"
)

// SessionSnapshot is one session's reportable state, serialized as JSON
// for the "show stats" CLI command and rendered as a table row.
type SessionSnapshot struct {
	PortID uint16        `json:"port_id"`
	MAC    string        `json:"mac,omitempty"`
	Vlan   uint16        `json:"vlan"`
	Stats  session.Stats `json:"stats"`
}

// StatsSnapshot is the full periodic statistics report: one row per
// port/VLAN session plus the health engine's cycle counters, the shape
// "show stats" fetches over http and renders as a table.
type StatsSnapshot struct {
	Sessions []SessionSnapshot    `json:"sessions"`
	Health   *health.StatsSnapshot `json:"health,omitempty"`
}

// Snapshot reads every port's sessions (and the health engine, if
// configured) into a JSON-serializable, point-in-time report.
func (pc *PTPContext) Snapshot() StatsSnapshot {
	var snap StatsSnapshot
	for _, port := range pc.Ports {
		mac := net.HardwareAddr(port.MAC[:]).String()
		for _, sess := range port.Sessions {
			snap.Sessions = append(snap.Sessions, SessionSnapshot{
				PortID: port.PortID,
				MAC:    mac,
				Vlan:   sess.RxVlan,
				Stats:  sess.SnapshotStats(),
			})
		}
	}
	if pc.health != nil {
		hs := pc.health.Stats().Snapshot()
		snap.Health = &hs
	}
	return snap
}

// Reporter renders a StatsSnapshot as an aligned table: one row per
// port/VLAN, state, offset, delay and the counters a reporting thread
// reads back, matching the shape health.Reporter uses for cycle reports.
type Reporter struct {
	out io.Writer
}

// NewReporter builds a Reporter writing to os.Stdout.
func NewReporter() *Reporter {
	return &Reporter{out: os.Stdout}
}

// Render writes one table row per session in snap.
func (r *Reporter) Render(snap StatsSnapshot) {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"port", "mac", "vlan", "state", "synced", "offset (ns)", "delay (ns)",
		"sync rx", "delay_req tx", "delay_resp rx", "sync timeouts", "validation err"})

	for _, s := range snap.Sessions {
		table.Append([]string{
			fmt.Sprintf("%d", s.PortID),
			s.MAC,
			fmt.Sprintf("%d", s.Vlan),
			colorState(s.Stats.State),
			colorSynced(s.Stats.IsSynced),
			fmt.Sprintf("%d", s.Stats.OffsetNs),
			fmt.Sprintf("%d", s.Stats.DelayNs),
			fmt.Sprintf("%d", s.Stats.SyncRxCount),
			fmt.Sprintf("%d", s.Stats.DelayReqTxCount),
			fmt.Sprintf("%d", s.Stats.DelayRespRxCount),
			fmt.Sprintf("%d", s.Stats.SyncTimeoutCount),
			fmt.Sprintf("%d", s.Stats.ValidationErrorCount),
		})
	}
	table.Render()

	if snap.Health != nil {
		h := snap.Health
		fmt.Fprintf(r.out, "health cycles=%d timeouts=%d frames_dropped=%d alarms_fired=%d\n",
			h.CyclesRun, h.CycleTimeouts, h.FramesDropped, h.AlarmsFired)
	}
}

func colorState(s session.State) string {
	switch s {
	case session.StateSynced:
		return color.GreenString(s.String())
	case session.StateError:
		return color.RedString(s.String())
	default:
		return s.String()
	}
}

func colorSynced(synced bool) string {
	if synced {
		return color.GreenString("true")
	}
	return color.RedString("false")
}
