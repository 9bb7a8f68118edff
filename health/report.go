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
	"io"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/process"

	"github.com/linksync/ptpslave/wire"
)

// sysReport is the process-health footer line, the same role
// CollectSysStats plays for a reporting thread reading client stats.
type sysReport struct {
	uptime     time.Duration
	rssBytes   int64
	goroutines int
}

func collectSysReport(start time.Time, proc *process.Process) sysReport {
	r := sysReport{
		uptime:     time.Since(start),
		goroutines: runtime.NumGoroutine(),
	}
	if proc != nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			r.rssBytes = int64(mem.RSS)
		}
	}
	return r
}

// Reporter renders a Cycle as an aligned report to an io.Writer,
// coloring the FPGA personality rows and appending a process-health
// footer.
type Reporter struct {
	out       io.Writer
	procStart time.Time
	proc      *process.Process
}

// NewReporter builds a Reporter writing to os.Stdout, the common
// destination for report rendering in this corpus's CLI tools.
func NewReporter() *Reporter {
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Reporter{
		out:       os.Stdout,
		procStart: time.Now(),
		proc:      proc,
	}
}

// Render writes the full per-cycle report: device identity/counters for
// each identified FPGA, their port blocks, the MCU record, and the
// process-health footer.
func (r *Reporter) Render(cycle *Cycle, stats StatsSnapshot) {
	fmt.Fprintf(r.out, "health cycle seq=%d accepted=%d dropped=%d\n",
		cycle.SequenceID, cycle.ResponsesAccepted, cycle.ResponsesDropped)

	r.renderFPGA(cycle.Assistant, color.CyanString("ASSISTANT"))
	r.renderFPGA(cycle.Manager, color.MagentaString("MANAGER"))
	r.renderMCU(cycle.MCU)
	r.renderFindings(cycle)

	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"cycles", "cycle timeouts", "frames dropped", "alarms fired"})
	table.Append([]string{
		fmt.Sprintf("%d", stats.CyclesRun),
		fmt.Sprintf("%d", stats.CycleTimeouts),
		fmt.Sprintf("%d", stats.FramesDropped),
		fmt.Sprintf("%d", stats.AlarmsFired),
	})
	table.Render()

	sys := collectSysReport(r.procStart, r.proc)
	fmt.Fprintf(r.out, "monitor uptime=%s rss=%dB goroutines=%d\n",
		sys.uptime.Round(time.Second), sys.rssBytes, sys.goroutines)
}

func (r *Reporter) renderFPGA(acc fpgaAccumulator, coloredLabel string) {
	if acc.Device == nil {
		return
	}
	d := acc.Device
	fmt.Fprintf(r.out, "%s id=%x fw=%d.%d voltage=%.3fV temp=%.2fC tx=%d rx=%d err=%d\n",
		coloredLabel, d.Identity, d.FWVersionMajor, d.FWVersionMinor, d.VoltageVolts, d.TemperatureCelsius,
		d.TxCount, d.RxCount, d.ErrorCount)

	if len(acc.PortBlocks) == 0 {
		return
	}
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"port", "link", "speed", "tx pkts", "rx pkts", "crc err", "xcvr V", "xcvr C"})
	for _, p := range acc.PortBlocks {
		table.Append([]string{
			fmt.Sprintf("%d", p.PortIndex),
			fmt.Sprintf("%v", p.LinkUp),
			fmt.Sprintf("%d", p.SpeedMbps),
			fmt.Sprintf("%d", p.TxPackets),
			fmt.Sprintf("%d", p.RxPackets),
			fmt.Sprintf("%d", p.CRCErrors),
			fmt.Sprintf("%.3f", wire.DecodeFPGAVoltage(p.XcvrVoltsRaw)),
			fmt.Sprintf("%.2f", wire.DecodeFPGATemperature(p.XcvrTempRaw)),
		})
	}
	table.Render()
}

func (r *Reporter) renderFindings(cycle *Cycle) {
	for _, f := range cycle.Findings {
		fmt.Fprintf(r.out, "%s alarm %q fired on %s (voltage=%.3fV temp=%.2fC)\n",
			color.RedString("ALARM"), f.AlarmName, f.Subject, f.Voltage, f.Temperature)
	}
	for _, label := range cycle.FirmwareStale {
		fmt.Fprintf(r.out, "%s %s firmware is below the configured minimum\n",
			color.YellowString("STALE"), label)
	}
}

func (r *Reporter) renderMCU(m *wire.HealthMcuFrame) {
	if m == nil {
		return
	}
	fmt.Fprintf(r.out, "MCU fw=%d status=0x%02x rail1=%.3fV/%.3fA rail2=%.3fV/%.3fA mcuTemp=%.2fC boardTemp=%.2fC\n",
		m.FWVersion, m.ComponentStatus, m.Rail1VoltageVolts, m.Rail1CurrentAmps,
		m.Rail2VoltageVolts, m.Rail2CurrentAmps, m.TempMCUCelsius, m.TempBoardCelsius)
}
