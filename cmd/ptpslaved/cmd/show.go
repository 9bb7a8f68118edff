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

package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/linksync/ptpslave/health"
	"github.com/linksync/ptpslave/ptpcontext"
)

var showStatsAddrFlag string
var showHealthIfaceFlag string

var showStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "fetch a running ptpslaved's /stats.json and print it as a table",
	RunE:  runShowStats,
}

var showHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "run one standalone device health-monitor query cycle and print the report",
	RunE:  runShowHealth,
}

func init() {
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "read-only queries against a running or standalone ptpslaved",
	}
	showCmd.AddCommand(showStatsCmd, showHealthCmd)
	RootCmd.AddCommand(showCmd)

	showStatsCmd.Flags().StringVarP(&showStatsAddrFlag, "addr", "a", "http://localhost:8080", "base URL of a running ptpslaved's stats server")
	showHealthCmd.Flags().StringVarP(&showHealthIfaceFlag, "interface", "i", "", "interface to query directly, bypassing any running daemon")
	showHealthCmd.MarkFlagRequired("interface")
}

func runShowStats(_ *cobra.Command, _ []string) error {
	ConfigureVerbosity()

	c := http.Client{Timeout: 2 * time.Second}
	resp, err := c.Get(showStatsAddrFlag + "/stats.json")
	if err != nil {
		return fmt.Errorf("ptpslaved: fetching stats: %w", err)
	}
	defer resp.Body.Close()

	var snap ptpcontext.StatsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return fmt.Errorf("ptpslaved: decoding stats response: %w", err)
	}
	ptpcontext.NewReporter().Render(snap)
	return nil
}

func runShowHealth(_ *cobra.Command, _ []string) error {
	ConfigureVerbosity()

	sock, err := health.NewPcapSocket(showHealthIfaceFlag)
	if err != nil {
		return fmt.Errorf("ptpslaved: opening health socket: %w", err)
	}
	defer sock.Close()

	engine := health.NewEngine(sock, health.DefaultConfig())
	cycle, err := engine.RunOnce()
	if err != nil {
		return fmt.Errorf("ptpslaved: running health cycle: %w", err)
	}

	reporter := health.NewReporter()
	reporter.Render(cycle, engine.Stats().Snapshot())
	return nil
}
