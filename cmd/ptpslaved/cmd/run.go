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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/linksync/ptpslave/health"
	"github.com/linksync/ptpslave/ptpcontext"
	"github.com/linksync/ptpslave/ptpio"
	"github.com/linksync/ptpslave/timesource"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the slave clock and device health monitor until interrupted",
	RunE:  runRun,
}

func init() {
	RootCmd.AddCommand(runCmd)
}

func runRun(_ *cobra.Command, _ []string) error {
	ConfigureVerbosity()

	cfg, err := ptpcontext.ReadConfig(rootConfigFlag)
	if err != nil {
		return err
	}

	io, err := ptpio.NewPcapIO(cfg.InterfaceByPort())
	if err != nil {
		return fmt.Errorf("ptpslaved: opening packet I/O: %w", err)
	}
	defer io.Close()

	flowAPI := ptpio.NewPcapFlowAPI(io.Handles())

	var healthSocket health.Socket
	if cfg.HealthInterface != "" {
		healthSocket, err = health.NewPcapSocket(cfg.HealthInterface)
		if err != nil {
			return fmt.Errorf("ptpslaved: opening health socket: %w", err)
		}
		defer healthSocket.Close()
	}

	src := timesource.NewClockSource(1_000_000_000)

	macSource := ptpio.NewPcapMACSource(cfg.InterfaceByPort())
	pc, err := ptpcontext.NewContext(cfg, io, flowAPI, healthSocket, src, macSource)
	if err != nil {
		return fmt.Errorf("ptpslaved: building context: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigStop := make(chan os.Signal, 1)
	signal.Notify(sigStop, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	go func() {
		sig := <-sigStop
		log.Infof("ptpslaved: received %s, shutting down", sig)
		cancel()
	}()

	log.Infof("ptpslaved: starting on %d port(s)", len(cfg.Ports))
	if err := pc.Start(ctx); err != nil {
		return fmt.Errorf("ptpslaved: %w", err)
	}
	return nil
}
