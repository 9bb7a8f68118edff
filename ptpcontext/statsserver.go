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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// StatsServer exposes every session's counters and the health engine's
// cycle counters as Prometheus gauges, scraped fresh on every /metrics
// request. Worker-level counters (Worker.RXByMessageType) are not
// exported.
type StatsServer struct {
	addr     string
	ctx      *PTPContext
	registry *prometheus.Registry
}

// NewStatsServer returns a StatsServer bound to addr, reading counters
// from pc at scrape time.
func NewStatsServer(addr string, pc *PTPContext) *StatsServer {
	return &StatsServer{
		addr:     addr,
		ctx:      pc,
		registry: prometheus.NewRegistry(),
	}
}

// Run serves /metrics until ctx is cancelled, then shuts the listener
// down gracefully.
func (s *StatsServer) Run(ctx context.Context) error {
	if s.addr == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.collect()
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	}))
	mux.HandleFunc("/stats.json", s.handleStatsJSON)

	server := &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("ptpcontext: stats server listening on %s", s.addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warnf("ptpcontext: stats server shutdown: %v", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("ptpcontext: stats server: %w", err)
	}
}

// collect re-registers every gauge against the current counter values.
// It is cheap enough to run per scrape: the number of sessions and
// ports is small and fixed at startup.
func (s *StatsServer) collect() {
	s.registry = prometheus.NewRegistry()

	for _, port := range s.ctx.Ports {
		portID := port.PortID
		for _, sess := range port.Sessions {
			stats := sess.SnapshotStats()
			labels := prometheus.Labels{
				"port": fmt.Sprintf("%d", portID),
				"vlan": fmt.Sprintf("%d", sess.RxVlan),
			}
			s.gauge("ptpslave_session_sync_rx_total", "Sync messages received", labels, float64(stats.SyncRxCount))
			s.gauge("ptpslave_session_delay_req_tx_total", "Delay_Req messages sent", labels, float64(stats.DelayReqTxCount))
			s.gauge("ptpslave_session_delay_resp_rx_total", "Delay_Resp messages received", labels, float64(stats.DelayRespRxCount))
			s.gauge("ptpslave_session_sync_timeout_total", "Sync timeouts", labels, float64(stats.SyncTimeoutCount))
			s.gauge("ptpslave_session_validation_error_total", "Validation errors", labels, float64(stats.ValidationErrorCount))
			s.gauge("ptpslave_session_offset_ns", "Current offset from master, ns", labels, float64(stats.OffsetNs))
			s.gauge("ptpslave_session_delay_ns", "Current mean path delay, ns", labels, float64(stats.DelayNs))
			s.gauge("ptpslave_session_synced", "1 if the session believes it is synced", labels, boolToFloat(stats.IsSynced))
		}
	}

	if s.ctx.health != nil {
		hs := s.ctx.health.Stats().Snapshot()
		s.gauge("ptpslave_health_cycles_total", "Health query cycles run", nil, float64(hs.CyclesRun))
		s.gauge("ptpslave_health_cycle_timeouts_total", "Health query cycles that timed out short of all expected responses", nil, float64(hs.CycleTimeouts))
		s.gauge("ptpslave_health_frames_dropped_total", "Health response frames dropped", nil, float64(hs.FramesDropped))
		s.gauge("ptpslave_health_alarms_fired_total", "Alarm evaluations that fired", nil, float64(hs.AlarmsFired))
	}
}

func (s *StatsServer) gauge(name, help string, labels prometheus.Labels, value float64) {
	var labelNames []string
	for k := range labels {
		labelNames = append(labelNames, k)
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labelNames)
	if err := s.registry.Register(g); err != nil {
		log.Warnf("ptpcontext: registering metric %s: %v", name, err)
		return
	}
	g.With(labels).Set(value)
}

// handleStatsJSON serves the same periodic statistics report "show
// stats" renders as a table, as JSON, the way json_stats.go's
// /counters endpoint backs a separate reporting CLI.
func (s *StatsServer) handleStatsJSON(w http.ResponseWriter, _ *http.Request) {
	snap := s.ctx.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Errorf("ptpcontext: encoding stats response: %v", err)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
