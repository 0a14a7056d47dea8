/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/carverauto/gridview/pkg/alerting"
	"github.com/carverauto/gridview/pkg/api"
	"github.com/carverauto/gridview/pkg/config"
	"github.com/carverauto/gridview/pkg/dashboard"
	"github.com/carverauto/gridview/pkg/logger"
	"github.com/carverauto/gridview/pkg/metrics"
	"github.com/carverauto/gridview/pkg/source"
)

var errNoSourceForDashboard = errors.New("no telemetry source configured for dashboard entity")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/gridview/dashboard.json", "Path to dashboard config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logConfig := logger.DefaultConfig()
	if cfg.Logging != nil {
		logConfig = *cfg.Logging
	}

	rootLog, err := logger.New(logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry sources, keyed by entity.
	samples := make(map[string]source.SampleSource)

	for _, linkCfg := range cfg.Links {
		linkCfg := linkCfg
		link := source.NewSNMPSource(linkCfg, rootLog.WithComponent("snmp"))
		samples[linkCfg.EntityID] = link

		go func() {
			if runErr := link.Run(ctx); runErr != nil {
				rootLog.Error().Err(runErr).Str("entity_id", linkCfg.EntityID).Msg("SNMP source stopped")
			}
		}()
	}

	var pdu *source.PDUSource

	if cfg.PDU != nil {
		pdu = source.NewPDUSource(*cfg.PDU, rootLog.WithComponent("pdu"))
		if err = pdu.Connect(); err != nil {
			return fmt.Errorf("failed to connect PDU source: %w", err)
		}

		defer pdu.Close()

		for _, entity := range pdu.Devices() {
			samples[entity] = pdu
		}
	}

	// Alert rules live in the external rule store; the engine mirrors them.
	store := alerting.NewHTTPRuleStore(cfg.Alerts.StoreURL, cfg.Alerts.APIKey)
	alerts := alerting.NewEngine(store, rootLog.WithComponent("alerting"))

	if err = alerts.Load(ctx); err != nil {
		rootLog.Warn().Err(err).Msg("Rule store unavailable at startup, starting with no rules")
	}

	hub := api.NewHub(rootLog.WithComponent("api"))

	// Every configured dashboard polls on its own schedule and pushes
	// snapshots to the stream; the HTTP API serves the first one.
	var primary *dashboard.Engine

	for _, dashCfg := range cfg.Dashboards {
		src, ok := samples[dashCfg.EntityID]
		if !ok {
			if pdu == nil {
				return fmt.Errorf("%w: %s", errNoSourceForDashboard, dashCfg.EntityID)
			}

			src = pdu
		}

		var hierSrc source.HierarchySource
		if pdu != nil && (dashCfg.Unit == metrics.UnitWatts || dashCfg.Unit == metrics.UnitAmps) {
			hierSrc = pdu
		}

		eng := dashboard.New(
			dashCfg.Engine(),
			src,
			hierSrc,
			rootLog.WithComponent("dashboard"),
			dashboard.WithOnUpdate(hub.Broadcast),
		)

		if primary == nil {
			primary = eng
		}

		go eng.Run(ctx)
	}

	srv := api.NewServer(cfg.ListenAddr, primary, alerts, hub, []byte(cfg.AuthSecret), rootLog.WithComponent("api"))

	if err = srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	rootLog.Info().Msg("Dashboard service stopped")

	return nil
}
