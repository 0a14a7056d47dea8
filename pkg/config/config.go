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

// Package config loads the dashboard service configuration from a JSON file
// with environment variable overrides for deployment-specific values.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/carverauto/gridview/pkg/dashboard"
	"github.com/carverauto/gridview/pkg/logger"
	"github.com/carverauto/gridview/pkg/metrics"
	"github.com/carverauto/gridview/pkg/models"
	"github.com/carverauto/gridview/pkg/source"
	"github.com/carverauto/gridview/pkg/timerange"
)

var (
	ErrNoListenAddr = errors.New("listen_addr is required")
	ErrNoAuthSecret = errors.New("auth_secret is required")
	ErrNoDashboards = errors.New("at least one dashboard must be configured")
	ErrNoEntityID   = errors.New("dashboard entity_id is required")
	ErrNoMetrics    = errors.New("dashboard metrics list is required")
)

// DashboardConfig describes one dashboard view in the config file. Durations
// accept "30s"-style strings; thresholds and commitments are in canonical
// base units.
type DashboardConfig struct {
	Name           string           `json:"name"`
	EntityID       string           `json:"entity_id"`
	Metrics        []string         `json:"metrics"`
	Unit           metrics.BaseUnit `json:"unit"`
	PercentileRank float64          `json:"percentile_rank,omitempty"`
	Commitment     *float64         `json:"commitment,omitempty"`
	PollInterval   models.Duration  `json:"poll_interval,omitempty"`
	DefaultHours   int              `json:"default_hours,omitempty"`
}

// Engine maps the file representation onto the dashboard engine's config.
func (d DashboardConfig) Engine() dashboard.Config {
	cfg := dashboard.Config{
		EntityID:       d.EntityID,
		Metrics:        d.Metrics,
		Unit:           d.Unit,
		PercentileRank: d.PercentileRank,
		Commitment:     d.Commitment,
		PollInterval:   d.PollInterval.Duration(),
	}

	if d.DefaultHours > 0 {
		cfg.DefaultRange = timerange.Preset(d.DefaultHours)
	}

	return cfg
}

// AlertsConfig points at the rule store backend.
type AlertsConfig struct {
	StoreURL string `json:"store_url"`
	APIKey   string `json:"api_key,omitempty"`
}

// Config is the top-level service configuration.
type Config struct {
	ListenAddr string              `json:"listen_addr"`
	AuthSecret string              `json:"auth_secret"`
	Logging    *logger.Config      `json:"logging,omitempty"`
	Dashboards []DashboardConfig   `json:"dashboards"`
	Links      []source.SNMPConfig `json:"snmp_links,omitempty"`
	PDU        *source.PDUConfig   `json:"pdu,omitempty"`
	Alerts     AlertsConfig        `json:"alerts"`
}

// Load reads the JSON file at path, applies environment overrides, and
// validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	var cfg Config

	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON from '%s': %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// applyEnvOverrides lets deployments keep secrets out of the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRIDVIEW_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	if v := os.Getenv("GRIDVIEW_AUTH_SECRET"); v != "" {
		cfg.AuthSecret = v
	}

	if v := os.Getenv("GRIDVIEW_ALERT_STORE_URL"); v != "" {
		cfg.Alerts.StoreURL = v
	}

	if v := os.Getenv("GRIDVIEW_ALERT_STORE_API_KEY"); v != "" {
		cfg.Alerts.APIKey = v
	}
}

func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return ErrNoListenAddr
	}

	if c.AuthSecret == "" {
		return ErrNoAuthSecret
	}

	if len(c.Dashboards) == 0 {
		return ErrNoDashboards
	}

	for i := range c.Dashboards {
		d := &c.Dashboards[i]

		if d.EntityID == "" {
			return fmt.Errorf("%w: dashboard %q", ErrNoEntityID, d.Name)
		}

		if len(d.Metrics) == 0 {
			return fmt.Errorf("%w: dashboard %q", ErrNoMetrics, d.Name)
		}
	}

	return nil
}
