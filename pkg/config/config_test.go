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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/gridview/pkg/metrics"
	"github.com/carverauto/gridview/pkg/timerange"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gridview.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

const validConfig = `{
  "listen_addr": ":8090",
  "auth_secret": "test-secret",
  "dashboards": [
    {
      "name": "WAN",
      "entity_id": "wan0",
      "metrics": ["in_bps", "out_bps"],
      "unit": "bps",
      "percentile_rank": 95,
      "commitment": 2e9,
      "poll_interval": "30s",
      "default_hours": 24
    }
  ],
  "snmp_links": [
    {
      "entity_id": "wan0",
      "target": "192.0.2.1",
      "community": "public",
      "if_index": 4,
      "interval": "30s"
    }
  ],
  "alerts": {
    "store_url": "http://localhost:8091"
  }
}`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.ListenAddr)
	assert.Equal(t, "test-secret", cfg.AuthSecret)
	require.Len(t, cfg.Dashboards, 1)
	require.Len(t, cfg.Links, 1)
	assert.Equal(t, 30*time.Second, cfg.Links[0].Interval.Duration())

	engineCfg := cfg.Dashboards[0].Engine()
	assert.Equal(t, "wan0", engineCfg.EntityID)
	assert.Equal(t, metrics.UnitBitsPerSecond, engineCfg.Unit)
	assert.Equal(t, 30*time.Second, engineCfg.PollInterval)
	assert.Equal(t, timerange.Preset(24), engineCfg.DefaultRange)
	require.NotNil(t, engineCfg.Commitment)
	assert.InDelta(t, 2e9, *engineCfg.Commitment, 1)
}

func TestLoadRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "missing listen addr",
			content: `{"auth_secret": "s", "dashboards": [{"entity_id": "e", "metrics": ["m"]}]}`,
			wantErr: ErrNoListenAddr,
		},
		{
			name:    "missing secret",
			content: `{"listen_addr": ":8090", "dashboards": [{"entity_id": "e", "metrics": ["m"]}]}`,
			wantErr: ErrNoAuthSecret,
		},
		{
			name:    "no dashboards",
			content: `{"listen_addr": ":8090", "auth_secret": "s", "dashboards": []}`,
			wantErr: ErrNoDashboards,
		},
		{
			name:    "dashboard without entity",
			content: `{"listen_addr": ":8090", "auth_secret": "s", "dashboards": [{"metrics": ["m"]}]}`,
			wantErr: ErrNoEntityID,
		},
		{
			name:    "dashboard without metrics",
			content: `{"listen_addr": ":8090", "auth_secret": "s", "dashboards": [{"entity_id": "e"}]}`,
			wantErr: ErrNoMetrics,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GRIDVIEW_AUTH_SECRET", "from-env")
	t.Setenv("GRIDVIEW_LISTEN_ADDR", ":9999")

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.AuthSecret)
	assert.Equal(t, ":9999", cfg.ListenAddr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
