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

package dashboard

import (
	"time"

	"github.com/carverauto/gridview/pkg/hierarchy"
	"github.com/carverauto/gridview/pkg/metrics"
	"github.com/carverauto/gridview/pkg/models"
)

// Snapshot is the complete derived state of one dashboard render. It is
// rebuilt from scratch on every poll, range change, and zoom, then swapped in
// atomically; readers never see a half-updated structure.
type Snapshot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	FetchedAt time.Time `json:"fetched_at"`

	// Labels are the rendered x-axis labels of the visible slice; Series,
	// Stats and Percentiles cover the same slice. Zoom narrows the slice
	// without re-querying the source.
	Labels      []string                      `json:"labels"`
	Series      map[string][]float64          `json:"series"`
	Stats       map[string]models.SeriesStats `json:"stats"`
	Percentiles map[string]float64            `json:"percentiles"`
	Scale       metrics.UnitScale             `json:"scale"`
	Zoom        *ZoomWindow                   `json:"zoom,omitempty"`

	Hierarchy *hierarchy.Node     `json:"hierarchy,omitempty"`
	Totals    map[string]*float64 `json:"totals,omitempty"`
}
