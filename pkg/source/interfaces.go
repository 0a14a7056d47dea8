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

// Package source supplies raw telemetry samples to the dashboard engine.
// Sources own the polling/transport mechanics; the engine only ever sees
// ordered samples for a resolved time window.
package source

import (
	"context"
	"time"

	"github.com/carverauto/gridview/pkg/hierarchy"
	"github.com/carverauto/gridview/pkg/models"
)

// SampleSource answers window queries for one entity's metric series.
// Returned samples are ordered by timestamp ascending. step is a granularity
// hint; sources that collect at a fixed native cadence may ignore it.
type SampleSource interface {
	Query(ctx context.Context, entityID string, start, end time.Time, step time.Duration) ([]models.Sample, error)
}

// HierarchySource produces the raw (unaggregated) grouping tree for the
// hierarchy rollup on each poll.
type HierarchySource interface {
	Fetch(ctx context.Context) (*hierarchy.Node, error)
}
