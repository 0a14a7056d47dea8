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

// Package models holds the shared data types of the dashboard engine.
package models

import "time"

// Sample is one timestamped observation carrying one or more named metric
// values (e.g. "in_bps", "out_bps", "power_w"). Samples are immutable once
// received and ordered by timestamp ascending. Duplicate timestamps are not
// deduplicated; the last one wins at display time.
type Sample struct {
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// SeriesStats summarizes a finite sequence of values for one series. All
// fields are zero for an empty sequence so callers never see NaN.
type SeriesStats struct {
	Last float64 `json:"last"`
	Min  float64 `json:"min"`
	Avg  float64 `json:"avg"`
	Max  float64 `json:"max"`
}
