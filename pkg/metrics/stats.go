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

// Package metrics derives display-ready summary statistics, percentile
// reference values, and shared unit scales from raw sample values.
package metrics

import (
	"math"
	"sort"

	"github.com/carverauto/gridview/pkg/models"
)

// ComputeStats summarizes the currently visible slice of one series in a
// single O(n) pass. An empty slice yields the all-zero struct rather than
// NaN so callers can render it directly.
func ComputeStats(values []float64) models.SeriesStats {
	if len(values) == 0 {
		return models.SeriesStats{}
	}

	stats := models.SeriesStats{
		Last: values[len(values)-1],
		Min:  values[0],
		Max:  values[0],
	}

	var sum float64

	for _, v := range values {
		if v < stats.Min {
			stats.Min = v
		}

		if v > stats.Max {
			stats.Max = v
		}

		sum += v
	}

	stats.Avg = sum / float64(len(values))

	return stats
}

// Percentile returns the p-th percentile of values using the billing rank
// convention: sort ascending and take the value at rank ceil(p/100*n)-1,
// clamped to [0, n-1]. This matches 95th-percentile traffic billing, so the
// rank rounding is a contract, not an approximation. Empty input yields 0.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := int(math.Ceil(p/100*float64(n))) - 1
	if rank < 0 {
		rank = 0
	}

	if rank > n-1 {
		rank = n - 1
	}

	return sorted[rank]
}

// MaxMagnitude returns the largest absolute value across every series and
// every reference line currently rendered. Reference lines (percentile,
// commitment) must participate here so they end up on the same Y-axis scale
// as the series.
func MaxMagnitude(series [][]float64, refs []float64) float64 {
	var maxAbs float64

	for _, s := range series {
		for _, v := range s {
			if abs := math.Abs(v); abs > maxAbs {
				maxAbs = abs
			}
		}
	}

	for _, v := range refs {
		if abs := math.Abs(v); abs > maxAbs {
			maxAbs = abs
		}
	}

	return maxAbs
}
