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

// Package timerange resolves rolling preset and absolute custom time windows
// into concrete query bounds.
package timerange

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("invalid time range")

// Kind discriminates the two range flavors.
type Kind string

const (
	KindPreset Kind = "preset"
	KindCustom Kind = "custom"
)

// Range is either a rolling preset window (last N hours, resolved against
// "now" at query time) or an absolute custom window. A preset deliberately
// resolves to different bounds on every call.
type Range struct {
	Kind  Kind      `json:"kind"`
	Hours int       `json:"hours,omitempty"`
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// Preset returns a rolling window covering the last hours hours.
func Preset(hours int) Range {
	return Range{Kind: KindPreset, Hours: hours}
}

// Custom returns an absolute window. Validity is checked at Resolve time.
func Custom(start, end time.Time) Range {
	return Range{Kind: KindCustom, Start: start, End: end}
}

// Resolve turns the range into concrete bounds. A custom range with
// start >= end fails with ErrInvalidRange, as does a non-positive preset.
func (r Range) Resolve(now time.Time) (start, end time.Time, err error) {
	switch r.Kind {
	case KindPreset:
		if r.Hours <= 0 {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}

		return now.Add(-time.Duration(r.Hours) * time.Hour), now, nil
	case KindCustom:
		if !r.Start.Before(r.End) {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}

		return r.Start, r.End, nil
	default:
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
}

// Granularity suggests a query step for the given window so charts stay at a
// sane point density regardless of range width.
func Granularity(start, end time.Time) time.Duration {
	width := end.Sub(start)

	switch {
	case width <= 6*time.Hour:
		return time.Minute
	case width <= 24*time.Hour:
		return 5 * time.Minute
	case width <= 7*24*time.Hour:
		return 30 * time.Minute
	default:
		return 2 * time.Hour
	}
}
