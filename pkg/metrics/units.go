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

package metrics

// BaseUnit identifies the canonical unit family of a metric.
type BaseUnit string

const (
	UnitBitsPerSecond BaseUnit = "bps"
	UnitWatts         BaseUnit = "w"
	UnitAmps          BaseUnit = "a"
)

// UnitScale is one display unit within a family: the value shown on screen is
// the canonical value divided by Factor.
type UnitScale struct {
	Label  string  `json:"label"`
	Factor float64 `json:"factor"`
}

// unitMagnitudeCap bounds the displayed magnitude: the chosen unit is the
// smallest one keeping the maximum below this.
const unitMagnitudeCap = 1024

var unitFamilies = map[BaseUnit][]UnitScale{
	UnitBitsPerSecond: {
		{Label: "bps", Factor: 1},
		{Label: "Kbps", Factor: 1e3},
		{Label: "Mbps", Factor: 1e6},
		{Label: "Gbps", Factor: 1e9},
		{Label: "Tbps", Factor: 1e12},
	},
	UnitWatts: {
		{Label: "W", Factor: 1},
		{Label: "kW", Factor: 1e3},
		{Label: "MW", Factor: 1e6},
	},
	UnitAmps: {
		{Label: "A", Factor: 1},
	},
}

// ChooseUnitScale picks the display unit for a chart render: the smallest
// unit of the family in which maxAbs stays below 1024, falling back to the
// family's largest unit. maxAbs must already include reference-line values
// (see MaxMagnitude) so series and overlays share one scale.
func ChooseUnitScale(maxAbs float64, unit BaseUnit) UnitScale {
	family, ok := unitFamilies[unit]
	if !ok {
		return UnitScale{Label: string(unit), Factor: 1}
	}

	for _, scale := range family {
		if maxAbs/scale.Factor < unitMagnitudeCap {
			return scale
		}
	}

	return family[len(family)-1]
}

// DisplayFactor returns the multiplier converting a value entered in the
// given display unit label back to canonical base units (e.g. "Gbps" -> 1e9).
// Unknown labels convert with factor 1.
func DisplayFactor(unit BaseUnit, label string) float64 {
	for _, scale := range unitFamilies[unit] {
		if scale.Label == label {
			return scale.Factor
		}
	}

	return 1
}
