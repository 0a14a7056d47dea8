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

// Package alerting manages threshold alert rule definitions and the
// open/acknowledged/resolved lifecycle of triggered events. Rule evaluation
// scheduling belongs to an external scheduler; this package validates rule
// payloads, converts thresholds to canonical base units, evaluates a single
// lookback window on demand, and drives event state transitions.
package alerting

import (
	"fmt"
	"strings"

	"github.com/carverauto/gridview/pkg/metrics"
	"github.com/carverauto/gridview/pkg/models"
)

// FieldError is a single field-level validation failure, surfaced next to
// the offending form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError rejects a rule payload before submission.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}

	return "invalid alert rule: " + strings.Join(msgs, "; ")
}

var validConditions = map[models.Condition]struct{}{
	models.ConditionGT:  {},
	models.ConditionGTE: {},
	models.ConditionLT:  {},
	models.ConditionLTE: {},
	models.ConditionEQ:  {},
	models.ConditionNE:  {},
}

// ValidateRule checks a rule payload before create/update. At least one of
// the two thresholds must be present; this is enforced here at creation time
// and not re-validated later.
func ValidateRule(rule *models.AlertRule) error {
	var fields []FieldError

	if strings.TrimSpace(rule.Name) == "" {
		fields = append(fields, FieldError{Field: "name", Message: "name is required"})
	}

	if strings.TrimSpace(rule.Metric) == "" {
		fields = append(fields, FieldError{Field: "metric", Message: "metric is required"})
	}

	if _, ok := validConditions[rule.Condition]; !ok {
		fields = append(fields, FieldError{Field: "condition", Message: "unknown comparison operator"})
	}

	if rule.WarningThreshold == nil && rule.CriticalThreshold == nil {
		fields = append(fields, FieldError{
			Field:   "thresholds",
			Message: "at least one of warning or critical threshold must be set",
		})
	}

	if rule.LookbackMinutes <= 0 {
		fields = append(fields, FieldError{Field: "lookback_minutes", Message: "lookback must be a positive number of minutes"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	return nil
}

// CanonicalizeThresholds converts thresholds entered in a display unit into
// canonical base units in place (a Gbps entry becomes x1e9 bits/sec). The
// multiplier is an exact power of ten, so no precision beyond what the user
// typed is lost.
func CanonicalizeThresholds(rule *models.AlertRule, unit metrics.BaseUnit, displayLabel string) {
	factor := metrics.DisplayFactor(unit, displayLabel)

	if rule.WarningThreshold != nil {
		v := *rule.WarningThreshold * factor
		rule.WarningThreshold = &v
	}

	if rule.CriticalThreshold != nil {
		v := *rule.CriticalThreshold * factor
		rule.CriticalThreshold = &v
	}
}

// EvaluateWindow compares the lookback-window average of a metric against
// the rule's thresholds and reports the severity breached, if any. Critical
// takes precedence over warning. Inactive rules never fire. This is the hook
// the external evaluation scheduler calls on its own cadence.
func EvaluateWindow(rule *models.AlertRule, values []float64) (models.Severity, bool) {
	if !rule.IsActive || len(values) == 0 {
		return "", false
	}

	observed := metrics.ComputeStats(values).Avg

	if rule.CriticalThreshold != nil && compare(observed, rule.Condition, *rule.CriticalThreshold) {
		return models.SeverityCritical, true
	}

	if rule.WarningThreshold != nil && compare(observed, rule.Condition, *rule.WarningThreshold) {
		return models.SeverityWarning, true
	}

	return "", false
}

func compare(observed float64, cond models.Condition, threshold float64) bool {
	switch cond {
	case models.ConditionGT:
		return observed > threshold
	case models.ConditionGTE:
		return observed >= threshold
	case models.ConditionLT:
		return observed < threshold
	case models.ConditionLTE:
		return observed <= threshold
	case models.ConditionEQ:
		return observed == threshold
	case models.ConditionNE:
		return observed != threshold
	default:
		return false
	}
}
