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

package models

import "time"

// Condition is the comparison operator of an alert rule.
type Condition string

const (
	ConditionGT  Condition = "gt"
	ConditionGTE Condition = "gte"
	ConditionLT  Condition = "lt"
	ConditionLTE Condition = "lte"
	ConditionEQ  Condition = "eq"
	ConditionNE  Condition = "ne"
)

// Severity of a triggered alert event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// EventStatus is the lifecycle state of an alert event.
type EventStatus string

const (
	EventOpen         EventStatus = "open"
	EventAcknowledged EventStatus = "acknowledged"
	EventResolved     EventStatus = "resolved"
)

// AlertRule is a persisted threshold definition. Thresholds are stored in
// canonical base units (bits/sec, watts, amps); at least one of the two
// thresholds must be set, which is enforced at creation time.
type AlertRule struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Metric            string    `json:"metric"`
	Condition         Condition `json:"condition"`
	WarningThreshold  *float64  `json:"warning_threshold,omitempty"`
	CriticalThreshold *float64  `json:"critical_threshold,omitempty"`
	LookbackMinutes   int       `json:"lookback_minutes"`
	IsActive          bool      `json:"is_active"`
	NotifyEmails      []string  `json:"notify_emails,omitempty"`
	NotifyWebhooks    []string  `json:"notify_webhooks,omitempty"`
}

// AlertEvent is a runtime-triggered occurrence of a rule. Its lifecycle is
// monotonic: open -> acknowledged -> resolved, or open -> resolved directly.
type AlertEvent struct {
	ID             string      `json:"id"`
	RuleID         string      `json:"rule_id"`
	Severity       Severity    `json:"severity"`
	Status         EventStatus `json:"status"`
	Message        string      `json:"message"`
	TriggeredAt    time.Time   `json:"triggered_at"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time  `json:"resolved_at,omitempty"`
}
