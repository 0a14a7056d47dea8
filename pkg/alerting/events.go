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

package alerting

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/gridview/pkg/models"
)

var (
	ErrEventResolved     = errors.New("alert event is resolved and cannot change state")
	ErrEventNotFound     = errors.New("alert event not found")
	ErrRuleNotFound      = errors.New("alert rule not found")
	ErrInsufficientRole  = errors.New("operator role required")
	ErrInvalidTransition = errors.New("invalid alert event transition")
)

// NewEvent creates an open event for a rule breach.
func NewEvent(ruleID string, severity models.Severity, message string, now time.Time) *models.AlertEvent {
	return &models.AlertEvent{
		ID:          uuid.New().String(),
		RuleID:      ruleID,
		Severity:    severity,
		Status:      models.EventOpen,
		Message:     message,
		TriggeredAt: now,
	}
}

// Acknowledge moves an open event to acknowledged. Requires at least the
// operator role.
func Acknowledge(event *models.AlertEvent, role models.Role, now time.Time) error {
	if !role.AtLeast(models.RoleOperator) {
		return ErrInsufficientRole
	}

	if err := checkTransition(event.Status, models.EventAcknowledged); err != nil {
		return err
	}

	event.Status = models.EventAcknowledged
	event.AcknowledgedAt = &now

	return nil
}

// Resolve closes an event from either open or acknowledged. Requires at
// least the operator role. Resolution is final.
func Resolve(event *models.AlertEvent, role models.Role, now time.Time) error {
	if !role.AtLeast(models.RoleOperator) {
		return ErrInsufficientRole
	}

	if err := checkTransition(event.Status, models.EventResolved); err != nil {
		return err
	}

	event.Status = models.EventResolved
	event.ResolvedAt = &now

	return nil
}

// checkTransition enforces the monotonic lifecycle:
// open -> acknowledged -> resolved, or open -> resolved directly. Nothing
// ever leaves resolved.
func checkTransition(from, to models.EventStatus) error {
	if from == models.EventResolved {
		return ErrEventResolved
	}

	switch to {
	case models.EventAcknowledged:
		if from != models.EventOpen {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
		}
	case models.EventResolved:
		// open and acknowledged both resolve.
	default:
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}

	return nil
}
