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
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/gridview/pkg/logger"
	"github.com/carverauto/gridview/pkg/metrics"
	"github.com/carverauto/gridview/pkg/models"
)

// RuleStore is the external rule CRUD collaborator. Implementations persist
// rules and event transitions; the engine mirrors their state in memory for
// display.
type RuleStore interface {
	ListRules(ctx context.Context) ([]*models.AlertRule, error)
	CreateRule(ctx context.Context, rule *models.AlertRule) error
	UpdateRule(ctx context.Context, rule *models.AlertRule) error
	DeleteRule(ctx context.Context, id string) error
	ListEvents(ctx context.Context) ([]*models.AlertEvent, error)
	UpdateEvent(ctx context.Context, event *models.AlertEvent) error
}

// Engine holds the dashboard's view of alert rules and events. All state
// changes go through the store first; in-memory state only reflects
// round-trips that succeeded, so a failed call never corrupts the last-good
// view.
type Engine struct {
	mu     sync.RWMutex
	store  RuleStore
	rules  map[string]*models.AlertRule
	events map[string]*models.AlertEvent
	now    func() time.Time
	logger logger.Logger
}

// EngineOption customises engine construction.
type EngineOption func(*Engine)

// WithEngineClock injects a deterministic clock (used for tests).
func WithEngineClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.now = clock
		}
	}
}

func NewEngine(store RuleStore, log logger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  store,
		rules:  make(map[string]*models.AlertRule),
		events: make(map[string]*models.AlertEvent),
		now:    time.Now,
		logger: log,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	return e
}

// Load refreshes rules and events from the store.
func (e *Engine) Load(ctx context.Context) error {
	rules, err := e.store.ListRules(ctx)
	if err != nil {
		return err
	}

	events, err := e.store.ListEvents(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = make(map[string]*models.AlertRule, len(rules))
	for _, rule := range rules {
		e.rules[rule.ID] = rule
	}

	e.events = make(map[string]*models.AlertEvent, len(events))
	for _, event := range events {
		e.events[event.ID] = event
	}

	return nil
}

// CreateRule validates the payload, converts thresholds from the given
// display unit into canonical base units, persists, then reflects the rule
// locally.
func (e *Engine) CreateRule(
	ctx context.Context, rule *models.AlertRule, unit metrics.BaseUnit, displayLabel string) error {
	if err := ValidateRule(rule); err != nil {
		return err
	}

	CanonicalizeThresholds(rule, unit, displayLabel)

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	if err := e.store.CreateRule(ctx, rule); err != nil {
		return err
	}

	e.mu.Lock()
	e.rules[rule.ID] = rule
	e.mu.Unlock()

	e.logger.Info().
		Str("rule_id", rule.ID).
		Str("rule_name", rule.Name).
		Str("metric", rule.Metric).
		Msg("Alert rule created")

	return nil
}

// UpdateRule validates and persists a changed rule. Thresholds in the
// payload are already canonical when the display unit label is empty.
func (e *Engine) UpdateRule(
	ctx context.Context, rule *models.AlertRule, unit metrics.BaseUnit, displayLabel string) error {
	if err := ValidateRule(rule); err != nil {
		return err
	}

	e.mu.RLock()
	_, known := e.rules[rule.ID]
	e.mu.RUnlock()

	if !known {
		return ErrRuleNotFound
	}

	if displayLabel != "" {
		CanonicalizeThresholds(rule, unit, displayLabel)
	}

	if err := e.store.UpdateRule(ctx, rule); err != nil {
		return err
	}

	e.mu.Lock()
	e.rules[rule.ID] = rule
	e.mu.Unlock()

	return nil
}

func (e *Engine) DeleteRule(ctx context.Context, id string) error {
	e.mu.RLock()
	_, known := e.rules[id]
	e.mu.RUnlock()

	if !known {
		return ErrRuleNotFound
	}

	if err := e.store.DeleteRule(ctx, id); err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.rules, id)
	e.mu.Unlock()

	return nil
}

// Rules returns the known rules sorted by name for stable display.
func (e *Engine) Rules() []*models.AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*models.AlertRule, 0, len(e.rules))
	for _, rule := range e.rules {
		out = append(out, rule)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Events returns the known events, newest first.
func (e *Engine) Events() []*models.AlertEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*models.AlertEvent, 0, len(e.events))
	for _, event := range e.events {
		out = append(out, event)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TriggeredAt.After(out[j].TriggeredAt) })

	return out
}

// Trigger records a new open event for a rule breach. Called by the external
// evaluation scheduler; a rule's active flag gates evaluation, not events
// already open.
func (e *Engine) Trigger(ctx context.Context, ruleID string, severity models.Severity, message string) (*models.AlertEvent, error) {
	event := NewEvent(ruleID, severity, message, e.now())

	if err := e.store.UpdateEvent(ctx, event); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.events[event.ID] = event
	e.mu.Unlock()

	e.logger.Warn().
		Str("rule_id", ruleID).
		Str("event_id", event.ID).
		Str("severity", string(severity)).
		Msg("Alert event opened")

	return event, nil
}

// AcknowledgeEvent transitions an open event to acknowledged on behalf of an
// operator.
func (e *Engine) AcknowledgeEvent(ctx context.Context, id string, role models.Role) error {
	return e.transition(ctx, id, role, Acknowledge)
}

// ResolveEvent closes an event from open or acknowledged.
func (e *Engine) ResolveEvent(ctx context.Context, id string, role models.Role) error {
	return e.transition(ctx, id, role, Resolve)
}

func (e *Engine) transition(
	ctx context.Context,
	id string,
	role models.Role,
	apply func(*models.AlertEvent, models.Role, time.Time) error,
) error {
	e.mu.RLock()
	current, ok := e.events[id]
	e.mu.RUnlock()

	if !ok {
		return ErrEventNotFound
	}

	// Work on a copy so a failed persist leaves the visible event untouched.
	next := *current
	if err := apply(&next, role, e.now()); err != nil {
		return err
	}

	if err := e.store.UpdateEvent(ctx, &next); err != nil {
		return err
	}

	e.mu.Lock()
	e.events[id] = &next
	e.mu.Unlock()

	return nil
}
