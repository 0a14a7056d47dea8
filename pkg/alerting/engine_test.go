package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/gridview/pkg/logger"
	"github.com/carverauto/gridview/pkg/metrics"
	"github.com/carverauto/gridview/pkg/models"
)

var errStoreDown = errors.New("store down")

// memStore is an in-memory RuleStore for engine tests.
type memStore struct {
	rules  map[string]*models.AlertRule
	events map[string]*models.AlertEvent
	fail   bool
}

func newMemStore() *memStore {
	return &memStore{
		rules:  make(map[string]*models.AlertRule),
		events: make(map[string]*models.AlertEvent),
	}
}

func (s *memStore) ListRules(_ context.Context) ([]*models.AlertRule, error) {
	if s.fail {
		return nil, errStoreDown
	}

	out := make([]*models.AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}

	return out, nil
}

func (s *memStore) CreateRule(_ context.Context, rule *models.AlertRule) error {
	if s.fail {
		return errStoreDown
	}

	s.rules[rule.ID] = rule

	return nil
}

func (s *memStore) UpdateRule(_ context.Context, rule *models.AlertRule) error {
	if s.fail {
		return errStoreDown
	}

	s.rules[rule.ID] = rule

	return nil
}

func (s *memStore) DeleteRule(_ context.Context, id string) error {
	if s.fail {
		return errStoreDown
	}

	delete(s.rules, id)

	return nil
}

func (s *memStore) ListEvents(_ context.Context) ([]*models.AlertEvent, error) {
	if s.fail {
		return nil, errStoreDown
	}

	out := make([]*models.AlertEvent, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}

	return out, nil
}

func (s *memStore) UpdateEvent(_ context.Context, event *models.AlertEvent) error {
	if s.fail {
		return errStoreDown
	}

	copied := *event
	s.events[event.ID] = &copied

	return nil
}

func newTestEngine(t *testing.T, store RuleStore) *Engine {
	t.Helper()

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	return NewEngine(store, logger.NewTestLogger(), WithEngineClock(func() time.Time { return base }))
}

func TestEngineCreateRuleCanonicalizes(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, store)

	rule := validRule()
	rule.ID = ""
	rule.WarningThreshold = fp(5)

	require.NoError(t, engine.CreateRule(context.Background(), rule, metrics.UnitBitsPerSecond, "Gbps"))
	require.NotEmpty(t, rule.ID)

	stored := store.rules[rule.ID]
	require.NotNil(t, stored)
	assert.Equal(t, 5e9, *stored.WarningThreshold)

	rules := engine.Rules()
	require.Len(t, rules, 1)
}

func TestEngineCreateRuleValidationBlocksSubmission(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, store)

	rule := validRule()
	rule.Name = ""
	rule.WarningThreshold = nil
	rule.CriticalThreshold = nil

	var verr *ValidationError
	err := engine.CreateRule(context.Background(), rule, metrics.UnitBitsPerSecond, "bps")
	require.ErrorAs(t, err, &verr)

	assert.Empty(t, store.rules)
	assert.Empty(t, engine.Rules())
}

func TestEngineUpdateUnknownRule(t *testing.T) {
	engine := newTestEngine(t, newMemStore())

	err := engine.UpdateRule(context.Background(), validRule(), metrics.UnitBitsPerSecond, "")
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestEngineDeleteRule(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, store)

	rule := validRule()
	require.NoError(t, engine.CreateRule(context.Background(), rule, metrics.UnitBitsPerSecond, "bps"))
	require.NoError(t, engine.DeleteRule(context.Background(), rule.ID))

	assert.Empty(t, engine.Rules())
	assert.ErrorIs(t, engine.DeleteRule(context.Background(), rule.ID), ErrRuleNotFound)
}

func TestEngineEventTransitions(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, store)

	event, err := engine.Trigger(context.Background(), "r1", models.SeverityCritical, "rack 4 overload")
	require.NoError(t, err)

	require.NoError(t, engine.AcknowledgeEvent(context.Background(), event.ID, models.RoleOperator))
	require.NoError(t, engine.ResolveEvent(context.Background(), event.ID, models.RoleOperator))

	events := engine.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventResolved, events[0].Status)

	// Terminal state holds under repeated operator actions.
	assert.ErrorIs(t, engine.AcknowledgeEvent(context.Background(), event.ID, models.RoleOperator), ErrEventResolved)
	assert.ErrorIs(t, engine.ResolveEvent(context.Background(), event.ID, models.RoleAdmin), ErrEventResolved)
}

func TestEngineEventTransitionKeepsStateOnStoreFailure(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, store)

	event, err := engine.Trigger(context.Background(), "r1", models.SeverityWarning, "msg")
	require.NoError(t, err)

	store.fail = true
	err = engine.AcknowledgeEvent(context.Background(), event.ID, models.RoleOperator)
	require.ErrorIs(t, err, errStoreDown)

	// The visible event is untouched by the failed round-trip.
	events := engine.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventOpen, events[0].Status)
}

func TestEngineRuleToggleDoesNotTouchOpenEvents(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, store)

	rule := validRule()
	require.NoError(t, engine.CreateRule(context.Background(), rule, metrics.UnitBitsPerSecond, "bps"))

	event, err := engine.Trigger(context.Background(), rule.ID, models.SeverityWarning, "msg")
	require.NoError(t, err)

	deactivated := *rule
	deactivated.IsActive = false
	require.NoError(t, engine.UpdateRule(context.Background(), &deactivated, metrics.UnitBitsPerSecond, ""))

	events := engine.Events()
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)
	assert.Equal(t, models.EventOpen, events[0].Status)

	// And the inactive rule no longer evaluates.
	_, breached := EvaluateWindow(&deactivated, []float64{1e12})
	assert.False(t, breached)
}

func TestHTTPRuleStoreRoundTrip(t *testing.T) {
	rule := validRule()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/alerts/rules":
			_ = json.NewEncoder(w).Encode([]*models.AlertRule{rule})
		case r.Method == http.MethodPost && r.URL.Path == "/api/alerts/rules":
			var got models.AlertRule
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, rule.Name, got.Name)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/alerts/rules/r1":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet && r.URL.Path == "/api/alerts/events":
			_ = json.NewEncoder(w).Encode([]*models.AlertEvent{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	store := NewHTTPRuleStore(srv.URL, "secret")

	rules, err := store.ListRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, rule.Name, rules[0].Name)

	require.NoError(t, store.CreateRule(context.Background(), rule))
	require.NoError(t, store.DeleteRule(context.Background(), "r1"))

	events, err := store.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestHTTPRuleStoreSurfacesStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewHTTPRuleStore(srv.URL, "")

	_, err := store.ListRules(context.Background())
	assert.ErrorIs(t, err, errRuleStoreStatus)
}
