package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/gridview/pkg/models"
)

func TestEventLifecycleOpenAckResolve(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	event := NewEvent("r1", models.SeverityWarning, "in_bps above 5 Gbps", now)
	require.Equal(t, models.EventOpen, event.Status)
	require.NotEmpty(t, event.ID)

	require.NoError(t, Acknowledge(event, models.RoleOperator, now.Add(time.Minute)))
	assert.Equal(t, models.EventAcknowledged, event.Status)
	require.NotNil(t, event.AcknowledgedAt)

	require.NoError(t, Resolve(event, models.RoleOperator, now.Add(2*time.Minute)))
	assert.Equal(t, models.EventResolved, event.Status)
	require.NotNil(t, event.ResolvedAt)
}

func TestEventResolveDirectlyFromOpen(t *testing.T) {
	now := time.Now()
	event := NewEvent("r1", models.SeverityCritical, "pdu overload", now)

	require.NoError(t, Resolve(event, models.RoleAdmin, now))
	assert.Equal(t, models.EventResolved, event.Status)
	assert.Nil(t, event.AcknowledgedAt)
}

func TestEventResolvedIsTerminal(t *testing.T) {
	now := time.Now()
	event := NewEvent("r1", models.SeverityWarning, "msg", now)
	require.NoError(t, Resolve(event, models.RoleOperator, now))

	err := Acknowledge(event, models.RoleOperator, now)
	assert.ErrorIs(t, err, ErrEventResolved)

	err = Resolve(event, models.RoleOperator, now)
	assert.ErrorIs(t, err, ErrEventResolved)

	assert.Equal(t, models.EventResolved, event.Status)
}

func TestEventAcknowledgeTwiceRejected(t *testing.T) {
	now := time.Now()
	event := NewEvent("r1", models.SeverityWarning, "msg", now)
	require.NoError(t, Acknowledge(event, models.RoleOperator, now))

	err := Acknowledge(event, models.RoleOperator, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEventTransitionsRequireOperator(t *testing.T) {
	now := time.Now()
	event := NewEvent("r1", models.SeverityWarning, "msg", now)

	assert.ErrorIs(t, Acknowledge(event, models.RoleViewer, now), ErrInsufficientRole)
	assert.ErrorIs(t, Resolve(event, models.RoleViewer, now), ErrInsufficientRole)
	assert.Equal(t, models.EventOpen, event.Status)

	assert.NoError(t, Acknowledge(event, models.RoleAdmin, now))
}
