package source

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/gridview/pkg/hierarchy"
	"github.com/carverauto/gridview/pkg/logger"
)

func newTestPDUSource() *PDUSource {
	return NewPDUSource(PDUConfig{RackKey: 4, RackLabel: "rack 4"}, logger.NewTestLogger())
}

func publish(t *testing.T, src *PDUSource, reading PDUReading) {
	t.Helper()

	data, err := json.Marshal(reading)
	require.NoError(t, err)

	src.handleMessage(data)
}

func fv(v float64) *float64 { return &v }

func TestPDUSourceQueryWindow(t *testing.T) {
	src := newTestPDUSource()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		publish(t, src, PDUReading{
			Device: "pdu-a", DeviceKey: 1, Bank: 1, Outlet: 1,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Power:     fv(100 + float64(i)),
		})
	}

	samples, err := src.Query(context.Background(), "pdu-a", base, base.Add(time.Minute), time.Minute)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 100.0, samples[0].Values["power"])

	// Unknown device is an empty series, not an error.
	samples, err = src.Query(context.Background(), "pdu-z", base, base.Add(time.Hour), time.Minute)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestPDUSourceMalformedMessageDropped(t *testing.T) {
	src := newTestPDUSource()

	src.handleMessage([]byte("{not json"))
	src.handleMessage([]byte(`{"bank":1,"outlet":1}`)) // missing device

	assert.Empty(t, src.buffers)
}

func TestPDUSourceFetchBuildsTree(t *testing.T) {
	src := newTestPDUSource()
	now := time.Now()

	publish(t, src, PDUReading{Device: "pdu-a", DeviceKey: 1, Bank: 1, Outlet: 1, Timestamp: now, Current: fv(1.5), Power: fv(180)})
	publish(t, src, PDUReading{Device: "pdu-a", DeviceKey: 1, Bank: 1, Outlet: 2, Timestamp: now, Current: fv(0.5), Power: fv(60)})
	publish(t, src, PDUReading{Device: "pdu-a", DeviceKey: 1, Bank: 2, Outlet: 1, Timestamp: now, Current: fv(2.0)})

	root, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, hierarchy.KindRack, root.Kind)
	assert.Equal(t, "rack 4", root.Label)

	agg := hierarchy.Aggregate(root)
	totals := hierarchy.Totals(agg)

	require.NotNil(t, totals["current"])
	assert.InDelta(t, 4.0, *totals["current"], 1e-9)

	// Bank 2 reported no power at all; the reporting outlets still sum.
	require.NotNil(t, totals["power"])
	assert.InDelta(t, 240, *totals["power"], 1e-9)
}

func TestPDUSourceLatestReadingWinsPerOutlet(t *testing.T) {
	src := newTestPDUSource()
	now := time.Now()

	publish(t, src, PDUReading{Device: "pdu-a", DeviceKey: 1, Bank: 1, Outlet: 1, Timestamp: now, Power: fv(100)})
	publish(t, src, PDUReading{Device: "pdu-a", DeviceKey: 1, Bank: 1, Outlet: 1, Timestamp: now.Add(time.Minute), Power: fv(150)})

	root, err := src.Fetch(context.Background())
	require.NoError(t, err)

	totals := hierarchy.Totals(hierarchy.Aggregate(root))
	require.NotNil(t, totals["power"])
	assert.InDelta(t, 150, *totals["power"], 1e-9)
}
