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

// Package dashboard holds the telemetry dashboard's presentation state: the
// active time range, an optional zoom sub-selection, and the derived snapshot
// (series, stats, unit scale, hierarchy rollup) rebuilt on every poll tick.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/gridview/pkg/hierarchy"
	"github.com/carverauto/gridview/pkg/logger"
	"github.com/carverauto/gridview/pkg/metrics"
	"github.com/carverauto/gridview/pkg/models"
	"github.com/carverauto/gridview/pkg/source"
	"github.com/carverauto/gridview/pkg/timerange"
)

const (
	defaultPollInterval   = 30 * time.Second
	defaultPercentileRank = 95
)

// Config describes one dashboard view.
type Config struct {
	EntityID       string           `json:"entity_id"`
	Metrics        []string         `json:"metrics"`
	Unit           metrics.BaseUnit `json:"unit"`
	PercentileRank float64          `json:"percentile_rank"`
	// Commitment is an optional reference line (e.g. a billing commitment)
	// in canonical base units; it participates in unit scale selection.
	Commitment   *float64        `json:"commitment,omitempty"`
	PollInterval time.Duration   `json:"poll_interval"`
	DefaultRange timerange.Range `json:"default_range"`
}

// Engine is the dashboard state container. All state transitions take the
// lock, rebuild derived state, and swap it in whole.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	src      source.SampleSource
	hierSrc  source.HierarchySource
	clock    Clock
	logger   logger.Logger
	onUpdate func(Snapshot)

	rng      timerange.Range
	selector *Selector
	samples  []models.Sample
	tree     *hierarchy.Node
	snapshot Snapshot
}

// Option customises engine construction.
type Option func(*Engine)

// WithEngineClock injects a deterministic clock (used for tests).
func WithEngineClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithOnUpdate registers a callback invoked with every new snapshot, after
// the swap. Used by the websocket hub to push renders.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(e *Engine) {
		e.onUpdate = fn
	}
}

// New builds an engine. hierSrc may be nil for views without a power rollup.
func New(cfg Config, src source.SampleSource, hierSrc source.HierarchySource, log logger.Logger, opts ...Option) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	if cfg.PercentileRank <= 0 {
		cfg.PercentileRank = defaultPercentileRank
	}

	if cfg.DefaultRange.Kind == "" {
		cfg.DefaultRange = timerange.Preset(24)
	}

	e := &Engine{
		cfg:      cfg,
		src:      src,
		hierSrc:  hierSrc,
		clock:    realClock{},
		logger:   log,
		rng:      cfg.DefaultRange,
		selector: NewSelector(nil),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	return e
}

// Range returns the active time range.
func (e *Engine) Range() timerange.Range {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.rng
}

// SetRange switches the active range. An invalid range is rejected and the
// prior range (and zoom) kept. A valid switch always clears the zoom and
// fetches fresh data before stats are recomputed, so stale zoom state is
// never rendered against new-range data.
func (e *Engine) SetRange(ctx context.Context, r timerange.Range) error {
	if _, _, err := r.Resolve(e.clock.Now()); err != nil {
		return err
	}

	e.mu.Lock()
	e.rng = r
	e.selector.Reset()
	e.mu.Unlock()

	return e.Refresh(ctx)
}

// ClearCustom reverts to the default preset range (the "clear custom range"
// action); like any range change it resets the zoom.
func (e *Engine) ClearCustom(ctx context.Context) error {
	return e.SetRange(ctx, e.cfg.DefaultRange)
}

// Refresh re-queries the source for the resolved window and rebuilds the
// whole snapshot. On fetch failure the last-good snapshot is retained and
// the error surfaced as a transient notification.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	rng := e.rng
	e.mu.Unlock()

	now := e.clock.Now()

	start, end, err := rng.Resolve(now)
	if err != nil {
		return err
	}

	step := timerange.Granularity(start, end)

	samples, err := e.src.Query(ctx, e.cfg.EntityID, start, end, step)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("entity_id", e.cfg.EntityID).
			Msg("Metric fetch failed, keeping last-good snapshot")

		return err
	}

	var tree *hierarchy.Node

	if e.hierSrc != nil {
		raw, herr := e.hierSrc.Fetch(ctx)
		if herr != nil {
			e.logger.Warn().Err(herr).Msg("Hierarchy fetch failed, keeping last-good rollup")

			e.mu.Lock()
			tree = e.tree
			e.mu.Unlock()
		} else {
			tree = hierarchy.Aggregate(raw)
		}
	}

	e.mu.Lock()

	e.samples = samples
	e.tree = tree

	labels := renderLabels(samples, start, end)

	// Carry the zoom across a poll of the same range when it still fits the
	// new rendering; drop it otherwise.
	if w := e.selector.Window(); w != nil && w.To >= len(labels) {
		e.selector.Reset()
	}

	e.selector = carrySelector(e.selector, labels)

	snapshot := e.buildSnapshotLocked(start, end, now)
	e.snapshot = snapshot
	e.mu.Unlock()

	e.notify(snapshot)

	return nil
}

// BeginSelection starts a zoom drag at a rendered label.
func (e *Engine) BeginSelection(label string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selector.BeginSelection(label)
}

// ExtendSelection moves the drag endpoint.
func (e *Engine) ExtendSelection(label string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selector.ExtendSelection(label)
}

// CommitZoom bounds the view to the dragged selection and recomputes stats
// over the zoomed slice only, without re-querying the source. A degenerate
// selection is discarded and the prior view kept.
func (e *Engine) CommitZoom() (accepted bool) {
	e.mu.Lock()

	_, accepted = e.selector.Commit()
	if !accepted {
		e.mu.Unlock()
		return false
	}

	snapshot := e.rebuildLocked()
	e.mu.Unlock()

	e.notify(snapshot)

	return true
}

// ResetZoom reverts to the full resolved range without re-querying.
func (e *Engine) ResetZoom() {
	e.mu.Lock()
	e.selector.Reset()
	snapshot := e.rebuildLocked()
	e.mu.Unlock()

	e.notify(snapshot)
}

// Snapshot returns the current derived state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.snapshot
}

// Run performs an initial refresh and then polls on the configured interval
// until ctx is cancelled. Fetch errors never stop the loop.
func (e *Engine) Run(ctx context.Context) {
	if err := e.Refresh(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("Initial dashboard refresh failed")
	}

	ticker := e.clock.Ticker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			// Refresh logs its own failures; the loop keeps polling.
			_ = e.Refresh(ctx)
		}
	}
}

// rebuildLocked re-derives the snapshot from retained samples, e.g. after a
// zoom change. Caller holds the lock.
func (e *Engine) rebuildLocked() Snapshot {
	snapshot := e.buildSnapshotLocked(e.snapshot.Start, e.snapshot.End, e.snapshot.FetchedAt)
	e.snapshot = snapshot

	return snapshot
}

func (e *Engine) buildSnapshotLocked(start, end, fetchedAt time.Time) Snapshot {
	labels := renderLabels(e.samples, start, end)

	from, to := 0, len(e.samples)

	zoom := e.selector.Window()
	if zoom != nil {
		from, to = zoom.From, zoom.To+1
	}

	visibleLabels := labels[from:to]

	series := make(map[string][]float64, len(e.cfg.Metrics))
	stats := make(map[string]models.SeriesStats, len(e.cfg.Metrics))
	percentiles := make(map[string]float64, len(e.cfg.Metrics))

	var (
		allSeries [][]float64
		refs      []float64
	)

	for _, name := range e.cfg.Metrics {
		values := make([]float64, 0, to-from)

		for _, s := range e.samples[from:to] {
			values = append(values, s.Values[name])
		}

		series[name] = values
		stats[name] = metrics.ComputeStats(values)

		p := metrics.Percentile(values, e.cfg.PercentileRank)
		percentiles[name] = p

		allSeries = append(allSeries, values)
		refs = append(refs, p)
	}

	if e.cfg.Commitment != nil {
		refs = append(refs, *e.cfg.Commitment)
	}

	snapshot := Snapshot{
		Start:       start,
		End:         end,
		FetchedAt:   fetchedAt,
		Labels:      visibleLabels,
		Series:      series,
		Stats:       stats,
		Percentiles: percentiles,
		Scale:       metrics.ChooseUnitScale(metrics.MaxMagnitude(allSeries, refs), e.cfg.Unit),
		Zoom:        zoom,
		Hierarchy:   e.tree,
	}

	if e.tree != nil {
		snapshot.Totals = hierarchy.Totals(e.tree)
	}

	return snapshot
}

func (e *Engine) notify(snapshot Snapshot) {
	if e.onUpdate != nil {
		e.onUpdate(snapshot)
	}
}

// renderLabels formats sample timestamps for the x-axis. Narrow windows get
// clock-only labels; wider ones include the date. Collisions are possible and
// resolved first-match-wins when a zoom commits.
func renderLabels(samples []models.Sample, start, end time.Time) []string {
	layout := "15:04"
	if end.Sub(start) > 24*time.Hour {
		layout = "Jan 02 15:04"
	}

	labels := make([]string, len(samples))
	for i, s := range samples {
		labels[i] = s.Timestamp.Format(layout)
	}

	return labels
}

// carrySelector rebinds the selector to freshly rendered labels while keeping
// a still-valid window alive across poll ticks of the same range.
func carrySelector(prev *Selector, labels []string) *Selector {
	next := NewSelector(labels)
	next.window = prev.Window()

	return next
}
