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

// Package session enforces the session-expiry countdown that gates dashboard
// access: one warning near expiry, forced logout at expiry.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/gridview/pkg/logger"
	"github.com/carverauto/gridview/pkg/models"
)

const (
	defaultTickInterval = 15 * time.Second
	warnThreshold       = 5 * time.Minute
)

// Monitor tracks elapsed session time against a maximum. It is purely
// local-clock-driven: ticks never depend on in-flight network requests, so
// an expiring session is caught even while a poll hangs.
type Monitor struct {
	mu        sync.Mutex
	session   models.SessionClock
	warned    bool
	loggedOut bool

	clock    Clock
	interval time.Duration
	onWarn   func(remaining time.Duration)
	onLogout func()
	logger   logger.Logger
}

// MonitorOption customises the monitor.
type MonitorOption func(*Monitor)

// WithClock injects a deterministic clock (used for tests).
func WithClock(clock Clock) MonitorOption {
	return func(m *Monitor) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithTickInterval overrides the check cadence.
func WithTickInterval(interval time.Duration) MonitorOption {
	return func(m *Monitor) {
		if interval > 0 {
			m.interval = interval
		}
	}
}

// NewMonitor builds a monitor. onWarn fires once when the session enters its
// final five minutes; onLogout fires once at expiry.
func NewMonitor(
	session models.SessionClock,
	onWarn func(remaining time.Duration),
	onLogout func(),
	log logger.Logger,
	opts ...MonitorOption,
) *Monitor {
	m := &Monitor{
		session:  session,
		clock:    RealClock{},
		interval: defaultTickInterval,
		onWarn:   onWarn,
		onLogout: onLogout,
		logger:   log,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// SetSession replaces the tracked session. A new session start resets the
// one-shot warning latch and the logout state.
func (m *Monitor) SetSession(session models.SessionClock) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !session.SessionStart.Equal(m.session.SessionStart) {
		m.warned = false
		m.loggedOut = false
	}

	m.session = session
}

// Exempt reports whether the session carries no expiry policy at all.
func (m *Monitor) Exempt() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.exemptLocked()
}

func (m *Monitor) exemptLocked() bool {
	return m.session.MaxSeconds <= 0 || m.session.Role.Unrestricted()
}

// LoggedOut reports whether expiry already forced a logout.
func (m *Monitor) LoggedOut() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.loggedOut
}

// Remaining returns the time left before expiry at the given instant.
func (m *Monitor) Remaining(now time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.remainingLocked(now)
}

func (m *Monitor) remainingLocked(now time.Time) time.Duration {
	max := time.Duration(m.session.MaxSeconds) * time.Second
	return max - now.Sub(m.session.SessionStart)
}

// Tick performs one expiry check. Safe to re-fire after logout: the logout
// state prevents re-entry.
func (m *Monitor) Tick(now time.Time) {
	m.mu.Lock()

	if m.exemptLocked() || m.loggedOut {
		m.mu.Unlock()
		return
	}

	remaining := m.remainingLocked(now)

	if remaining <= 0 {
		m.loggedOut = true
		onLogout := m.onLogout
		sessionStart := m.session.SessionStart
		m.mu.Unlock()

		m.logger.Info().
			Time("session_start", sessionStart).
			Msg("Session expired, forcing logout")

		if onLogout != nil {
			onLogout()
		}

		return
	}

	if remaining <= warnThreshold && !m.warned {
		m.warned = true
		onWarn := m.onWarn
		m.mu.Unlock()

		m.logger.Info().
			Dur("remaining", remaining).
			Msg("Session expiry warning")

		if onWarn != nil {
			onWarn(remaining)
		}

		return
	}

	m.mu.Unlock()
}

// Run ticks on a fixed wall-clock interval until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.Tick(m.clock.Now())
		}
	}
}
