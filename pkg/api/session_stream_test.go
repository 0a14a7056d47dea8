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

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/gridview/pkg/alerting"
	"github.com/carverauto/gridview/pkg/dashboard"
	"github.com/carverauto/gridview/pkg/logger"
	"github.com/carverauto/gridview/pkg/metrics"
	"github.com/carverauto/gridview/pkg/models"
	"github.com/carverauto/gridview/pkg/session"
)

func newStreamServer(t *testing.T) *Server {
	t.Helper()

	log := logger.NewTestLogger()

	eng := dashboard.New(dashboard.Config{
		EntityID: "wan0",
		Metrics:  []string{"in_bps"},
		Unit:     metrics.UnitBitsPerSecond,
	}, &stubSource{}, nil, log)

	require.NoError(t, eng.Refresh(context.Background()))

	alerts := alerting.NewEngine(newMemRuleStore(), log)
	hub := NewHub(log, WithSessionTickInterval(10*time.Millisecond))

	return NewServer(":0", eng, alerts, hub, testSecret, log)
}

func signSessionToken(t *testing.T, maxSeconds int, issuedAt time.Time, role models.Role) string {
	t.Helper()

	claims := session.Claims{
		MaxSeconds: maxSeconds,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	return token
}

func dialStream(t *testing.T, srv *Server, token string) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		_ = resp.Body.Close()
	})

	return conn
}

func readUntilType(t *testing.T, conn *websocket.Conn, msgType string) StreamMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	for {
		var msg StreamMessage

		require.NoError(t, conn.ReadJSON(&msg))

		if msg.Type == msgType {
			return msg
		}
	}
}

func TestStreamWarnsBeforeExpiry(t *testing.T) {
	srv := newStreamServer(t)

	// 3600s session that started 58 minutes ago: inside the warning window.
	token := signSessionToken(t, 3600, time.Now().Add(-58*time.Minute), models.RoleViewer)
	conn := dialStream(t, srv, token)

	msg := readUntilType(t, conn, "session_warning")
	assert.Greater(t, msg.RemainingSeconds, 0)
	assert.LessOrEqual(t, msg.RemainingSeconds, 300)
}

func TestStreamDisconnectsExpiredSession(t *testing.T) {
	srv := newStreamServer(t)

	token := signSessionToken(t, 60, time.Now().Add(-2*time.Minute), models.RoleViewer)
	conn := dialStream(t, srv, token)

	msg := readUntilType(t, conn, "session_expired")
	assert.Equal(t, "session_expired", msg.Type)

	// The hub closes the connection after the expiry notice.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var next StreamMessage
	assert.Error(t, conn.ReadJSON(&next))
}

func TestStreamServiceRoleExempt(t *testing.T) {
	srv := newStreamServer(t)

	// Long-expired by wall clock, but the service role carries no expiry.
	token := signSessionToken(t, 60, time.Now().Add(-time.Hour), models.RoleService)
	conn := dialStream(t, srv, token)

	// Give the countdown several ticks; an exempt session must survive them.
	time.Sleep(100 * time.Millisecond)

	srv.hub.Broadcast(dashboard.Snapshot{Labels: []string{"12:00"}})

	msg := readUntilType(t, conn, "snapshot")
	require.NotNil(t, msg.Snapshot)
	assert.Equal(t, []string{"12:00"}, msg.Snapshot.Labels)
}
