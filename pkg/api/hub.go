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
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/carverauto/gridview/pkg/dashboard"
	"github.com/carverauto/gridview/pkg/logger"
	"github.com/carverauto/gridview/pkg/models"
	"github.com/carverauto/gridview/pkg/session"
)

const (
	clientSendBuffer = 8
	clientWriteWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard UI is same-origin; this surface sits behind the
	// deployment's reverse proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// StreamMessage is one frame pushed to websocket clients: a snapshot update
// or a session lifecycle notice.
type StreamMessage struct {
	Type             string              `json:"type"`
	Timestamp        time.Time           `json:"timestamp"`
	Snapshot         *dashboard.Snapshot `json:"snapshot,omitempty"`
	RemainingSeconds int                 `json:"remaining_seconds,omitempty"`
}

type client struct {
	id     string
	conn   *websocket.Conn
	send   chan StreamMessage
	cancel context.CancelFunc
}

// Hub fans each new dashboard snapshot out to connected websocket clients.
// Slow clients drop frames rather than stalling the broadcast.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]*client
	logger      logger.Logger
	sessionTick time.Duration
}

// HubOption customises hub construction.
type HubOption func(*Hub)

// WithSessionTickInterval overrides the session countdown cadence.
func WithSessionTickInterval(interval time.Duration) HubOption {
	return func(h *Hub) {
		if interval > 0 {
			h.sessionTick = interval
		}
	}
}

func NewHub(log logger.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		clients: make(map[string]*client),
		logger:  log,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Broadcast queues a snapshot for every connected client.
func (h *Hub) Broadcast(snapshot dashboard.Snapshot) {
	msg := StreamMessage{Type: "snapshot", Timestamp: time.Now().UTC(), Snapshot: &snapshot}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Client is not keeping up; skip this frame.
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// ServeWS upgrades the request and streams snapshots until the client
// disconnects. Authenticated connections also run the session countdown:
// the client receives one warning near expiry and is disconnected when the
// session runs out.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &client{
		id:     uuid.New().String(),
		conn:   conn,
		send:   make(chan StreamMessage, clientSendBuffer),
		cancel: cancel,
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Debug().Str("client_id", c.id).Msg("Websocket client connected")

	go h.writeLoop(c)
	go h.readLoop(c)

	if clock, ok := SessionFromContext(r.Context()); ok {
		go h.watchSession(ctx, c, clock)
	}
}

// watchSession drives the expiry countdown for one connection.
func (h *Hub) watchSession(ctx context.Context, c *client, clock models.SessionClock) {
	var opts []session.MonitorOption
	if h.sessionTick > 0 {
		opts = append(opts, session.WithTickInterval(h.sessionTick))
	}

	monitor := session.NewMonitor(clock,
		func(remaining time.Duration) {
			h.sendTo(c, StreamMessage{
				Type:             "session_warning",
				Timestamp:        time.Now().UTC(),
				RemainingSeconds: int(remaining.Seconds()),
			})
		},
		func() {
			h.sendTo(c, StreamMessage{Type: "session_expired", Timestamp: time.Now().UTC()})
			h.remove(c)
		},
		h.logger,
		opts...,
	)

	monitor.Run(ctx)
}

func (h *Hub) sendTo(c *client, msg StreamMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// writeLoop owns the connection's write side and its close: it drains every
// frame queued before the send channel closed, so a final notice (e.g. the
// session expiry frame) reaches the client before the socket goes away.
func (h *Hub) writeLoop(c *client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))

		if err := c.conn.WriteJSON(msg); err != nil {
			h.remove(c)
		}
	}

	_ = c.conn.Close()
}

// readLoop drains control frames and detects disconnects.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()

	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}

	delete(h.clients, c.id)
	close(c.send)
	h.mu.Unlock()

	c.cancel()

	h.logger.Debug().Str("client_id", c.id).Msg("Websocket client disconnected")
}
