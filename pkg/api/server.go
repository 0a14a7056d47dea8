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

// Package api exposes the dashboard engine and alert rule engine over HTTP
// and streams snapshot updates to websocket clients.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/gridview/pkg/alerting"
	"github.com/carverauto/gridview/pkg/dashboard"
	"github.com/carverauto/gridview/pkg/logger"
	"github.com/carverauto/gridview/pkg/metrics"
	"github.com/carverauto/gridview/pkg/models"
	"github.com/carverauto/gridview/pkg/timerange"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server wires the dashboard engine, the alert rule engine, and the snapshot
// stream behind one router.
type Server struct {
	router    *mux.Router
	dashboard *dashboard.Engine
	alerts    *alerting.Engine
	hub       *Hub
	logger    logger.Logger
	httpSrv   *http.Server
}

func NewServer(
	addr string,
	engine *dashboard.Engine,
	alerts *alerting.Engine,
	hub *Hub,
	secret []byte,
	log logger.Logger,
) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		dashboard: engine,
		alerts:    alerts,
		hub:       hub,
		logger:    log,
	}

	s.routes(secret)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

func (s *Server) routes(secret []byte) {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(SessionMiddleware(secret))

	api.HandleFunc("/dashboard/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/range", s.handleSetRange).Methods(http.MethodPost)
	api.HandleFunc("/dashboard/range", s.handleClearRange).Methods(http.MethodDelete)
	api.HandleFunc("/dashboard/zoom", s.handleZoom).Methods(http.MethodPost)
	api.HandleFunc("/dashboard/zoom", s.handleResetZoom).Methods(http.MethodDelete)

	api.HandleFunc("/alerts/rules", s.handleListRules).Methods(http.MethodGet)
	api.HandleFunc("/alerts/rules", s.handleCreateRule).Methods(http.MethodPost)
	api.HandleFunc("/alerts/rules/{id}", s.handleUpdateRule).Methods(http.MethodPut)
	api.HandleFunc("/alerts/rules/{id}", s.handleDeleteRule).Methods(http.MethodDelete)
	api.HandleFunc("/alerts/events", s.handleListEvents).Methods(http.MethodGet)

	// Lifecycle transitions require the operator role.
	ops := api.PathPrefix("/alerts/events").Subrouter()
	ops.Use(RequireRole(models.RoleOperator))
	ops.HandleFunc("/{id}/acknowledge", s.handleAcknowledge).Methods(http.MethodPost)
	ops.HandleFunc("/{id}/resolve", s.handleResolve).Methods(http.MethodPost)

	api.HandleFunc("/ws", s.hub.ServeWS)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the context is cancelled, then drains.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()

	s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("Dashboard API listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.dashboard.Snapshot())
}

type rangeRequest struct {
	Kind  timerange.Kind `json:"kind"`
	Hours int            `json:"hours,omitempty"`
	Start time.Time      `json:"start,omitempty"`
	End   time.Time      `json:"end,omitempty"`
}

func (s *Server) handleSetRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed range payload")
		return
	}

	var rng timerange.Range

	switch req.Kind {
	case timerange.KindPreset:
		rng = timerange.Preset(req.Hours)
	case timerange.KindCustom:
		rng = timerange.Custom(req.Start, req.End)
	default:
		s.writeError(w, http.StatusBadRequest, "unknown range kind")
		return
	}

	if err := s.dashboard.SetRange(r.Context(), rng); err != nil {
		if errors.Is(err, timerange.ErrInvalidRange) {
			s.writeError(w, http.StatusBadRequest, "start must be before end")
			return
		}

		s.writeError(w, http.StatusBadGateway, "metric source unavailable")

		return
	}

	s.writeJSON(w, http.StatusOK, s.dashboard.Snapshot())
}

func (s *Server) handleClearRange(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboard.ClearCustom(r.Context()); err != nil {
		s.writeError(w, http.StatusBadGateway, "metric source unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, s.dashboard.Snapshot())
}

type zoomRequest struct {
	FromLabel string `json:"from_label"`
	ToLabel   string `json:"to_label"`
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed zoom payload")
		return
	}

	s.dashboard.BeginSelection(req.FromLabel)
	s.dashboard.ExtendSelection(req.ToLabel)

	accepted := s.dashboard.CommitZoom()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"accepted": accepted,
		"snapshot": s.dashboard.Snapshot(),
	})
}

func (s *Server) handleResetZoom(w http.ResponseWriter, _ *http.Request) {
	s.dashboard.ResetZoom()
	s.writeJSON(w, http.StatusOK, s.dashboard.Snapshot())
}

func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.alerts.Rules())
}

type rulePayload struct {
	models.AlertRule
	// DisplayUnit is the unit the thresholds were entered in; they are
	// converted to canonical base units before persistence.
	DisplayUnit string           `json:"display_unit,omitempty"`
	Unit        metrics.BaseUnit `json:"unit,omitempty"`
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var payload rulePayload

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed rule payload")
		return
	}

	if err := s.alerts.CreateRule(r.Context(), &payload.AlertRule, payload.Unit, payload.DisplayUnit); err != nil {
		s.writeRuleError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, payload.AlertRule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var payload rulePayload

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed rule payload")
		return
	}

	payload.ID = mux.Vars(r)["id"]

	if err := s.alerts.UpdateRule(r.Context(), &payload.AlertRule, payload.Unit, payload.DisplayUnit); err != nil {
		s.writeRuleError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, payload.AlertRule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.alerts.DeleteRule(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeRuleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.alerts.Events())
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.alerts.AcknowledgeEvent)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.alerts.ResolveEvent)
}

func (s *Server) handleTransition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(context.Context, string, models.Role) error,
) {
	clock, _ := SessionFromContext(r.Context())

	if err := apply(r.Context(), mux.Vars(r)["id"], clock.Role); err != nil {
		switch {
		case errors.Is(err, alerting.ErrEventNotFound):
			s.writeError(w, http.StatusNotFound, "event not found")
		case errors.Is(err, alerting.ErrEventResolved), errors.Is(err, alerting.ErrInvalidTransition):
			s.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, alerting.ErrInsufficientRole):
			s.writeError(w, http.StatusForbidden, "operator role required")
		default:
			s.writeError(w, http.StatusBadGateway, "rule store unavailable")
		}

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeRuleError(w http.ResponseWriter, err error) {
	var verr *alerting.ValidationError

	switch {
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusUnprocessableEntity, verr)
	case errors.Is(err, alerting.ErrRuleNotFound):
		s.writeError(w, http.StatusNotFound, "rule not found")
	default:
		s.writeError(w, http.StatusBadGateway, "rule store unavailable")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
