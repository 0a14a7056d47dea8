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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/carverauto/gridview/pkg/models"
)

const ruleStoreTimeout = 15 * time.Second

var errRuleStoreStatus = fmt.Errorf("rule store returned unexpected status")

// HTTPRuleStore talks to the external rule CRUD API over JSON/HTTP.
type HTTPRuleStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPRuleStore(baseURL, apiKey string) *HTTPRuleStore {
	return &HTTPRuleStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: ruleStoreTimeout},
	}
}

func (s *HTTPRuleStore) ListRules(ctx context.Context) ([]*models.AlertRule, error) {
	var rules []*models.AlertRule
	if err := s.do(ctx, http.MethodGet, "/api/alerts/rules", nil, &rules); err != nil {
		return nil, err
	}

	return rules, nil
}

func (s *HTTPRuleStore) CreateRule(ctx context.Context, rule *models.AlertRule) error {
	return s.do(ctx, http.MethodPost, "/api/alerts/rules", rule, nil)
}

func (s *HTTPRuleStore) UpdateRule(ctx context.Context, rule *models.AlertRule) error {
	return s.do(ctx, http.MethodPut, "/api/alerts/rules/"+url.PathEscape(rule.ID), rule, nil)
}

func (s *HTTPRuleStore) DeleteRule(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/api/alerts/rules/"+url.PathEscape(id), nil, nil)
}

func (s *HTTPRuleStore) ListEvents(ctx context.Context) ([]*models.AlertEvent, error) {
	var events []*models.AlertEvent
	if err := s.do(ctx, http.MethodGet, "/api/alerts/events", nil, &events); err != nil {
		return nil, err
	}

	return events, nil
}

func (s *HTTPRuleStore) UpdateEvent(ctx context.Context, event *models.AlertEvent) error {
	return s.do(ctx, http.MethodPut, "/api/alerts/events/"+url.PathEscape(event.ID), event, nil)
}

func (s *HTTPRuleStore) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode rule store request: %w", err)
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %d %s %s", errRuleStoreStatus, resp.StatusCode, method, path)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode rule store response: %w", err)
	}

	return nil
}
