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

package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/carverauto/gridview/pkg/models"
)

var errMissingIssuedAt = errors.New("session token missing iat claim")

// Claims is the session policy the auth collaborator embeds in its JWT.
// MaxSeconds of zero means the session never expires; the role decides
// whether expiry applies at all.
type Claims struct {
	MaxSeconds int         `json:"max_seconds"`
	Role       models.Role `json:"role"`
	jwt.RegisteredClaims
}

// ClaimsFromToken parses and verifies a session token issued by the auth
// service and maps it onto a SessionClock. The token's iat claim is the
// session start.
func ClaimsFromToken(tokenString string, secret []byte) (models.SessionClock, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return models.SessionClock{}, fmt.Errorf("failed to parse session token: %w", err)
	}

	if !token.Valid {
		return models.SessionClock{}, jwt.ErrTokenUnverifiable
	}

	if claims.IssuedAt == nil {
		return models.SessionClock{}, errMissingIssuedAt
	}

	return models.SessionClock{
		SessionStart: claims.IssuedAt.Time,
		MaxSeconds:   claims.MaxSeconds,
		Role:         claims.Role,
	}, nil
}
