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

package models

import "time"

// Role of the logged-in user, ordered weakest to strongest. Service accounts
// are exempt from session expiry.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
	RoleService  Role = "service"
)

// AtLeast reports whether r grants at least the privileges of other.
func (r Role) AtLeast(other Role) bool {
	return roleRank(r) >= roleRank(other)
}

// Unrestricted reports whether the role is exempt from session expiry.
func (r Role) Unrestricted() bool {
	return r == RoleService
}

func roleRank(r Role) int {
	switch r {
	case RoleViewer:
		return 1
	case RoleOperator:
		return 2
	case RoleAdmin:
		return 3
	case RoleService:
		return 3
	default:
		return 0
	}
}

// SessionClock tracks elapsed session time against a maximum. MaxSeconds of
// zero means the session carries no expiry policy.
type SessionClock struct {
	SessionStart time.Time `json:"session_start"`
	MaxSeconds   int       `json:"max_seconds"`
	Role         Role      `json:"role"`
}
