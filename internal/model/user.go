package model

import "strings"

// Role is the canonical role of a user. Role identity is normalized to
// this enum at the boundary; guard logic never compares raw strings.
type Role string

const (
	RoleSuperAdmin    Role = "SUPER_ADMIN"
	RoleAdmin         Role = "ADMIN"
	RoleClientService Role = "CLIENT_SERVICE"
	RoleAgent         Role = "AGENT"
)

// ParseRole normalizes a raw role string ("client service",
// "CLIENT_SERVICE", "client-service") into a canonical Role.
func ParseRole(raw string) (Role, bool) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	norm = strings.ReplaceAll(norm, " ", "_")
	norm = strings.ReplaceAll(norm, "-", "_")
	switch Role(norm) {
	case RoleSuperAdmin, RoleAdmin, RoleClientService, RoleAgent:
		return Role(norm), true
	}
	return "", false
}

// Privileged reports whether the role bypasses per-user lifecycle
// guards (full authority over transitions and ticket handling).
func (r Role) Privileged() bool {
	return r == RoleSuperAdmin || r == RoleAdmin || r == RoleClientService
}

// User is an operator account.
type User struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	Role         Role   `json:"role" db:"role"`
	DepartmentID *int64 `json:"department_id,omitempty" db:"department_id"`
}

// Principal is the acting identity for a core operation, supplied by
// the session layer for every call. The core trusts this tuple and
// performs no independent verification. It is always passed explicitly;
// nothing in the engine reads ambient state.
type Principal struct {
	UserID       int64
	Role         Role
	DepartmentID *int64
}

// Privileged reports whether the principal bypasses per-user guards.
func (p Principal) Privileged() bool {
	return p.Role.Privileged()
}

// Department groups users; its head is the escalation and auto-watch
// target for tasks assigned within it.
type Department struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	HeadID *int64 `json:"head_id,omitempty" db:"head_id"`
}

// Project is an optional grouping of tasks.
type Project struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}
