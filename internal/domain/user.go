/**
 * @description
 * This file defines the User model and the closed Role enum. Users are reference
 * data for the core banking logic: the account and transfer services only read
 * them (ownership, activity, role), while the auth and RBAC services own their
 * mutation paths.
 *
 * @notes
 * - Role strings arriving from callers are parsed once at the boundary via
 *   ParseRole; invalid strings become ErrInvalidRole, never a silent default.
 */

package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is a closed enum of the roles recognized by the permission matrix.
type Role string

const (
	RoleCustomer     Role = "customer"
	RoleSupportAgent Role = "support_agent"
	RoleAuditor      Role = "auditor"
	RoleAdmin        Role = "admin"
)

// ErrInvalidRole is returned when a caller-supplied role string does not match
// any known role variant.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole validates a caller-supplied role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleCustomer:
		return RoleCustomer, nil
	case RoleSupportAgent:
		return RoleSupportAgent, nil
	case RoleAuditor:
		return RoleAuditor, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

// User represents a registered user of the back office. The password hash and
// lockout fields belong to the auth service; everything else is read-mostly.
type User struct {
	ID                     int64      `json:"id"`
	Username               string     `json:"username"`
	Email                  string     `json:"email"`
	Phone                  string     `json:"phone"`
	PasswordHash           string     `json:"-"`
	FullName               string     `json:"full_name"`
	Role                   Role       `json:"role"`
	IsActive               bool       `json:"is_active"`
	MustChangeCredentials  bool       `json:"must_change_credentials"`
	FailedLoginAttempts    int        `json:"-"`
	LockedUntil            *time.Time `json:"-"`
	LastLogin              *time.Time `json:"last_login,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Locked reports whether the user's login lockout is still in effect.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}
