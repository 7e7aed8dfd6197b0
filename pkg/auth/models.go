// Package auth implements the user-authentication and session-management
// core: account registration and credential checks, bearer session tokens
// with fixed expiry, and a dual-backend persistence strategy where a
// MongoDB store is mirrored to a local JSON file store.
package auth

import (
	"time"
)

// Role is the access tier of an account.
type Role string

const (
	RoleUser  Role = "user"  // Regular user
	RoleAdmin Role = "admin" // Administrator
)

// IsValid checks whether the role is one of the known tiers.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Preferences holds per-user display and behavior settings.
type Preferences map[string]interface{}

// DefaultPreferences returns the settings assigned at registration.
func DefaultPreferences() Preferences {
	return Preferences{
		"theme":          "default",
		"default_market": "A-share",
		"auto_refresh":   true,
	}
}

// User is an account record. The username is the primary identity and is
// immutable after creation.
type User struct {
	Username     string      `json:"username" bson:"username"`
	Email        string      `json:"email" bson:"email"`
	PasswordHash string      `json:"password_hash,omitempty" bson:"password_hash"`
	FullName     string      `json:"full_name" bson:"full_name"`
	Role         Role        `json:"role" bson:"role"`
	IsActive     bool        `json:"is_active" bson:"is_active"`
	Preferences  Preferences `json:"preferences" bson:"preferences"`

	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
	LastLogin         *time.Time `json:"last_login,omitempty" bson:"last_login,omitempty"`
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty" bson:"password_changed_at,omitempty"`
}

// Sanitized returns a copy of the record with the password digest
// stripped, for handing outward.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}

// Clone returns a deep-enough copy for safe mutation.
func (u *User) Clone() *User {
	clone := *u
	if u.Preferences != nil {
		clone.Preferences = make(Preferences, len(u.Preferences))
		for k, v := range u.Preferences {
			clone.Preferences[k] = v
		}
	}
	return &clone
}

// Session is a live authenticated session bound to one username. The
// token is the primary identity. ExpiresAt is fixed at creation;
// LastActivity updates on each successful validation.
type Session struct {
	Token        string    `json:"token" bson:"token"`
	Username     string    `json:"username" bson:"username"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	LastActivity time.Time `json:"last_activity" bson:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at" bson:"expires_at"`
}

// IsExpired checks if the session has expired at the given instant.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Stats is an account/session census.
type Stats struct {
	TotalUsers     int64 `json:"total_users"`
	ActiveSessions int64 `json:"active_sessions"`
	TotalSessions  int64 `json:"total_sessions"`
}
