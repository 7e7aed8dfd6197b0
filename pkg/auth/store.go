package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// Backend is the capability set both storage variants implement. Load
// operations return (nil, nil) when the record is absent; uniqueness
// violations surface as Duplicate* errors distinct from I/O failures.
type Backend interface {
	// Available reports whether the backend can serve requests.
	Available() bool

	SaveUser(u *User) error
	LoadUser(username string) (*User, error)
	LoadAllUsers() (map[string]*User, error)
	// UpdateUser replaces an existing record; it fails when the user is
	// absent instead of inserting.
	UpdateUser(u *User) error
	// DeleteUser removes the record and cascades to the user's sessions.
	DeleteUser(username string) error

	SaveSession(s *Session) error
	LoadSession(token string) (*Session, error)
	LoadAllSessions() (map[string]*Session, error)
	DeleteSession(token string) error
	DeleteUserSessions(username string) (int64, error)
	PurgeExpiredSessions(now time.Time) (int64, error)

	Stats(now time.Time) (*Stats, error)
}

// generateToken returns a cryptographically random URL-safe session
// token with 32 bytes of entropy.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
