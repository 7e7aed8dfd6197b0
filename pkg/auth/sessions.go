package auth

import (
	"time"

	autherrors "github.com/tradingagents/authkit/pkg/errors"
	"github.com/tradingagents/authkit/pkg/logger"
)

// SessionStore owns session-token records. It enforces the
// single-active-session policy: creating a session for a username
// retires every prior session for that username first. The retire and
// insert are two steps, not one transaction, so two truly concurrent
// Create calls for the same username can each survive the other's
// delete; callers accept that residual race.
type SessionStore struct {
	store Backend
	ttl   time.Duration
	log   logger.Logger
}

// NewSessionStore creates a session store with the given lifetime for
// new sessions.
func NewSessionStore(store Backend, ttl time.Duration, log logger.Logger) *SessionStore {
	return &SessionStore{store: store, ttl: ttl, log: log}
}

// Create retires any existing sessions for username, persists a new
// session expiring after the configured TTL, and returns its token. The
// returned token is empty when every backend refused the write.
func (ss *SessionStore) Create(username string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", autherrors.NewInternal(err)
	}

	if _, err := ss.store.DeleteUserSessions(username); err != nil {
		ss.log.Warn("failed to retire previous sessions", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
	}

	now := time.Now()
	session := &Session{
		Token:        token,
		Username:     username,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(ss.ttl),
	}

	if err := ss.store.SaveSession(session); err != nil {
		ss.log.Error("failed to persist session", err, map[string]interface{}{"username": username})
		return "", autherrors.NewStorageUnavailable(err)
	}

	ss.log.Info("session created", map[string]interface{}{
		"username": username,
		"token":    abbreviateToken(token),
	})
	return token, nil
}

// Validate resolves the token to its username. An expired session is
// deleted on detection and reported as expired on this and every later
// call. A valid session has its last-activity stamp refreshed; the
// expiry itself is fixed at creation and never slides.
func (ss *SessionStore) Validate(token string) (string, error) {
	if token == "" {
		return "", autherrors.NewSessionNotFound()
	}

	session, err := ss.store.LoadSession(token)
	if err != nil {
		return "", autherrors.NewStorageUnavailable(err)
	}
	if session == nil {
		return "", autherrors.NewSessionNotFound()
	}

	if session.IsExpired(time.Now()) {
		if err := ss.store.DeleteSession(token); err != nil {
			ss.log.Warn("failed to delete expired session", map[string]interface{}{"error": err.Error()})
		}
		ss.log.Info("expired session removed", map[string]interface{}{"token": abbreviateToken(token)})
		return "", autherrors.NewSessionExpired()
	}

	session.LastActivity = time.Now()
	if err := ss.store.SaveSession(session); err != nil {
		ss.log.Warn("failed to refresh session activity", map[string]interface{}{"error": err.Error()})
	}

	return session.Username, nil
}

// Destroy removes the session. Destroying an absent token is not an
// error.
func (ss *SessionStore) Destroy(token string) error {
	if token == "" {
		return nil
	}
	if err := ss.store.DeleteSession(token); err != nil {
		return autherrors.NewStorageUnavailable(err)
	}
	ss.log.Info("session destroyed", map[string]interface{}{"token": abbreviateToken(token)})
	return nil
}

// PurgeExpired deletes every session whose expiry has passed and returns
// the count removed.
func (ss *SessionStore) PurgeExpired() (int64, error) {
	count, err := ss.store.PurgeExpiredSessions(time.Now())
	if err != nil {
		return 0, autherrors.NewStorageUnavailable(err)
	}
	if count > 0 {
		ss.log.Info("purged expired sessions", map[string]interface{}{"count": count})
	}
	return count, nil
}

// Stats returns the account and session census. Active sessions are the
// non-expired records at the instant of the call.
func (ss *SessionStore) Stats() (*Stats, error) {
	stats, err := ss.store.Stats(time.Now())
	if err != nil {
		return nil, autherrors.NewStorageUnavailable(err)
	}
	return stats, nil
}

// abbreviateToken shortens a token for logging. Full tokens never reach
// the logs.
func abbreviateToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
