package auth

import (
	"time"

	autherrors "github.com/tradingagents/authkit/pkg/errors"
	"github.com/tradingagents/authkit/pkg/logger"
)

// DualStore composes the durable store and the file store behind the
// Backend capability.
//
// Writes go to the durable store first when it is available and are then
// mirrored to the file store best-effort; a mirror failure after a
// successful durable write is logged, never escalated. A durable write
// failure other than a uniqueness violation falls through to a file-only
// write.
//
// Reads treat an available durable store as authoritative even when it
// returns an empty result, so a durable-store reset is never masked by
// stale file data. The file store serves reads only when the durable
// store is unavailable or the read itself fails.
type DualStore struct {
	durable  Backend
	fallback Backend
	log      logger.Logger
}

// NewDualStore builds the composite from the durable backend and the
// file fallback.
func NewDualStore(durable, fallback Backend, log logger.Logger) *DualStore {
	return &DualStore{durable: durable, fallback: fallback, log: log}
}

// Available reports whether either backend can serve requests.
func (d *DualStore) Available() bool {
	return d.durable.Available() || d.fallback.Available()
}

// write applies op to the durable store first, mirrors on success, and
// falls back to the file store when the durable store is down or fails
// with a non-uniqueness error.
func (d *DualStore) write(name string, op func(Backend) error) error {
	if d.durable.Available() {
		err := op(d.durable)
		switch {
		case err == nil:
			if mirrorErr := op(d.fallback); mirrorErr != nil {
				d.log.Warn("file mirror write failed", map[string]interface{}{
					"op":    name,
					"error": mirrorErr.Error(),
				})
			}
			return nil
		case autherrors.IsDuplicate(err):
			return err
		default:
			d.log.Warn("durable write failed, using file store", map[string]interface{}{
				"op":    name,
				"error": err.Error(),
			})
		}
	}
	return op(d.fallback)
}

// SaveUser writes the record through both backends.
func (d *DualStore) SaveUser(u *User) error {
	return d.write("save_user", func(b Backend) error { return b.SaveUser(u) })
}

// LoadUser reads from the durable store when available, else the file
// store.
func (d *DualStore) LoadUser(username string) (*User, error) {
	if d.durable.Available() {
		u, err := d.durable.LoadUser(username)
		if err == nil {
			return u, nil
		}
		d.log.Warn("durable read failed, using file store", map[string]interface{}{"error": err.Error()})
	}
	return d.fallback.LoadUser(username)
}

// LoadAllUsers reads from the durable store when available, else the
// file store.
func (d *DualStore) LoadAllUsers() (map[string]*User, error) {
	if d.durable.Available() {
		users, err := d.durable.LoadAllUsers()
		if err == nil {
			return users, nil
		}
		d.log.Warn("durable read failed, using file store", map[string]interface{}{"error": err.Error()})
	}
	return d.fallback.LoadAllUsers()
}

// UpdateUser replaces the record in the durable store and upserts the
// mirror copy, healing a mirror that missed earlier writes.
func (d *DualStore) UpdateUser(u *User) error {
	if d.durable.Available() {
		err := d.durable.UpdateUser(u)
		switch {
		case err == nil:
			if mirrorErr := d.fallback.SaveUser(u); mirrorErr != nil {
				d.log.Warn("file mirror write failed", map[string]interface{}{
					"op":    "update_user",
					"error": mirrorErr.Error(),
				})
			}
			return nil
		case autherrors.IsDuplicate(err):
			return err
		default:
			d.log.Warn("durable write failed, using file store", map[string]interface{}{
				"op":    "update_user",
				"error": err.Error(),
			})
		}
	}
	return d.fallback.UpdateUser(u)
}

// DeleteUser removes the record and its sessions from both backends.
func (d *DualStore) DeleteUser(username string) error {
	return d.write("delete_user", func(b Backend) error { return b.DeleteUser(username) })
}

// SaveSession writes the record through both backends.
func (d *DualStore) SaveSession(s *Session) error {
	return d.write("save_session", func(b Backend) error { return b.SaveSession(s) })
}

// LoadSession reads from the durable store when available, else the file
// store.
func (d *DualStore) LoadSession(token string) (*Session, error) {
	if d.durable.Available() {
		s, err := d.durable.LoadSession(token)
		if err == nil {
			return s, nil
		}
		d.log.Warn("durable read failed, using file store", map[string]interface{}{"error": err.Error()})
	}
	return d.fallback.LoadSession(token)
}

// LoadAllSessions reads from the durable store when available, else the
// file store.
func (d *DualStore) LoadAllSessions() (map[string]*Session, error) {
	if d.durable.Available() {
		sessions, err := d.durable.LoadAllSessions()
		if err == nil {
			return sessions, nil
		}
		d.log.Warn("durable read failed, using file store", map[string]interface{}{"error": err.Error()})
	}
	return d.fallback.LoadAllSessions()
}

// DeleteSession removes the session from both backends.
func (d *DualStore) DeleteSession(token string) error {
	return d.write("delete_session", func(b Backend) error { return b.DeleteSession(token) })
}

// DeleteUserSessions removes every session for username from both
// backends, returning the count from whichever backend is authoritative.
func (d *DualStore) DeleteUserSessions(username string) (int64, error) {
	if d.durable.Available() {
		count, err := d.durable.DeleteUserSessions(username)
		if err == nil {
			if _, mirrorErr := d.fallback.DeleteUserSessions(username); mirrorErr != nil {
				d.log.Warn("file mirror write failed", map[string]interface{}{
					"op":    "delete_user_sessions",
					"error": mirrorErr.Error(),
				})
			}
			return count, nil
		}
		d.log.Warn("durable write failed, using file store", map[string]interface{}{"error": err.Error()})
	}
	return d.fallback.DeleteUserSessions(username)
}

// PurgeExpiredSessions sweeps both backends; the returned count comes
// from the authoritative one so mirrored records are not double-counted.
func (d *DualStore) PurgeExpiredSessions(now time.Time) (int64, error) {
	if d.durable.Available() {
		count, err := d.durable.PurgeExpiredSessions(now)
		if err == nil {
			if _, mirrorErr := d.fallback.PurgeExpiredSessions(now); mirrorErr != nil {
				d.log.Warn("file mirror sweep failed", map[string]interface{}{"error": mirrorErr.Error()})
			}
			return count, nil
		}
		d.log.Warn("durable sweep failed, using file store", map[string]interface{}{"error": err.Error()})
	}
	return d.fallback.PurgeExpiredSessions(now)
}

// Stats reads from the durable store when available, else the file
// store.
func (d *DualStore) Stats(now time.Time) (*Stats, error) {
	if d.durable.Available() {
		stats, err := d.durable.Stats(now)
		if err == nil {
			return stats, nil
		}
		d.log.Warn("durable read failed, using file store", map[string]interface{}{"error": err.Error()})
	}
	return d.fallback.Stats(now)
}
