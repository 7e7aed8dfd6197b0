package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	autherrors "github.com/tradingagents/authkit/pkg/errors"
	"github.com/tradingagents/authkit/pkg/logger"
)

// FileStore is the local fallback/mirror backend: two whole-document
// JSON files, one mapping username to user record and one mapping token
// to session record. Every write rewrites the entire file; every read
// parses the entire file. A mutex per file guards each read-modify-write
// cycle against concurrent writers in this process. Uniqueness is not
// enforced here; callers check before writing.
type FileStore struct {
	usersPath    string
	sessionsPath string
	usersMu      sync.Mutex
	sessionsMu   sync.Mutex
	log          logger.Logger
}

// NewFileStore creates the store and seeds missing files with an empty
// document.
func NewFileStore(usersPath, sessionsPath string, log logger.Logger) (*FileStore, error) {
	fs := &FileStore{
		usersPath:    usersPath,
		sessionsPath: sessionsPath,
		log:          log,
	}

	for _, path := range []string{usersPath, sessionsPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
				return nil, fmt.Errorf("failed to create %s: %w", path, err)
			}
			log.Info("created store file", map[string]interface{}{"path": path})
		}
	}

	return fs, nil
}

// Available always reports true; the local filesystem is assumed
// reachable.
func (f *FileStore) Available() bool {
	return true
}

// readUsers parses the whole users file. Read or parse failures are
// logged and collapse to an empty document so callers can proceed.
func (f *FileStore) readUsers() map[string]*User {
	users := make(map[string]*User)
	data, err := os.ReadFile(f.usersPath)
	if err != nil {
		f.log.Error("failed to read users file", err, map[string]interface{}{"path": f.usersPath})
		return users
	}
	if err := json.Unmarshal(data, &users); err != nil {
		f.log.Error("failed to parse users file", err, map[string]interface{}{"path": f.usersPath})
		return make(map[string]*User)
	}
	return users
}

func (f *FileStore) writeUsers(users map[string]*User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}
	if err := os.WriteFile(f.usersPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write users file: %w", err)
	}
	return nil
}

func (f *FileStore) readSessions() map[string]*Session {
	sessions := make(map[string]*Session)
	data, err := os.ReadFile(f.sessionsPath)
	if err != nil {
		f.log.Error("failed to read sessions file", err, map[string]interface{}{"path": f.sessionsPath})
		return sessions
	}
	if err := json.Unmarshal(data, &sessions); err != nil {
		f.log.Error("failed to parse sessions file", err, map[string]interface{}{"path": f.sessionsPath})
		return make(map[string]*Session)
	}
	return sessions
}

func (f *FileStore) writeSessions(sessions map[string]*Session) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}
	if err := os.WriteFile(f.sessionsPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write sessions file: %w", err)
	}
	return nil
}

// SaveUser inserts or replaces the record keyed by username.
func (f *FileStore) SaveUser(u *User) error {
	f.usersMu.Lock()
	defer f.usersMu.Unlock()

	users := f.readUsers()
	users[u.Username] = u
	return f.writeUsers(users)
}

// LoadUser returns the record for username, or (nil, nil) when absent.
func (f *FileStore) LoadUser(username string) (*User, error) {
	f.usersMu.Lock()
	defer f.usersMu.Unlock()

	return f.readUsers()[username], nil
}

// LoadAllUsers returns every user record keyed by username.
func (f *FileStore) LoadAllUsers() (map[string]*User, error) {
	f.usersMu.Lock()
	defer f.usersMu.Unlock()

	return f.readUsers(), nil
}

// UpdateUser replaces an existing record; absent users are an error.
func (f *FileStore) UpdateUser(u *User) error {
	f.usersMu.Lock()
	defer f.usersMu.Unlock()

	users := f.readUsers()
	if _, ok := users[u.Username]; !ok {
		return autherrors.New(autherrors.ErrCodeNotFound, "user not found")
	}
	users[u.Username] = u
	return f.writeUsers(users)
}

// DeleteUser removes the user and all sessions bound to it.
func (f *FileStore) DeleteUser(username string) error {
	f.usersMu.Lock()
	users := f.readUsers()
	_, existed := users[username]
	delete(users, username)
	err := f.writeUsers(users)
	f.usersMu.Unlock()
	if err != nil {
		return err
	}
	if !existed {
		return autherrors.New(autherrors.ErrCodeNotFound, "user not found")
	}

	_, err = f.DeleteUserSessions(username)
	return err
}

// SaveSession inserts or replaces the record keyed by token.
func (f *FileStore) SaveSession(s *Session) error {
	f.sessionsMu.Lock()
	defer f.sessionsMu.Unlock()

	sessions := f.readSessions()
	sessions[s.Token] = s
	return f.writeSessions(sessions)
}

// LoadSession returns the session for token, or (nil, nil) when absent.
func (f *FileStore) LoadSession(token string) (*Session, error) {
	f.sessionsMu.Lock()
	defer f.sessionsMu.Unlock()

	return f.readSessions()[token], nil
}

// LoadAllSessions returns every session record keyed by token.
func (f *FileStore) LoadAllSessions() (map[string]*Session, error) {
	f.sessionsMu.Lock()
	defer f.sessionsMu.Unlock()

	return f.readSessions(), nil
}

// DeleteSession removes the session; deleting an absent token is not an
// error.
func (f *FileStore) DeleteSession(token string) error {
	f.sessionsMu.Lock()
	defer f.sessionsMu.Unlock()

	sessions := f.readSessions()
	if _, ok := sessions[token]; !ok {
		return nil
	}
	delete(sessions, token)
	return f.writeSessions(sessions)
}

// DeleteUserSessions removes every session bound to username and returns
// the count removed.
func (f *FileStore) DeleteUserSessions(username string) (int64, error) {
	f.sessionsMu.Lock()
	defer f.sessionsMu.Unlock()

	sessions := f.readSessions()
	var removed int64
	for token, s := range sessions {
		if s.Username == username {
			delete(sessions, token)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, f.writeSessions(sessions)
}

// PurgeExpiredSessions removes every session whose expiry is before now.
func (f *FileStore) PurgeExpiredSessions(now time.Time) (int64, error) {
	f.sessionsMu.Lock()
	defer f.sessionsMu.Unlock()

	sessions := f.readSessions()
	var removed int64
	for token, s := range sessions {
		if s.IsExpired(now) {
			delete(sessions, token)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, f.writeSessions(sessions)
}

// Stats counts users, live sessions at the given instant, and total
// sessions.
func (f *FileStore) Stats(now time.Time) (*Stats, error) {
	users, err := f.LoadAllUsers()
	if err != nil {
		return nil, err
	}
	sessions, err := f.LoadAllSessions()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalUsers:    int64(len(users)),
		TotalSessions: int64(len(sessions)),
	}
	for _, s := range sessions {
		if !s.IsExpired(now) {
			stats.ActiveSessions++
		}
	}
	return stats, nil
}
