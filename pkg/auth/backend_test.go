package auth

import (
	"errors"
	"time"

	autherrors "github.com/tradingagents/authkit/pkg/errors"
)

// memBackend is an in-memory Backend for tests. The failure flags
// simulate a degraded store without network setup.
type memBackend struct {
	available      bool
	failWrites     bool
	failReads      bool
	duplicateEmail bool

	users    map[string]*User
	sessions map[string]*Session
}

var errBackendDown = errors.New("backend down")

func newMemBackend() *memBackend {
	return &memBackend{
		available: true,
		users:     make(map[string]*User),
		sessions:  make(map[string]*Session),
	}
}

func (b *memBackend) Available() bool {
	return b.available
}

func (b *memBackend) SaveUser(u *User) error {
	if b.duplicateEmail {
		return autherrors.NewDuplicateEmail()
	}
	if b.failWrites {
		return errBackendDown
	}
	b.users[u.Username] = u
	return nil
}

func (b *memBackend) LoadUser(username string) (*User, error) {
	if b.failReads {
		return nil, errBackendDown
	}
	return b.users[username], nil
}

func (b *memBackend) LoadAllUsers() (map[string]*User, error) {
	if b.failReads {
		return nil, errBackendDown
	}
	out := make(map[string]*User, len(b.users))
	for k, v := range b.users {
		out[k] = v
	}
	return out, nil
}

func (b *memBackend) UpdateUser(u *User) error {
	if b.failWrites {
		return errBackendDown
	}
	if _, ok := b.users[u.Username]; !ok {
		return autherrors.New(autherrors.ErrCodeNotFound, "user not found")
	}
	b.users[u.Username] = u
	return nil
}

func (b *memBackend) DeleteUser(username string) error {
	if b.failWrites {
		return errBackendDown
	}
	if _, ok := b.users[username]; !ok {
		return autherrors.New(autherrors.ErrCodeNotFound, "user not found")
	}
	delete(b.users, username)
	for token, s := range b.sessions {
		if s.Username == username {
			delete(b.sessions, token)
		}
	}
	return nil
}

func (b *memBackend) SaveSession(s *Session) error {
	if b.failWrites {
		return errBackendDown
	}
	b.sessions[s.Token] = s
	return nil
}

func (b *memBackend) LoadSession(token string) (*Session, error) {
	if b.failReads {
		return nil, errBackendDown
	}
	return b.sessions[token], nil
}

func (b *memBackend) LoadAllSessions() (map[string]*Session, error) {
	if b.failReads {
		return nil, errBackendDown
	}
	out := make(map[string]*Session, len(b.sessions))
	for k, v := range b.sessions {
		out[k] = v
	}
	return out, nil
}

func (b *memBackend) DeleteSession(token string) error {
	if b.failWrites {
		return errBackendDown
	}
	delete(b.sessions, token)
	return nil
}

func (b *memBackend) DeleteUserSessions(username string) (int64, error) {
	if b.failWrites {
		return 0, errBackendDown
	}
	var removed int64
	for token, s := range b.sessions {
		if s.Username == username {
			delete(b.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (b *memBackend) PurgeExpiredSessions(now time.Time) (int64, error) {
	if b.failWrites {
		return 0, errBackendDown
	}
	var removed int64
	for token, s := range b.sessions {
		if s.IsExpired(now) {
			delete(b.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (b *memBackend) Stats(now time.Time) (*Stats, error) {
	if b.failReads {
		return nil, errBackendDown
	}
	stats := &Stats{
		TotalUsers:    int64(len(b.users)),
		TotalSessions: int64(len(b.sessions)),
	}
	for _, s := range b.sessions {
		if !s.IsExpired(now) {
			stats.ActiveSessions++
		}
	}
	return stats, nil
}
