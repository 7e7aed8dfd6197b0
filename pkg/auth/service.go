package auth

import (
	"fmt"

	"github.com/tradingagents/authkit/pkg/config"
	autherrors "github.com/tradingagents/authkit/pkg/errors"
	"github.com/tradingagents/authkit/pkg/logger"
)

// SessionScope is the ambient session identity collaborator: a key-value
// scope owned by the hosting application (a cookie jar, a per-request
// context, an in-memory session). The service reads and writes the
// ScopeKey* keys.
type SessionScope interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	Delete(key string)
}

// Keys the service maintains in the ambient scope.
const (
	ScopeKeyToken    = "auth_token"
	ScopeKeyUsername = "username"
	ScopeKeyUserInfo = "user_info"
)

// Service is the end-user-facing orchestration over the user directory
// and the session store, constructed once per process and passed
// explicitly to every caller. Every public verb recovers internal panics
// into a generic failure so the caller never crashes and never sees
// internals.
type Service struct {
	directory *UserDirectory
	sessions  *SessionStore
	log       logger.Logger
}

// NewService wires the full dual-backend stack from configuration: the
// MongoDB durable store (probed at construction), the JSON file store,
// and the composite that prefers the former and mirrors to the latter.
func NewService(cfg *config.Config, log logger.Logger) (*Service, error) {
	fileStore, err := NewFileStore(cfg.UsersFile, cfg.SessionsFile, log)
	if err != nil {
		return nil, err
	}

	mongoStore := NewMongoStore(cfg.Mongo, log)
	if !mongoStore.Available() {
		log.Warn("durable store unavailable, file store only")
	}

	store := NewDualStore(mongoStore, fileStore, log)
	return NewServiceWithBackend(store, cfg, log), nil
}

// NewServiceWithBackend builds the service on an explicit backend. Used
// by NewService and by tests that substitute storage.
func NewServiceWithBackend(store Backend, cfg *config.Config, log logger.Logger) *Service {
	policy := PasswordPolicy{MinLength: cfg.MinPasswordLength}
	directory := NewUserDirectory(store, SHA256Codec{}, policy, log, cfg.AdminUsername, cfg.AdminPassword)
	sessions := NewSessionStore(store, cfg.SessionTTL(), log)

	return &Service{
		directory: directory,
		sessions:  sessions,
		log:       log,
	}
}

// guard converts a panic inside an orchestration call into a generic
// internal failure.
func (s *Service) guard(err *error) {
	if r := recover(); r != nil {
		s.log.Error("panic in auth service", fmt.Errorf("%v", r))
		*err = autherrors.NewInternal(fmt.Errorf("panic: %v", r))
	}
}

// Register creates a new account.
func (s *Service) Register(username, email, password, fullName string) (err error) {
	defer s.guard(&err)
	return s.directory.Register(username, email, password, fullName)
}

// Login authenticates the credentials, creates a session, and binds the
// identity into the caller's ambient scope. The returned record has the
// digest stripped.
func (s *Service) Login(scope SessionScope, username, password string) (user *User, err error) {
	defer s.guard(&err)

	record, err := s.directory.Authenticate(username, password)
	if err != nil {
		return nil, err
	}

	token, err := s.sessions.Create(record.Username)
	if err != nil || token == "" {
		return nil, autherrors.New(autherrors.ErrCodeInternal, "failed to create session")
	}

	sanitized := record.Sanitized()
	scope.Set(ScopeKeyToken, token)
	scope.Set(ScopeKeyUsername, record.Username)
	scope.Set(ScopeKeyUserInfo, sanitized)

	s.log.Info("user logged in", map[string]interface{}{"username": record.Username})
	return sanitized, nil
}

// Logout destroys the ambient session and clears the scope keys. Safe to
// call without a live session.
func (s *Service) Logout(scope SessionScope) (err error) {
	defer s.guard(&err)

	if token, ok := scope.Get(ScopeKeyToken); ok {
		if tokenStr, isStr := token.(string); isStr {
			if destroyErr := s.sessions.Destroy(tokenStr); destroyErr != nil {
				s.log.Warn("failed to destroy session on logout", map[string]interface{}{"error": destroyErr.Error()})
			}
		}
	}

	scope.Delete(ScopeKeyToken)
	scope.Delete(ScopeKeyUsername)
	scope.Delete(ScopeKeyUserInfo)

	s.log.Info("user logged out")
	return nil
}

// CheckAuth reads the ambient token and validates it, returning the
// bound username. An invalid or expired token clears the ambient
// identity keys.
func (s *Service) CheckAuth(scope SessionScope) (string, bool) {
	token, ok := scope.Get(ScopeKeyToken)
	if !ok {
		return "", false
	}
	tokenStr, isStr := token.(string)
	if !isStr || tokenStr == "" {
		return "", false
	}

	username, err := s.sessions.Validate(tokenStr)
	if err != nil {
		scope.Delete(ScopeKeyToken)
		scope.Delete(ScopeKeyUsername)
		return "", false
	}
	return username, true
}

// RequireAuth is CheckAuth with a hard failure for unauthenticated
// callers; the hosting framework turns the error into its stop
// mechanism.
func (s *Service) RequireAuth(scope SessionScope) (string, error) {
	username, ok := s.CheckAuth(scope)
	if !ok {
		return "", autherrors.New(autherrors.ErrCodeSessionNotFound, "authentication required")
	}
	return username, nil
}

// GetUserInfo returns the digest-stripped record, or (nil, nil) when the
// user does not exist.
func (s *Service) GetUserInfo(username string) (user *User, err error) {
	defer s.guard(&err)
	return s.directory.GetInfo(username)
}

// UpdateUserInfo applies allow-listed profile updates.
func (s *Service) UpdateUserInfo(username string, updates map[string]interface{}) (err error) {
	defer s.guard(&err)
	return s.directory.UpdateInfo(username, updates)
}

// ChangePassword rotates the account's credential.
func (s *Service) ChangePassword(username, oldPassword, newPassword string) (err error) {
	defer s.guard(&err)
	return s.directory.ChangePassword(username, oldPassword, newPassword)
}

// DeleteUser removes an account and its sessions. Admin-only at the
// boundary.
func (s *Service) DeleteUser(username string) (err error) {
	defer s.guard(&err)
	return s.directory.Delete(username)
}

// Stats returns the account and session census.
func (s *Service) Stats() (stats *Stats, err error) {
	defer s.guard(&err)
	return s.sessions.Stats()
}

// CleanupExpiredSessions sweeps expired sessions and returns the count
// removed.
func (s *Service) CleanupExpiredSessions() (count int64, err error) {
	defer s.guard(&err)
	return s.sessions.PurgeExpired()
}
