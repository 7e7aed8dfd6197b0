package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradingagents/authkit/pkg/config"
	autherrors "github.com/tradingagents/authkit/pkg/errors"
	"github.com/tradingagents/authkit/pkg/logger"
)

// mapScope is an in-memory SessionScope standing in for the hosting
// application's session state.
type mapScope map[string]interface{}

func (m mapScope) Get(key string) (interface{}, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapScope) Set(key string, value interface{}) { m[key] = value }

func (m mapScope) Delete(key string) { delete(m, key) }

func newTestService(t *testing.T) (*Service, *memBackend) {
	t.Helper()
	backend := newMemBackend()
	svc := NewServiceWithBackend(backend, config.Default(), logger.NewTestLogger())
	return svc, backend
}

func TestService_Login(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Register("alice", "alice@example.com", "pw1234", "Alice"))

	scope := mapScope{}
	user, err := svc.Login(scope, "alice", "pw1234")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.PasswordHash)

	token, ok := scope.Get(ScopeKeyToken)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	username, ok := scope.Get(ScopeKeyUsername)
	require.True(t, ok)
	assert.Equal(t, "alice", username)

	info, ok := scope.Get(ScopeKeyUserInfo)
	require.True(t, ok)
	assert.Empty(t, info.(*User).PasswordHash)
}

func TestService_LoginBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Register("alice", "alice@example.com", "pw1234", "Alice"))

	scope := mapScope{}
	_, err := svc.Login(scope, "alice", "wrong99")
	assert.Equal(t, autherrors.ErrCodeBadCredentials, autherrors.CodeOf(err))
	assert.Empty(t, scope, "a failed login leaves the scope untouched")
}

func TestService_CheckAuth(t *testing.T) {
	svc, backend := newTestService(t)
	require.NoError(t, svc.Register("alice", "alice@example.com", "pw1234", "Alice"))

	t.Run("no ambient token", func(t *testing.T) {
		username, ok := svc.CheckAuth(mapScope{})
		assert.False(t, ok)
		assert.Empty(t, username)
	})

	t.Run("live session", func(t *testing.T) {
		scope := mapScope{}
		_, err := svc.Login(scope, "alice", "pw1234")
		require.NoError(t, err)

		username, ok := svc.CheckAuth(scope)
		assert.True(t, ok)
		assert.Equal(t, "alice", username)
	})

	t.Run("expired session clears identity keys", func(t *testing.T) {
		scope := mapScope{}
		_, err := svc.Login(scope, "alice", "pw1234")
		require.NoError(t, err)

		token, _ := scope.Get(ScopeKeyToken)
		backend.sessions[token.(string)].ExpiresAt = time.Now().Add(-time.Minute)

		_, ok := svc.CheckAuth(scope)
		assert.False(t, ok)

		_, hasToken := scope.Get(ScopeKeyToken)
		assert.False(t, hasToken)
		_, hasUsername := scope.Get(ScopeKeyUsername)
		assert.False(t, hasUsername)
	})
}

func TestService_RequireAuth(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Register("alice", "alice@example.com", "pw1234", "Alice"))

	_, err := svc.RequireAuth(mapScope{})
	require.Error(t, err)
	assert.Equal(t, autherrors.ErrCodeSessionNotFound, autherrors.CodeOf(err))
	assert.Equal(t, "authentication required", autherrors.MessageOf(err))

	scope := mapScope{}
	_, err = svc.Login(scope, "alice", "pw1234")
	require.NoError(t, err)

	username, err := svc.RequireAuth(scope)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestService_Logout(t *testing.T) {
	svc, backend := newTestService(t)
	require.NoError(t, svc.Register("alice", "alice@example.com", "pw1234", "Alice"))

	scope := mapScope{}
	_, err := svc.Login(scope, "alice", "pw1234")
	require.NoError(t, err)
	token, _ := scope.Get(ScopeKeyToken)

	require.NoError(t, svc.Logout(scope))
	assert.Empty(t, scope)
	assert.NotContains(t, backend.sessions, token.(string))

	// Logging out without a live session is safe.
	require.NoError(t, svc.Logout(scope))
}

func TestService_SingleActiveSession(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Register("alice", "alice@example.com", "pw1234", "Alice"))

	first := mapScope{}
	_, err := svc.Login(first, "alice", "pw1234")
	require.NoError(t, err)

	second := mapScope{}
	_, err = svc.Login(second, "alice", "pw1234")
	require.NoError(t, err)

	// The second login retired the first session.
	_, ok := svc.CheckAuth(first)
	assert.False(t, ok)
	_, ok = svc.CheckAuth(second)
	assert.True(t, ok)
}

func TestService_UserInfoFlow(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Register("alice", "alice@example.com", "pw1234", "Alice"))

	require.NoError(t, svc.UpdateUserInfo("alice", map[string]interface{}{"full_name": "Alice Renamed"}))

	user, err := svc.GetUserInfo("alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Alice Renamed", user.FullName)
	assert.Empty(t, user.PasswordHash)

	absent, err := svc.GetUserInfo("nobody")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestService_ChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Register("alice", "alice@example.com", "pw1234", "Alice"))

	scope := mapScope{}
	_, err := svc.Login(scope, "alice", "pw1234")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword("alice", "pw1234", "secret1"))

	// Existing sessions stay valid after a password change.
	username, ok := svc.CheckAuth(scope)
	assert.True(t, ok)
	assert.Equal(t, "alice", username)

	_, err = svc.Login(mapScope{}, "alice", "pw1234")
	assert.Equal(t, autherrors.ErrCodeBadCredentials, autherrors.CodeOf(err))
	_, err = svc.Login(mapScope{}, "alice", "secret1")
	assert.NoError(t, err)
}

func TestService_DeleteUser(t *testing.T) {
	svc, backend := newTestService(t)
	require.NoError(t, svc.Register("alice", "alice@example.com", "pw1234", "Alice"))

	scope := mapScope{}
	_, err := svc.Login(scope, "alice", "pw1234")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser("alice"))
	assert.NotContains(t, backend.users, "alice")

	// The cascade killed the session too.
	_, ok := svc.CheckAuth(scope)
	assert.False(t, ok)
}

func TestService_StatsAndCleanup(t *testing.T) {
	svc, backend := newTestService(t)
	require.NoError(t, svc.Register("alice", "alice@example.com", "pw1234", "Alice"))

	scope := mapScope{}
	_, err := svc.Login(scope, "alice", "pw1234")
	require.NoError(t, err)

	stats, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers, "alice plus the bootstrap admin")
	assert.Equal(t, int64(1), stats.TotalSessions)
	assert.Equal(t, int64(1), stats.ActiveSessions)

	token, _ := scope.Get(ScopeKeyToken)
	backend.sessions[token.(string)].ExpiresAt = time.Now().Add(-time.Minute)

	count, err := svc.CleanupExpiredSessions()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stats, err = svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalSessions)
}
