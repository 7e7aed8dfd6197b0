// Package api exposes the auth core over HTTP with JSON responses. It
// is the stand-in for the hosting application: it owns the ambient
// session identity (an auth_token cookie) and translates service errors
// into status codes. No rendering happens here.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tradingagents/authkit/pkg/auth"
)

// cookieScope adapts a gin request/response pair to auth.SessionScope.
// The session token lives in an HTTP-only cookie; the other identity
// keys are per-request context values.
type cookieScope struct {
	c      *gin.Context
	maxAge int
}

func newCookieScope(c *gin.Context, ttl time.Duration) *cookieScope {
	return &cookieScope{c: c, maxAge: int(ttl.Seconds())}
}

// Get reads the token cookie or a request-scoped value.
func (s *cookieScope) Get(key string) (interface{}, bool) {
	if key == auth.ScopeKeyToken {
		token, err := s.c.Cookie(auth.ScopeKeyToken)
		if err != nil || token == "" {
			return nil, false
		}
		return token, true
	}
	return s.c.Get(key)
}

// Set writes the token cookie or a request-scoped value.
func (s *cookieScope) Set(key string, value interface{}) {
	if key == auth.ScopeKeyToken {
		if token, ok := value.(string); ok {
			s.c.SetCookie(auth.ScopeKeyToken, token, s.maxAge, "/", "", false, true)
		}
		return
	}
	s.c.Set(key, value)
}

// Delete expires the token cookie or clears a request-scoped value.
func (s *cookieScope) Delete(key string) {
	if key == auth.ScopeKeyToken {
		s.c.SetCookie(auth.ScopeKeyToken, "", -1, "/", "", false, true)
		return
	}
	s.c.Set(key, nil)
}
