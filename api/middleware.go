package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradingagents/authkit/pkg/auth"
	autherrors "github.com/tradingagents/authkit/pkg/errors"
)

const (
	requestIDHeader = "X-Request-ID"
	contextUserKey  = "auth_username"
)

// RequestID attaches a request identifier to the context and response,
// generating one when the client did not send its own.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequireAuth validates the ambient session and stores the resolved
// username in the request context; unauthenticated requests are
// rejected.
func (s *Server) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := newCookieScope(c, s.cfg.SessionTTL())
		username, err := s.service.RequireAuth(scope)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": autherrors.MessageOf(err),
			})
			return
		}
		c.Set(contextUserKey, username)
		c.Next()
	}
}

// RequireAdmin rejects requests whose authenticated user does not hold
// the admin role. Must run after RequireAuth.
func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(contextUserKey)
		user, err := s.service.GetUserInfo(username)
		if err != nil || user == nil || user.Role != auth.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "admin privileges required",
			})
			return
		}
		c.Next()
	}
}
