package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tradingagents/authkit/pkg/auth"
	"github.com/tradingagents/authkit/pkg/config"
	autherrors "github.com/tradingagents/authkit/pkg/errors"
	"github.com/tradingagents/authkit/pkg/logger"
)

// Server is the HTTP boundary over the auth service.
type Server struct {
	router  *gin.Engine
	service *auth.Service
	cfg     *config.Config
	log     logger.Logger
}

// NewServer builds the router with all auth routes registered.
func NewServer(service *auth.Service, cfg *config.Config, log logger.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID())

	s := &Server{
		router:  router,
		service: service,
		cfg:     cfg,
		log:     log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	group := s.router.Group("/api/auth")
	{
		group.POST("/register", s.handleRegister)
		group.POST("/login", s.handleLogin)
		group.POST("/logout", s.handleLogout)

		authed := group.Group("", s.RequireAuth())
		{
			authed.GET("/me", s.handleMe)
			authed.PUT("/profile", s.handleUpdateProfile)
			authed.PUT("/password", s.handleChangePassword)

			admin := authed.Group("", s.RequireAdmin())
			{
				admin.GET("/stats", s.handleStats)
				admin.POST("/cleanup", s.handleCleanup)
				admin.DELETE("/users/:username", s.handleDeleteUser)
			}
		}
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Handler exposes the router for the HTTP server and for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.Info("auth API listening", map[string]interface{}{"addr": addr})
	return s.router.Run(addr)
}

// statusFor maps a service error to the HTTP status of the response.
func statusFor(err error) int {
	switch autherrors.CodeOf(err) {
	case autherrors.ErrCodeInvalidInput,
		autherrors.ErrCodeUsernameTooShort,
		autherrors.ErrCodeInvalidEmail,
		autherrors.ErrCodeWeakPassword:
		return http.StatusBadRequest
	case autherrors.ErrCodeDuplicateUsername, autherrors.ErrCodeDuplicateEmail:
		return http.StatusConflict
	case autherrors.ErrCodeBadCredentials,
		autherrors.ErrCodeSessionNotFound,
		autherrors.ErrCodeSessionExpired:
		return http.StatusUnauthorized
	case autherrors.ErrCodeAccountDisabled, autherrors.ErrCodeWrongOldPassword:
		return http.StatusForbidden
	case autherrors.ErrCodeNotFound:
		return http.StatusNotFound
	case autherrors.ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope with the mapped status. Only the
// human-readable message leaves the boundary.
func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"success": false,
		"message": autherrors.MessageOf(err),
	})
}
