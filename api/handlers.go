package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
}

// LoginRequest is the payload for credential checks.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries the profile fields to change; unknown
// fields are ignored by the service.
type UpdateProfileRequest struct {
	Updates map[string]interface{} `json:"updates" binding:"required"`
}

// ChangePasswordRequest is the payload for credential rotation.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "username, email and password are required"})
		return
	}

	if err := s.service.Register(req.Username, req.Email, req.Password, req.FullName); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "registration successful"})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "username and password are required"})
		return
	}

	scope := newCookieScope(c, s.cfg.SessionTTL())
	user, err := s.service.Login(scope, req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "login successful", "user": user})
}

func (s *Server) handleLogout(c *gin.Context) {
	scope := newCookieScope(c, s.cfg.SessionTTL())
	if err := s.service.Logout(scope); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
}

func (s *Server) handleMe(c *gin.Context) {
	username := c.GetString(contextUserKey)
	user, err := s.service.GetUserInfo(username)
	if err != nil {
		fail(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "updates are required"})
		return
	}

	username := c.GetString(contextUserKey)
	if err := s.service.UpdateUserInfo(username, req.Updates); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "profile updated"})
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "old and new passwords are required"})
		return
	}

	username := c.GetString(contextUserKey)
	if err := s.service.ChangePassword(username, req.OldPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "password changed"})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.service.Stats()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (s *Server) handleCleanup(c *gin.Context) {
	count, err := s.service.CleanupExpiredSessions()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "cleanup complete", "removed": count})
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	target := c.Param("username")
	if target == c.GetString(contextUserKey) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "cannot delete the current account"})
		return
	}

	if err := s.service.DeleteUser(target); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "user deleted"})
}
