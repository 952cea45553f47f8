package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/auth"
	"github.com/storefront-dev/storefront/internal/metrics"
	"github.com/storefront-dev/storefront/internal/models"
)

// RegisterRequest represents a registration request
type RegisterRequest struct {
	UserName string `json:"userName" validate:"required,notblank,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserDetail is the user projection carried by auth responses
type UserDetail struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	UserName string `json:"userName"`
}

// AuthResponse is the envelope of the auth routes, which carry the user
// under "user" rather than "data"
type AuthResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	User    *UserDetail `json:"user,omitempty"`
}

// @Summary Register
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} AuthResponse
// @Router /api/auth/register [post]
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if !s.bindJSON(c, &req) {
		return
	}
	db := getDB(c)

	var count int64
	if err := db.Model(&models.User{}).
		Where("email = ? OR user_name = ?", req.Email, req.UserName).
		Count(&count).Error; err != nil {
		s.sendInternalError(c, err, "Failed to look up user")
		return
	}
	if count > 0 {
		sendUserExists(c)
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.sendInternalError(c, err, "Failed to hash password")
		return
	}

	user := &models.User{
		UserName:     req.UserName,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
	}
	if err := db.Create(user).Error; err != nil {
		// a concurrent registration won the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			sendUserExists(c)
			return
		}
		s.sendInternalError(c, err, "Failed to create user")
		return
	}

	metrics.RecordAuth("register", true)
	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered")

	c.JSON(http.StatusOK, AuthResponse{Success: true, Message: "Registration successful"})
}

func sendUserExists(c *gin.Context) {
	metrics.RecordAuth("register", false)
	c.JSON(http.StatusOK, AuthResponse{
		Success: false,
		Message: "User Already exists with the same email! Please try again",
	})
}

// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse
// @Router /api/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var user models.User
	if err := getDB(c).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.RecordAuth("login", false)
			c.JSON(http.StatusOK, AuthResponse{
				Success: false,
				Message: "User doesn't exists! Please register first",
			})
			return
		}
		s.sendInternalError(c, err, "Failed to find user")
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		metrics.RecordAuth("login", false)
		c.JSON(http.StatusOK, AuthResponse{
			Success: false,
			Message: "Incorrect password! Please try again",
		})
		return
	}

	token, _, err := auth.GenerateToken(auth.SessionData{
		UserID:   user.ID,
		Email:    user.Email,
		UserName: user.UserName,
		Role:     user.Role,
	})
	if err != nil {
		s.sendInternalError(c, err, "Failed to generate token")
		return
	}

	s.setSessionCookie(c, token, int(auth.TokenTTL().Seconds()))
	metrics.RecordAuth("login", true)
	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in")

	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Message: "Logged in successfully",
		User: &UserDetail{
			ID:       user.ID,
			Email:    user.Email,
			Role:     user.Role,
			UserName: user.UserName,
		},
	})
}

// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} AuthResponse
// @Router /api/auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	if token, err := c.Cookie(sessionCookie); err == nil && token != "" {
		if claims, err := auth.ValidateToken(token); err == nil && claims.ExpiresAt != nil {
			if err := s.revoker.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
				s.logger.Warn().Err(err).Str("user_id", claims.UserID).Msg("Failed to revoke session token")
			}
		}
	}

	s.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, AuthResponse{Success: true, Message: "Logged out successfully!"})
}

// @Summary Check authentication
// @Tags auth
// @Produce json
// @Success 200 {object} AuthResponse
// @Failure 401 {object} AuthResponse
// @Router /api/auth/check-auth [get]
func (s *Server) checkAuth(c *gin.Context) {
	session, _ := GetSessionData(c)
	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Message: "Authenticated user!",
		User: &UserDetail{
			ID:       session.UserID,
			Email:    session.Email,
			Role:     session.Role,
			UserName: session.UserName,
		},
	})
}

func (s *Server) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, maxAge, "/", "", s.config.Session.CookieSecure, true)
}
