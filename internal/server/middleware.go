package server

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/auth"
)

const (
	sessionCookie = "token"

	sessionKey  = "session"
	databaseKey = "db"
)

var (
	ErrMissingToken = errors.New("missing session cookie")
	ErrInvalidToken = errors.New("invalid token")
	ErrRevokedToken = errors.New("revoked token")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set(sessionKey, sessionData)
}

// GetSessionData returns the session attached by the auth middleware
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	c.AbortWithStatusJSON(statusCode, Response{Success: false, Message: message})
}

// authMiddleware validates the session cookie and rejects revoked tokens
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err != nil || token == "" {
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrMissingToken, "Unauthorised user!")
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, errors.Join(ErrInvalidToken, err), "Unauthorised user!")
			return
		}

		revoked, err := s.revoker.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			// fail open, signature and expiry were already checked
			s.logger.Warn().Err(err).Msg("Failed to check token revocation")
		} else if revoked {
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrRevokedToken, "Unauthorised user!")
			return
		}

		setSession(c, auth.FromClaims(claims))
		c.Next()
	}
}

// AdminOnlyMiddleware ensures the authenticated user is an admin
func AdminOnlyMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			respondWithError(c, log, http.StatusUnauthorized, errors.New("no session"), "Unauthorised user!")
			return
		}

		if !sessionData.IsAdmin() {
			respondWithError(c, log, http.StatusForbidden, errors.New("not admin"), "Admin access required")
			return
		}

		c.Next()
	}
}

// requireDatabase answers 503 until the background connection is ready
func (s *Server) requireDatabase() gin.HandlerFunc {
	return func(c *gin.Context) {
		db, ok := s.conn.DB()
		if !ok {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, Response{
				Success: false,
				Message: "Database unavailable",
			})
			return
		}
		c.Set(databaseKey, db.WithContext(c.Request.Context()))
		c.Next()
	}
}

func getDB(c *gin.Context) *gorm.DB {
	return c.MustGet(databaseKey).(*gorm.DB)
}

// authorizeUser checks that the caller acts on their own data. Admins may act
// on anyone's.
func (s *Server) authorizeUser(c *gin.Context, userID string) bool {
	session, ok := GetSessionData(c)
	if !ok {
		respondWithError(c, s.logger, http.StatusUnauthorized, errors.New("no session"), "Unauthorised user!")
		return false
	}
	if userID == "" || (session.UserID != userID && !session.IsAdmin()) {
		respondWithError(c, s.logger, http.StatusForbidden, errors.New("user mismatch"), "You can only access your own data")
		return false
	}
	return true
}

// RateLimiter throttles requests per client IP
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

const maxTrackedClients = 10000

// NewRateLimiter creates a limiter allowing requestsPerSecond with burst
func NewRateLimiter(requestsPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		if len(rl.limiters) >= maxTrackedClients {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Allow reports whether a request from key may proceed now
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !rl.Allow(key) {
			log.Warn().
				Str("client_ip", key).
				Str("path", c.Request.URL.Path).
				Msg("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{
				Success: false,
				Message: "Too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}
