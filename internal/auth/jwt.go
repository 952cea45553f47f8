package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/storefront-dev/storefront/internal/assert"
)

var (
	jwtSecret []byte
	tokenTTL  = 60 * time.Minute
)

var ErrNotInitialized = errors.New("session secret not initialized")

// JWTClaims represents the session token claims
type JWTClaims struct {
	UserID   string `json:"id"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	UserName string `json:"userName"`
	jwt.RegisteredClaims
}

// InitializeJWT sets the signing key and token lifetime. An empty secret
// panics: config.Load refuses to start without one.
func InitializeJWT(secret string, ttl time.Duration) {
	assert.NotEmpty(secret, "session secret")
	jwtSecret = []byte(secret)
	if ttl > 0 {
		tokenTTL = ttl
	}
}

// TokenTTL returns the configured token lifetime
func TokenTTL() time.Duration {
	return tokenTTL
}

// GenerateToken creates a signed session token for a user. Each token gets
// a unique ID so it can be revoked on logout.
func GenerateToken(user SessionData) (string, *JWTClaims, error) {
	if len(jwtSecret) == 0 {
		return "", nil, ErrNotInitialized
	}

	now := time.Now()
	claims := &JWTClaims{
		UserID:   user.UserID,
		Role:     user.Role,
		Email:    user.Email,
		UserName: user.UserName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken validates a session token and returns the claims
func ValidateToken(tokenString string) (*JWTClaims, error) {
	if len(jwtSecret) == 0 {
		return nil, ErrNotInitialized
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
