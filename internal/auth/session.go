package auth

import "time"

// SessionData represents the authenticated session context for a request
type SessionData struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	UserName  string    `json:"userName"`
	Role      string    `json:"role"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// IsAdmin reports whether the session belongs to an administrator
func (s *SessionData) IsAdmin() bool {
	return s.Role == "admin"
}

// FromClaims rebuilds the session carried by a validated token
func FromClaims(claims *JWTClaims) *SessionData {
	session := &SessionData{
		UserID:   claims.UserID,
		Email:    claims.Email,
		UserName: claims.UserName,
		Role:     claims.Role,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session
}
