package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	InitializeJWT("test-secret", time.Hour)

	token, claims, err := GenerateToken(SessionData{
		UserID:   "01HZY",
		Email:    "ada@example.com",
		UserName: "ada",
		Role:     "admin",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, claims.ID)

	parsed, err := ValidateToken(token)
	require.NoError(t, err)

	session := FromClaims(parsed)
	assert.Equal(t, "01HZY", session.UserID)
	assert.Equal(t, "ada@example.com", session.Email)
	assert.Equal(t, "ada", session.UserName)
	assert.True(t, session.IsAdmin())
	assert.Equal(t, claims.ID, session.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)
}

func TestGenerateToken_UniqueIDs(t *testing.T) {
	InitializeJWT("test-secret", time.Hour)

	_, first, err := GenerateToken(SessionData{UserID: "u1"})
	require.NoError(t, err)
	_, second, err := GenerateToken(SessionData{UserID: "u1"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestValidateToken_Rejects(t *testing.T) {
	InitializeJWT("test-secret", time.Hour)
	token, _, err := GenerateToken(SessionData{UserID: "u1", Role: "user"})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		InitializeJWT("other-secret", time.Hour)
		defer InitializeJWT("test-secret", time.Hour)

		_, err := ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ValidateToken("not-a-token")
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		InitializeJWT("test-secret", time.Nanosecond)
		defer InitializeJWT("test-secret", time.Hour)

		expired, _, err := GenerateToken(SessionData{UserID: "u1"})
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)

		_, err = ValidateToken(expired)
		assert.Error(t, err)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.NoError(t, VerifyPassword("hunter22", hash))
	assert.Error(t, VerifyPassword("hunter23", hash))
}

func TestInitializeJWT_EmptySecretPanics(t *testing.T) {
	assert.Panics(t, func() { InitializeJWT("", time.Hour) })
}
