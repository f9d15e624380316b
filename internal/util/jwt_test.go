package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	tok, err := GenerateToken(TokenParams{
		Secret:    "s3cret",
		Issuer:    "attendsync",
		UserID:    "student-1",
		Email:     "cs23i1001@iiitdm.ac.in",
		Role:      "student",
		SessionID: "sess-1",
		TTL:       30 * time.Minute,
	})
	require.NoError(t, err)

	claims, err := ParseToken("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, "student-1", claims.UserID)
	assert.Equal(t, "cs23i1001@iiitdm.ac.in", claims.Subject)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, "sess-1", claims.ID)
}

func TestParseToken_Rejects(t *testing.T) {
	valid := TokenParams{Secret: "s3cret", UserID: "u", Email: "e@x", SessionID: "s"}

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := GenerateToken(valid)
		require.NoError(t, err)
		_, err = ParseToken("other", tok)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		p := valid
		p.Now = time.Now().Add(-2 * time.Hour)
		p.TTL = time.Minute
		tok, err := GenerateToken(p)
		require.NoError(t, err)
		_, err = ParseToken("s3cret", tok)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("missing session id", func(t *testing.T) {
		p := valid
		p.SessionID = ""
		tok, err := GenerateToken(p)
		require.NoError(t, err)
		_, err = ParseToken("s3cret", tok)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseToken("s3cret", "not.a.token")
		assert.Error(t, err)
	})

	t.Run("empty secret", func(t *testing.T) {
		p := valid
		p.Secret = ""
		_, err := GenerateToken(p)
		assert.Error(t, err)
	})
}
