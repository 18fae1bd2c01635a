package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("popcorn42", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "popcorn42"))
	assert.False(t, VerifyPassword(hash, "popcorn43"))

	_, err = HashPassword("abc", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestAccessToken(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "sid-1", 7, "ADMIN", time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SessionID)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "ADMIN", claims.Role)

	_, err = ParseAccessToken("other", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewAccessToken("s3cret", "sid-2", 7, "ADMIN", -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", expired.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
