package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("0123456789abcdef-test", time.Hour)

	token, err := tm.GenerateJWT("64b7f0c2a1b2c3d4e5f60718", "doctor")
	require.NoError(t, err)

	claims, err := tm.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", claims.UserID)
	assert.Equal(t, "doctor", claims.Role)
}

func TestValidateRejectsBadTokens(t *testing.T) {
	tm := NewTokenManager("0123456789abcdef-test", time.Hour)

	other, err := NewTokenManager("another-secret-entirely", time.Hour).GenerateJWT("u1", "user")
	require.NoError(t, err)
	_, err = tm.ValidateJWT(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenManager("0123456789abcdef-test", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.GenerateJWT("u1", "user")
	require.NoError(t, err)
	_, err = tm.ValidateJWT(stale)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1", Role: "admin"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.ValidateJWT(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tm.ValidateJWT("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMissingSecret(t *testing.T) {
	tm := NewTokenManager("", time.Hour)
	_, err := tm.GenerateJWT("u1", "user")
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	BcryptCost = bcrypt.MinCost

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("wrong horse", hash))
}

func TestPasswordHashUsesConfiguredCost(t *testing.T) {
	defer func(prev int) { BcryptCost = prev }(BcryptCost)

	BcryptCost = bcrypt.MinCost
	cheap, err := HashPassword("correct horse")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(cheap))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	BcryptCost = bcrypt.MinCost + 1
	stronger, err := HashPassword("correct horse")
	require.NoError(t, err)
	cost, err = bcrypt.Cost([]byte(stronger))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)

	// Older hashes keep verifying after the cost changes.
	assert.True(t, CheckPasswordHash("correct horse", cheap))
}
