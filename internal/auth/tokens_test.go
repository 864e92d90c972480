package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokenConfig() TokenConfig {
	return TokenConfig{
		Secret:     []byte("test-secret"),
		Issuer:     "test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testTokenConfig()
	tok, err := cfg.IssueAccessToken("user-1", "a@b.test")
	require.NoError(t, err)

	sub, err := cfg.VerifyAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	cfg := testTokenConfig()
	tok, err := cfg.IssueAccessToken("user-1", "a@b.test")
	require.NoError(t, err)

	other := cfg
	other.Secret = []byte("another-secret")
	_, err = other.VerifyAccessToken(tok)
	assert.Error(t, err)
}

func TestAccessTokenExpired(t *testing.T) {
	cfg := testTokenConfig()
	cfg.AccessTTL = -time.Minute
	tok, err := cfg.IssueAccessToken("user-1", "a@b.test")
	require.NoError(t, err)

	_, err = cfg.VerifyAccessToken(tok)
	assert.Error(t, err)
}

func TestVerifyGarbage(t *testing.T) {
	cfg := testTokenConfig()
	_, err := cfg.VerifyAccessToken("not-a-jwt")
	assert.Error(t, err)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	a, err := newRefreshToken()
	require.NoError(t, err)
	b, err := newRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43) // 32 bytes, base64 raw url
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	hash, algo, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.Equal(t, "bcrypt:4", algo)
	assert.True(t, h.Verify(hash, "s3cret"))
	assert.False(t, h.Verify(hash, "wrong"))
}
