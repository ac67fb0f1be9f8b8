package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWT() *JWTManager {
	return NewJWTManager("test-access-secret", "test-refresh-secret", 15*time.Minute, 24*time.Hour)
}

func TestJWTManager_AccessTokenRoundTrip(t *testing.T) {
	t.Parallel()

	m := newTestJWT()
	token, exp, err := m.GenerateAccessToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, time.Second)

	claims, err := m.ParseAccessToken(token)
	require.NoError(t, err)
	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestJWTManager_RefreshTokenRoundTrip(t *testing.T) {
	t.Parallel()

	m := newTestJWT()
	token, exp, err := m.GenerateRefreshToken(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), exp, time.Second)

	claims, err := m.ParseRefreshToken(token)
	require.NoError(t, err)
	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestJWTManager_TokenTypeIsEnforced(t *testing.T) {
	t.Parallel()

	m := newTestJWT()
	access, _, err := m.GenerateAccessToken(42)
	require.NoError(t, err)
	refresh, _, err := m.GenerateRefreshToken(42)
	require.NoError(t, err)

	_, err = m.ParseAccessToken(refresh)
	assert.Error(t, err, "refresh token must not pass access parsing")
	_, err = m.ParseRefreshToken(access)
	assert.Error(t, err, "access token must not pass refresh parsing")
}

func TestJWTManager_RejectsForeignSignature(t *testing.T) {
	t.Parallel()

	token, _, err := newTestJWT().GenerateAccessToken(42)
	require.NoError(t, err)

	other := NewJWTManager("other-access", "other-refresh", time.Minute, time.Minute)
	_, err = other.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	t.Parallel()

	m := NewJWTManager("a", "r", -time.Minute, -time.Minute)
	token, _, err := m.GenerateAccessToken(42)
	require.NoError(t, err)

	_, err = m.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsMalformed(t *testing.T) {
	t.Parallel()

	m := newTestJWT()
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := m.ParseAccessToken(raw)
		assert.Error(t, err)
	}
}
