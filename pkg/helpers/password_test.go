package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CompareHashAndPassword(hash, "correct horse battery staple"))
	assert.False(t, CompareHashAndPassword(hash, "correct horse battery stapl"))
	assert.False(t, CompareHashAndPassword(hash, ""))
}

func TestHashPassword_Salted(t *testing.T) {
	t.Parallel()

	h1, err := HashPassword("samepassword")
	require.NoError(t, err)
	h2, err := HashPassword("samepassword")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2, "bcrypt salts must differ per hash")
}

func TestCompareHashAndPassword_GarbageHash(t *testing.T) {
	t.Parallel()

	assert.False(t, CompareHashAndPassword("not-a-bcrypt-hash", "password"))
}
