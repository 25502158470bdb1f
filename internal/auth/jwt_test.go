package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return &Manager{
		Secret:     []byte("test-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Issuer:     "sharpcut-backend",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager()

	token, err := m.NewAccessToken("owner", "admin")
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "owner", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "sharpcut-backend", claims.Issuer)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m := testManager()
	token, err := m.NewAccessToken("owner", "admin")
	require.NoError(t, err)

	other := testManager()
	other.Secret = []byte("different-secret")
	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := testManager()
	m.AccessTTL = -1 * time.Minute

	token, err := m.NewAccessToken("owner", "admin")
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.Error(t, err)
}

func TestHashPasswordRejectsShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)
}

func TestPasswordHashCompare(t *testing.T) {
	hash, err := HashPassword("long-enough-password")
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hash, "long-enough-password"))
	assert.Error(t, ComparePassword(hash, "wrong-password"))
}
