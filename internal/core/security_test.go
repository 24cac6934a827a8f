// AngelaMos | 2026
// security_test.go

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	ok, err := VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordTimingSafeNilHash(t *testing.T) {
	ok, err := VerifyPasswordTimingSafe("anything", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerateOTPFormat(t *testing.T) {
	seen := make(map[string]bool)

	for range 50 {
		otp, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, otp, 6)
		for _, r := range otp {
			assert.True(t, r >= '0' && r <= '9')
		}
		seen[otp] = true
	}

	// 50 draws from a million values collapsing to one would mean a
	// broken generator.
	assert.Greater(t, len(seen), 1)
}

func TestCompareOTP(t *testing.T) {
	assert.True(t, CompareOTP("042137", "042137"))
	assert.False(t, CompareOTP("042137", "042138"))
	assert.False(t, CompareOTP("42137", "042137"))
}

func TestHashTokenDeterministic(t *testing.T) {
	token, err := GenerateRefreshToken()
	require.NoError(t, err)

	assert.Equal(t, HashToken(token), HashToken(token))
	assert.True(t, CompareTokenHash(token, HashToken(token)))
	assert.False(t, CompareTokenHash("forged", HashToken(token)))

	other, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, HashToken(token), HashToken(other))
}
