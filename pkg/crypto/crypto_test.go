package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2-but-longer")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2-but-longer", hash)

	require.True(t, VerifyPassword(hash, "hunter2-but-longer"))
	require.False(t, VerifyPassword(hash, "wrong"))
}

func TestGenerateTokenLength(t *testing.T) {
	token, err := GenerateToken(32)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	other, err := GenerateToken(32)
	require.NoError(t, err)
	require.NotEqual(t, token, other)
}
