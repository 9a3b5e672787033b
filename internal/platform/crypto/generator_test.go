package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureRandomString(t *testing.T) {
	a, err := GenerateSecureRandomString(32)
	require.NoError(t, err)
	b, err := GenerateSecureRandomString(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=")
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}
