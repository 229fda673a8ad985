package hasher

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashKey(t *testing.T) {
	hash, err := HashKey([]byte("s3cret"))
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, KeyMatches("s3cret", hash))
	assert.False(t, KeyMatches("S3cret", hash))
	assert.False(t, KeyMatches("s3cret", "not-a-hash"))
}

func TestGenerateKey(t *testing.T) {
	a, err := GenerateKey(32)
	require.NoError(t, err)
	b, err := GenerateKey(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	raw, err := base64.URLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}
