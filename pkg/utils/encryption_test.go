package utils

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
}

func TestFieldCipher_RoundTrip(t *testing.T) {
	c, err := NewFieldCipher(testKey())
	require.NoError(t, err)

	enc, err := c.Encrypt("parent@example.ie")
	require.NoError(t, err)
	assert.NotEqual(t, "parent@example.ie", enc)

	again, err := c.Encrypt("parent@example.ie")
	require.NoError(t, err)
	assert.NotEqual(t, enc, again, "nonce is random per call")

	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "parent@example.ie", dec)
}

func TestFieldCipher_EmptyStaysEmpty(t *testing.T) {
	c, err := NewFieldCipher(testKey())
	require.NoError(t, err)

	enc, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, enc)

	dec, err := c.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, dec)
}

func TestFieldCipher_Errors(t *testing.T) {
	_, err := NewFieldCipher("")
	assert.ErrorIs(t, err, ErrNoEncryptionKey)

	_, err = NewFieldCipher("not base64!!")
	assert.ErrorIs(t, err, ErrInvalidKeyFormat)

	_, err = NewFieldCipher(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)

	c, err := NewFieldCipher(testKey())
	require.NoError(t, err)

	_, err = c.Decrypt(base64.StdEncoding.EncodeToString([]byte("abc")))
	assert.ErrorIs(t, err, ErrCiphertextShort)

	other, err := NewFieldCipher(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("z", 32))))
	require.NoError(t, err)
	enc, err := other.Encrypt("secret")
	require.NoError(t, err)
	_, err = c.Decrypt(enc)
	assert.Error(t, err, "wrong key must not decrypt")
}
