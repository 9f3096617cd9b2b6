package auth

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexSig = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestSign(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	params := []byte(`{"name":"nginx"}`)

	t.Run("lowercase hex of 32-byte digest", func(t *testing.T) {
		sig, err := Sign(secret, "service.restart", params, 1700000000, "nonce-1")
		require.NoError(t, err)
		assert.Regexp(t, hexSig, sig)
	})

	t.Run("pure function of its inputs", func(t *testing.T) {
		first, err := Sign(secret, "service.restart", params, 1700000000, "nonce-1")
		require.NoError(t, err)
		second, err := Sign(secret, "service.restart", params, 1700000000, "nonce-1")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("sensitive to every field", func(t *testing.T) {
		base, err := Sign(secret, "service.restart", params, 1700000000, "nonce-1")
		require.NoError(t, err)

		changedCommand, _ := Sign(secret, "service.reload", params, 1700000000, "nonce-1")
		changedParams, _ := Sign(secret, "service.restart", []byte(`{"name": "nginx"}`), 1700000000, "nonce-1")
		changedTime, _ := Sign(secret, "service.restart", params, 1700000001, "nonce-1")
		changedNonce, _ := Sign(secret, "service.restart", params, 1700000000, "nonce-2")
		changedSecret, _ := Sign([]byte("another-secret-another-secret-00"), "service.restart", params, 1700000000, "nonce-1")

		assert.NotEqual(t, base, changedCommand)
		assert.NotEqual(t, base, changedParams, "whitespace in params must change the signature")
		assert.NotEqual(t, base, changedTime)
		assert.NotEqual(t, base, changedNonce)
		assert.NotEqual(t, base, changedSecret)
	})

	t.Run("empty secret fails closed", func(t *testing.T) {
		sig, err := Sign(nil, "system.ping", []byte(`{}`), 1700000000, "nonce-1")
		assert.Empty(t, sig)
		assert.ErrorIs(t, err, ErrNoSecret)
	})
}

func TestVerify(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	params := []byte(`{}`)

	sig, err := Sign(secret, "system.ping", params, 1700000000, "nonce-1")
	require.NoError(t, err)

	assert.True(t, Verify(secret, "system.ping", params, 1700000000, "nonce-1", sig))
	assert.False(t, Verify(secret, "system.ping", params, 1700000000, "nonce-2", sig))
	assert.False(t, Verify(secret, "system.ping", params, 1700000000, "nonce-1", "not-a-signature"))
	assert.False(t, Verify(nil, "system.ping", params, 1700000000, "nonce-1", sig))
}
