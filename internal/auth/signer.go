package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrNoSecret is returned when signing is attempted without a loaded secret.
// Every request must carry a valid signature, so an absent secret fails
// closed rather than sending anything unsigned.
var ErrNoSecret = errors.New("auth: signing secret is empty")

// Sign computes the lowercase hex HMAC-SHA256 signature for one request.
// The signing message is "command:params:timestamp:nonce" where params is the
// canonical JSON byte encoding. Callers must pass the exact bytes that will
// be transmitted; any re-serialization in between produces a signature the
// daemon rejects.
func Sign(secret []byte, command string, canonicalParams []byte, timestamp int64, nonce string) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSecret
	}

	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%s:%s:%d:%s", command, canonicalParams, timestamp, nonce)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature and compares it in constant time. This is
// the daemon's side of the contract, kept here so tests and local harnesses
// can check both directions against the same message construction.
func Verify(secret []byte, command string, canonicalParams []byte, timestamp int64, nonce, signature string) bool {
	expected, err := Sign(secret, command, canonicalParams, timestamp, nonce)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}
