package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecretSize is the raw byte length of the shared signing secret.
const SecretSize = 32

// LoadOrCreateSecret returns the shared secret stored at path, creating it on
// first run. The secret is persisted base64-encoded with mode 0600 and reused
// unchanged on every subsequent run: regenerating it would desynchronize the
// key the daemon verifies against.
func LoadOrCreateSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return decodeSecret(path, data)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read secret %s: %w", path, err)
	}

	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	if err := writeSecret(path, secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// LoadSecret returns the secret at path, failing if it does not exist.
func LoadSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secret %s: %w", path, err)
	}
	return decodeSecret(path, data)
}

// SecretFingerprint returns a short hex digest of the secret, safe to log or
// display. Returns "" for an empty secret.
func SecretFingerprint(secret []byte) string {
	if len(secret) == 0 {
		return ""
	}
	sum := sha256.Sum256(secret)
	return hex.EncodeToString(sum[:4])
}

func decodeSecret(path string, data []byte) ([]byte, error) {
	encoded := strings.TrimSpace(string(data))
	secret, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("secret %s is not valid base64: %w", path, err)
	}
	if len(secret) != SecretSize {
		return nil, fmt.Errorf("secret %s has %d bytes, want %d", path, len(secret), SecretSize)
	}
	return secret, nil
}

// writeSecret persists the secret with an atomic rename so a crash mid-write
// never leaves a half-written key behind.
func writeSecret(path string, secret []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create secret dir: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(secret)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(encoded), 0600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename secret into place: %w", err)
	}
	return nil
}
