package config

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// EncryptedPrefix marks a config value that must be decrypted before use.
const EncryptedPrefix = "enc:"

// ErrMissingSecret is returned when an enc: value is found but no secret
// is available.
var ErrMissingSecret = errors.New("encrypted value requires " + SecretEnv)

// IsEncrypted reports whether value carries the enc: prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}

func deriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// Encrypt seals plaintext with XChaCha20-Poly1305 under a key derived from
// secret and returns an enc: value.
func Encrypt(plaintext, secret string) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	aead, err := chacha20poly1305.NewX(deriveKey(secret))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an enc: value. Values without the prefix are returned
// unchanged.
func Decrypt(value, secret string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	if secret == "" {
		return "", ErrMissingSecret
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted value: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(secret))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", errors.New("encrypted value is too short")
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt value: %w", err)
	}
	return string(plain), nil
}
