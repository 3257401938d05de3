package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const hkdfInfo = "agentpilot/credentials/v1"

var (
	ErrInvalidKey        = errors.New("vault: key must be 32 bytes hex encoded")
	ErrMalformedCipher   = errors.New("vault: malformed ciphertext")
	ErrDecryptionFailure = errors.New("vault: decryption failed")
)

// Vault seals user supplied API keys with XChaCha20-Poly1305
type Vault struct {
	key []byte
}

// New accepts a 64-char hex key
func New(hexKey string) (*Vault, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	return &Vault{key: key}, nil
}

// FromSecret derives the key from another secret when no dedicated key is configured
func FromSecret(secret string) (*Vault, error) {
	if secret == "" {
		return nil, ErrInvalidKey
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}
	return &Vault{key: key}, nil
}

// Seal returns base64(nonce || ciphertext); aad binds the ciphertext to its owner
func (v *Vault) Seal(plaintext, aad string) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(aad))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open fails when the ciphertext was sealed for another aad
func (v *Vault) Open(encoded, aad string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrMalformedCipher
	}

	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", err
	}
	if len(data) < aead.NonceSize()+aead.Overhead() {
		return "", ErrMalformedCipher
	}

	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(aad))
	if err != nil {
		return "", ErrDecryptionFailure
	}
	return string(plaintext), nil
}

// Hint last four characters, the only part ever rendered
func Hint(apiKey string) string {
	apiKey = strings.TrimSpace(apiKey)
	if len(apiKey) <= 4 {
		return strings.Repeat("•", len(apiKey))
	}
	return apiKey[len(apiKey)-4:]
}
