// Package vault seals camera credentials with authenticated symmetric
// encryption. Ciphertexts are self-contained strings carrying the random
// nonce and the authentication tag, so a sealed value can be stored and
// opened later with nothing but the key.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// KeySize is the required key length in bytes (AES-256).
const KeySize = 32

var (
	// ErrInvalidKey is returned when the key is not exactly KeySize bytes
	ErrInvalidKey = errors.New("vault: key must be exactly 32 bytes")
	// ErrInvalidCiphertext is returned when a ciphertext is malformed
	ErrInvalidCiphertext = errors.New("vault: malformed ciphertext")
	// ErrAuthentication is returned when a ciphertext fails authentication,
	// typically because it was tampered with or sealed under another key
	ErrAuthentication = errors.New("vault: ciphertext authentication failed")
)

// Vault seals and opens secrets with AES-256-GCM.
type Vault struct {
	aead cipher.AEAD
}

// New creates a Vault from a raw 32-byte key.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Seal encrypts plaintext and returns a self-contained base64 string.
// A fresh random nonce is drawn for every call.
func (v *Vault) Seal(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a string produced by Seal. Tampered or foreign
// ciphertexts fail with ErrAuthentication; strings too short or not
// base64 fail with ErrInvalidCiphertext.
func (v *Vault) Open(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	if len(raw) < v.aead.NonceSize()+v.aead.Overhead() {
		return "", ErrInvalidCiphertext
	}

	nonce, sealed := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrAuthentication
	}

	return string(plaintext), nil
}
