package service

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// DataKeySize is the size of a content data key.
const DataKeySize = 32

const contentKeyInfo = "lit-condition-content:v1:"

// GenerateDataKey returns a fresh random data key.
func GenerateDataKey() ([]byte, error) {
	key := make([]byte, DataKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}
	return key, nil
}

// contentAEAD derives the per-resource ChaCha20-Poly1305 key from dataKey.
func contentAEAD(dataKey []byte, resourceID string) (cipher.AEAD, error) {
	if len(dataKey) != DataKeySize {
		return nil, fmt.Errorf("data key must be %d bytes", DataKeySize)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	defer clear(key)
	reader := hkdf.New(sha256.New, dataKey, nil, []byte(contentKeyInfo+resourceID))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive content key: %w", err)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
	}
	return aead, nil
}

// Seal encrypts plaintext for resourceID and returns nonce || ciphertext. The
// resource identifier is authenticated, so the ciphertext cannot be relabeled
// under a different condition set.
func Seal(dataKey []byte, resourceID string, plaintext []byte) ([]byte, error) {
	aead, err := contentAEAD(dataKey, resourceID)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, []byte(resourceID)), nil
}

// Open reverses Seal.
func Open(dataKey []byte, resourceID string, sealed []byte) ([]byte, error) {
	aead, err := contentAEAD(dataKey, resourceID)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed content too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(resourceID))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}
