package domain

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
)

// Keypair is an ephemeral Ed25519 session key. It is exclusively owned by one
// session; Destroy zeroes the private half and it is never reused.
type Keypair struct {
	mu         sync.RWMutex
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
	destroyed  bool
}

// GenerateKeypair creates a fresh session key.
func GenerateKeypair() (*Keypair, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	return &Keypair{publicKey: publicKey, privateKey: privateKey}, nil
}

// KeypairFromSeed rebuilds a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("session key seed must be %d bytes", ed25519.SeedSize)
	}
	privateKey := ed25519.NewKeyFromSeed(seed)
	return &Keypair{
		publicKey:  privateKey.Public().(ed25519.PublicKey),
		privateKey: privateKey,
	}, nil
}

// PublicKey returns the public half.
func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.publicKey
}

// PublicKeyHex returns the hex encoded public half, the delegate key of a statement.
func (k *Keypair) PublicKeyHex() string {
	return hex.EncodeToString(k.publicKey)
}

// Sign signs message with the session key.
func (k *Keypair) Sign(message []byte) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.destroyed {
		return nil, ErrSessionDestroyed
	}
	return ed25519.Sign(k.privateKey, message), nil
}

// Destroy zeroes the private key. It is safe to call more than once.
func (k *Keypair) Destroy() {
	k.mu.Lock()
	defer k.mu.Unlock()

	clear(k.privateKey)
	k.destroyed = true
}

// Destroyed reports whether Destroy was called.
func (k *Keypair) Destroyed() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.destroyed
}
