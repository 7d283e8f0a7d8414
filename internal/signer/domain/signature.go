// Package domain defines signature values and the closed set of signer kinds.
package domain

// Algorithm identifies how a signature was produced and how it must be verified.
type Algorithm string

const (
	// EthPersonalSign is an EIP-191 personal_sign signature by a secp256k1 key.
	// The subject of such a signature is the checksummed Ethereum address.
	EthPersonalSign Algorithm = "eth-personal-sign"

	// Ed25519 is a plain Ed25519 signature. The subject is "ed25519:<hex public key>".
	Ed25519 Algorithm = "ed25519"
)

// Ed25519SubjectPrefix prefixes the hex public key of Ed25519 subjects.
const Ed25519SubjectPrefix = "ed25519:"

// Kind is the closed set of signer variants.
type Kind string

const (
	// LocalKeyKind signs with an in-process secp256k1 key.
	LocalKeyKind Kind = "local-key"

	// ExternalWalletKind delegates signing to a wallet over a blocking round trip.
	ExternalWalletKind Kind = "external-wallet"

	// HardwareKind delegates signing to a hardware device holding an Ed25519 key.
	HardwareKind Kind = "hardware"
)

// Signature is a detached signature over a canonical byte string.
type Signature struct {
	Algorithm Algorithm `json:"algorithm"`
	Value     []byte    `json:"value"`
	Signer    string    `json:"signer"`
}

// IsZero reports whether the signature carries no value.
func (s Signature) IsZero() bool {
	return s.Algorithm == "" && len(s.Value) == 0 && s.Signer == ""
}
