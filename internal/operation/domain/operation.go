package domain

import (
	"encoding/json"

	conditionDomain "github.com/allisson/sessionsig/internal/condition/domain"
)

// ExecuteCodeRequest asks the network to run the code registered under ActionID.
type ExecuteCodeRequest struct {
	ActionID string          `json:"action_id"`
	Params   json.RawMessage `json:"params,omitempty"`
}

// ExecuteCodeResponse is the output of an executed action.
type ExecuteCodeResponse struct {
	Response json.RawMessage `json:"response"`
	Logs     []string        `json:"logs,omitempty"`
}

// PKPSignRequest asks the network to sign Digest with the key stored under KeyID.
type PKPSignRequest struct {
	KeyID  string `json:"key_id"`
	Digest []byte `json:"digest"`
}

// PKPSignResponse carries a 65-byte recoverable secp256k1 signature.
type PKPSignResponse struct {
	Signature []byte `json:"signature"`
	PublicKey []byte `json:"public_key"`
}

// Ciphertext is content encrypted under a data key that only the network can
// release, and only to sessions satisfying Conditions.
type Ciphertext struct {
	// ResourceID binds the canonical conditions to the content hash.
	ResourceID string `json:"resource_id"`
	// Conditions is the canonical condition string.
	Conditions string `json:"conditions"`
	// ContentHash is the hex SHA-256 of the plaintext.
	ContentHash string `json:"content_hash"`
	// WrappedKey is the data key wrapped by the network key.
	WrappedKey []byte `json:"wrapped_key"`
	// Sealed is nonce || AEAD ciphertext.
	Sealed []byte `json:"sealed"`
}

// EncryptRequest describes content to encrypt under a condition set.
type EncryptRequest struct {
	Conditions conditionDomain.Set
	Plaintext  []byte
}

// DecryptionKeyRequest asks the network to unwrap the data key of a ciphertext.
type DecryptionKeyRequest struct {
	ResourceID string `json:"resource_id"`
	Conditions string `json:"conditions"`
	WrappedKey []byte `json:"wrapped_key"`
}

// DecryptionKeyResponse carries the unwrapped data key.
type DecryptionKeyResponse struct {
	DataKey []byte `json:"data_key"`
}
