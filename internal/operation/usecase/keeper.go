package usecase

import (
	"context"
	"fmt"

	"gocloud.dev/secrets"

	"github.com/allisson/sessionsig/internal/codec"
	conditionDomain "github.com/allisson/sessionsig/internal/condition/domain"
	"github.com/allisson/sessionsig/internal/errors"
	operationDomain "github.com/allisson/sessionsig/internal/operation/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// OpenKeyWrapper opens a secrets.Keeper for keyURI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func OpenKeyWrapper(ctx context.Context, keyURI string) (KeyWrapper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// boundKey is the plaintext a data key is wrapped as. Binding the resource
// identifier prevents a wrapped key from being released for another resource.
type boundKey struct {
	_          struct{} `cbor:",toarray"`
	ResourceID string
	DataKey    []byte
}

func wrapDataKey(ctx context.Context, wrapper KeyWrapper, resourceID string, dataKey []byte) ([]byte, error) {
	plaintext, err := codec.Marshal(boundKey{ResourceID: resourceID, DataKey: dataKey})
	if err != nil {
		return nil, err
	}
	defer clear(plaintext)

	wrapped, err := wrapper.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap data key: %w", err)
	}
	return wrapped, nil
}

func unwrapDataKey(ctx context.Context, wrapper KeyWrapper, resourceID string, wrapped []byte) ([]byte, error) {
	plaintext, err := wrapper.Decrypt(ctx, wrapped)
	if err != nil {
		return nil, errors.Wrap(operationDomain.ErrCiphertextInvalid, err.Error())
	}
	defer clear(plaintext)

	var bound boundKey
	if err := codec.Unmarshal(plaintext, &bound); err != nil {
		return nil, errors.Wrap(operationDomain.ErrCiphertextInvalid, err.Error())
	}
	if bound.ResourceID != resourceID {
		clear(bound.DataKey)
		return nil, errors.Wrap(conditionDomain.ErrConditionMismatch, "wrapped key belongs to another resource")
	}
	return bound.DataKey, nil
}
