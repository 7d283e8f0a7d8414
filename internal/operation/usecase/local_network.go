package usecase

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	conditionDomain "github.com/allisson/sessionsig/internal/condition/domain"
	conditionService "github.com/allisson/sessionsig/internal/condition/service"
	"github.com/allisson/sessionsig/internal/errors"
	"github.com/allisson/sessionsig/internal/freshness"
	operationDomain "github.com/allisson/sessionsig/internal/operation/domain"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	verificationDomain "github.com/allisson/sessionsig/internal/verification/domain"
	verificationService "github.com/allisson/sessionsig/internal/verification/service"
)

// Action is code registered with the network. subject is the verified root
// subject of the calling session.
type Action func(ctx context.Context, subject string, params json.RawMessage) (json.RawMessage, error)

// LocalNetwork is an in-process network node. It verifies every envelope
// with the same verifier a remote node would run, holds secp256k1 keys for
// PKP signing, unwraps data keys with its KeyWrapper and mints freshness
// checkpoints.
type LocalNetwork struct {
	verifier    verificationService.Verifier
	wrapper     KeyWrapper
	checkpoints *freshness.LocalSource
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.RWMutex
	actions map[string]Action
	keys    map[string]*ecdsa.PrivateKey
}

// LocalNetworkOption configures a LocalNetwork.
type LocalNetworkOption func(*LocalNetwork)

// WithNetworkClock replaces time.Now.
func WithNetworkClock(now func() time.Time) LocalNetworkOption {
	return func(n *LocalNetwork) {
		n.now = now
	}
}

// NewLocalNetwork creates a LocalNetwork.
func NewLocalNetwork(
	verifier verificationService.Verifier,
	wrapper KeyWrapper,
	logger *slog.Logger,
	opts ...LocalNetworkOption,
) *LocalNetwork {
	n := &LocalNetwork{
		verifier:    verifier,
		wrapper:     wrapper,
		checkpoints: freshness.NewLocalSource(),
		logger:      logger,
		now:         time.Now,
		actions:     make(map[string]Action),
		keys:        make(map[string]*ecdsa.PrivateKey),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// RegisterAction stores action under id.
func (n *LocalNetwork) RegisterAction(id string, action Action) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actions[id] = action
}

// GenerateKey creates a network held signing key and returns its identifier,
// the 0x-prefixed hex uncompressed public key.
func (n *LocalNetwork) GenerateKey() (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", errors.Wrap(errors.ErrUnavailable, err.Error())
	}
	return n.ImportKey(key), nil
}

// ImportKey stores key and returns its identifier.
func (n *LocalNetwork) ImportKey(key *ecdsa.PrivateKey) string {
	id := "0x" + hex.EncodeToString(crypto.FromECDSAPub(&key.PublicKey))

	n.mu.Lock()
	defer n.mu.Unlock()
	n.keys[id] = key
	return id
}

// LatestCheckpoint implements freshness.Source.
func (n *LocalNetwork) LatestCheckpoint(ctx context.Context) (freshness.Checkpoint, error) {
	return n.checkpoints.LatestCheckpoint(ctx)
}

// ExecuteCode implements Network.
func (n *LocalNetwork) ExecuteCode(
	ctx context.Context,
	envelope *operationDomain.Envelope,
	req *operationDomain.ExecuteCodeRequest,
) (*operationDomain.ExecuteCodeResponse, error) {
	if req == nil {
		return nil, errors.Field(errors.ErrInvalidInput, "request", "missing")
	}
	result, err := n.accept(ctx, envelope, operationDomain.ExecuteCodeOperation, req,
		resourceDomain.CodeExecutionKind, req.ActionID, resourceDomain.CodeExecutionAbility)
	if err != nil {
		return nil, err
	}

	n.mu.RLock()
	action, ok := n.actions[req.ActionID]
	n.mu.RUnlock()
	if !ok {
		return nil, errors.Field(operationDomain.ErrActionNotFound, "action_id", req.ActionID)
	}

	response, err := action(ctx, result.Subject, req.Params)
	if err != nil {
		return nil, err
	}
	return &operationDomain.ExecuteCodeResponse{Response: response}, nil
}

// SignWithPKP implements Network.
func (n *LocalNetwork) SignWithPKP(
	ctx context.Context,
	envelope *operationDomain.Envelope,
	req *operationDomain.PKPSignRequest,
) (*operationDomain.PKPSignResponse, error) {
	if req == nil {
		return nil, errors.Field(errors.ErrInvalidInput, "request", "missing")
	}
	if len(req.Digest) != 32 {
		return nil, errors.Field(errors.ErrInvalidInput, "digest", "must be 32 bytes")
	}
	if _, err := n.accept(ctx, envelope, operationDomain.PKPSignOperation, req,
		resourceDomain.PKPSigningKind, req.KeyID, resourceDomain.PKPSigningAbility); err != nil {
		return nil, err
	}

	n.mu.RLock()
	key, ok := n.keys[req.KeyID]
	n.mu.RUnlock()
	if !ok {
		return nil, errors.Field(operationDomain.ErrKeyNotFound, "key_id", req.KeyID)
	}

	signature, err := crypto.Sign(req.Digest, key)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnavailable, err.Error())
	}
	return &operationDomain.PKPSignResponse{
		Signature: signature,
		PublicKey: crypto.FromECDSAPub(&key.PublicKey),
	}, nil
}

// DecryptionKey implements Network. The condition set is re-canonicalized
// and rebound on this side, then evaluated against the verified subject.
func (n *LocalNetwork) DecryptionKey(
	ctx context.Context,
	envelope *operationDomain.Envelope,
	req *operationDomain.DecryptionKeyRequest,
) (*operationDomain.DecryptionKeyResponse, error) {
	if req == nil {
		return nil, errors.Field(errors.ErrInvalidInput, "request", "missing")
	}
	result, err := n.accept(ctx, envelope, operationDomain.DecryptOperation, req,
		resourceDomain.AccessControlConditionKind, req.ResourceID, resourceDomain.ConditionDecryptionAbility)
	if err != nil {
		return nil, err
	}

	set, err := conditionService.ParseConditions([]byte(req.Conditions))
	if err != nil {
		return nil, err
	}
	canonical, err := conditionService.Canonicalize(set)
	if err != nil {
		return nil, err
	}
	resourceID, err := rebind(canonical, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if resourceID != req.ResourceID {
		return nil, conditionDomain.ErrConditionMismatch
	}

	satisfied, err := conditionService.Evaluate(set, conditionService.Environment{UserAddress: result.Subject})
	if err != nil {
		return nil, err
	}
	if !satisfied {
		n.logger.InfoContext(ctx, "access conditions not satisfied",
			slog.String("resource_id", req.ResourceID),
			slog.String("subject", result.Subject),
		)
		return nil, conditionDomain.ErrConditionNotSatisfied
	}

	dataKey, err := unwrapDataKey(ctx, n.wrapper, req.ResourceID, req.WrappedKey)
	if err != nil {
		return nil, err
	}
	return &operationDomain.DecryptionKeyResponse{DataKey: dataKey}, nil
}

// accept verifies that envelope authorizes operation on the target named by
// kind and identifier and that its payload hash matches payload.
func (n *LocalNetwork) accept(
	ctx context.Context,
	envelope *operationDomain.Envelope,
	operation operationDomain.Operation,
	payload any,
	kind resourceDomain.Kind,
	identifier string,
	ability resourceDomain.Ability,
) (*verificationDomain.Result, error) {
	if envelope == nil {
		return nil, operationDomain.ErrInvalidEnvelope
	}
	if envelope.Operation != operation {
		return nil, errors.Field(operationDomain.ErrInvalidEnvelope, "operation", string(envelope.Operation))
	}

	hash, err := operationDomain.PayloadHash(payload)
	if err != nil {
		return nil, err
	}
	if hash != envelope.PayloadHash {
		return nil, operationDomain.ErrPayloadMismatch
	}

	required, err := abilityFor(kind, identifier, ability)
	if err != nil {
		return nil, err
	}
	if !resourceDomain.CoveredBy(required, envelope.Requests) {
		return nil, errors.Field(verificationDomain.ErrAbilityNotCovered, "ability", required.String())
	}

	result, err := n.verifier.VerifyEnvelope(ctx, envelope, n.now().UTC())
	if err != nil {
		n.logger.InfoContext(ctx, "envelope rejected",
			slog.String("operation", string(operation)),
			slog.Any("error", err),
		)
		return nil, err
	}
	return result, nil
}

// rebind recomputes the resource identifier from canonical and the content
// hash half of resourceID.
func rebind(canonical, resourceID string) (string, error) {
	const hexLen = 64
	if len(resourceID) != 2*hexLen+1 || resourceID[hexLen] != '/' {
		return "", errors.Field(conditionDomain.ErrInvalidCondition, "resource_id", "malformed")
	}
	return conditionService.BindToCiphertext(canonical, resourceID[hexLen+1:])
}
