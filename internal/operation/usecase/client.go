package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	conditionDomain "github.com/allisson/sessionsig/internal/condition/domain"
	conditionService "github.com/allisson/sessionsig/internal/condition/service"
	"github.com/allisson/sessionsig/internal/errors"
	operationDomain "github.com/allisson/sessionsig/internal/operation/domain"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
)

// ClientConfig holds the client policy.
type ClientConfig struct {
	// EnvelopeLifetime bounds how long a signed envelope is accepted. It is
	// further capped by the session window.
	EnvelopeLifetime time.Duration
}

// Client performs remote operations on behalf of a session.
type Client struct {
	network Network
	wrapper KeyWrapper
	config  ClientConfig
	logger  *slog.Logger
	now     func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientClock replaces time.Now.
func WithClientClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a Client. wrapper wraps data keys at encryption time and
// must be the key the network unwraps with.
func NewClient(network Network, wrapper KeyWrapper, config ClientConfig, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		network: network,
		wrapper: wrapper,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExecuteCode runs the action req.ActionID.
func (c *Client) ExecuteCode(
	ctx context.Context,
	session *sessionDomain.Session,
	req *operationDomain.ExecuteCodeRequest,
) (*operationDomain.ExecuteCodeResponse, error) {
	if req == nil {
		return nil, errors.Field(errors.ErrInvalidInput, "request", "missing")
	}
	required, err := abilityFor(resourceDomain.CodeExecutionKind, req.ActionID, resourceDomain.CodeExecutionAbility)
	if err != nil {
		return nil, err
	}

	envelope, err := c.envelope(session, operationDomain.ExecuteCodeOperation, required, req)
	if err != nil {
		return nil, err
	}
	return c.network.ExecuteCode(ctx, envelope, req)
}

// PKPSign asks the network to sign a 32-byte digest with the key req.KeyID.
func (c *Client) PKPSign(
	ctx context.Context,
	session *sessionDomain.Session,
	req *operationDomain.PKPSignRequest,
) (*operationDomain.PKPSignResponse, error) {
	if req == nil {
		return nil, errors.Field(errors.ErrInvalidInput, "request", "missing")
	}
	if len(req.Digest) != 32 {
		return nil, errors.Field(errors.ErrInvalidInput, "digest", "must be 32 bytes")
	}
	required, err := abilityFor(resourceDomain.PKPSigningKind, req.KeyID, resourceDomain.PKPSigningAbility)
	if err != nil {
		return nil, err
	}

	envelope, err := c.envelope(session, operationDomain.PKPSignOperation, required, req)
	if err != nil {
		return nil, err
	}
	return c.network.SignWithPKP(ctx, envelope, req)
}

// Encrypt seals req.Plaintext under a fresh data key bound to the condition
// set and the content hash. No session is needed to encrypt.
func (c *Client) Encrypt(ctx context.Context, req *operationDomain.EncryptRequest) (*operationDomain.Ciphertext, error) {
	if req == nil {
		return nil, errors.Field(errors.ErrInvalidInput, "request", "missing")
	}

	canonical, err := conditionService.Canonicalize(req.Conditions)
	if err != nil {
		return nil, err
	}
	contentHash := conditionService.HashContent(req.Plaintext)
	resourceID, err := conditionService.BindToCiphertext(canonical, contentHash)
	if err != nil {
		return nil, err
	}

	dataKey, err := conditionService.GenerateDataKey()
	if err != nil {
		return nil, err
	}
	defer clear(dataKey)

	sealed, err := conditionService.Seal(dataKey, resourceID, req.Plaintext)
	if err != nil {
		return nil, err
	}
	wrapped, err := wrapDataKey(ctx, c.wrapper, resourceID, dataKey)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "content encrypted", slog.String("resource_id", resourceID))
	return &operationDomain.Ciphertext{
		ResourceID:  resourceID,
		Conditions:  canonical,
		ContentHash: contentHash,
		WrappedKey:  wrapped,
		Sealed:      sealed,
	}, nil
}

// Decrypt opens ciphertext for session. The condition set presented now must
// canonicalize to the one bound at encryption time; otherwise it fails with
// ErrConditionMismatch before any network call.
func (c *Client) Decrypt(
	ctx context.Context,
	session *sessionDomain.Session,
	conditions conditionDomain.Set,
	ciphertext *operationDomain.Ciphertext,
) ([]byte, error) {
	if ciphertext == nil {
		return nil, errors.Field(errors.ErrInvalidInput, "ciphertext", "missing")
	}

	canonical, err := conditionService.Canonicalize(conditions)
	if err != nil {
		return nil, err
	}
	resourceID, err := conditionService.BindToCiphertext(canonical, ciphertext.ContentHash)
	if err != nil {
		return nil, err
	}
	if resourceID != ciphertext.ResourceID || canonical != ciphertext.Conditions {
		return nil, conditionDomain.ErrConditionMismatch
	}

	required, err := abilityFor(
		resourceDomain.AccessControlConditionKind,
		resourceID,
		resourceDomain.ConditionDecryptionAbility,
	)
	if err != nil {
		return nil, err
	}

	keyRequest := &operationDomain.DecryptionKeyRequest{
		ResourceID: resourceID,
		Conditions: canonical,
		WrappedKey: ciphertext.WrappedKey,
	}
	envelope, err := c.envelope(session, operationDomain.DecryptOperation, required, keyRequest)
	if err != nil {
		return nil, err
	}

	response, err := c.network.DecryptionKey(ctx, envelope, keyRequest)
	if err != nil {
		return nil, err
	}
	defer clear(response.DataKey)

	plaintext, err := conditionService.Open(response.DataKey, resourceID, ciphertext.Sealed)
	if err != nil {
		return nil, errors.Wrap(operationDomain.ErrCiphertextInvalid, err.Error())
	}
	if conditionService.HashContent(plaintext) != ciphertext.ContentHash {
		return nil, errors.Wrap(operationDomain.ErrCiphertextInvalid, "content hash mismatch")
	}
	return plaintext, nil
}

// envelope signs a single request with the session key. An expired or
// destroyed session is rejected here and never renewed.
func (c *Client) envelope(
	session *sessionDomain.Session,
	operation operationDomain.Operation,
	required resourceDomain.AbilityRequest,
	payload any,
) (*operationDomain.Envelope, error) {
	if session == nil {
		return nil, errors.Field(errors.ErrInvalidInput, "session", "missing")
	}
	now := c.now().UTC()
	if err := session.Validate(now); err != nil {
		return nil, err
	}

	payloadHash, err := operationDomain.PayloadHash(payload)
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Wrap(operationDomain.ErrInvalidEnvelope, err.Error())
	}

	expiresAt := now.Add(c.config.EnvelopeLifetime)
	if notAfter := session.Statement().NotAfter; expiresAt.After(notAfter) {
		expiresAt = notAfter
	}

	envelope := &operationDomain.Envelope{
		ID:          id,
		Operation:   operation,
		Requests:    []resourceDomain.AbilityRequest{required},
		PayloadHash: payloadHash,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
		Signed:      session.Signed,
		SessionKey:  session.SessionKey(),
	}
	message, err := envelope.SigningBytes()
	if err != nil {
		return nil, err
	}
	envelope.Signature, err = session.Sign(message)
	if err != nil {
		return nil, err
	}
	return envelope, nil
}

func abilityFor(
	kind resourceDomain.Kind,
	identifier string,
	ability resourceDomain.Ability,
) (resourceDomain.AbilityRequest, error) {
	resource, err := resourceDomain.MakeResource(kind, identifier)
	if err != nil {
		return resourceDomain.AbilityRequest{}, err
	}
	return resourceDomain.NewAbilityRequest(resource, ability)
}
