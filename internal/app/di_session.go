package app

import (
	"fmt"

	capabilityService "github.com/allisson/sessionsig/internal/capability/service"
	conditionHTTP "github.com/allisson/sessionsig/internal/condition/http"
	"github.com/allisson/sessionsig/internal/freshness"
	sessionUseCase "github.com/allisson/sessionsig/internal/session/usecase"
	signerService "github.com/allisson/sessionsig/internal/signer/service"
	verificationHTTP "github.com/allisson/sessionsig/internal/verification/http"
	verificationService "github.com/allisson/sessionsig/internal/verification/service"
)

// Builder returns the capability statement builder.
func (c *Container) Builder() (*capabilityService.Builder, error) {
	var err error
	c.builderInit.Do(func() {
		c.builder, err = c.initBuilder()
		if err != nil {
			c.initErrors["builder"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["builder"]; exists {
		return nil, storedErr
	}
	return c.builder, nil
}

// Verifier returns the credential verifier, decorated with metrics.
func (c *Container) Verifier() (verificationService.Verifier, error) {
	var err error
	c.verifierInit.Do(func() {
		c.verifier, err = c.initVerifier()
		if err != nil {
			c.initErrors["verifier"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["verifier"]; exists {
		return nil, storedErr
	}
	return c.verifier, nil
}

// QuotaLedger returns the delegation quota ledger used by the verifier, or
// nil when quota enforcement is disabled.
func (c *Container) QuotaLedger() *verificationService.QuotaLedger {
	if _, err := c.Verifier(); err != nil {
		return nil
	}
	return c.quotaLedger
}

// NonceSource returns the freshness source sessions draw their nonce from.
// It is backed by an in-process checkpoint source.
func (c *Container) NonceSource() (*freshness.CachedSource, error) {
	var err error
	c.nonceSourceInit.Do(func() {
		c.nonceSource, err = c.initNonceSource()
		if err != nil {
			c.initErrors["nonceSource"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["nonceSource"]; exists {
		return nil, storedErr
	}
	return c.nonceSource, nil
}

// SessionAuthority returns an authority signing with signer. Unlike the
// other components it is built on every call, since the root signer is
// chosen by the caller.
func (c *Container) SessionAuthority(signer signerService.Signer) (sessionUseCase.Authority, error) {
	builder, err := c.Builder()
	if err != nil {
		return nil, fmt.Errorf("failed to get builder for session authority: %w", err)
	}

	nonces, err := c.NonceSource()
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce source for session authority: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for session authority: %w", err)
	}

	authority := sessionUseCase.NewAuthority(
		builder,
		signer,
		nonces,
		sessionUseCase.Config{
			DefaultLifetime: c.config.SessionDefaultLifetime,
			RefreshMargin:   c.config.SessionRefreshMargin,
			MaxRetries:      c.config.SigningMaxRetries,
			RetryBackoff:    c.config.SigningRetryBackoff,
		},
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		return sessionUseCase.NewAuthorityWithMetrics(authority, businessMetrics), nil
	}
	return authority, nil
}

// VerificationHandler returns the verification HTTP handler.
func (c *Container) VerificationHandler() (*verificationHTTP.VerificationHandler, error) {
	var err error
	c.verificationHandlerInit.Do(func() {
		c.verificationHandler, err = c.initVerificationHandler()
		if err != nil {
			c.initErrors["verificationHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["verificationHandler"]; exists {
		return nil, storedErr
	}
	return c.verificationHandler, nil
}

// ConditionHandler returns the access condition HTTP handler.
func (c *Container) ConditionHandler() *conditionHTTP.ConditionHandler {
	c.conditionHandlerInit.Do(func() {
		c.conditionHandler = conditionHTTP.NewConditionHandler(c.Logger())
	})
	return c.conditionHandler
}

func (c *Container) initBuilder() (*capabilityService.Builder, error) {
	builder, err := capabilityService.NewBuilder(capabilityService.BuilderConfig{
		Domain:      c.config.SessionDomain,
		ChainID:     c.config.SessionChainID,
		MaxLifetime: c.config.SessionMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create capability builder: %w", err)
	}
	return builder, nil
}

func (c *Container) initVerifier() (verificationService.Verifier, error) {
	opts := []verificationService.Option{
		verificationService.WithDomain(c.config.SessionDomain),
	}
	if issuers := c.config.TrustedIssuerList(); len(issuers) > 0 {
		opts = append(opts, verificationService.WithTrustedIssuers(issuers...))
	}
	if c.config.QuotaEnforcementEnabled {
		c.quotaLedger = verificationService.NewQuotaLedger()
		opts = append(opts, verificationService.WithQuotaLedger(c.quotaLedger))
	}

	verifier := verificationService.NewVerifier(c.Logger(), opts...)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for verifier: %w", err)
		}
		return verificationService.NewVerifierWithMetrics(verifier, businessMetrics), nil
	}
	return verifier, nil
}

func (c *Container) initNonceSource() (*freshness.CachedSource, error) {
	return freshness.NewCachedSource(freshness.NewLocalSource(), c.Logger()), nil
}

func (c *Container) initVerificationHandler() (*verificationHTTP.VerificationHandler, error) {
	verifier, err := c.Verifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get verifier for verification handler: %w", err)
	}
	return verificationHTTP.NewVerificationHandler(verifier, c.Logger()), nil
}
