package app

import (
	"context"
	"fmt"

	operationUseCase "github.com/allisson/sessionsig/internal/operation/usecase"
)

// KeyWrapper returns the KMS keeper that wraps condition data keys.
// KMS_KEY_URI must be set.
func (c *Container) KeyWrapper() (operationUseCase.KeyWrapper, error) {
	var err error
	c.keyWrapperInit.Do(func() {
		c.keyWrapper, err = c.initKeyWrapper()
		if err != nil {
			c.initErrors["keyWrapper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyWrapper"]; exists {
		return nil, storedErr
	}
	return c.keyWrapper, nil
}

// Network returns the in-process reference network.
func (c *Container) Network() (*operationUseCase.LocalNetwork, error) {
	var err error
	c.networkInit.Do(func() {
		c.network, err = c.initNetwork()
		if err != nil {
			c.initErrors["network"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["network"]; exists {
		return nil, storedErr
	}
	return c.network, nil
}

// OperationsClient returns the client that performs operations on behalf of
// a session against the reference network.
func (c *Container) OperationsClient() (*operationUseCase.Client, error) {
	var err error
	c.clientInit.Do(func() {
		c.client, err = c.initOperationsClient()
		if err != nil {
			c.initErrors["client"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["client"]; exists {
		return nil, storedErr
	}
	return c.client, nil
}

func (c *Container) initKeyWrapper() (operationUseCase.KeyWrapper, error) {
	if c.config.KMSKeyURI == "" {
		return nil, fmt.Errorf("KMS_KEY_URI is not configured")
	}
	wrapper, err := operationUseCase.OpenKeyWrapper(context.Background(), c.config.KMSKeyURI)
	if err != nil {
		return nil, err
	}
	return wrapper, nil
}

func (c *Container) initNetwork() (*operationUseCase.LocalNetwork, error) {
	verifier, err := c.Verifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get verifier for network: %w", err)
	}

	wrapper, err := c.KeyWrapper()
	if err != nil {
		return nil, fmt.Errorf("failed to get key wrapper for network: %w", err)
	}

	return operationUseCase.NewLocalNetwork(verifier, wrapper, c.Logger()), nil
}

func (c *Container) initOperationsClient() (*operationUseCase.Client, error) {
	network, err := c.Network()
	if err != nil {
		return nil, fmt.Errorf("failed to get network for operations client: %w", err)
	}

	wrapper, err := c.KeyWrapper()
	if err != nil {
		return nil, fmt.Errorf("failed to get key wrapper for operations client: %w", err)
	}

	return operationUseCase.NewClient(
		network,
		wrapper,
		operationUseCase.ClientConfig{EnvelopeLifetime: c.config.EnvelopeLifetime},
		c.Logger(),
	), nil
}
