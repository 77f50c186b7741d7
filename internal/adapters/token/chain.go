package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/tale-cli/internal/domain"
	"github.com/bnema/tale-cli/internal/ports"
)

// Chain tries each provider in order and returns the first token found.
// Only an authentication miss falls through; other errors stop the chain.
type Chain struct {
	providers []ports.TokenProvider
}

var _ ports.TokenProvider = (*Chain)(nil)

func NewChain(providers ...ports.TokenProvider) *Chain {
	return &Chain{providers: providers}
}

func (c *Chain) Token(ctx context.Context) (string, error) {
	if len(c.providers) == 0 {
		return "", fmt.Errorf("%w: no token providers configured", domain.ErrNotAuthenticated)
	}

	var lastErr error
	for _, provider := range c.providers {
		value, err := provider.Token(ctx)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, domain.ErrNotAuthenticated) {
			return "", err
		}
		lastErr = err
	}

	return "", lastErr
}
