package token

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/tale-cli/internal/domain"
	"github.com/bnema/tale-cli/internal/ports"
)

// EnvProvider reads the bearer token from an environment variable.
type EnvProvider struct {
	Key string
}

var _ ports.TokenProvider = EnvProvider{}

func (p EnvProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	value := strings.TrimSpace(os.Getenv(p.Key))
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s is empty", domain.ErrNotAuthenticated, p.Key)
	}

	return value, nil
}
