package token

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/tale-cli/internal/domain"
	"github.com/bnema/tale-cli/internal/ports"
)

const (
	tokenDirMode  = 0o700
	tokenFileMode = 0o600
)

// FileProvider reads the bearer token from a single file under the config
// directory, typically written by `tale login`.
type FileProvider struct {
	path string
	mu   sync.RWMutex
}

var _ ports.TokenProvider = (*FileProvider)(nil)

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: filepath.Clean(path)}
}

func (p *FileProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: token file %s not found", domain.ErrNotAuthenticated, p.path)
		}
		return "", fmt.Errorf("read token file: %w", err)
	}

	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%w: token file %s is empty", domain.ErrNotAuthenticated, p.path)
	}

	return value, nil
}

// Store writes the token so later invocations pick it up.
func (p *FileProvider) Store(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return errors.New("token value is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p.path), tokenDirMode); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(trimmed+"\n"), tokenFileMode); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}

	return nil
}
