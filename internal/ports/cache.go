package ports

import (
	"context"

	"github.com/bnema/tale-cli/internal/domain"
)

// MediaURLCache is advisory: a miss (or any error) simply triggers a fresh
// resolution, never a failure. Entries older than the configured TTL are
// treated as absent.
type MediaURLCache interface {
	Get(ctx context.Context, id domain.SessionID, imageType domain.ImageType, variant domain.ImageVariant) (string, bool, error)
	Put(ctx context.Context, id domain.SessionID, imageType domain.ImageType, variant domain.ImageVariant, url string) error
	Invalidate(ctx context.Context, id domain.SessionID) error
}
