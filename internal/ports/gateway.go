package ports

import (
	"context"
	"time"

	"github.com/bnema/tale-cli/internal/domain"
)

// SessionSummary is what the list endpoint knows about a session; the full
// message history is hydrated lazily.
type SessionSummary struct {
	SessionID    domain.SessionID
	Title        string
	MessageCount int
	CreatedAt    time.Time
	LastUpdated  time.Time
	Media        domain.MediaStatus
}

// StoryGateway is the remote backend seen through its HTTP contract.
type StoryGateway interface {
	InitStory(ctx context.Context, prefs domain.StoryPreferences) (domain.SessionID, string, error)
	SendAction(ctx context.Context, id domain.SessionID, action string) (string, error)
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	SessionMessages(ctx context.Context, id domain.SessionID) ([]domain.Message, error)
	DeleteSession(ctx context.Context, id domain.SessionID) error
	MediaStatus(ctx context.Context, id domain.SessionID) (domain.MediaStatus, error)
	MediaURL(ctx context.Context, id domain.SessionID, imageType domain.ImageType, variant domain.ImageVariant) (string, error)
	RegenerateMedia(ctx context.Context, id domain.SessionID) error
}
