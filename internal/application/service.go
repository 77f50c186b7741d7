package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bnema/tale-cli/internal/domain"
	"github.com/bnema/tale-cli/internal/ports"
)

// Service is the surface exposed to the rendering layer: a read-only view
// of the SessionStore plus the imperative session operations. All state
// flows through the store; the service never hands out shared references.
type Service struct {
	store       *SessionStore
	pipeline    *ExchangePipeline
	coordinator *Coordinator
	gateway     ports.StoryGateway
	clock       ports.Clock
}

func NewService(store *SessionStore, pipeline *ExchangePipeline, coordinator *Coordinator, gateway ports.StoryGateway, clock ports.Clock) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Service{
		store:       store,
		pipeline:    pipeline,
		coordinator: coordinator,
		gateway:     gateway,
		clock:       clock,
	}
}

// StartAdventure initializes a new story session and inserts it locally the
// instant the backend confirms, with both media jobs pending and polling
// already scheduled.
func (s *Service) StartAdventure(ctx context.Context, prefs domain.StoryPreferences) (domain.Adventure, error) {
	id, opening, err := s.gateway.InitStory(ctx, prefs)
	if err != nil {
		return domain.Adventure{}, fmt.Errorf("start adventure: %w", err)
	}

	now := s.clock.Now()
	adventure := domain.Adventure{
		SessionID: id,
		Title:     titleFor(prefs),
		CreatedAt: now,
		UpdatedAt: now,
		Messages: []domain.Message{{
			ID:        uuid.NewString(),
			Role:      domain.RoleAssistant,
			Content:   opening,
			Timestamp: now,
		}},
		LastMessagePreview: previewOf(opening),
		ConversationLoaded: true,
		Media:              domain.NewMediaState(),
	}
	s.store.Upsert(adventure)
	s.coordinator.EnsurePolling(ctx, id)

	stored, _ := s.store.Get(id)
	return stored, nil
}

// SendAction performs one optimistic message exchange for the session.
func (s *Service) SendAction(ctx context.Context, id domain.SessionID, text string) (domain.Message, error) {
	return s.pipeline.SendAction(ctx, id, text)
}

// SelectAdventure marks the session as current and lazily hydrates its full
// message history on first selection.
func (s *Service) SelectAdventure(ctx context.Context, id domain.SessionID) (domain.Adventure, error) {
	if err := s.store.Select(id); err != nil {
		return domain.Adventure{}, fmt.Errorf("select adventure: %w", err)
	}

	adventure, _ := s.store.Get(id)
	if adventure.ConversationLoaded {
		return adventure, nil
	}

	messages, err := s.gateway.SessionMessages(ctx, id)
	if err != nil {
		return domain.Adventure{}, fmt.Errorf("select adventure: %w", err)
	}

	updated, err := s.store.Update(id, func(adventure domain.Adventure) (domain.Adventure, error) {
		adventure.Messages = messages
		adventure.ConversationLoaded = true
		if len(messages) > 0 {
			last := messages[len(messages)-1]
			adventure.LastMessagePreview = previewOf(last.Content)
		}
		return adventure, nil
	})
	if err != nil {
		return domain.Adventure{}, fmt.Errorf("select adventure: %w", err)
	}

	return updated, nil
}

// DeleteAdventure removes the session remotely and locally. Removal is
// immediate and irrevocable; a poll still in flight for the id becomes a
// no-op against the store.
func (s *Service) DeleteAdventure(ctx context.Context, id domain.SessionID) error {
	if _, ok := s.store.Get(id); !ok {
		return domain.ErrAdventureNotFound
	}

	if err := s.gateway.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete adventure: %w", err)
	}

	s.store.Remove(id)
	return nil
}

func (s *Service) RegenerateMedia(ctx context.Context, id domain.SessionID) error {
	return s.coordinator.Regenerate(ctx, id)
}

func (s *Service) ForceRefresh(ctx context.Context, id domain.SessionID) error {
	return s.coordinator.ForceRefresh(ctx, id)
}

// Sessions reconciles with the backend and returns the adventure list.
func (s *Service) Sessions(ctx context.Context) ([]domain.Adventure, error) {
	if err := s.coordinator.SyncSessions(ctx); err != nil {
		return nil, err
	}

	return s.store.List(), nil
}

// Adventures returns the locally-known list without a network round-trip.
func (s *Service) Adventures() []domain.Adventure {
	return s.store.List()
}

func (s *Service) Adventure(id domain.SessionID) (domain.Adventure, bool) {
	return s.store.Get(id)
}

func titleFor(prefs domain.StoryPreferences) string {
	genre := strings.TrimSpace(prefs.Genre)
	character := strings.TrimSpace(prefs.Character)

	switch {
	case genre != "" && character != "":
		return fmt.Sprintf("%s: %s", genre, character)
	case genre != "":
		return genre
	case character != "":
		return character
	default:
		return "Untitled adventure"
	}
}
