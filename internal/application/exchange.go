package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bnema/tale-cli/internal/domain"
	"github.com/bnema/tale-cli/internal/ports"
)

const previewRuneBudget = 80

// ExchangePipeline performs one optimistic message exchange per session at a
// time: the user message is appended before the round-trip and the whole
// mutation is rolled back to the pre-call snapshot if anything fails.
type ExchangePipeline struct {
	gateway ports.StoryGateway
	store   *SessionStore
	clock   ports.Clock
	// gateOnPendingMedia blocks chat on a fresh session until the first
	// image pass has produced at least one terminal job.
	gateOnPendingMedia bool
	newMessageID       func() string
}

func NewExchangePipeline(gateway ports.StoryGateway, store *SessionStore, clock ports.Clock, gateOnPendingMedia bool) *ExchangePipeline {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &ExchangePipeline{
		gateway:            gateway,
		store:              store,
		clock:              clock,
		gateOnPendingMedia: gateOnPendingMedia,
		newMessageID:       uuid.NewString,
	}
}

// SendAction sends the user's next turn and appends the resulting story
// beat. On any failure the session is restored to its pre-call snapshot, so
// the user's input is preserved for a retry instead of silently dropped.
func (p *ExchangePipeline) SendAction(ctx context.Context, id domain.SessionID, text string) (domain.Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Message{}, domain.ErrEmptyAction
	}

	userMessage := domain.Message{
		ID:        p.newMessageID(),
		Role:      domain.RoleUser,
		Content:   trimmed,
		Timestamp: p.clock.Now(),
	}

	// Claim the per-session in-flight flag and apply the optimistic append
	// in one store transition; the pre-call snapshot is what rollback
	// restores the conversation from.
	var snapshot domain.Adventure
	_, err := p.store.Update(id, func(adventure domain.Adventure) (domain.Adventure, error) {
		if adventure.ExchangeInFlight {
			return domain.Adventure{}, domain.ErrExchangeInFlight
		}
		// Only the very first generation pass gates chat; a regenerate
		// puts both jobs back to pending without blocking conversation.
		if p.gateOnPendingMedia && adventure.Media.InitialPass && adventure.Media.Status.BothPending() {
			return domain.Adventure{}, domain.ErrMediaPending
		}

		snapshot = adventure.Clone()
		adventure.ExchangeInFlight = true
		adventure.Messages = append(adventure.Messages, userMessage)
		return adventure, nil
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("begin exchange: %w", err)
	}

	content, sendErr := p.gateway.SendAction(ctx, id, trimmed)
	if sendErr != nil {
		p.rollback(id, snapshot)
		return domain.Message{}, fmt.Errorf("exchange failed: %w", sendErr)
	}

	assistantMessage := domain.Message{
		ID:        p.newMessageID(),
		Role:      domain.RoleAssistant,
		Content:   content,
		Timestamp: p.clock.Now(),
	}

	_, err = p.store.Update(id, func(adventure domain.Adventure) (domain.Adventure, error) {
		adventure.Messages = append(adventure.Messages, assistantMessage)
		adventure.LastMessagePreview = previewOf(content)
		adventure.UpdatedAt = assistantMessage.Timestamp
		adventure.ExchangeInFlight = false
		return adventure, nil
	})
	if err != nil {
		// Session deleted while the call was in flight; the reply has
		// nowhere to land.
		return domain.Message{}, fmt.Errorf("finish exchange: %w", err)
	}

	return assistantMessage, nil
}

func (p *ExchangePipeline) rollback(id domain.SessionID, snapshot domain.Adventure) {
	// Restore only what the exchange owns. Media belongs to the poller and
	// may have advanced while the call was in flight; a terminal job never
	// reverts to pending. A not-found error means the session was deleted
	// mid-flight; the restore is correctly a no-op then.
	restored := snapshot.Clone()
	_, _ = p.store.Update(id, func(adventure domain.Adventure) (domain.Adventure, error) {
		adventure.Messages = restored.Messages
		adventure.LastMessagePreview = restored.LastMessagePreview
		adventure.UpdatedAt = restored.UpdatedAt
		adventure.ExchangeInFlight = false
		return adventure, nil
	})
}

func previewOf(content string) string {
	collapsed := strings.Join(strings.Fields(content), " ")
	runes := []rune(collapsed)
	if len(runes) <= previewRuneBudget {
		return collapsed
	}
	return string(runes[:previewRuneBudget]) + "…"
}
