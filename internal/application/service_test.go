package application

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/tale-cli/internal/domain"
	"github.com/bnema/tale-cli/internal/ports"
)

func newTestService(gateway *gatewayStub) (*Service, *SessionStore, *Coordinator) {
	store := NewSessionStore()
	clock := newFakeClock(time.Unix(10_000, 0))
	sleeper := &fakeSleeper{clock: clock}
	poller := NewPoller(gateway, newMemoryCache(), store, coldStartPolicy(), clock, sleeper)
	coordinator := NewCoordinator(store, poller, gateway, sleeper, CoordinatorConfig{})
	pipeline := NewExchangePipeline(gateway, store, clock, true)
	return NewService(store, pipeline, coordinator, gateway, clock), store, coordinator
}

func TestStartAdventureSeedsSessionAndPolls(t *testing.T) {
	t.Parallel()

	var initPrefs domain.StoryPreferences
	gateway := &gatewayStub{
		initFn: func(_ context.Context, prefs domain.StoryPreferences) (domain.SessionID, string, error) {
			initPrefs = prefs
			return "fresh", "You wake up in a forest.", nil
		},
		statusFn: terminalStatusFn,
		urlFn:    stubURLFn,
	}
	service, store, coordinator := newTestService(gateway)

	adventure, err := service.StartAdventure(context.Background(), domain.StoryPreferences{
		Genre:     "fantasy",
		Character: "ranger",
	})
	require.NoError(t, err)
	coordinator.Wait()

	assert.Equal(t, "fantasy", initPrefs.Genre)
	assert.Equal(t, domain.SessionID("fresh"), adventure.SessionID)
	assert.Equal(t, "fantasy: ranger", adventure.Title)
	require.Len(t, adventure.Messages, 1)
	assert.Equal(t, domain.RoleAssistant, adventure.Messages[0].Role)
	assert.Equal(t, "You wake up in a forest.", adventure.Messages[0].Content)
	assert.NotEmpty(t, adventure.Messages[0].ID)
	assert.True(t, adventure.ConversationLoaded)

	stored, ok := store.Get("fresh")
	require.True(t, ok)
	assert.True(t, stored.Media.Status.Terminal())
}

func TestStartAdventureGatewayFailureLeavesNoSession(t *testing.T) {
	t.Parallel()

	gateway := &gatewayStub{
		initFn: func(context.Context, domain.StoryPreferences) (domain.SessionID, string, error) {
			return "", "", errGatewayDown
		},
	}
	service, store, _ := newTestService(gateway)

	_, err := service.StartAdventure(context.Background(), domain.StoryPreferences{Genre: "noir"})
	require.ErrorIs(t, err, errGatewayDown)
	assert.Zero(t, store.Len())
}

func TestSelectAdventureHydratesHistoryOnce(t *testing.T) {
	t.Parallel()

	var fetches atomic.Int32
	history := []domain.Message{
		{ID: "m1", Role: domain.RoleAssistant, Content: "opening beat", Timestamp: time.Unix(1, 0)},
		{ID: "m2", Role: domain.RoleUser, Content: "look around", Timestamp: time.Unix(2, 0)},
		{ID: "m3", Role: domain.RoleAssistant, Content: "you see a door", Timestamp: time.Unix(3, 0)},
	}
	gateway := &gatewayStub{
		messagesFn: func(context.Context, domain.SessionID) ([]domain.Message, error) {
			fetches.Add(1)
			return history, nil
		},
	}
	service, store, _ := newTestService(gateway)

	summaryOnly := pendingAdventure("s1")
	summaryOnly.ConversationLoaded = false
	store.Upsert(summaryOnly)

	selected, err := service.SelectAdventure(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, selected.Messages, 3)
	assert.True(t, selected.ConversationLoaded)
	assert.Equal(t, "you see a door", selected.LastMessagePreview)

	// Second selection serves from the store.
	again, err := service.SelectAdventure(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, again.Messages, 3)
	assert.Equal(t, int32(1), fetches.Load())

	current, ok := store.Selected()
	require.True(t, ok)
	assert.Equal(t, domain.SessionID("s1"), current.SessionID)
}

func TestSelectAdventureUnknownSession(t *testing.T) {
	t.Parallel()

	service, _, _ := newTestService(&gatewayStub{})
	_, err := service.SelectAdventure(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrAdventureNotFound)
}

func TestDeleteAdventureRemovesLocalState(t *testing.T) {
	t.Parallel()

	var deleted atomic.Int32
	gateway := &gatewayStub{
		deleteFn: func(_ context.Context, id domain.SessionID) error {
			assert.Equal(t, domain.SessionID("s1"), id)
			deleted.Add(1)
			return nil
		},
	}
	service, store, _ := newTestService(gateway)
	store.Upsert(pendingAdventure("s1"))

	require.NoError(t, service.DeleteAdventure(context.Background(), "s1"))
	assert.Equal(t, int32(1), deleted.Load())
	_, ok := store.Get("s1")
	assert.False(t, ok)
}

func TestDeleteAdventureKeepsSessionOnGatewayFailure(t *testing.T) {
	t.Parallel()

	gateway := &gatewayStub{
		deleteFn: func(context.Context, domain.SessionID) error { return errGatewayDown },
	}
	service, store, _ := newTestService(gateway)
	store.Upsert(pendingAdventure("s1"))

	require.ErrorIs(t, service.DeleteAdventure(context.Background(), "s1"), errGatewayDown)
	_, ok := store.Get("s1")
	assert.True(t, ok)
}

func TestDeleteAdventureUnknownSession(t *testing.T) {
	t.Parallel()

	service, _, _ := newTestService(&gatewayStub{})
	require.ErrorIs(t, service.DeleteAdventure(context.Background(), "ghost"), domain.ErrAdventureNotFound)
}

func TestSessionsSyncsThenLists(t *testing.T) {
	t.Parallel()

	gateway := &gatewayStub{
		listFn: func(context.Context) ([]ports.SessionSummary, error) {
			return []ports.SessionSummary{
				{SessionID: "a", Title: "first", Media: domain.MediaStatus{World: domain.JobReady, Character: domain.JobReady}},
				{SessionID: "b", Title: "second", Media: domain.MediaStatus{World: domain.JobReady, Character: domain.JobReady}},
			}, nil
		},
	}
	service, _, coordinator := newTestService(gateway)

	adventures, err := service.Sessions(context.Background())
	coordinator.Wait()
	require.NoError(t, err)
	require.Len(t, adventures, 2)
	assert.Equal(t, "first", adventures[0].Title)
	assert.Equal(t, "second", adventures[1].Title)
}

func TestTitleFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fantasy: ranger", titleFor(domain.StoryPreferences{Genre: "fantasy", Character: "ranger"}))
	assert.Equal(t, "fantasy", titleFor(domain.StoryPreferences{Genre: " fantasy "}))
	assert.Equal(t, "ranger", titleFor(domain.StoryPreferences{Character: "ranger"}))
	assert.Equal(t, "Untitled adventure", titleFor(domain.StoryPreferences{}))
}
