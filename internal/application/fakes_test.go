package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/tale-cli/internal/domain"
	"github.com/bnema/tale-cli/internal/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSleeper records requested waits and advances the fake clock instead
// of sleeping.
type fakeSleeper struct {
	mu     sync.Mutex
	clock  *fakeClock
	sleeps []time.Duration
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()

	if s.clock != nil {
		s.clock.Advance(d)
	}
	return nil
}

func (s *fakeSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}

// gatewayStub implements ports.StoryGateway with per-method hooks.
type gatewayStub struct {
	initFn     func(ctx context.Context, prefs domain.StoryPreferences) (domain.SessionID, string, error)
	sendFn     func(ctx context.Context, id domain.SessionID, action string) (string, error)
	listFn     func(ctx context.Context) ([]ports.SessionSummary, error)
	messagesFn func(ctx context.Context, id domain.SessionID) ([]domain.Message, error)
	deleteFn   func(ctx context.Context, id domain.SessionID) error
	statusFn   func(ctx context.Context, id domain.SessionID) (domain.MediaStatus, error)
	urlFn      func(ctx context.Context, id domain.SessionID, imageType domain.ImageType, variant domain.ImageVariant) (string, error)
	regenFn    func(ctx context.Context, id domain.SessionID) error
}

var _ ports.StoryGateway = (*gatewayStub)(nil)

var errStubNotConfigured = errors.New("gateway stub method not configured")

func (g *gatewayStub) InitStory(ctx context.Context, prefs domain.StoryPreferences) (domain.SessionID, string, error) {
	if g.initFn == nil {
		return "", "", errStubNotConfigured
	}
	return g.initFn(ctx, prefs)
}

func (g *gatewayStub) SendAction(ctx context.Context, id domain.SessionID, action string) (string, error) {
	if g.sendFn == nil {
		return "", errStubNotConfigured
	}
	return g.sendFn(ctx, id, action)
}

func (g *gatewayStub) ListSessions(ctx context.Context) ([]ports.SessionSummary, error) {
	if g.listFn == nil {
		return nil, nil
	}
	return g.listFn(ctx)
}

func (g *gatewayStub) SessionMessages(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	if g.messagesFn == nil {
		return nil, errStubNotConfigured
	}
	return g.messagesFn(ctx, id)
}

func (g *gatewayStub) DeleteSession(ctx context.Context, id domain.SessionID) error {
	if g.deleteFn == nil {
		return errStubNotConfigured
	}
	return g.deleteFn(ctx, id)
}

func (g *gatewayStub) MediaStatus(ctx context.Context, id domain.SessionID) (domain.MediaStatus, error) {
	if g.statusFn == nil {
		return domain.MediaStatus{}, errStubNotConfigured
	}
	return g.statusFn(ctx, id)
}

func (g *gatewayStub) MediaURL(ctx context.Context, id domain.SessionID, imageType domain.ImageType, variant domain.ImageVariant) (string, error) {
	if g.urlFn == nil {
		return "", errStubNotConfigured
	}
	return g.urlFn(ctx, id, imageType, variant)
}

func (g *gatewayStub) RegenerateMedia(ctx context.Context, id domain.SessionID) error {
	if g.regenFn == nil {
		return errStubNotConfigured
	}
	return g.regenFn(ctx, id)
}

// memoryCache is an in-memory MediaURLCache used to observe cache traffic.
type memoryCache struct {
	mu            sync.Mutex
	entries       map[string]string
	gets          int
	puts          int
	invalidations int
}

var _ ports.MediaURLCache = (*memoryCache)(nil)

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}}
}

func cacheKey(id domain.SessionID, imageType domain.ImageType, variant domain.ImageVariant) string {
	return fmt.Sprintf("%s/%s/%s", id, imageType, variant)
}

func (c *memoryCache) Get(_ context.Context, id domain.SessionID, imageType domain.ImageType, variant domain.ImageVariant) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gets++
	url, ok := c.entries[cacheKey(id, imageType, variant)]
	return url, ok, nil
}

func (c *memoryCache) Put(_ context.Context, id domain.SessionID, imageType domain.ImageType, variant domain.ImageVariant, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.puts++
	c.entries[cacheKey(id, imageType, variant)] = url
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, id domain.SessionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidations++
	prefix := string(id) + "/"
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
	return nil
}

func pendingAdventure(id domain.SessionID) domain.Adventure {
	return domain.Adventure{
		SessionID:          id,
		Title:              "Test adventure",
		ConversationLoaded: true,
		Media:              domain.NewMediaState(),
	}
}
