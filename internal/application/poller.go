package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/tale-cli/internal/domain"
	"github.com/bnema/tale-cli/internal/ports"
)

// Poller drives a session's two media jobs from pending to terminal,
// tolerating a cold-starting backend. All state lands in the SessionStore;
// a poll for a session deleted mid-flight quietly stops updating anything.
type Poller struct {
	gateway ports.StoryGateway
	cache   ports.MediaURLCache
	store   *SessionStore
	policy  BackoffPolicy
	clock   ports.Clock
	sleeper ports.Sleeper
}

func NewPoller(gateway ports.StoryGateway, cache ports.MediaURLCache, store *SessionStore, policy BackoffPolicy, clock ports.Clock, sleeper ports.Sleeper) *Poller {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if sleeper == nil {
		sleeper = ports.SystemSleeper{}
	}

	return &Poller{
		gateway: gateway,
		cache:   cache,
		store:   store,
		policy:  policy,
		clock:   clock,
		sleeper: sleeper,
	}
}

// PollUntilTerminal polls the status endpoint until both jobs are terminal.
// When maxWait elapses first it returns the best-known status with a nil
// error; callers treat that as "still pending". ErrPollBudgetExhausted is
// the only failure it raises on its own behalf.
func (p *Poller) PollUntilTerminal(ctx context.Context, id domain.SessionID, maxWait, baseInterval time.Duration) (domain.MediaStatus, error) {
	if baseInterval <= 0 {
		baseInterval = 2 * time.Second
	}
	deadline := p.clock.Now().Add(maxWait)
	tracker := newBackoffTracker(p.policy)

	best := domain.NewMediaStatus()
	if adventure, ok := p.store.Get(id); ok {
		best = adventure.Media.Status
	}

	for {
		status, err := p.gateway.MediaStatus(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotAuthenticated) {
				return best, fmt.Errorf("poll media status: %w", err)
			}

			delay, exhausted := tracker.observeError(err)
			if exhausted {
				p.markUnavailable(id)
				return best, fmt.Errorf("poll media status: %w: %w", ErrPollBudgetExhausted, err)
			}
			if maxWait > 0 && !p.clock.Now().Add(delay).Before(deadline) {
				return best, nil
			}
			if sleepErr := p.sleeper.Sleep(ctx, delay); sleepErr != nil {
				return best, sleepErr
			}
			continue
		}

		tracker.observeSuccess()
		best = p.applyStatus(id, status)
		p.resolveReadyURLs(ctx, id, best)

		if best.Terminal() {
			return best, nil
		}
		if maxWait > 0 && !p.clock.Now().Add(baseInterval).Before(deadline) {
			return best, nil
		}
		if sleepErr := p.sleeper.Sleep(ctx, baseInterval); sleepErr != nil {
			return best, sleepErr
		}
	}
}

// ResolveURL resolves one image URL, cache first. Any failure yields an
// empty URL rather than an error so a single broken image never aborts
// loading of the rest of the session.
func (p *Poller) ResolveURL(ctx context.Context, id domain.SessionID, imageType domain.ImageType, variant domain.ImageVariant) string {
	if cached, ok, err := p.cache.Get(ctx, id, imageType, variant); err == nil && ok {
		return cached
	}

	resolved, err := p.gateway.MediaURL(ctx, id, imageType, variant)
	if err != nil || resolved == "" {
		return ""
	}

	_ = p.cache.Put(ctx, id, imageType, variant, resolved)
	return resolved
}

// Reset puts both jobs back to pending for a regenerate or forced refresh
// and drops the session's cached URLs.
func (p *Poller) Reset(ctx context.Context, id domain.SessionID) error {
	if err := p.cache.Invalidate(ctx, id); err != nil {
		return fmt.Errorf("invalidate media cache: %w", err)
	}

	_, err := p.store.Update(id, func(adventure domain.Adventure) (domain.Adventure, error) {
		adventure.Media = adventure.Media.Reset()
		return adventure, nil
	})
	if err != nil {
		return fmt.Errorf("reset media state: %w", err)
	}

	return nil
}

// applyStatus merges the observed status into the store (monotonic: a
// terminal job never reverts) and returns the stored result. For a deleted
// session it returns the observation without storing anything.
func (p *Poller) applyStatus(id domain.SessionID, status domain.MediaStatus) domain.MediaStatus {
	updated, err := p.store.Update(id, func(adventure domain.Adventure) (domain.Adventure, error) {
		adventure.Media.Status = adventure.Media.Status.Merge(status)
		adventure.Media.Unavailable = false
		return adventure, nil
	})
	if err != nil {
		return status
	}
	return updated.Media.Status
}

func (p *Poller) resolveReadyURLs(ctx context.Context, id domain.SessionID, status domain.MediaStatus) {
	adventure, ok := p.store.Get(id)
	if !ok {
		return
	}

	urls := adventure.Media.URLs
	if status.World == domain.JobReady && urls.World == "" {
		urls.World = p.ResolveURL(ctx, id, domain.ImageWorld, domain.VariantWeb)
	}
	if status.Character == domain.JobReady && urls.Character == "" {
		urls.Character = p.ResolveURL(ctx, id, domain.ImageCharacter, domain.VariantWeb)
	}
	if urls == adventure.Media.URLs {
		return
	}

	_, _ = p.store.Update(id, func(adventure domain.Adventure) (domain.Adventure, error) {
		adventure.Media.URLs = urls
		return adventure, nil
	})
}

func (p *Poller) markUnavailable(id domain.SessionID) {
	_, _ = p.store.Update(id, func(adventure domain.Adventure) (domain.Adventure, error) {
		adventure.Media.Unavailable = true
		return adventure, nil
	})
}
