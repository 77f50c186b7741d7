package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/tale-cli/internal/domain"
	"github.com/bnema/tale-cli/internal/ports"
)

type CoordinatorConfig struct {
	// BatchSize bounds concurrent outstanding polls when a whole session
	// list is scheduled at once.
	BatchSize     int
	BatchPause    time.Duration
	SweepInterval time.Duration
	PollMaxWait   time.Duration
	PollInterval  time.Duration
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 3
	}
	if c.BatchPause <= 0 {
		c.BatchPause = 500 * time.Millisecond
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 30 * time.Second
	}
	if c.PollMaxWait <= 0 {
		c.PollMaxWait = 5 * time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	return c
}

// Coordinator glues store and poller into the lifecycle of the whole
// session list: it schedules polls in bounded batches, sweeps periodically
// for sessions still pending, and guarantees at most one polling loop per
// session.
type Coordinator struct {
	store   *SessionStore
	poller  *Poller
	gateway ports.StoryGateway
	sleeper ports.Sleeper
	cfg     CoordinatorConfig

	mu       sync.Mutex
	inflight map[domain.SessionID]struct{}
	wg       sync.WaitGroup
}

func NewCoordinator(store *SessionStore, poller *Poller, gateway ports.StoryGateway, sleeper ports.Sleeper, cfg CoordinatorConfig) *Coordinator {
	if sleeper == nil {
		sleeper = ports.SystemSleeper{}
	}

	return &Coordinator{
		store:    store,
		poller:   poller,
		gateway:  gateway,
		sleeper:  sleeper,
		cfg:      cfg.withDefaults(),
		inflight: map[domain.SessionID]struct{}{},
	}
}

// EnsurePolling starts a polling loop for the session unless one is already
// running. The bool reports whether a new loop was started; a duplicate
// call is a no-op.
func (c *Coordinator) EnsurePolling(ctx context.Context, id domain.SessionID) bool {
	c.mu.Lock()
	if _, running := c.inflight[id]; running {
		c.mu.Unlock()
		return false
	}
	c.inflight[id] = struct{}{}
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.release(id)
		_, _ = c.poller.PollUntilTerminal(ctx, id, c.cfg.PollMaxWait, c.cfg.PollInterval)
	}()

	return true
}

// SyncSessions reconciles the store with the backend's session list and
// schedules polls, in batches, for every session whose media is not yet
// terminal.
func (c *Coordinator) SyncSessions(ctx context.Context) error {
	summaries, err := c.gateway.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("sync sessions: %w", err)
	}

	pending := make([]domain.SessionID, 0, len(summaries))
	for _, summary := range summaries {
		c.mergeSummary(summary)
		if adventure, ok := c.store.Get(summary.SessionID); ok && !adventure.Media.Status.Terminal() {
			pending = append(pending, summary.SessionID)
		}
	}

	return c.scheduleBatches(ctx, pending)
}

// Sweep runs one pass over the store and re-polls any session still pending
// that is not already being polled, so a list left open eventually reflects
// completed generation without user action.
func (c *Coordinator) Sweep(ctx context.Context) {
	for _, adventure := range c.store.List() {
		if adventure.Media.Status.Terminal() || adventure.Media.Unavailable {
			continue
		}
		c.EnsurePolling(ctx, adventure.SessionID)
	}
}

// RunSweeper waits out the polls currently in flight, then keeps sweeping on
// the configured interval until every session's media is terminal or marked
// unavailable. Sessions whose poll loop gave up at maxWait get picked up
// again by the next sweep. Returns nil once everything settled, or the
// context error if the caller gives up first.
func (c *Coordinator) RunSweeper(ctx context.Context) error {
	for {
		c.wg.Wait()
		if c.settled() {
			return nil
		}
		if err := c.sleeper.Sleep(ctx, c.cfg.SweepInterval); err != nil {
			return err
		}
		c.Sweep(ctx)
	}
}

func (c *Coordinator) settled() bool {
	for _, adventure := range c.store.List() {
		if !adventure.Media.Status.Terminal() && !adventure.Media.Unavailable {
			return false
		}
	}
	return true
}

// ForceRefresh drops cached URLs, resets both jobs to pending, and repolls.
func (c *Coordinator) ForceRefresh(ctx context.Context, id domain.SessionID) error {
	if err := c.poller.Reset(ctx, id); err != nil {
		return fmt.Errorf("force refresh: %w", err)
	}

	c.EnsurePolling(ctx, id)
	return nil
}

// Regenerate asks the backend for a fresh image pass, then resets and
// repolls like a forced refresh.
func (c *Coordinator) Regenerate(ctx context.Context, id domain.SessionID) error {
	if _, ok := c.store.Get(id); !ok {
		return domain.ErrAdventureNotFound
	}

	if err := c.gateway.RegenerateMedia(ctx, id); err != nil {
		return fmt.Errorf("regenerate: %w", err)
	}
	if err := c.poller.Reset(ctx, id); err != nil {
		return fmt.Errorf("regenerate: %w", err)
	}

	c.EnsurePolling(ctx, id)
	return nil
}

// Wait blocks until every outstanding polling loop has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// PollingCount reports how many polling loops are currently running.
func (c *Coordinator) PollingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.inflight)
}

func (c *Coordinator) release(id domain.SessionID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.inflight, id)
}

// mergeSummary folds list-endpoint metadata into the store without
// clobbering locally-held message history or a terminal media state.
func (c *Coordinator) mergeSummary(summary ports.SessionSummary) {
	_, err := c.store.Update(summary.SessionID, func(adventure domain.Adventure) (domain.Adventure, error) {
		if summary.Title != "" {
			adventure.Title = summary.Title
		}
		adventure.CreatedAt = summary.CreatedAt
		adventure.UpdatedAt = summary.LastUpdated
		adventure.Media.Status = adventure.Media.Status.Merge(summary.Media)
		return adventure, nil
	})
	if err == nil {
		return
	}

	c.store.Upsert(domain.Adventure{
		SessionID: summary.SessionID,
		Title:     summary.Title,
		CreatedAt: summary.CreatedAt,
		UpdatedAt: summary.LastUpdated,
		Media: domain.MediaState{
			Status: domain.NewMediaStatus().Merge(summary.Media),
		},
	})
}

func (c *Coordinator) scheduleBatches(ctx context.Context, ids []domain.SessionID) error {
	for i := 0; i < len(ids); i += c.cfg.BatchSize {
		if i > 0 {
			if err := c.sleeper.Sleep(ctx, c.cfg.BatchPause); err != nil {
				return err
			}
		}

		end := i + c.cfg.BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		for _, id := range ids[i:end] {
			c.EnsurePolling(ctx, id)
		}
	}

	return nil
}
