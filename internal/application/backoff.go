package application

import (
	"errors"
	"time"
)

var ErrPollBudgetExhausted = errors.New("media status poll error budget exhausted")

// BackoffPolicy is the single retry strategy for media status polling.
// Cold-start errors (backend waking from idle) get progressively longer
// waits and never count against the hard budget; every other error spends
// the consecutive-error budget.
type BackoffPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	ErrorBudget int
	// IsColdStart classifies an error as a gateway warm-up condition.
	IsColdStart func(error) bool
}

func DefaultBackoffPolicy(isColdStart func(error) bool) BackoffPolicy {
	return BackoffPolicy{
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		ErrorBudget: 3,
		IsColdStart: isColdStart,
	}
}

// Delay returns the wait before the next attempt after `consecutive`
// cold-start failures in a row (doubling, capped at MaxDelay).
func (p BackoffPolicy) Delay(consecutive int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}

	delay := base
	for i := 1; i < consecutive; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func (p BackoffPolicy) budget() int {
	if p.ErrorBudget <= 0 {
		return 3
	}
	return p.ErrorBudget
}

func (p BackoffPolicy) classify(err error) bool {
	if p.IsColdStart == nil {
		return false
	}
	return p.IsColdStart(err)
}

// backoffTracker folds a failure sequence into wait decisions. It is reset
// by every successful status call.
type backoffTracker struct {
	policy     BackoffPolicy
	coldStarts int
	failures   int
}

func newBackoffTracker(policy BackoffPolicy) *backoffTracker {
	return &backoffTracker{policy: policy}
}

func (t *backoffTracker) observeSuccess() {
	t.coldStarts = 0
	t.failures = 0
}

// observeError returns the wait before the next attempt and whether the
// error budget is now exhausted.
func (t *backoffTracker) observeError(err error) (time.Duration, bool) {
	if t.policy.classify(err) {
		t.coldStarts++
		// A warming backend is not a failing job; only the overall poll
		// deadline bounds this path.
		t.failures = 0
		return t.policy.Delay(t.coldStarts), false
	}

	t.coldStarts = 0
	t.failures++
	if t.failures >= t.policy.budget() {
		return 0, true
	}
	return t.policy.Delay(1), false
}
