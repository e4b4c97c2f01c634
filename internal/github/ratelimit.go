// internal/github/ratelimit.go
package github

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-github/v62/github"
)

// Action is the rate-limit decision for one API response.
// When Wait is true the caller must pause for Duration before issuing any
// further request; the failed call is re-issued from scratch afterwards.
type Action struct {
	Wait     bool
	Duration time.Duration
}

// RateLimitTracker interprets the X-RateLimit-* headers of each response and
// decides whether the shared rate-limit budget is exhausted. The budget is
// account-wide, so a single tracker gates every worker: one observed 403
// records a pause deadline that Wait enforces for all callers.
type RateLimitTracker struct {
	logger *slog.Logger

	mu          sync.Mutex
	pausedUntil time.Time

	now func() time.Time
}

func NewRateLimitTracker(logger *slog.Logger) *RateLimitTracker {
	return &RateLimitTracker{
		logger: logger,
		now:    time.Now,
	}
}

// Evaluate inspects one response and returns the action the caller must take.
// Rate-limit exhaustion is exactly a 403 with zero remaining requests; any
// other response proceeds regardless of its status code.
func (t *RateLimitTracker) Evaluate(resp *github.Response) Action {
	rate := resp.Rate
	t.logger.Info("rate limit report",
		"remaining", rate.Remaining,
		"limit", rate.Limit,
		"reset", rate.Reset.Time.Format(time.RFC3339))

	if resp.StatusCode != http.StatusForbidden || rate.Remaining != 0 {
		return Action{}
	}

	wait := rate.Reset.Time.Sub(t.now())
	if wait < 0 {
		wait = 0
	}

	t.mu.Lock()
	if until := t.now().Add(wait); until.After(t.pausedUntil) {
		t.pausedUntil = until
	}
	t.mu.Unlock()

	return Action{Wait: true, Duration: wait}
}

// Wait blocks until any pause recorded by Evaluate has elapsed, so that
// concurrent workers do not burn requests against an exhausted budget.
// Returns immediately when no pause is active.
func (t *RateLimitTracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	until := t.pausedUntil
	t.mu.Unlock()

	wait := until.Sub(t.now())
	if wait <= 0 {
		return nil
	}

	t.logger.Info("waiting for rate limit window to reset", "wait", wait.Round(time.Second))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
