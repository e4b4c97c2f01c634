// internal/crawler/crawler.go
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	custom_errors "github-contrib-crawler/internal/errors"
	"github-contrib-crawler/internal/extract"
	"github-contrib-crawler/internal/model"
)

// GitHub is the slice of the API client the crawler depends on.
type GitHub interface {
	ListRepositories(ctx context.Context, owner string) ([]model.RepositoryRef, error)
	GetContributorStats(ctx context.Context, owner, repo string) ([]model.ContributorActivity, error)
}

// Store persists extracted first-contribution records.
type Store interface {
	UpsertBatch(ctx context.Context, records []model.FirstContribution) error
}

// Config carries the crawl parameters.
type Config struct {
	Owner       string
	Interval    time.Duration
	Concurrency int
	MaxAttempts int
	// TargetMonth pins the crawled month; when zero each cycle targets the
	// current calendar month.
	TargetMonth time.Time
	// RetryBackoff is the initial delay between attempts for non-rate-limit
	// failures; it doubles on each retry. Defaults to one second.
	RetryBackoff time.Duration
}

// Crawler orchestrates one monthly run: it obtains the repository list
// (cached between cycles), fans out one fetch-extract-persist unit per
// repository, and writes results through the store. Units are independent;
// one repository's failure never aborts the others.
type Crawler struct {
	gh        GitHub
	store     Store
	extractor *extract.Extractor
	cache     *RepoListCache
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

func New(gh GitHub, store Store, cache *RepoListCache, logger *slog.Logger, cfg Config) *Crawler {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &Crawler{
		gh:        gh,
		store:     store,
		extractor: extract.NewExtractor(logger),
		cache:     cache,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start begins the periodic crawl process. One crawl runs per tick; cycles
// never overlap because each runs to completion before the next tick is
// consumed.
func (c *Crawler) Start(ctx context.Context) {
	c.logger.Info("starting crawler",
		"owner", c.cfg.Owner,
		"interval", c.cfg.Interval.String(),
		"concurrency", c.cfg.Concurrency)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.runCrawl(ctx) // Initial crawl

	for {
		select {
		case <-ticker.C:
			c.runCrawl(ctx)
		case <-ctx.Done():
			c.logger.Info("crawler shutting down", "reason", ctx.Err())
			return
		}
	}
}

// runCrawl performs one full crawl for the target month.
func (c *Crawler) runCrawl(ctx context.Context) {
	month := c.targetMonth()
	c.logger.Info("starting crawl", "month", month.Format("2006-01"))

	repos, err := c.listRepositories(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Error("failed to list repositories", "owner", c.cfg.Owner, "error", err)
		}
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for _, repo := range repos {
		repo := repo
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			err := c.withRetry(gctx, func() error {
				return c.CrawlRepository(gctx, repo, month)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("failed to crawl repository", "owner", repo.Owner, "repo", repo.Name, "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
	c.logger.Info("crawl finished", "month", month.Format("2006-01"), "repositories", len(repos))
}

// CrawlRepository is one retryable unit of work: fetch the repository's
// contributor stats, extract the target month's first contributions, and
// persist them. The three steps are strictly sequential.
func (c *Crawler) CrawlRepository(ctx context.Context, repo model.RepositoryRef, month time.Time) error {
	activities, err := c.gh.GetContributorStats(ctx, repo.Owner, repo.Name)
	if err != nil {
		return err
	}

	records := c.extractor.FirstContributionsInMonth(repo.Owner, repo.Name, activities, month)
	c.logger.Debug("extracted first contributions",
		"owner", repo.Owner, "repo", repo.Name, "month", month.Format("2006-01"), "count", len(records))

	return c.store.UpsertBatch(ctx, records)
}

// listRepositories consults the cache first; on a miss it fetches the full
// list and replaces the cache entry, resetting its TTL.
func (c *Crawler) listRepositories(ctx context.Context) ([]model.RepositoryRef, error) {
	if entries, ok := c.cache.Get(); ok {
		c.logger.Debug("using cached repository list", "count", len(entries))
		return entries, nil
	}

	var repos []model.RepositoryRef
	err := c.withRetry(ctx, func() error {
		var err error
		repos, err = c.gh.ListRepositories(ctx, c.cfg.Owner)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list repositories for %s: %w", c.cfg.Owner, err)
	}

	c.cache.Set(repos)
	return repos, nil
}

// withRetry runs fn up to MaxAttempts times. A rate-limit failure waits for
// exactly the indicated duration, then re-issues the request from scratch;
// any other failure backs off exponentially.
func (c *Crawler) withRetry(ctx context.Context, fn func() error) error {
	backoff := c.cfg.RetryBackoff
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || attempt == c.cfg.MaxAttempts {
			break
		}

		wait := backoff
		var rateErr *custom_errors.RateLimitError
		if errors.As(lastErr, &rateErr) {
			wait = rateErr.Wait
		} else {
			backoff *= 2
		}

		c.logger.Warn("crawl attempt failed, retrying",
			"attempt", attempt, "wait", wait.Round(time.Second), "error", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}

func (c *Crawler) targetMonth() time.Time {
	if !c.cfg.TargetMonth.IsZero() {
		return c.cfg.TargetMonth
	}
	now := c.now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
