// internal/crawler/crawler_test.go
package crawler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	custom_errors "github-contrib-crawler/internal/errors"
	"github-contrib-crawler/internal/model"
)

// MockGitHub is a mock of the GitHub interface.
type MockGitHub struct {
	mock.Mock
}

func (m *MockGitHub) ListRepositories(ctx context.Context, owner string) ([]model.RepositoryRef, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).([]model.RepositoryRef), args.Error(1)
}

func (m *MockGitHub) GetContributorStats(ctx context.Context, owner, repo string) ([]model.ContributorActivity, error) {
	args := m.Called(ctx, owner, repo)
	return args.Get(0).([]model.ContributorActivity), args.Error(1)
}

// MockStore is a mock of the Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) UpsertBatch(ctx context.Context, records []model.FirstContribution) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

var (
	june      = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	juneStart = june.Unix()
)

func newTestCrawler(gh GitHub, store Store, cache *RepoListCache) *Crawler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(gh, store, cache, logger, Config{
		Owner:        "testowner",
		Interval:     time.Hour,
		Concurrency:  2,
		MaxAttempts:  2,
		TargetMonth:  june,
		RetryBackoff: time.Millisecond,
	})
}

func juneActivity(login string) []model.ContributorActivity {
	return []model.ContributorActivity{{
		Login:        login,
		TotalCommits: 1,
		Weeks:        []model.WeeklyCommitSample{{WeekStart: juneStart, Commits: 1}},
	}}
}

func TestCrawler_RunCrawl(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts and persists every repository", func(t *testing.T) {
		gh := new(MockGitHub)
		store := new(MockStore)
		repos := []model.RepositoryRef{
			{Owner: "testowner", Name: "one"},
			{Owner: "testowner", Name: "two"},
		}

		gh.On("ListRepositories", mock.Anything, "testowner").Return(repos, nil).Once()
		gh.On("GetContributorStats", mock.Anything, "testowner", "one").Return(juneActivity("alice"), nil).Once()
		gh.On("GetContributorStats", mock.Anything, "testowner", "two").Return([]model.ContributorActivity{}, nil).Once()
		store.On("UpsertBatch", mock.Anything, mock.MatchedBy(func(records []model.FirstContribution) bool {
			return len(records) == 1 && records[0].Contributor == "alice" && records[0].RepoName == "one"
		})).Return(nil).Once()
		store.On("UpsertBatch", mock.Anything, mock.MatchedBy(func(records []model.FirstContribution) bool {
			return len(records) == 0
		})).Return(nil).Once()

		c := newTestCrawler(gh, store, NewRepoListCache(time.Hour))
		c.runCrawl(ctx)

		gh.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("one failing repository does not abort the others", func(t *testing.T) {
		gh := new(MockGitHub)
		store := new(MockStore)
		repos := []model.RepositoryRef{
			{Owner: "testowner", Name: "bad"},
			{Owner: "testowner", Name: "good"},
		}
		reqErr := &custom_errors.RequestError{StatusCode: 500, Body: "boom"}

		gh.On("ListRepositories", mock.Anything, "testowner").Return(repos, nil).Once()
		gh.On("GetContributorStats", mock.Anything, "testowner", "bad").Return([]model.ContributorActivity{}, reqErr).Times(2)
		gh.On("GetContributorStats", mock.Anything, "testowner", "good").Return(juneActivity("bob"), nil).Once()
		store.On("UpsertBatch", mock.Anything, mock.Anything).Return(nil).Once()

		c := newTestCrawler(gh, store, NewRepoListCache(time.Hour))
		c.runCrawl(ctx)

		gh.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("uses the cached repository list when valid", func(t *testing.T) {
		gh := new(MockGitHub)
		store := new(MockStore)
		cache := NewRepoListCache(time.Hour)
		cache.Set([]model.RepositoryRef{{Owner: "testowner", Name: "cached"}})

		gh.On("GetContributorStats", mock.Anything, "testowner", "cached").Return([]model.ContributorActivity{}, nil).Once()
		store.On("UpsertBatch", mock.Anything, mock.Anything).Return(nil).Once()

		c := newTestCrawler(gh, store, cache)
		c.runCrawl(ctx)

		gh.AssertNotCalled(t, "ListRepositories")
		gh.AssertExpectations(t)
	})
}

func TestCrawler_WithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("waits out a rate limit pause and retries from scratch", func(t *testing.T) {
		gh := new(MockGitHub)
		store := new(MockStore)
		rateErr := &custom_errors.RateLimitError{Wait: 10 * time.Millisecond, ResetAt: time.Now()}

		gh.On("GetContributorStats", mock.Anything, "testowner", "r").Return([]model.ContributorActivity{}, rateErr).Once()
		gh.On("GetContributorStats", mock.Anything, "testowner", "r").Return(juneActivity("carol"), nil).Once()
		store.On("UpsertBatch", mock.Anything, mock.Anything).Return(nil).Once()

		c := newTestCrawler(gh, store, NewRepoListCache(time.Hour))
		err := c.withRetry(ctx, func() error {
			return c.CrawlRepository(ctx, model.RepositoryRef{Owner: "testowner", Name: "r"}, june)
		})

		assert.NoError(t, err)
		gh.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("gives up after the configured attempts", func(t *testing.T) {
		gh := new(MockGitHub)
		store := new(MockStore)
		reqErr := &custom_errors.RequestError{StatusCode: 502, Body: "bad gateway"}

		gh.On("GetContributorStats", mock.Anything, "testowner", "r").Return([]model.ContributorActivity{}, reqErr).Times(2)

		c := newTestCrawler(gh, store, NewRepoListCache(time.Hour))
		err := c.withRetry(ctx, func() error {
			return c.CrawlRepository(ctx, model.RepositoryRef{Owner: "testowner", Name: "r"}, june)
		})

		assert.ErrorIs(t, err, reqErr)
		gh.AssertExpectations(t)
		store.AssertNotCalled(t, "UpsertBatch")
	})

	t.Run("stops retrying once the context is cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		gh := new(MockGitHub)
		store := new(MockStore)
		gh.On("GetContributorStats", mock.Anything, "testowner", "r").
			Return([]model.ContributorActivity{}, context.Canceled).Once()

		c := newTestCrawler(gh, store, NewRepoListCache(time.Hour))
		err := c.withRetry(cancelled, func() error {
			return c.CrawlRepository(cancelled, model.RepositoryRef{Owner: "testowner", Name: "r"}, june)
		})

		assert.ErrorIs(t, err, context.Canceled)
		gh.AssertNumberOfCalls(t, "GetContributorStats", 1)
	})
}

func TestCrawler_TargetMonth(t *testing.T) {
	t.Run("uses the pinned month when configured", func(t *testing.T) {
		c := newTestCrawler(new(MockGitHub), new(MockStore), NewRepoListCache(time.Hour))
		assert.Equal(t, june, c.targetMonth())
	})

	t.Run("derives the current month when not pinned", func(t *testing.T) {
		c := newTestCrawler(new(MockGitHub), new(MockStore), NewRepoListCache(time.Hour))
		c.cfg.TargetMonth = time.Time{}
		c.now = func() time.Time { return time.Date(2024, time.March, 17, 8, 45, 0, 0, time.UTC) }

		assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), c.targetMonth())
	})
}
