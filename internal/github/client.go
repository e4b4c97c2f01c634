// internal/github/client.go
package github

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "github-contrib-crawler/internal/errors"
	"github-contrib-crawler/internal/model"
)

const (
	// userAgent identifies the crawler on every request.
	userAgent = "github-contrib-crawler"

	// repoPageSize is the fixed page size for the repository listing.
	repoPageSize = 50
)

// Client is a wrapper around the go-github client. It translates API
// responses into internal model types and maps rate-limit exhaustion and
// request failures onto typed errors. The client never retries on its own;
// retrying (after the indicated wait) is the caller's responsibility.
type Client struct {
	gh      *github.Client
	tracker *RateLimitTracker
	logger  *slog.Logger
}

// NewClient creates and configures a new Client instance.
// An empty token produces an unauthenticated client.
func NewClient(token string, tracker *RateLimitTracker, logger *slog.Logger) *Client {
	var gh *github.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		gh = github.NewClient(oauth2.NewClient(context.Background(), ts))
	} else {
		gh = github.NewClient(nil)
	}
	gh.UserAgent = userAgent

	return &Client{
		gh:      gh,
		tracker: tracker,
		logger:  logger,
	}
}

// WithBaseURL points the client at a different API root, such as a GitHub
// Enterprise instance or a test server.
func (c *Client) WithBaseURL(raw string) error {
	u, err := url.Parse(raw + "/")
	if err != nil {
		return err
	}
	c.gh.BaseURL = u
	return nil
}

// ListRepositories fetches the full repository list of an account, page by
// page, until the API returns an empty page. Entries without a name are
// dropped as malformed.
func (c *Client) ListRepositories(ctx context.Context, owner string) ([]model.RepositoryRef, error) {
	var refs []model.RepositoryRef

	opts := &github.RepositoryListByUserOptions{
		ListOptions: github.ListOptions{Page: 1, PerPage: repoPageSize},
	}

	for {
		if err := c.tracker.Wait(ctx); err != nil {
			return nil, err
		}
		c.logger.Debug("fetching repositories page", "owner", owner, "page", opts.Page)

		repos, resp, err := c.gh.Repositories.ListByUser(ctx, owner, opts)
		if err := c.checkResponse(resp, err); err != nil {
			return nil, err
		}
		if len(repos) == 0 {
			break
		}

		for _, r := range repos {
			if r.GetName() == "" {
				continue
			}
			refs = append(refs, model.RepositoryRef{Owner: owner, Name: r.GetName()})
		}
		opts.Page++
	}

	return refs, nil
}

// GetContributorStats fetches the weekly commit histogram of every
// contributor of a repository. Stats are computed asynchronously on the API
// side; a pending response (202, or the empty 204 body) yields an empty
// sequence rather than an error.
func (c *Client) GetContributorStats(ctx context.Context, owner, repo string) ([]model.ContributorActivity, error) {
	if err := c.tracker.Wait(ctx); err != nil {
		return nil, err
	}

	stats, resp, err := c.gh.Repositories.ListContributorsStats(ctx, owner, repo)
	if err := c.checkResponse(resp, err); err != nil {
		var accepted *github.AcceptedError
		if errors.As(err, &accepted) {
			c.logger.Info("contributor stats not yet computed", "owner", owner, "repo", repo)
			return nil, nil
		}
		return nil, err
	}

	activities := make([]model.ContributorActivity, 0, len(stats))
	for _, s := range stats {
		activities = append(activities, toActivity(s))
	}
	return activities, nil
}

// checkResponse applies the shared response contract: the rate-limit tracker
// is consulted first, so a 403 with an exhausted budget always surfaces as a
// RateLimitError regardless of what the request itself returned; any other
// API failure becomes a RequestError.
func (c *Client) checkResponse(resp *github.Response, err error) error {
	if resp != nil {
		if action := c.tracker.Evaluate(resp); action.Wait {
			return &custom_errors.RateLimitError{
				ResetAt: resp.Rate.Reset.Time,
				Wait:    action.Duration,
			}
		}
	}
	if err == nil {
		return nil
	}

	// go-github can fail a call from its cached rate state without issuing
	// the request; that carries no response for the tracker to evaluate.
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		wait := time.Until(rateErr.Rate.Reset.Time)
		if wait < 0 {
			wait = 0
		}
		return &custom_errors.RateLimitError{ResetAt: rateErr.Rate.Reset.Time, Wait: wait}
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return &custom_errors.RequestError{
			StatusCode: ghErr.Response.StatusCode,
			Body:       ghErr.Message,
		}
	}
	return err
}

// toActivity translates a github.ContributorStats object to our internal
// model.ContributorActivity, preserving the API's week ordering.
func toActivity(s *github.ContributorStats) model.ContributorActivity {
	weeks := make([]model.WeeklyCommitSample, 0, len(s.Weeks))
	for _, w := range s.Weeks {
		weeks = append(weeks, model.WeeklyCommitSample{
			WeekStart: w.GetWeek().Unix(),
			Commits:   w.GetCommits(),
		})
	}
	return model.ContributorActivity{
		Login:        s.GetAuthor().GetLogin(),
		TotalCommits: s.GetTotal(),
		Weeks:        weeks,
	}
}
