// internal/extract/extract.go
package extract

import (
	"log/slog"
	"time"

	custom_errors "github-contrib-crawler/internal/errors"
	"github-contrib-crawler/internal/model"
)

// Extractor computes first-contribution records from contributor activity.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// FirstContributionsInMonth returns one record per contributor whose
// first-ever positive commit week falls inside the target month, boundaries
// inclusive. The month of each record is normalized to day 1 UTC.
//
// Precondition: activities are ordered by descending total activity with
// zero-total contributors trailing, as the stats endpoint returns them.
// Scanning stops at the first zero-total entry; later entries are never
// evaluated.
//
// A contributor with a positive total but no positive week is a
// data-integrity violation in the payload. It is logged and skipped without
// aborting the rest of the repository's extraction.
func (e *Extractor) FirstContributionsInMonth(owner, repo string, activities []model.ContributorActivity, targetMonth time.Time) []model.FirstContribution {
	firstDay, start, end := monthBounds(targetMonth)

	var records []model.FirstContribution
	for _, activity := range activities {
		if activity.TotalCommits == 0 {
			break
		}

		first, ok := e.firstPositiveWeek(owner, repo, activity)
		if !ok {
			err := &custom_errors.NoPositiveWeekError{Login: activity.Login}
			e.logger.Warn("skipping contributor", "owner", owner, "repo", repo, "error", err)
			continue
		}

		if first.WeekStart >= start && first.WeekStart <= end {
			records = append(records, model.FirstContribution{
				RepoOwner:    owner,
				Contributor:  activity.Login,
				RepoName:     repo,
				Month:        firstDay,
				TotalCommits: first.Commits,
			})
		}
	}
	return records
}

// firstPositiveWeek finds the earliest week with a positive commit count.
// The stats endpoint returns weeks chronologically ascending; that ordering
// is verified rather than assumed, and an out-of-order payload degrades to
// picking the minimum-timestamp positive week with a warning.
func (e *Extractor) firstPositiveWeek(owner, repo string, activity model.ContributorActivity) (model.WeeklyCommitSample, bool) {
	var (
		best      model.WeeklyCommitSample
		found     bool
		unordered bool
		prev      int64
	)
	for i, week := range activity.Weeks {
		if i > 0 && week.WeekStart < prev {
			unordered = true
		}
		prev = week.WeekStart

		if week.Commits > 0 && (!found || week.WeekStart < best.WeekStart) {
			best = week
			found = true
		}
	}

	if unordered {
		e.logger.Warn("weekly samples out of chronological order, using earliest positive week",
			"owner", owner, "repo", repo, "contributor", activity.Login)
	}
	return best, found
}

// monthBounds returns day 1 of the target month plus the inclusive unix
// boundaries [first day 00:00:00, last day 23:59:59] in UTC, respecting the
// actual day count of that month.
func monthBounds(targetMonth time.Time) (firstDay time.Time, start, end int64) {
	year, month, _ := targetMonth.UTC().Date()
	firstDay = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lastSecond := firstDay.AddDate(0, 1, 0).Add(-time.Second)
	return firstDay, firstDay.Unix(), lastSecond.Unix()
}
