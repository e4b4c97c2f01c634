// internal/model/models.go
package model

import "time"

// RepositoryRef identifies one repository of the crawled account.
type RepositoryRef struct {
	Owner string
	Name  string
}

// WeeklyCommitSample is one week of a contributor's commit history.
// WeekStart is the unix timestamp of the start of the week.
type WeeklyCommitSample struct {
	WeekStart int64
	Commits   int
}

// ContributorActivity is the full commit histogram of one contributor for
// one repository, as returned by the contributor statistics endpoint.
// Weeks are expected in chronologically ascending order.
type ContributorActivity struct {
	Login        string
	TotalCommits int
	Weeks        []WeeklyCommitSample
}

// FirstContribution records that a contributor made their first-ever commit
// to a repository during Month. Month is always normalized to day 1 UTC.
// TotalCommits is the commit count of that first week, not a lifetime total.
type FirstContribution struct {
	RepoOwner    string
	Contributor  string
	RepoName     string
	Month        time.Time
	TotalCommits int
}
