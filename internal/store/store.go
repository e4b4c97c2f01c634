// internal/store/store.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	custom_errors "github-contrib-crawler/internal/errors"
	"github-contrib-crawler/internal/model"
)

// Store persists first-contribution records in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const upsertFirstContributionSQL = `
INSERT INTO first_contributions (repo_owner, contributor, repo_name, month, total_commits)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (contributor, repo_owner, repo_name)
DO UPDATE SET
	month = EXCLUDED.month,
	total_commits = EXCLUDED.total_commits,
	updated_at = now()`

// UpsertBatch writes a batch of records in a single transaction. Conflict
// resolution is keyed on (contributor, repo_owner, repo_name) and overwrites
// the non-key columns, so re-running the same extraction converges to the
// same stored state. An empty batch is a no-op that never touches storage.
func (s *Store) UpsertBatch(ctx context.Context, records []model.FirstContribution) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &custom_errors.PersistenceError{Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the transaction is already committed.

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(upsertFirstContributionSQL, r.RepoOwner, r.Contributor, r.RepoName, r.Month, r.TotalCommits)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return &custom_errors.PersistenceError{Err: fmt.Errorf("upsert batch: %w", err)}
	}

	if err := tx.Commit(ctx); err != nil {
		return &custom_errors.PersistenceError{Err: fmt.Errorf("commit transaction: %w", err)}
	}
	return nil
}

// FirstContributionPage is one page of persisted records.
type FirstContributionPage struct {
	TotalRecords int64
	Items        []model.FirstContribution
}

// ListFirstContributions returns one page of records ordered by repository
// and contributor. Page numbering starts at 1.
func (s *Store) ListFirstContributions(ctx context.Context, page, pageSize int) (FirstContributionPage, error) {
	var result FirstContributionPage

	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM first_contributions`).Scan(&result.TotalRecords)
	if err != nil {
		return result, fmt.Errorf("count first contributions: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT repo_owner, contributor, repo_name, month, total_commits
		FROM first_contributions
		ORDER BY repo_owner, repo_name, contributor
		LIMIT $1 OFFSET $2`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return result, fmt.Errorf("list first contributions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r model.FirstContribution
		if err := rows.Scan(&r.RepoOwner, &r.Contributor, &r.RepoName, &r.Month, &r.TotalCommits); err != nil {
			return result, fmt.Errorf("scan first contribution: %w", err)
		}
		result.Items = append(result.Items, r)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("list first contributions: %w", err)
	}
	return result, nil
}

// NewContributorCount aggregates how many contributors made their first
// contribution to a repository in a given month.
type NewContributorCount struct {
	RepoName        string
	Month           time.Time
	NewContributors int64
}

// NewContributorPage is one page of per-repository aggregates.
type NewContributorPage struct {
	TotalRecords int64
	Items        []NewContributorCount
}

// ListNewContributorCounts returns one page of (repository, month) aggregates
// over the persisted table. Page numbering starts at 1.
func (s *Store) ListNewContributorCounts(ctx context.Context, page, pageSize int) (NewContributorPage, error) {
	var result NewContributorPage

	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT 1 FROM first_contributions GROUP BY repo_name, month
		) groups`).Scan(&result.TotalRecords)
	if err != nil {
		return result, fmt.Errorf("count new contributor groups: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT repo_name, month, count(*) AS new_contributors
		FROM first_contributions
		GROUP BY repo_name, month
		ORDER BY repo_name, month
		LIMIT $1 OFFSET $2`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return result, fmt.Errorf("list new contributor counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c NewContributorCount
		if err := rows.Scan(&c.RepoName, &c.Month, &c.NewContributors); err != nil {
			return result, fmt.Errorf("scan new contributor count: %w", err)
		}
		result.Items = append(result.Items, c)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("list new contributor counts: %w", err)
	}
	return result, nil
}
