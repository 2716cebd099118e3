package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/flowsync-hq/flowsync/core/db"
	"github.com/flowsync-hq/flowsync/internal/model"
)

type pullRequestStore struct {
	conn db.DBTX
}

func newPullRequestStore(conn db.DBTX) PullRequestStore {
	return &pullRequestStore{conn: conn}
}

func (s *pullRequestStore) Upsert(ctx context.Context, pr *model.PullRequest) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO pull_requests
		   (id, number, title, branch_name, base_branch, repository, status, description, author, data, last_updated, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, now()))
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   branch_name = EXCLUDED.branch_name,
		   base_branch = EXCLUDED.base_branch,
		   status = EXCLUDED.status,
		   description = EXCLUDED.description,
		   author = EXCLUDED.author,
		   data = EXCLUDED.data,
		   last_updated = EXCLUDED.last_updated`,
		pr.ID, pr.Number, pr.Title, pr.BranchName, pr.BaseBranch, pr.Repository,
		string(pr.Status), pr.Description, pr.Author, pr.Data, pr.LastUpdated, pr.CreatedAt,
	)
	return err
}

func (s *pullRequestStore) GetByID(ctx context.Context, id string) (*model.PullRequest, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT id, number, title, branch_name, base_branch, repository, status, description, author, data, last_updated, created_at
		 FROM pull_requests WHERE id = $1`,
		id,
	)
	pr, err := scanPullRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return pr, nil
}

func (s *pullRequestStore) ListByRepository(ctx context.Context, repoFullName string) ([]model.PullRequest, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, number, title, branch_name, base_branch, repository, status, description, author, data, last_updated, created_at
		 FROM pull_requests WHERE repository = $1 ORDER BY number DESC`,
		repoFullName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.PullRequest
	for rows.Next() {
		pr, err := scanPullRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *pr)
	}
	return result, rows.Err()
}

func scanPullRequest(row pgx.Row) (*model.PullRequest, error) {
	var pr model.PullRequest
	var status string
	if err := row.Scan(
		&pr.ID, &pr.Number, &pr.Title, &pr.BranchName, &pr.BaseBranch, &pr.Repository,
		&status, &pr.Description, &pr.Author, &pr.Data, &pr.LastUpdated, &pr.CreatedAt,
	); err != nil {
		return nil, err
	}
	pr.Status = model.PullRequestStatus(status)
	return &pr, nil
}
