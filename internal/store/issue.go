package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/flowsync-hq/flowsync/core/db"
	"github.com/flowsync-hq/flowsync/internal/model"
)

type issueStore struct {
	conn db.DBTX
}

func newIssueStore(conn db.DBTX) IssueStore {
	return &issueStore{conn: conn}
}

func (s *issueStore) Upsert(ctx context.Context, issue *model.Issue) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO issues
		   (id, number, title, description, state, repository, author, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   description = EXCLUDED.description,
		   state = EXCLUDED.state,
		   author = EXCLUDED.author,
		   data = EXCLUDED.data,
		   updated_at = EXCLUDED.updated_at`,
		issue.ID, issue.Number, issue.Title, issue.Description, issue.State,
		issue.Repository, issue.Author, issue.Data, issue.CreatedAt, issue.UpdatedAt,
	)
	return err
}

func (s *issueStore) GetByID(ctx context.Context, id string) (*model.Issue, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT id, number, title, description, state, repository, author, data, created_at, updated_at
		 FROM issues WHERE id = $1`,
		id,
	)
	issue, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return issue, nil
}

func (s *issueStore) ListByRepository(ctx context.Context, repoFullName string) ([]model.Issue, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, number, title, description, state, repository, author, data, created_at, updated_at
		 FROM issues WHERE repository = $1 ORDER BY number DESC`,
		repoFullName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *issue)
	}
	return result, rows.Err()
}

func scanIssue(row pgx.Row) (*model.Issue, error) {
	var issue model.Issue
	if err := row.Scan(
		&issue.ID, &issue.Number, &issue.Title, &issue.Description, &issue.State,
		&issue.Repository, &issue.Author, &issue.Data, &issue.CreatedAt, &issue.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &issue, nil
}
