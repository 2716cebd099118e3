package store

import (
	"context"

	"github.com/flowsync-hq/flowsync/core/db"
	"github.com/flowsync-hq/flowsync/internal/model"
)

type repoStore struct {
	conn db.DBTX
}

func newRepoStore(conn db.DBTX) RepoStore {
	return &repoStore{conn: conn}
}

func (s *repoStore) EnsureExists(ctx context.Context, repo *model.Repository) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO repositories (id, name, full_name, owner, private, description, default_branch, url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (full_name) DO NOTHING`,
		repo.ID, repo.Name, repo.FullName, repo.Owner, repo.Private,
		repo.Description, repo.DefaultBranch, repo.URL,
	)
	return err
}

func (s *repoStore) ListByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT repository_id FROM user_repositories WHERE user_id = $1 ORDER BY repository_id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repos []string
	for rows.Next() {
		var repo string
		if err := rows.Scan(&repo); err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

func (s *repoStore) ReplaceForUser(ctx context.Context, userID string, repoFullNames []string) error {
	if _, err := s.conn.Exec(ctx,
		`DELETE FROM user_repositories WHERE user_id = $1`, userID,
	); err != nil {
		return err
	}
	for _, repo := range repoFullNames {
		if _, err := s.conn.Exec(ctx,
			`INSERT INTO user_repositories (user_id, repository_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			userID, repo,
		); err != nil {
			return err
		}
	}
	return nil
}
