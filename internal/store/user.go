package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/flowsync-hq/flowsync/core/db"
	"github.com/flowsync-hq/flowsync/internal/model"
)

type userStore struct {
	conn db.DBTX
}

func newUserStore(conn db.DBTX) UserStore {
	return &userStore{conn: conn}
}

func (s *userStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT id, github_id, username, email, avatar_url, access_token, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	)

	var user model.User
	if err := row.Scan(
		&user.ID, &user.GitHubID, &user.Username, &user.Email,
		&user.AvatarURL, &user.AccessToken, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *userStore) UpsertByGitHubID(ctx context.Context, user *model.User) error {
	row := s.conn.QueryRow(ctx,
		`INSERT INTO users (id, github_id, username, email, avatar_url, access_token)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   username = EXCLUDED.username,
		   email = EXCLUDED.email,
		   avatar_url = EXCLUDED.avatar_url,
		   access_token = EXCLUDED.access_token,
		   updated_at = now()
		 RETURNING created_at, updated_at`,
		user.ID, user.GitHubID, user.Username, user.Email, user.AvatarURL, user.AccessToken,
	)
	return row.Scan(&user.CreatedAt, &user.UpdatedAt)
}
