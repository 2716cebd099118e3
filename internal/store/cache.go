package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/flowsync-hq/flowsync/core/db"
)

type cacheStore struct {
	conn db.DBTX
}

func newCacheStore(conn db.DBTX) CacheStore {
	return &cacheStore{conn: conn}
}

func (s *cacheStore) Get(ctx context.Context, key string) (*CacheRow, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT key, data, expires_at FROM cache WHERE key = $1 AND expires_at > now()`,
		key,
	)

	var out CacheRow
	if err := row.Scan(&out.Key, &out.Data, &out.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (s *cacheStore) Upsert(ctx context.Context, key string, data json.RawMessage, expiresAt time.Time) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO cache (key, data, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`,
		key, data, expiresAt,
	)
	return err
}

func (s *cacheStore) Delete(ctx context.Context, key string) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM cache WHERE key = $1`, key)
	return err
}

func (s *cacheStore) DeleteWhere(ctx context.Context, pattern string) error {
	if pattern == "*" {
		_, err := s.conn.Exec(ctx, `DELETE FROM cache`)
		return err
	}
	_, err := s.conn.Exec(ctx, `DELETE FROM cache WHERE key LIKE $1`, globToLike(pattern))
	return err
}

func (s *cacheStore) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM cache WHERE expires_at <= $1`, now)
	return err
}

// globToLike translates a "*" glob into a LIKE pattern, escaping LIKE metacharacters
// so literal "%" or "_" in keys cannot widen the match.
func globToLike(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteByte('%')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
