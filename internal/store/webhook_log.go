package store

import (
	"context"

	"github.com/flowsync-hq/flowsync/core/db"
	"github.com/flowsync-hq/flowsync/internal/model"
)

type webhookLogStore struct {
	conn db.DBTX
}

func newWebhookLogStore(conn db.DBTX) WebhookLogStore {
	return &webhookLogStore{conn: conn}
}

func (s *webhookLogStore) Create(ctx context.Context, log *model.WebhookLog) error {
	row := s.conn.QueryRow(ctx,
		`INSERT INTO webhook_logs (id, event_kind, action, repository, payload, processed)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		log.ID, log.EventKind, log.Action, log.Repository, log.Payload, log.Processed,
	)
	return row.Scan(&log.CreatedAt)
}

func (s *webhookLogStore) MarkProcessed(ctx context.Context, id int64) error {
	_, err := s.conn.Exec(ctx, `UPDATE webhook_logs SET processed = true WHERE id = $1`, id)
	return err
}

func (s *webhookLogStore) ListRecent(ctx context.Context, limit int32) ([]model.WebhookLog, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, event_kind, action, repository, payload, processed, created_at
		 FROM webhook_logs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.WebhookLog
	for rows.Next() {
		var log model.WebhookLog
		if err := rows.Scan(
			&log.ID, &log.EventKind, &log.Action, &log.Repository,
			&log.Payload, &log.Processed, &log.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}
