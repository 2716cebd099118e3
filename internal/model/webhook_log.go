package model

import (
	"encoding/json"
	"time"
)

// WebhookLog is an append-only audit record of an inbound webhook delivery.
// Rows are never updated except to flip Processed after the pipeline runs.
type WebhookLog struct {
	CreatedAt  time.Time       `json:"created_at"`
	EventKind  string          `json:"event_kind"`
	Action     string          `json:"action"`
	Repository string          `json:"repository"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ID         int64           `json:"id"`
	Processed  bool            `json:"processed"`
}
