package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Issue is the persisted snapshot of a GitHub issue.
type Issue struct {
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	State       string          `json:"state"`
	Repository  string          `json:"repository"`
	Author      string          `json:"author"`
	Data        json.RawMessage `json:"data,omitempty"`
	Number      int             `json:"number"`
}

// IssueKey builds the deterministic record key for an issue.
func IssueKey(repoFullName string, number int) string {
	return fmt.Sprintf("issue-%s-%d", repoFullName, number)
}
