package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type PullRequestStatus string

const (
	PullRequestStatusDraft  PullRequestStatus = "draft"
	PullRequestStatusOpen   PullRequestStatus = "open"
	PullRequestStatusClosed PullRequestStatus = "closed"
	PullRequestStatusMerged PullRequestStatus = "merged"
)

// PullRequest is the persisted snapshot of a GitHub pull request.
// It is upserted from both API fetches and webhook deliveries; the raw
// provider payload is retained in Data.
type PullRequest struct {
	LastUpdated *time.Time        `json:"last_updated,omitempty"`
	CreatedAt   *time.Time        `json:"created_at,omitempty"`
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	BranchName  string            `json:"branch_name"`
	BaseBranch  string            `json:"base_branch"`
	Repository  string            `json:"repository"`
	Status      PullRequestStatus `json:"status"`
	Description string            `json:"description"`
	Author      string            `json:"author"`
	Data        json.RawMessage   `json:"data,omitempty"`
	Number      int               `json:"number"`
}

// PullRequestKey builds the deterministic record key for a pull request.
func PullRequestKey(repoFullName string, number int) string {
	return fmt.Sprintf("pr-%s-%d", repoFullName, number)
}
