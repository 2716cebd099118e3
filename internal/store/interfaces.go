package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/flowsync-hq/flowsync/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// CacheRow is one durable cache entry. Data is an opaque serialized blob;
// the store does not interpret its structure.
type CacheRow struct {
	ExpiresAt time.Time
	Key       string
	Data      json.RawMessage
}

// CacheStore is the durable tier of the tiered cache.
type CacheStore interface {
	Get(ctx context.Context, key string) (*CacheRow, error)
	Upsert(ctx context.Context, key string, data json.RawMessage, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
	// DeleteWhere removes every entry whose key matches the glob pattern
	// ("*" matches any run of characters; a bare "*" matches everything).
	DeleteWhere(ctx context.Context, pattern string) error
	DeleteExpired(ctx context.Context, now time.Time) error
}

// PullRequestStore defines the contract for pull request record access
type PullRequestStore interface {
	Upsert(ctx context.Context, pr *model.PullRequest) error
	GetByID(ctx context.Context, id string) (*model.PullRequest, error)
	ListByRepository(ctx context.Context, repoFullName string) ([]model.PullRequest, error)
}

// IssueStore defines the contract for issue record access
type IssueStore interface {
	Upsert(ctx context.Context, issue *model.Issue) error
	GetByID(ctx context.Context, id string) (*model.Issue, error)
	ListByRepository(ctx context.Context, repoFullName string) ([]model.Issue, error)
}

// WebhookLogStore is an append-only audit log of webhook deliveries
type WebhookLogStore interface {
	Create(ctx context.Context, log *model.WebhookLog) error
	MarkProcessed(ctx context.Context, id int64) error
	ListRecent(ctx context.Context, limit int32) ([]model.WebhookLog, error)
}

// UserStore defines the contract for user data access
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	UpsertByGitHubID(ctx context.Context, user *model.User) error
}

// RepoStore defines the contract for connected-repository data access
type RepoStore interface {
	EnsureExists(ctx context.Context, repo *model.Repository) error
	ListByUser(ctx context.Context, userID string) ([]string, error)
	ReplaceForUser(ctx context.Context, userID string, repoFullNames []string) error
}
