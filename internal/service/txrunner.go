package service

import (
	"context"

	"github.com/flowsync-hq/flowsync/core/db"
	"github.com/flowsync-hq/flowsync/internal/store"
)

// StoreProvider exposes the stores services operate on. *store.Stores
// satisfies it both over the pool and over a transaction.
type StoreProvider interface {
	Cache() store.CacheStore
	PullRequests() store.PullRequestStore
	Issues() store.IssueStore
	WebhookLogs() store.WebhookLogStore
	Users() store.UserStore
	Repos() store.RepoStore
}

// TxRunner runs functions within a transaction and provides stores bound to
// that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

// NewTxRunner builds a TxRunner backed by the core DB.
func NewTxRunner(db *db.DB) TxRunner {
	return &dbTxRunner{db: db}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(tx db.DBTX) error {
		return fn(store.NewStores(tx))
	})
}
