package store

import (
	"github.com/flowsync-hq/flowsync/core/db"
)

// Stores provides typed accessors over a shared connection (pool or tx).
type Stores struct {
	conn db.DBTX
}

func NewStores(conn db.DBTX) *Stores {
	return &Stores{conn: conn}
}

func (s *Stores) Cache() CacheStore {
	return newCacheStore(s.conn)
}

func (s *Stores) PullRequests() PullRequestStore {
	return newPullRequestStore(s.conn)
}

func (s *Stores) Issues() IssueStore {
	return newIssueStore(s.conn)
}

func (s *Stores) WebhookLogs() WebhookLogStore {
	return newWebhookLogStore(s.conn)
}

func (s *Stores) Users() UserStore {
	return newUserStore(s.conn)
}

func (s *Stores) Repos() RepoStore {
	return newRepoStore(s.conn)
}
