package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/flowsync-hq/flowsync/internal/github"
	"github.com/flowsync-hq/flowsync/internal/model"
)

// IssueCacheKey builds the cache key for an issue listing, mirroring
// PullRequestCacheKey.
func IssueCacheKey(repos []string, state string) string {
	sorted := append([]string(nil), repos...)
	sort.Strings(sorted)
	return fmt.Sprintf("issues:%s:%s", strings.Join(sorted, ","), state)
}

// IssueList is an aggregated issue listing plus where it came from.
type IssueList struct {
	Issues    []*model.Issue `json:"issues"`
	FromCache bool           `json:"from_cache"`
}

type IssueService interface {
	List(ctx context.Context, token string, repos []string, state string) (*IssueList, error)
}

type issueService struct {
	api      GitHubAPI
	cache    ResponseCache
	txRunner TxRunner
	logger   *slog.Logger
}

func NewIssueService(api GitHubAPI, cache ResponseCache, txRunner TxRunner, logger *slog.Logger) IssueService {
	if logger == nil {
		logger = slog.Default()
	}
	return &issueService{
		api:      api,
		cache:    cache,
		txRunner: txRunner,
		logger:   logger,
	}
}

func (s *issueService) List(ctx context.Context, token string, repos []string, state string) (*IssueList, error) {
	if len(repos) == 0 {
		return &IssueList{Issues: []*model.Issue{}}, nil
	}
	if state == "" {
		state = "open"
	}

	key := IssueCacheKey(repos, state)

	var cached []*model.Issue
	if s.cache.GetInto(ctx, key, &cached) {
		return &IssueList{Issues: cached, FromCache: true}, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
		all      []*model.Issue
	)
	for _, repo := range repos {
		wg.Add(1)
		go func(repo string) {
			defer wg.Done()
			issues, err := s.api.ListIssues(ctx, token, repo, state)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for i := range issues {
				all = append(all, issueFromAPI(repo, &issues[i]))
			}
		}(repo)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	sort.Slice(all, func(i, j int) bool {
		return timeOrZero(all[i].UpdatedAt).After(timeOrZero(all[j].UpdatedAt))
	})

	if err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		for _, issue := range all {
			if err := sp.Issues().Upsert(ctx, issue); err != nil {
				return fmt.Errorf("upserting issue %s: %w", issue.ID, err)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, all, responseTTL); err != nil {
		s.logger.WarnContext(ctx, "caching issue listing failed", "key", key, "error", err)
	}

	return &IssueList{Issues: all}, nil
}

func issueFromAPI(repo string, issue *github.Issue) *model.Issue {
	return &model.Issue{
		ID:          model.IssueKey(repo, issue.Number),
		Number:      issue.Number,
		Repository:  repo,
		Title:       issue.Title,
		State:       issue.State,
		Author:      issue.User.Login,
		Description: issue.Body,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
	}
}
