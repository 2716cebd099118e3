package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flowsync-hq/flowsync/internal/github"
	"github.com/flowsync-hq/flowsync/internal/model"
)

// responseTTL is how long aggregated API responses stay cached. Webhook
// invalidation usually retires entries long before this.
const responseTTL = 5 * time.Minute

// GitHubAPI is the slice of the GitHub client the services consume.
// *github.Client satisfies it.
type GitHubAPI interface {
	ListPullRequests(ctx context.Context, token, repo, state string) ([]github.PullRequest, error)
	ListIssues(ctx context.Context, token, repo, state string) ([]github.Issue, error)
	ListUserRepositories(ctx context.Context, token string) ([]github.Repository, error)
	AuthenticatedUser(ctx context.Context, token string) (*github.Account, error)
	UpdatePullRequestState(ctx context.Context, token, repo string, number int, state string) (*github.PullRequest, error)
	CreateComment(ctx context.Context, token, repo string, number int, body string) error
	ExchangeOAuthCode(ctx context.Context, clientID, clientSecret, code string) (string, error)
}

// ResponseCache is the cache surface the aggregation services consume.
// *cache.TieredCache satisfies it.
type ResponseCache interface {
	CacheInvalidator
	GetInto(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// PullRequestCacheKey builds the cache key for a pull request listing. The
// repository list is sorted so equivalent queries share an entry, and the
// key embeds each repository name so webhook invalidation patterns match it.
func PullRequestCacheKey(repos []string, state string) string {
	sorted := append([]string(nil), repos...)
	sort.Strings(sorted)
	return fmt.Sprintf("prs:%s:%s", strings.Join(sorted, ","), state)
}

// PullRequestList is an aggregated listing plus where it came from.
type PullRequestList struct {
	PullRequests []*model.PullRequest `json:"pull_requests"`
	FromCache    bool                 `json:"from_cache"`
}

type PullRequestService interface {
	List(ctx context.Context, token string, repos []string, state string) (*PullRequestList, error)
	UpdateState(ctx context.Context, token, repo string, number int, state string) (*model.PullRequest, error)
	Comment(ctx context.Context, token, repo string, number int, body string) error
}

type pullRequestService struct {
	api      GitHubAPI
	cache    ResponseCache
	txRunner TxRunner
	hub      Broadcaster
	logger   *slog.Logger
}

func NewPullRequestService(api GitHubAPI, cache ResponseCache, txRunner TxRunner, hub Broadcaster, logger *slog.Logger) PullRequestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &pullRequestService{
		api:      api,
		cache:    cache,
		txRunner: txRunner,
		hub:      hub,
		logger:   logger,
	}
}

// List aggregates pull requests across repos, serving from the cache when it
// can. Fresh results are persisted and cached; a cache write failure is
// logged but does not fail the listing.
func (s *pullRequestService) List(ctx context.Context, token string, repos []string, state string) (*PullRequestList, error) {
	if len(repos) == 0 {
		return &PullRequestList{PullRequests: []*model.PullRequest{}}, nil
	}
	if state == "" {
		state = "open"
	}

	key := PullRequestCacheKey(repos, state)

	var cached []*model.PullRequest
	if s.cache.GetInto(ctx, key, &cached) {
		return &PullRequestList{PullRequests: cached, FromCache: true}, nil
	}

	prs, err := s.fetchAll(ctx, token, repos, state)
	if err != nil {
		return nil, err
	}

	sort.Slice(prs, func(i, j int) bool {
		return timeOrZero(prs[i].LastUpdated).After(timeOrZero(prs[j].LastUpdated))
	})

	if err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		for _, pr := range prs {
			if err := sp.PullRequests().Upsert(ctx, pr); err != nil {
				return fmt.Errorf("upserting pull request %s: %w", pr.ID, err)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, prs, responseTTL); err != nil {
		s.logger.WarnContext(ctx, "caching pull request listing failed", "key", key, "error", err)
	}

	return &PullRequestList{PullRequests: prs}, nil
}

// fetchAll queries every repository concurrently. One failing repository
// fails the whole aggregation; serving a silently partial dashboard is worse
// than an error the client can retry.
func (s *pullRequestService) fetchAll(ctx context.Context, token string, repos []string, state string) ([]*model.PullRequest, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
		all      []*model.PullRequest
	)

	for _, repo := range repos {
		wg.Add(1)
		go func(repo string) {
			defer wg.Done()
			prs, err := s.api.ListPullRequests(ctx, token, repo, state)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for i := range prs {
				all = append(all, pullRequestFromAPI(repo, &prs[i]))
			}
		}(repo)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return all, nil
}

// UpdateState opens or closes a pull request upstream, then refreshes the
// local snapshot, invalidates listings, and notifies subscribers.
func (s *pullRequestService) UpdateState(ctx context.Context, token, repo string, number int, state string) (*model.PullRequest, error) {
	if state != "open" && state != "closed" {
		return nil, fmt.Errorf("invalid pull request state %q", state)
	}

	updated, err := s.api.UpdatePullRequestState(ctx, token, repo, number, state)
	if err != nil {
		return nil, err
	}

	pr := pullRequestFromAPI(repo, updated)
	if err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		return sp.PullRequests().Upsert(ctx, pr)
	}); err != nil {
		return nil, fmt.Errorf("persisting pull request %s: %w", pr.ID, err)
	}

	if err := s.cache.Clear(ctx, "prs:*"+repo+"*"); err != nil {
		s.logger.ErrorContext(ctx, "cache invalidation failed after update", "repository", repo, "error", err)
	}
	s.hub.BroadcastRepo(repo, "pr:updated", map[string]any{
		"prId":   pr.ID,
		"update": map[string]any{"state": state},
	})

	return pr, nil
}

func (s *pullRequestService) Comment(ctx context.Context, token, repo string, number int, body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("comment body is required")
	}
	if err := s.api.CreateComment(ctx, token, repo, number, body); err != nil {
		return err
	}
	s.hub.BroadcastRepo(repo, "pr:updated", map[string]any{
		"prId":   model.PullRequestKey(repo, number),
		"update": map[string]any{"commented": true},
	})
	return nil
}

func pullRequestFromAPI(repo string, pr *github.PullRequest) *model.PullRequest {
	status := model.PullRequestStatusOpen
	switch {
	case pr.Merged || pr.MergedAt != nil:
		status = model.PullRequestStatusMerged
	case pr.State == "closed":
		status = model.PullRequestStatusClosed
	case pr.Draft:
		status = model.PullRequestStatusDraft
	}

	return &model.PullRequest{
		ID:          model.PullRequestKey(repo, pr.Number),
		Number:      pr.Number,
		Repository:  repo,
		Title:       pr.Title,
		Status:      status,
		Author:      pr.User.Login,
		Description: pr.Body,
		BranchName:  pr.Head.Ref,
		BaseBranch:  pr.Base.Ref,
		CreatedAt:   pr.CreatedAt,
		LastUpdated: pr.UpdatedAt,
	}
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
