package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/flowsync-hq/flowsync/internal/github"
	"github.com/flowsync-hq/flowsync/internal/model"
	"github.com/flowsync-hq/flowsync/internal/service"
	"github.com/flowsync-hq/flowsync/internal/store"
)

// Mock PullRequestStore
type mockPullRequestStore struct {
	upsertFn func(ctx context.Context, pr *model.PullRequest) error
	upserted []*model.PullRequest
}

func (m *mockPullRequestStore) Upsert(ctx context.Context, pr *model.PullRequest) error {
	m.upserted = append(m.upserted, pr)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, pr)
	}
	return nil
}

func (m *mockPullRequestStore) GetByID(ctx context.Context, id string) (*model.PullRequest, error) {
	return nil, store.ErrNotFound
}

func (m *mockPullRequestStore) ListByRepository(ctx context.Context, repoFullName string) ([]model.PullRequest, error) {
	return nil, nil
}

// Mock IssueStore
type mockIssueStore struct {
	upsertFn func(ctx context.Context, issue *model.Issue) error
	upserted []*model.Issue
}

func (m *mockIssueStore) Upsert(ctx context.Context, issue *model.Issue) error {
	m.upserted = append(m.upserted, issue)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, issue)
	}
	return nil
}

func (m *mockIssueStore) GetByID(ctx context.Context, id string) (*model.Issue, error) {
	return nil, store.ErrNotFound
}

func (m *mockIssueStore) ListByRepository(ctx context.Context, repoFullName string) ([]model.Issue, error) {
	return nil, nil
}

// Mock WebhookLogStore
type mockWebhookLogStore struct {
	createFn    func(ctx context.Context, log *model.WebhookLog) error
	created     []*model.WebhookLog
	processedID []int64
}

func (m *mockWebhookLogStore) Create(ctx context.Context, log *model.WebhookLog) error {
	m.created = append(m.created, log)
	if m.createFn != nil {
		return m.createFn(ctx, log)
	}
	return nil
}

func (m *mockWebhookLogStore) MarkProcessed(ctx context.Context, id int64) error {
	m.processedID = append(m.processedID, id)
	return nil
}

func (m *mockWebhookLogStore) ListRecent(ctx context.Context, limit int32) ([]model.WebhookLog, error) {
	return nil, nil
}

// Mock UserStore
type mockUserStore struct {
	getByIDFn func(ctx context.Context, id string) (*model.User, error)
	upserted  []*model.User
}

func (m *mockUserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockUserStore) UpsertByGitHubID(ctx context.Context, user *model.User) error {
	m.upserted = append(m.upserted, user)
	return nil
}

// Mock RepoStore
type mockRepoStore struct {
	ensured  []*model.Repository
	replaced map[string][]string
}

func (m *mockRepoStore) EnsureExists(ctx context.Context, repo *model.Repository) error {
	m.ensured = append(m.ensured, repo)
	return nil
}

func (m *mockRepoStore) ListByUser(ctx context.Context, userID string) ([]string, error) {
	if m.replaced == nil {
		return nil, nil
	}
	return m.replaced[userID], nil
}

func (m *mockRepoStore) ReplaceForUser(ctx context.Context, userID string, repoFullNames []string) error {
	if m.replaced == nil {
		m.replaced = make(map[string][]string)
	}
	m.replaced[userID] = repoFullNames
	return nil
}

// mockStoreProvider bundles the store mocks behind service.StoreProvider.
type mockStoreProvider struct {
	pullRequests *mockPullRequestStore
	issues       *mockIssueStore
	webhookLogs  *mockWebhookLogStore
	users        *mockUserStore
	repos        *mockRepoStore
}

func (m *mockStoreProvider) Cache() store.CacheStore              { return nil }
func (m *mockStoreProvider) PullRequests() store.PullRequestStore { return m.pullRequests }
func (m *mockStoreProvider) Issues() store.IssueStore             { return m.issues }
func (m *mockStoreProvider) WebhookLogs() store.WebhookLogStore   { return m.webhookLogs }
func (m *mockStoreProvider) Users() store.UserStore               { return m.users }
func (m *mockStoreProvider) Repos() store.RepoStore               { return m.repos }

// mockTxRunner hands the callback the mock stores without a real transaction.
type mockTxRunner struct {
	withTxFn func(ctx context.Context, fn func(stores service.StoreProvider) error) error
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn func(stores service.StoreProvider) error) error {
	if m.withTxFn != nil {
		return m.withTxFn(ctx, fn)
	}
	return fn(&mockStoreProvider{})
}

// mockCache implements service.ResponseCache in memory.
type mockCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	getFn    func(key string, dest any) bool
	setErr   error
	clearErr error
	cleared  []string
	setKeys  []string
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string][]byte{}}
}

func (m *mockCache) GetInto(ctx context.Context, key string, dest any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getFn != nil {
		return m.getFn(key, dest)
	}
	return false
}

func (m *mockCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.setKeys = append(m.setKeys, key)
	return nil
}

func (m *mockCache) Clear(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared = append(m.cleared, pattern)
	return nil
}

// mockBroadcaster records hub fan-outs.
type mockBroadcast struct {
	Repo  string
	Event string
	Data  any
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []mockBroadcast
}

func (m *mockBroadcaster) BroadcastRepo(fullName string, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, mockBroadcast{Repo: fullName, Event: event, Data: data})
}

// mockGitHubAPI implements service.GitHubAPI.
type mockGitHubAPI struct {
	listPRsFn       func(ctx context.Context, token, repo, state string) ([]github.PullRequest, error)
	listIssuesFn    func(ctx context.Context, token, repo, state string) ([]github.Issue, error)
	updatePRStateFn func(ctx context.Context, token, repo string, number int, state string) (*github.PullRequest, error)
	exchangeFn      func(ctx context.Context, clientID, clientSecret, code string) (string, error)
	userFn          func(ctx context.Context, token string) (*github.Account, error)
	comments        []string
}

func (m *mockGitHubAPI) ListPullRequests(ctx context.Context, token, repo, state string) ([]github.PullRequest, error) {
	if m.listPRsFn != nil {
		return m.listPRsFn(ctx, token, repo, state)
	}
	return nil, nil
}

func (m *mockGitHubAPI) ListIssues(ctx context.Context, token, repo, state string) ([]github.Issue, error) {
	if m.listIssuesFn != nil {
		return m.listIssuesFn(ctx, token, repo, state)
	}
	return nil, nil
}

func (m *mockGitHubAPI) ListUserRepositories(ctx context.Context, token string) ([]github.Repository, error) {
	return nil, nil
}

func (m *mockGitHubAPI) AuthenticatedUser(ctx context.Context, token string) (*github.Account, error) {
	if m.userFn != nil {
		return m.userFn(ctx, token)
	}
	return &github.Account{Login: "octocat", NodeID: "U_octocat", ID: 1}, nil
}

func (m *mockGitHubAPI) UpdatePullRequestState(ctx context.Context, token, repo string, number int, state string) (*github.PullRequest, error) {
	if m.updatePRStateFn != nil {
		return m.updatePRStateFn(ctx, token, repo, number, state)
	}
	return &github.PullRequest{Number: number, State: state}, nil
}

func (m *mockGitHubAPI) CreateComment(ctx context.Context, token, repo string, number int, body string) error {
	m.comments = append(m.comments, body)
	return nil
}

func (m *mockGitHubAPI) ExchangeOAuthCode(ctx context.Context, clientID, clientSecret, code string) (string, error) {
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, clientID, clientSecret, code)
	}
	return "gho_testtoken", nil
}
