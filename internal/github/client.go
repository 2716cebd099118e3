// Package github is a minimal GitHub REST v3 client covering the calls the
// dashboard makes: listing pull requests and issues, mutating pull requests,
// and the OAuth code exchange. Requests are retried with backoff on
// transient failures.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	defaultAPIBase = "https://api.github.com"
	oauthTokenURL  = "https://github.com/login/oauth/access_token"

	maxAttempts = 4
	maxBody     = 10 << 20
)

// Client talks to the GitHub API. The zero value is not usable; construct it
// with New.
type Client struct {
	httpClient *http.Client
	apiBase    string
}

// New returns a Client. baseURL overrides the API host (for GitHub
// Enterprise or tests); empty means api.github.com.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultAPIBase
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiBase:    strings.TrimSuffix(baseURL, "/"),
	}
}

// StatusError is returned for non-2xx API responses.
type StatusError struct {
	Body   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github api status %d: %s", e.Status, e.Body)
}

// retryable reports whether a failed request is worth repeating. Client
// errors other than 429 are not.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	return true
}

// do runs one authenticated request with retry and decodes the response into
// out when out is non-nil.
func (c *Client) do(ctx context.Context, token, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	return retry.Do(
		func() error {
			var reader io.Reader
			if payload != nil {
				reader = bytes.NewReader(payload)
			}
			req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reader)
			if err != nil {
				return err
			}
			req.Header.Set("Accept", "application/vnd.github+json")
			req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
			if err != nil {
				return err
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return &StatusError{Status: resp.StatusCode, Body: truncate(string(data), 512)}
			}
			if out == nil {
				return nil
			}
			return json.Unmarshal(data, out)
		},
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(8*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Account is a GitHub user in API responses.
type Account struct {
	Login     string `json:"login"`
	NodeID    string `json:"node_id"`
	AvatarURL string `json:"avatar_url"`
	Email     string `json:"email"`
	ID        int64  `json:"id"`
}

// PullRequest is the REST representation of a pull request, trimmed to the
// fields the dashboard renders.
type PullRequest struct {
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	MergedAt  *time.Time `json:"merged_at"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	HTMLURL   string     `json:"html_url"`
	Body      string     `json:"body"`
	User      Account    `json:"user"`
	Head      struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
	RequestedReviewers []Account `json:"requested_reviewers"`
	Number             int       `json:"number"`
	Draft              bool      `json:"draft"`
	Merged             bool      `json:"merged"`
}

// Issue is the REST representation of an issue.
type Issue struct {
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	HTMLURL   string     `json:"html_url"`
	Body      string     `json:"body"`
	User      Account    `json:"user"`
	Labels    []struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	} `json:"labels"`
	Number int `json:"number"`
	// Pull requests surface in the issues API with this field set.
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request"`
}

// Repository is the REST representation of a repository.
type Repository struct {
	FullName string  `json:"full_name"`
	Name     string  `json:"name"`
	Private  bool    `json:"private"`
	Owner    Account `json:"owner"`
}

// ListPullRequests returns pull requests for repo ("owner/name") in the
// given state ("open", "closed", or "all").
func (c *Client) ListPullRequests(ctx context.Context, token, repo, state string) ([]PullRequest, error) {
	if state == "" {
		state = "open"
	}
	path := fmt.Sprintf("/repos/%s/pulls?state=%s&per_page=100&sort=updated&direction=desc", repo, url.QueryEscape(state))
	var prs []PullRequest
	if err := c.do(ctx, token, http.MethodGet, path, nil, &prs); err != nil {
		return nil, fmt.Errorf("list pull requests for %s: %w", repo, err)
	}
	return prs, nil
}

// ListIssues returns issues for repo, excluding pull requests (the issues
// API mixes them in).
func (c *Client) ListIssues(ctx context.Context, token, repo, state string) ([]Issue, error) {
	if state == "" {
		state = "open"
	}
	path := fmt.Sprintf("/repos/%s/issues?state=%s&per_page=100&sort=updated&direction=desc", repo, url.QueryEscape(state))
	var raw []Issue
	if err := c.do(ctx, token, http.MethodGet, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("list issues for %s: %w", repo, err)
	}
	issues := make([]Issue, 0, len(raw))
	for _, issue := range raw {
		if issue.PullRequest == nil {
			issues = append(issues, issue)
		}
	}
	return issues, nil
}

// ListUserRepositories returns the repositories the token's user can access.
func (c *Client) ListUserRepositories(ctx context.Context, token string) ([]Repository, error) {
	var repos []Repository
	if err := c.do(ctx, token, http.MethodGet, "/user/repos?per_page=100&sort=updated", nil, &repos); err != nil {
		return nil, fmt.Errorf("list user repositories: %w", err)
	}
	return repos, nil
}

// AuthenticatedUser returns the user the token belongs to.
func (c *Client) AuthenticatedUser(ctx context.Context, token string) (*Account, error) {
	var user Account
	if err := c.do(ctx, token, http.MethodGet, "/user", nil, &user); err != nil {
		return nil, fmt.Errorf("fetch authenticated user: %w", err)
	}
	return &user, nil
}

// UpdatePullRequestState opens or closes a pull request.
func (c *Client) UpdatePullRequestState(ctx context.Context, token, repo string, number int, state string) (*PullRequest, error) {
	path := fmt.Sprintf("/repos/%s/pulls/%d", repo, number)
	var pr PullRequest
	if err := c.do(ctx, token, http.MethodPatch, path, map[string]string{"state": state}, &pr); err != nil {
		return nil, fmt.Errorf("update pull request %s#%d: %w", repo, number, err)
	}
	return &pr, nil
}

// CreateComment posts a comment on a pull request or issue.
func (c *Client) CreateComment(ctx context.Context, token, repo string, number int, body string) error {
	path := fmt.Sprintf("/repos/%s/issues/%d/comments", repo, number)
	if err := c.do(ctx, token, http.MethodPost, path, map[string]string{"body": body}, nil); err != nil {
		return fmt.Errorf("create comment on %s#%d: %w", repo, number, err)
	}
	return nil
}

// ExchangeOAuthCode swaps an OAuth authorization code for an access token.
func (c *Client) ExchangeOAuthCode(ctx context.Context, clientID, clientSecret, code string) (string, error) {
	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"code":          {code},
	}

	var token string
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, oauthTokenURL, strings.NewReader(form.Encode()))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return &StatusError{Status: resp.StatusCode, Body: truncate(string(data), 512)}
			}

			var out struct {
				AccessToken string `json:"access_token"`
				Error       string `json:"error"`
			}
			if err := json.Unmarshal(data, &out); err != nil {
				return err
			}
			if out.Error != "" || out.AccessToken == "" {
				return retry.Unrecoverable(fmt.Errorf("oauth exchange rejected: %s", out.Error))
			}
			token = out.AccessToken
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}
