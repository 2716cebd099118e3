package webhook

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrMalformedPayload is returned when a delivery body is not valid JSON or
// lacks the fields its event name promises. Handlers treat it as a soft
// failure: the delivery is acknowledged, logged, and dropped.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// Kind identifies which family of GitHub event a delivery belongs to.
type Kind string

const (
	KindPullRequest       Kind = "pull_request"
	KindPullRequestReview Kind = "pull_request_review"
	KindReviewComment     Kind = "pull_request_review_comment"
	KindIssues            Kind = "issues"
	KindIssueComment      Kind = "issue_comment"
	KindPush              Kind = "push"
	KindStatus            Kind = "status"
	KindUnhandled         Kind = "unhandled"
)

// Account is the subset of a GitHub user or organization the pipeline uses.
type Account struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	ID        int64  `json:"id"`
}

// Ref is one side of a pull request (head or base).
type Ref struct {
	Label string `json:"label"`
	Ref   string `json:"ref"`
	SHA   string `json:"sha"`
}

// PullRequest carries the pull request object embedded in pull_request,
// review and review-comment deliveries.
type PullRequest struct {
	CreatedAt          *time.Time `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at"`
	ClosedAt           *time.Time `json:"closed_at"`
	MergedAt           *time.Time `json:"merged_at"`
	Title              string     `json:"title"`
	State              string     `json:"state"`
	HTMLURL            string     `json:"html_url"`
	Body               string     `json:"body"`
	User               Account    `json:"user"`
	Head               Ref        `json:"head"`
	Base               Ref        `json:"base"`
	RequestedReviewers []Account  `json:"requested_reviewers"`
	Number             int        `json:"number"`
	Additions          int        `json:"additions"`
	Deletions          int        `json:"deletions"`
	ChangedFiles       int        `json:"changed_files"`
	Draft              bool       `json:"draft"`
	Merged             bool       `json:"merged"`
}

// Issue carries the issue object embedded in issues and issue_comment
// deliveries. GitHub routes pull request comments through the issues API,
// marking them with a pull_request key; PullRequest retains that marker so
// such deliveries are not mistaken for real issues.
type Issue struct {
	CreatedAt   *time.Time      `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at"`
	ClosedAt    *time.Time      `json:"closed_at"`
	Title       string          `json:"title"`
	State       string          `json:"state"`
	HTMLURL     string          `json:"html_url"`
	Body        string          `json:"body"`
	User        Account         `json:"user"`
	Labels      []Label         `json:"labels"`
	PullRequest json.RawMessage `json:"pull_request,omitempty"`
	Number      int             `json:"number"`
}

// IsPullRequest reports whether this "issue" is GitHub's issue-API view of
// a pull request.
func (i *Issue) IsPullRequest() bool {
	return len(i.PullRequest) > 0
}

// Label is a GitHub issue label.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Review is the review object in pull_request_review deliveries.
type Review struct {
	SubmittedAt *time.Time `json:"submitted_at"`
	State       string     `json:"state"`
	Body        string     `json:"body"`
	HTMLURL     string     `json:"html_url"`
	User        Account    `json:"user"`
}

// Comment is the comment object in issue_comment and
// pull_request_review_comment deliveries.
type Comment struct {
	CreatedAt *time.Time `json:"created_at"`
	Body      string     `json:"body"`
	HTMLURL   string     `json:"html_url"`
	Path      string     `json:"path"`
	User      Account    `json:"user"`
}

// Push summarizes a push delivery.
type Push struct {
	Ref     string `json:"ref"`
	Before  string `json:"before"`
	After   string `json:"after"`
	Commits int    `json:"-"`
}

// Status summarizes a commit status delivery.
type Status struct {
	SHA         string `json:"sha"`
	State       string `json:"state"`
	Context     string `json:"context"`
	Description string `json:"description"`
}

// Event is a classified delivery. Kind says which of the optional payload
// pointers is populated; KindUnhandled events carry only the raw body and
// whatever common fields the payload happened to include.
type Event struct {
	PullRequest *PullRequest
	Issue       *Issue
	Review      *Review
	Comment     *Comment
	Push        *Push
	Status      *Status
	Kind        Kind
	Name        string
	Action      string
	Repository  string
	Sender      Account
	Raw         json.RawMessage
}

// envelope is the superset of fields Classify inspects. GitHub always nests
// the typed objects at the top level next to "action" and "repository".
type envelope struct {
	Action      string       `json:"action"`
	PullRequest *PullRequest `json:"pull_request"`
	Issue       *Issue       `json:"issue"`
	Review      *Review      `json:"review"`
	Comment     *Comment     `json:"comment"`
	Ref         string       `json:"ref"`
	Before      string       `json:"before"`
	After       string       `json:"after"`
	SHA         string       `json:"sha"`
	State       string       `json:"state"`
	Context     string       `json:"context"`
	Description string       `json:"description"`
	Sender      Account      `json:"sender"`
	Repository  struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	Commits []struct {
		ID string `json:"id"`
	} `json:"commits"`
}

// Classify parses a delivery body under its X-GitHub-Event name into an
// Event. Event names outside the handled set produce a KindUnhandled event
// rather than an error; a body that does not parse, or one with no
// repository on an event that routes by repository, returns
// ErrMalformedPayload. A handled event whose typed object is absent (a
// pull_request delivery without a "pull_request" key) still classifies: the
// pipeline broadcasts it but has nothing to persist.
func Classify(name string, payload []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, ErrMalformedPayload
	}

	ev := &Event{
		Kind:       KindUnhandled,
		Name:       name,
		Action:     env.Action,
		Repository: env.Repository.FullName,
		Sender:     env.Sender,
		Raw:        json.RawMessage(payload),
	}

	switch name {
	case "pull_request":
		ev.Kind = KindPullRequest
		ev.PullRequest = env.PullRequest

	case "pull_request_review":
		ev.Kind = KindPullRequestReview
		ev.PullRequest = env.PullRequest
		ev.Review = env.Review

	case "pull_request_review_comment":
		ev.Kind = KindReviewComment
		ev.PullRequest = env.PullRequest
		ev.Comment = env.Comment

	case "issues":
		ev.Kind = KindIssues
		ev.Issue = env.Issue

	case "issue_comment":
		ev.Kind = KindIssueComment
		ev.Issue = env.Issue
		ev.Comment = env.Comment

	case "push":
		ev.Kind = KindPush
		ev.Push = &Push{
			Ref:     env.Ref,
			Before:  env.Before,
			After:   env.After,
			Commits: len(env.Commits),
		}

	case "status":
		ev.Kind = KindStatus
		ev.Status = &Status{
			SHA:         env.SHA,
			State:       env.State,
			Context:     env.Context,
			Description: env.Description,
		}
	}

	if ev.Kind != KindUnhandled && ev.Repository == "" {
		return nil, ErrMalformedPayload
	}

	return ev, nil
}
