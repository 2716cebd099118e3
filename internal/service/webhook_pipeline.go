package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowsync-hq/flowsync/common/id"
	"github.com/flowsync-hq/flowsync/common/logger"
	"github.com/flowsync-hq/flowsync/internal/model"
	"github.com/flowsync-hq/flowsync/internal/webhook"
)

// Broadcaster pushes events to connected clients. *realtime.Hub satisfies it.
type Broadcaster interface {
	BroadcastRepo(fullName string, event string, data any)
}

// CacheInvalidator clears cached responses by pattern. *cache.TieredCache
// satisfies it.
type CacheInvalidator interface {
	Clear(ctx context.Context, pattern string) error
}

// WebhookParams is one inbound delivery as read off the wire.
type WebhookParams struct {
	Event      string
	DeliveryID string
	Signature  string
	Payload    []byte
}

// WebhookResult reports what the pipeline did with an accepted delivery.
// Processed is true only when the audit log and record landed; a delivery
// that failed to persist still invalidates and broadcasts, with Reason
// saying what went wrong. Malformed payloads are dropped outright.
type WebhookResult struct {
	Repository  string
	Action      string
	Reason      string
	Kind        webhook.Kind
	LogID       int64
	Processed   bool
	Invalidated bool
}

// WebhookService runs the delivery pipeline: verify, classify, audit-log,
// persist, invalidate, broadcast.
type WebhookService interface {
	Process(ctx context.Context, params WebhookParams) (*WebhookResult, error)
	RecentDeliveries(ctx context.Context, limit int32) ([]model.WebhookLog, error)
}

type webhookService struct {
	validator *webhook.Validator
	stores    StoreProvider
	txRunner  TxRunner
	cache     CacheInvalidator
	hub       Broadcaster
	logger    *slog.Logger
}

func NewWebhookService(validator *webhook.Validator, stores StoreProvider, txRunner TxRunner, cache CacheInvalidator, hub Broadcaster, logger *slog.Logger) WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &webhookService{
		validator: validator,
		stores:    stores,
		txRunner:  txRunner,
		cache:     cache,
		hub:       hub,
		logger:    logger,
	}
}

// Process handles one delivery. It returns webhook.ErrBadSignature when the
// signature does not verify; every other failure mode is soft and reflected
// in the result, never in the error.
func (s *webhookService) Process(ctx context.Context, params WebhookParams) (*WebhookResult, error) {
	if err := s.validator.Verify(params.Payload, params.Signature); err != nil {
		s.logger.WarnContext(ctx, "webhook signature rejected",
			"event", params.Event, "delivery_id", params.DeliveryID)
		return nil, err
	}

	ev, err := webhook.Classify(params.Event, params.Payload)
	if err != nil {
		s.logger.WarnContext(ctx, "webhook payload dropped",
			"event", params.Event, "delivery_id", params.DeliveryID, "error", err)
		return &WebhookResult{Kind: webhook.KindUnhandled, Reason: "malformed_payload"}, nil
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Repository: logger.Ptr(ev.Repository),
		EventKind:  logger.Ptr(string(ev.Kind)),
		Component:  "webhook_pipeline",
	})

	result := &WebhookResult{
		Repository: ev.Repository,
		Action:     ev.Action,
		Kind:       ev.Kind,
	}

	logID := id.New()
	result.LogID = logID

	// Persistence and invalidation failures are soft: the delivery still
	// invalidates and broadcasts, so clients re-fetch and converge even when
	// the persisted record lags behind. Subscribers may see a notification
	// for a record that did not change; they treat every push as a hint, not
	// a delta.
	if err := s.persist(ctx, logID, ev); err != nil {
		s.logger.ErrorContext(ctx, "webhook persistence failed",
			"delivery_id", params.DeliveryID, "log_id", logID, "error", err)
		result.Reason = "persistence_failed"
	} else {
		result.Processed = true
	}

	if pattern := invalidationPattern(ev); pattern != "" {
		if err := s.cache.Clear(ctx, pattern); err != nil {
			s.logger.ErrorContext(ctx, "cache invalidation failed",
				"pattern", pattern, "log_id", logID, "error", err)
			if result.Reason == "" {
				result.Reason = "invalidation_failed"
			}
		} else {
			result.Invalidated = true
		}
	}

	s.broadcast(ev)

	s.logger.InfoContext(ctx, "webhook processed",
		"action", ev.Action, "log_id", logID, "invalidated", result.Invalidated)
	return result, nil
}

// persist writes the audit row and the derived record in one transaction, so
// a processed=true log row always has its record alongside it.
func (s *webhookService) persist(ctx context.Context, logID int64, ev *webhook.Event) error {
	return s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		logRow := &model.WebhookLog{
			ID:         logID,
			EventKind:  string(ev.Kind),
			Action:     ev.Action,
			Repository: ev.Repository,
			Payload:    ev.Raw,
		}
		if err := sp.WebhookLogs().Create(ctx, logRow); err != nil {
			return fmt.Errorf("creating webhook log: %w", err)
		}

		switch ev.Kind {
		case webhook.KindPullRequest, webhook.KindPullRequestReview, webhook.KindReviewComment:
			if ev.PullRequest != nil {
				if err := sp.PullRequests().Upsert(ctx, pullRequestFromEvent(ev)); err != nil {
					return fmt.Errorf("upserting pull request: %w", err)
				}
			}
		case webhook.KindIssues, webhook.KindIssueComment:
			// The issues API also carries pull request comments; those are
			// not issues and must not create issue records.
			if ev.Issue != nil && !ev.Issue.IsPullRequest() {
				if err := sp.Issues().Upsert(ctx, issueFromEvent(ev)); err != nil {
					return fmt.Errorf("upserting issue: %w", err)
				}
			}
		}

		if err := sp.WebhookLogs().MarkProcessed(ctx, logID); err != nil {
			return fmt.Errorf("marking webhook log processed: %w", err)
		}
		return nil
	})
}

// broadcast fans the delivery out to repo subscribers. Pull request and
// issue kinds get their typed entity; everything else ships the raw payload
// under webhook:event. A delivery that arrived without its typed object
// still broadcasts, just without the entity key.
func (s *webhookService) broadcast(ev *webhook.Event) {
	if ev.Repository == "" {
		return
	}
	data := map[string]any{
		"repository": ev.Repository,
		"action":     ev.Action,
	}

	switch ev.Kind {
	case webhook.KindPullRequest, webhook.KindPullRequestReview, webhook.KindReviewComment:
		if ev.PullRequest != nil {
			data["pullRequest"] = ev.PullRequest
		}
		s.hub.BroadcastRepo(ev.Repository, "webhook:pr", data)
	case webhook.KindIssues, webhook.KindIssueComment:
		if ev.Issue != nil {
			data["issue"] = ev.Issue
		}
		s.hub.BroadcastRepo(ev.Repository, "webhook:issue", data)
	default:
		data["event"] = ev.Name
		data["payload"] = ev.Raw
		s.hub.BroadcastRepo(ev.Repository, "webhook:event", data)
	}
}

func (s *webhookService) RecentDeliveries(ctx context.Context, limit int32) ([]model.WebhookLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs, err := s.stores.WebhookLogs().ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing webhook deliveries: %w", err)
	}
	return logs, nil
}

// Actions that change what a cached pull request listing would show.
// Anything else (labeled, assigned, review_requested, ...) leaves the
// listing rows intact.
var prInvalidatingActions = map[string]struct{}{
	"opened":      {},
	"closed":      {},
	"reopened":    {},
	"edited":      {},
	"synchronize": {},
}

// invalidationPattern names the cache keys a delivery makes stale. A
// delivery that arrived without its typed object, or whose action cannot
// have changed a cached listing, invalidates nothing. Review and review
// comment deliveries invalidate on any action.
func invalidationPattern(ev *webhook.Event) string {
	switch ev.Kind {
	case webhook.KindPullRequest:
		if ev.PullRequest == nil {
			return ""
		}
		if _, ok := prInvalidatingActions[ev.Action]; !ok {
			return ""
		}
		return "prs:*" + ev.Repository + "*"
	case webhook.KindPullRequestReview, webhook.KindReviewComment:
		if ev.PullRequest == nil {
			return ""
		}
		return "prs:*" + ev.Repository + "*"
	case webhook.KindIssues, webhook.KindIssueComment:
		if ev.Issue == nil || ev.Issue.IsPullRequest() {
			return ""
		}
		return "issues:*" + ev.Repository + "*"
	}
	return ""
}

func pullRequestFromEvent(ev *webhook.Event) *model.PullRequest {
	pr := ev.PullRequest
	return &model.PullRequest{
		ID:          model.PullRequestKey(ev.Repository, pr.Number),
		Number:      pr.Number,
		Repository:  ev.Repository,
		Title:       pr.Title,
		Status:      pullRequestStatus(pr),
		Author:      pr.User.Login,
		Description: pr.Body,
		BranchName:  pr.Head.Ref,
		BaseBranch:  pr.Base.Ref,
		CreatedAt:   pr.CreatedAt,
		LastUpdated: pr.UpdatedAt,
		Data:        ev.Raw,
	}
}

func issueFromEvent(ev *webhook.Event) *model.Issue {
	issue := ev.Issue
	return &model.Issue{
		ID:          model.IssueKey(ev.Repository, issue.Number),
		Number:      issue.Number,
		Repository:  ev.Repository,
		Title:       issue.Title,
		State:       issue.State,
		Author:      issue.User.Login,
		Description: issue.Body,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
		Data:        ev.Raw,
	}
}

// pullRequestStatus collapses GitHub's state fields into one status. Merged
// wins over closed; draft only applies while open.
func pullRequestStatus(pr *webhook.PullRequest) model.PullRequestStatus {
	switch {
	case pr.Merged || pr.MergedAt != nil:
		return model.PullRequestStatusMerged
	case pr.State == "closed":
		return model.PullRequestStatusClosed
	case pr.Draft:
		return model.PullRequestStatusDraft
	default:
		return model.PullRequestStatusOpen
	}
}
