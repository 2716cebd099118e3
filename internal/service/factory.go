package service

import (
	"log/slog"

	"github.com/flowsync-hq/flowsync/core/config"
	"github.com/flowsync-hq/flowsync/internal/webhook"
)

// Services wires the service layer once and hands out typed accessors.
type Services struct {
	stores    StoreProvider
	txRunner  TxRunner
	api       GitHubAPI
	cache     ResponseCache
	hub       Broadcaster
	validator *webhook.Validator
	cfg       config.Config
	logger    *slog.Logger
}

func NewServices(stores StoreProvider, txRunner TxRunner, api GitHubAPI, cache ResponseCache, hub Broadcaster, cfg config.Config, logger *slog.Logger) *Services {
	return &Services{
		stores:    stores,
		txRunner:  txRunner,
		api:       api,
		cache:     cache,
		hub:       hub,
		validator: webhook.NewValidator(cfg.GitHub.WebhookSecret),
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *Services) Webhooks() WebhookService {
	return NewWebhookService(s.validator, s.stores, s.txRunner, s.cache, s.hub, s.logger)
}

func (s *Services) PullRequests() PullRequestService {
	return NewPullRequestService(s.api, s.cache, s.txRunner, s.hub, s.logger)
}

func (s *Services) Issues() IssueService {
	return NewIssueService(s.api, s.cache, s.txRunner, s.logger)
}

func (s *Services) Auth() AuthService {
	return NewAuthService(s.api, s.stores, s.txRunner, s.cfg, s.logger)
}
