package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flowsync-hq/flowsync/core/config"
	"github.com/flowsync-hq/flowsync/internal/github"
	"github.com/flowsync-hq/flowsync/internal/service"
)

var _ = Describe("AuthService", func() {
	var (
		ctx       context.Context
		svc       service.AuthService
		api       *mockGitHubAPI
		userStore *mockUserStore
		repoStore *mockRepoStore
		cfg       config.Config
	)

	newService := func() service.AuthService {
		provider := &mockStoreProvider{users: userStore, repos: repoStore}
		txRunner := &mockTxRunner{
			withTxFn: func(ctx context.Context, fn func(stores service.StoreProvider) error) error {
				return fn(provider)
			},
		}
		return service.NewAuthService(api, provider, txRunner, cfg, nil)
	}

	BeforeEach(func() {
		ctx = context.Background()
		api = &mockGitHubAPI{}
		userStore = &mockUserStore{}
		repoStore = &mockRepoStore{}
		cfg = config.Config{
			GitHub: config.GitHubConfig{ClientID: "cid", ClientSecret: "csecret"},
			Session: config.SessionConfig{
				JWTSecret:  "session-secret",
				CookieName: "fs_session",
				TTL:        time.Hour,
			},
		}
		svc = newService()
	})

	Describe("HandleCallback", func() {
		It("exchanges the code, upserts the user, and mints a verifiable session", func() {
			api.userFn = func(ctx context.Context, token string) (*github.Account, error) {
				Expect(token).To(Equal("gho_testtoken"))
				return &github.Account{Login: "octocat", NodeID: "U_abc", ID: 583231, AvatarURL: "https://example.test/a.png"}, nil
			}

			token, user, err := svc.HandleCallback(ctx, "the-code")

			Expect(err).NotTo(HaveOccurred())
			Expect(user.ID).To(Equal("U_abc"))
			Expect(user.GitHubID).To(Equal("583231"))
			Expect(user.Username).To(Equal("octocat"))
			Expect(userStore.upserted).To(HaveLen(1))
			Expect(*userStore.upserted[0].AccessToken).To(Equal("gho_testtoken"))

			userID, err := svc.VerifySession(token)
			Expect(err).NotTo(HaveOccurred())
			Expect(userID).To(Equal("U_abc"))
		})

		It("rejects an empty code", func() {
			_, _, err := svc.HandleCallback(ctx, "")
			Expect(err).To(HaveOccurred())
		})

		It("fails when oauth is not configured", func() {
			cfg.GitHub = config.GitHubConfig{}
			svc = newService()

			_, _, err := svc.HandleCallback(ctx, "the-code")
			Expect(err).To(MatchError(service.ErrOAuthDisabled))
		})
	})

	Describe("VerifySession", func() {
		It("rejects a token signed with a different secret", func() {
			token, _, err := svc.HandleCallback(ctx, "the-code")
			Expect(err).NotTo(HaveOccurred())

			cfg.Session.JWTSecret = "different"
			other := newService()

			_, err = other.VerifySession(token)
			Expect(err).To(MatchError(service.ErrInvalidSession))
		})

		It("rejects an expired token", func() {
			cfg.Session.TTL = -time.Minute
			svc = newService()

			token, _, err := svc.HandleCallback(ctx, "the-code")
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.VerifySession(token)
			Expect(err).To(MatchError(service.ErrInvalidSession))
		})

		It("rejects garbage", func() {
			_, err := svc.VerifySession("not-a-jwt")
			Expect(err).To(MatchError(service.ErrInvalidSession))
		})
	})

	Describe("connected repositories", func() {
		It("round-trips the selection", func() {
			Expect(svc.SetConnectedRepos(ctx, "U_abc", []string{"acme/web", "acme/api"})).To(Succeed())

			Expect(repoStore.ensured).To(HaveLen(2))
			Expect(repoStore.ensured[0].Owner).To(Equal("acme"))

			repos, err := svc.ConnectedRepos(ctx, "U_abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(repos).To(ConsistOf("acme/web", "acme/api"))
		})

		It("rejects names without an owner", func() {
			Expect(svc.SetConnectedRepos(ctx, "U_abc", []string{"just-a-name"})).NotTo(Succeed())
		})
	})
})
