package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flowsync-hq/flowsync/core/config"
	"github.com/flowsync-hq/flowsync/internal/model"
	"github.com/flowsync-hq/flowsync/internal/store"
)

var (
	// ErrInvalidSession is returned for expired, tampered, or absent
	// session tokens.
	ErrInvalidSession = errors.New("invalid session")

	// ErrOAuthDisabled is returned when GitHub OAuth credentials are not
	// configured.
	ErrOAuthDisabled = errors.New("github oauth is not configured")

	ErrUserNotFound = errors.New("user not found")
)

const githubAuthorizeURL = "https://github.com/login/oauth/authorize"

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService handles the GitHub OAuth handshake and the JWT session
// cookies minted from it.
type AuthService interface {
	AuthorizeURL(state string) (string, error)
	HandleCallback(ctx context.Context, code string) (sessionToken string, user *model.User, err error)
	VerifySession(token string) (userID string, err error)
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
	ConnectedRepos(ctx context.Context, userID string) ([]string, error)
	SetConnectedRepos(ctx context.Context, userID string, repos []string) error
}

type authService struct {
	api      GitHubAPI
	stores   StoreProvider
	txRunner TxRunner
	github   config.GitHubConfig
	session  config.SessionConfig
	logger   *slog.Logger
}

func NewAuthService(api GitHubAPI, stores StoreProvider, txRunner TxRunner, cfg config.Config, logger *slog.Logger) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		api:      api,
		stores:   stores,
		txRunner: txRunner,
		github:   cfg.GitHub,
		session:  cfg.Session,
		logger:   logger,
	}
}

func (s *authService) AuthorizeURL(state string) (string, error) {
	if !s.github.OAuthEnabled() {
		return "", ErrOAuthDisabled
	}
	return fmt.Sprintf("%s?client_id=%s&scope=repo%%20read:user&state=%s",
		githubAuthorizeURL, s.github.ClientID, state), nil
}

// HandleCallback finishes the OAuth dance: exchanges the code, loads the
// GitHub profile, upserts the user, and mints a session token.
func (s *authService) HandleCallback(ctx context.Context, code string) (string, *model.User, error) {
	if !s.github.OAuthEnabled() {
		return "", nil, ErrOAuthDisabled
	}
	if code == "" {
		return "", nil, fmt.Errorf("authorization code is required")
	}

	accessToken, err := s.api.ExchangeOAuthCode(ctx, s.github.ClientID, s.github.ClientSecret, code)
	if err != nil {
		return "", nil, fmt.Errorf("exchanging oauth code: %w", err)
	}

	account, err := s.api.AuthenticatedUser(ctx, accessToken)
	if err != nil {
		return "", nil, fmt.Errorf("loading github profile: %w", err)
	}

	user := &model.User{
		ID:          account.NodeID,
		GitHubID:    fmt.Sprintf("%d", account.ID),
		Username:    account.Login,
		AccessToken: &accessToken,
	}
	if account.Email != "" {
		user.Email = &account.Email
	}
	if account.AvatarURL != "" {
		user.AvatarURL = &account.AvatarURL
	}

	if err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		return sp.Users().UpsertByGitHubID(ctx, user)
	}); err != nil {
		return "", nil, fmt.Errorf("upserting user: %w", err)
	}

	token, err := s.mintSession(user)
	if err != nil {
		return "", nil, err
	}

	s.logger.InfoContext(ctx, "user signed in", "user_id", user.ID, "username", user.Username)
	return token, user, nil
}

func (s *authService) mintSession(user *model.User) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.session.TTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.session.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return token, nil
}

// VerifySession validates a session token and returns the user ID it was
// minted for.
func (s *authService) VerifySession(token string) (string, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.session.JWTSecret), nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}

func (s *authService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.stores.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return user, nil
}

func (s *authService) ConnectedRepos(ctx context.Context, userID string) ([]string, error) {
	repos, err := s.stores.Repos().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing connected repositories: %w", err)
	}
	return repos, nil
}

// SetConnectedRepos replaces the user's dashboard repository selection.
func (s *authService) SetConnectedRepos(ctx context.Context, userID string, repos []string) error {
	for _, repo := range repos {
		if !strings.Contains(repo, "/") {
			return fmt.Errorf("invalid repository name %q, want owner/name", repo)
		}
	}

	return s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		for _, fullName := range repos {
			owner, name, _ := strings.Cut(fullName, "/")
			if err := sp.Repos().EnsureExists(ctx, &model.Repository{
				ID:       fullName,
				Name:     name,
				FullName: fullName,
				Owner:    owner,
			}); err != nil {
				return fmt.Errorf("ensuring repository %s: %w", fullName, err)
			}
		}
		if err := sp.Repos().ReplaceForUser(ctx, userID, repos); err != nil {
			return fmt.Errorf("replacing connected repositories: %w", err)
		}
		return nil
	})
}
