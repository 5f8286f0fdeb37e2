package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/vaultmarks/backend/internal/config"
	"github.com/vaultmarks/backend/internal/model"
	"golang.org/x/oauth2"
)

// tokenExpiryBuffer: a token this close to expiry is treated as already
// expired so it cannot lapse mid-request.
const tokenExpiryBuffer = 5 * time.Minute

const tokenRefreshTimeout = 10 * time.Second

type tokenStore interface {
	UpdateLinkedAccountTokens(ctx context.Context, accountID int64, upd model.TokenUpdate) error
}

// TokenManager hands out usable delegated access tokens for linked
// accounts, refreshing them through the provider's OAuth2 refresh-token
// grant when they are expired or inside the expiry buffer. The rotated
// pair is persisted before the new token is returned.
type TokenManager struct {
	store tokenStore
	oauth *oauth2.Config
	now   func() time.Time
}

func NewTokenManager(store tokenStore, cfg config.DirectoryConfig) *TokenManager {
	return &TokenManager{
		store: store,
		oauth: newOAuthConfig(cfg),
		now:   time.Now,
	}
}

func newOAuthConfig(cfg config.DirectoryConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       strings.Fields(cfg.Scopes),
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// FreshAccessToken returns a delegated access token that is valid for at
// least the expiry buffer, or "" when none can be obtained. Failures are
// silent here: the caller maps an empty token to a reconnect-required
// denial, which is the only remedy anyway.
//
// Two concurrent calls for the same account can both trigger a refresh;
// the provider rotates the refresh token on use, so the loser may be left
// with a dead token and surface a spurious reconnect. Accepted trade-off,
// no per-account locking.
func (m *TokenManager) FreshAccessToken(ctx context.Context, account *model.LinkedAccount) string {
	if account == nil || account.AccessToken == nil || *account.AccessToken == "" {
		return ""
	}

	if account.TokenExpiresAt != nil && account.TokenExpiresAt.After(m.now().Add(tokenExpiryBuffer)) {
		return *account.AccessToken
	}

	// Expired, about to expire, or expiry unknown: a refresh is the only
	// safe way forward.
	if account.RefreshToken == nil || *account.RefreshToken == "" {
		return ""
	}

	refreshCtx, cancel := context.WithTimeout(ctx, tokenRefreshTimeout)
	defer cancel()

	token, err := m.oauth.TokenSource(refreshCtx, &oauth2.Token{RefreshToken: *account.RefreshToken}).Token()
	if err != nil {
		log.Printf("[TokenManager] refresh failed for account %d: %v", account.ID, err)
		return ""
	}

	// Store whatever refresh token came back; providers may have
	// invalidated the previous one.
	upd := model.TokenUpdate{
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: token.Expiry,
	}
	if err := m.store.UpdateLinkedAccountTokens(ctx, account.ID, upd); err != nil {
		log.Printf("[TokenManager] failed to persist rotated tokens for account %d: %v", account.ID, err)
		return ""
	}

	account.AccessToken = &upd.AccessToken
	account.RefreshToken = &upd.RefreshToken
	account.TokenExpiresAt = &upd.TokenExpiresAt

	return token.AccessToken
}
