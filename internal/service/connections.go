package service

import (
	"context"
	"fmt"

	"github.com/vaultmarks/backend/internal/client"
	"github.com/vaultmarks/backend/internal/config"
	"github.com/vaultmarks/backend/internal/db"
	"github.com/vaultmarks/backend/internal/model"
	"golang.org/x/oauth2"
)

type connectionStore interface {
	GetLinkedAccount(ctx context.Context, userID int64, provider string) (*model.LinkedAccount, error)
	UpsertLinkedAccount(ctx context.Context, a *model.LinkedAccount) error
	DeleteLinkedAccount(ctx context.Context, userID int64, provider string) error
}

type identityAPI interface {
	GetMe(ctx context.Context, userToken string) (*client.DirectoryUser, error)
}

// ConnectionService runs the OAuth2 authorization-code flow that links a
// user to the external directory and stores the delegated token pair.
type ConnectionService struct {
	store     connectionStore
	directory identityAPI
	oauth     *oauth2.Config
	provider  string
}

func NewConnectionService(store connectionStore, directory identityAPI, cfg config.DirectoryConfig) *ConnectionService {
	return &ConnectionService{
		store:     store,
		directory: directory,
		oauth:     newOAuthConfig(cfg),
		provider:  cfg.Provider,
	}
}

func (s *ConnectionService) Provider() string {
	return s.provider
}

// AuthCodeURL is where the browser gets sent to approve the link.
func (s *ConnectionService) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// CompleteLink exchanges the callback code, asks the directory who the
// token belongs to, and upserts the linked account. Re-linking an already
// connected provider replaces the stored tokens.
func (s *ConnectionService) CompleteLink(ctx context.Context, userID int64, code string) (*model.LinkedAccount, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	me, err := s.directory.GetMe(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("identity lookup failed: %w", err)
	}

	account := &model.LinkedAccount{
		UserID:         userID,
		Provider:       s.provider,
		ExternalUserID: me.ID,
		AccessToken:    &token.AccessToken,
		RefreshToken:   &token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		account.TokenExpiresAt = &expiry
	}

	if err := s.store.UpsertLinkedAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Status reports whether the user has a linked account for the provider.
func (s *ConnectionService) Status(ctx context.Context, userID int64) (model.ConnectionResponse, error) {
	account, err := s.store.GetLinkedAccount(ctx, userID, s.provider)
	if err != nil {
		if db.IsNoRows(err) {
			return model.ConnectionResponse{Provider: s.provider}, nil
		}
		return model.ConnectionResponse{}, err
	}
	return model.ConnectionResponse{
		Provider:       s.provider,
		ExternalUserID: account.ExternalUserID,
		Connected:      true,
	}, nil
}

// Disconnect drops the link; any group-gated access collapses to
// no_external_account on the next check.
func (s *ConnectionService) Disconnect(ctx context.Context, userID int64) error {
	return s.store.DeleteLinkedAccount(ctx, userID, s.provider)
}
