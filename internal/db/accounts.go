package db

import (
	"context"

	"github.com/vaultmarks/backend/internal/model"
)

func (db *Postgres) EnsureLinkedAccountSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS linked_accounts (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			provider TEXT NOT NULL,
			external_user_id TEXT NOT NULL,
			access_token TEXT,
			refresh_token TEXT,
			token_expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, provider)
		)
		`,
		`CREATE INDEX IF NOT EXISTS linked_accounts_external_idx ON linked_accounts(provider, external_user_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (db *Postgres) GetLinkedAccount(ctx context.Context, userID int64, provider string) (*model.LinkedAccount, error) {
	query := `
		SELECT id, user_id, provider, external_user_id, access_token, refresh_token, token_expires_at, created_at, updated_at
		FROM linked_accounts
		WHERE user_id = $1 AND provider = $2
	`
	var a model.LinkedAccount
	err := db.Pool.QueryRow(ctx, query, userID, provider).Scan(
		&a.ID,
		&a.UserID,
		&a.Provider,
		&a.ExternalUserID,
		&a.AccessToken,
		&a.RefreshToken,
		&a.TokenExpiresAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertLinkedAccount records (or re-records) a user's connection to an
// external provider. Re-linking replaces the stored token set.
func (db *Postgres) UpsertLinkedAccount(ctx context.Context, a *model.LinkedAccount) error {
	query := `
		INSERT INTO linked_accounts (user_id, provider, external_user_id, access_token, refresh_token, token_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			external_user_id = EXCLUDED.external_user_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	return db.Pool.QueryRow(ctx, query,
		a.UserID, a.Provider, a.ExternalUserID, a.AccessToken, a.RefreshToken, a.TokenExpiresAt,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (db *Postgres) UpdateLinkedAccountTokens(ctx context.Context, accountID int64, upd model.TokenUpdate) error {
	query := `
		UPDATE linked_accounts
		SET access_token = $2, refresh_token = $3, token_expires_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, accountID, upd.AccessToken, upd.RefreshToken, upd.TokenExpiresAt)
	return err
}

func (db *Postgres) DeleteLinkedAccount(ctx context.Context, userID int64, provider string) error {
	query := `
		DELETE FROM linked_accounts
		WHERE user_id = $1 AND provider = $2
	`
	_, err := db.Pool.Exec(ctx, query, userID, provider)
	return err
}
