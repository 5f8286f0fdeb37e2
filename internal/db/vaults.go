package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/vaultmarks/backend/internal/model"
)

func (db *Postgres) EnsureVaultSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS vaults (
			id UUID PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			access_type TEXT NOT NULL,
			password_hash TEXT,
			external_group_id TEXT,
			external_role_id TEXT,
			owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS vault_members (
			vault_id UUID NOT NULL REFERENCES vaults(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role TEXT NOT NULL DEFAULT 'member',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (vault_id, user_id)
		)
		`,
		`CREATE INDEX IF NOT EXISTS vault_members_user_id_idx ON vault_members(user_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (db *Postgres) CreateVault(ctx context.Context, v *model.Vault) error {
	query := `
		INSERT INTO vaults (id, slug, name, access_type, password_hash, external_group_id, external_role_id, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return db.Pool.QueryRow(ctx, query,
		v.ID, v.Slug, v.Name, v.AccessType, v.PasswordHash, v.ExternalGroupID, v.ExternalRoleID, v.OwnerID,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (db *Postgres) GetVaultBySlug(ctx context.Context, slug string) (*model.Vault, error) {
	query := `
		SELECT id, slug, name, access_type, password_hash, external_group_id, external_role_id, owner_id, created_at, updated_at
		FROM vaults
		WHERE slug = $1
	`
	var v model.Vault
	err := db.Pool.QueryRow(ctx, query, slug).Scan(
		&v.ID,
		&v.Slug,
		&v.Name,
		&v.AccessType,
		&v.PasswordHash,
		&v.ExternalGroupID,
		&v.ExternalRoleID,
		&v.OwnerID,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (db *Postgres) UpdateVaultAccess(ctx context.Context, vaultID uuid.UUID, accessType model.AccessType, passwordHash, externalGroupID, externalRoleID *string) error {
	query := `
		UPDATE vaults
		SET access_type = $2, password_hash = $3, external_group_id = $4, external_role_id = $5, updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, vaultID, accessType, passwordHash, externalGroupID, externalRoleID)
	return err
}

// UpsertMembership inserts a membership row if absent. A duplicate insert
// is a no-op so concurrent joins and subscribes never error. An existing
// row keeps its role: joining never demotes an owner.
func (db *Postgres) UpsertMembership(ctx context.Context, vaultID uuid.UUID, userID int64, role model.MemberRole) error {
	query := `
		INSERT INTO vault_members (vault_id, user_id, role, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (vault_id, user_id) DO NOTHING
	`
	_, err := db.Pool.Exec(ctx, query, vaultID, userID, role)
	return err
}

func (db *Postgres) DeleteMembership(ctx context.Context, vaultID uuid.UUID, userID int64) error {
	query := `
		DELETE FROM vault_members
		WHERE vault_id = $1 AND user_id = $2
	`
	_, err := db.Pool.Exec(ctx, query, vaultID, userID)
	return err
}

func (db *Postgres) IsMember(ctx context.Context, vaultID uuid.UUID, userID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM vault_members
			WHERE vault_id = $1 AND user_id = $2
		)
	`
	var exists bool
	if err := db.Pool.QueryRow(ctx, query, vaultID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (db *Postgres) ListVaultsForUser(ctx context.Context, userID int64) ([]model.Vault, error) {
	query := `
		SELECT DISTINCT v.id, v.slug, v.name, v.access_type, v.password_hash, v.external_group_id, v.external_role_id, v.owner_id, v.created_at, v.updated_at
		FROM vaults v
		LEFT JOIN vault_members m ON m.vault_id = v.id AND m.user_id = $1
		WHERE v.owner_id = $1 OR m.user_id IS NOT NULL
		ORDER BY v.created_at DESC
	`
	rows, err := db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Vault
	for rows.Next() {
		var v model.Vault
		if err := rows.Scan(
			&v.ID,
			&v.Slug,
			&v.Name,
			&v.AccessType,
			&v.PasswordHash,
			&v.ExternalGroupID,
			&v.ExternalRoleID,
			&v.OwnerID,
			&v.CreatedAt,
			&v.UpdatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	if list == nil {
		list = []model.Vault{}
	}
	return list, rows.Err()
}
