package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/vaultmarks/backend/internal/model"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type vaultStore interface {
	CreateVault(ctx context.Context, v *model.Vault) error
	GetVaultBySlug(ctx context.Context, slug string) (*model.Vault, error)
	UpdateVaultAccess(ctx context.Context, vaultID uuid.UUID, accessType model.AccessType, passwordHash, externalGroupID, externalRoleID *string) error
	UpsertMembership(ctx context.Context, vaultID uuid.UUID, userID int64, role model.MemberRole) error
	ListVaultsForUser(ctx context.Context, userID int64) ([]model.Vault, error)
}

// VaultService owns vault creation and the owner-side access settings.
// Gating configuration is validated here so a misconfigured vault can
// only arise from data older than the rules, never from a fresh write.
type VaultService struct {
	store vaultStore
}

func NewVaultService(store vaultStore) *VaultService {
	return &VaultService{store: store}
}

func (s *VaultService) Create(ctx context.Context, ownerID int64, req model.CreateVaultRequest) (*model.Vault, error) {
	slug := strings.TrimSpace(strings.ToLower(req.Slug))
	name := strings.TrimSpace(req.Name)
	if !slugPattern.MatchString(slug) || len(slug) > 64 || name == "" || len(name) > 128 {
		return nil, ErrInvalidInput
	}

	accessType := model.AccessType(req.AccessType)
	hash, groupID, roleID, err := gatingFields(accessType, req.Password, req.ExternalGroupID, req.ExternalRoleID)
	if err != nil {
		return nil, err
	}

	vault := &model.Vault{
		ID:              uuid.New(),
		Slug:            slug,
		Name:            name,
		AccessType:      accessType,
		PasswordHash:    hash,
		ExternalGroupID: groupID,
		ExternalRoleID:  roleID,
		OwnerID:         ownerID,
	}
	if err := s.store.CreateVault(ctx, vault); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if err := s.store.UpsertMembership(ctx, vault.ID, ownerID, model.RoleOwner); err != nil {
		return nil, err
	}
	return vault, nil
}

// UpdateAccessSettings reconfigures a vault's gate. Only the owner may do
// this. Switching to password gating without a new password keeps the
// existing hash; switching away from it clears the hash.
func (s *VaultService) UpdateAccessSettings(ctx context.Context, vault *model.Vault, userID int64, req model.UpdateVaultAccessRequest) error {
	if userID != vault.OwnerID {
		return ErrForbidden
	}

	accessType := model.AccessType(req.AccessType)
	if accessType == model.AccessPassword && req.Password == "" && vault.AccessType == model.AccessPassword {
		// Keep the current password.
		_, groupID, roleID, err := gatingFields(accessType, "placeholder", req.ExternalGroupID, req.ExternalRoleID)
		if err != nil {
			return err
		}
		return s.store.UpdateVaultAccess(ctx, vault.ID, accessType, vault.PasswordHash, groupID, roleID)
	}

	hash, groupID, roleID, err := gatingFields(accessType, req.Password, req.ExternalGroupID, req.ExternalRoleID)
	if err != nil {
		return err
	}
	return s.store.UpdateVaultAccess(ctx, vault.ID, accessType, hash, groupID, roleID)
}

func (s *VaultService) GetBySlug(ctx context.Context, slug string) (*model.Vault, error) {
	return s.store.GetVaultBySlug(ctx, slug)
}

func (s *VaultService) ListForUser(ctx context.Context, userID int64) ([]model.Vault, error) {
	return s.store.ListVaultsForUser(ctx, userID)
}

// gatingFields validates and normalizes the per-access-type fields: a
// password vault stores only a hash, a group vault stores only group/role
// ids, a public vault stores neither.
func gatingFields(accessType model.AccessType, password string, externalGroupID, externalRoleID *string) (hash, groupID, roleID *string, err error) {
	if !accessType.Valid() {
		return nil, nil, nil, ErrInvalidInput
	}

	switch accessType {
	case model.AccessPassword:
		if password == "" {
			return nil, nil, nil, ErrInvalidInput
		}
		h, err := HashVaultPassword(password)
		if err != nil {
			return nil, nil, nil, err
		}
		return &h, nil, nil, nil
	case model.AccessGroup:
		if externalGroupID == nil || strings.TrimSpace(*externalGroupID) == "" {
			return nil, nil, nil, ErrInvalidInput
		}
		if externalRoleID != nil && strings.TrimSpace(*externalRoleID) == "" {
			externalRoleID = nil
		}
		return nil, externalGroupID, externalRoleID, nil
	default:
		return nil, nil, nil, nil
	}
}
