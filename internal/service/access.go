package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vaultmarks/backend/internal/model"
)

var (
	// ErrVaultMisconfigured: a password vault with no stored hash. Owner
	// error, must never read as "wrong password".
	ErrVaultMisconfigured = errors.New("vault access misconfigured")
	ErrNotPasswordVault   = errors.New("vault is not password gated")
	ErrNotPublicVault     = errors.New("vault is not public")
	ErrInvalidPassword    = errors.New("invalid vault password")
	// ErrOwnerMembership: owners cannot subscribe to or leave their own
	// vault; their access is implicit.
	ErrOwnerMembership = errors.New("owner membership is implicit")
)

type memberStore interface {
	IsMember(ctx context.Context, vaultID uuid.UUID, userID int64) (bool, error)
	UpsertMembership(ctx context.Context, vaultID uuid.UUID, userID int64, role model.MemberRole) error
	DeleteMembership(ctx context.Context, vaultID uuid.UUID, userID int64) error
}

type membershipChecker interface {
	CheckMembership(ctx context.Context, userID int64, groupID, requiredRole string) (model.MembershipResult, error)
}

// AccessService decides whether a user may open a vault and manages the
// explicit membership grants behind password joins and public subscribes.
type AccessService struct {
	store      memberStore
	membership membershipChecker
}

func NewAccessService(store memberStore, membership membershipChecker) *AccessService {
	return &AccessService{store: store, membership: membership}
}

// Resolve computes the access decision for a vault and an optional
// requesting user (nil = anonymous). First match wins:
//
//  1. public vaults are open to everyone;
//  2. anything else requires authentication;
//  3. the owner always has access;
//  4. an explicit membership row always grants access;
//  5. password vaults grant only through membership (the password gate
//     runs at join time, never here);
//  6. group vaults are re-checked against the directory on every call,
//     since external membership can change at any moment.
//
// A denial is a value, not an error; errors mean the decision could not
// be computed at all.
func (s *AccessService) Resolve(ctx context.Context, vault *model.Vault, userID *int64) (model.AccessDecision, error) {
	if vault.AccessType == model.AccessPublic {
		return model.Granted(), nil
	}

	if userID == nil {
		return model.Denied(model.ReasonUnauthorized, false), nil
	}

	if *userID == vault.OwnerID {
		return model.Granted(), nil
	}

	isMember, err := s.store.IsMember(ctx, vault.ID, *userID)
	if err != nil {
		return model.AccessDecision{}, err
	}
	if isMember {
		return model.Granted(), nil
	}

	if vault.AccessType == model.AccessGroup && vault.ExternalGroupID != nil {
		requiredRole := ""
		if vault.ExternalRoleID != nil {
			requiredRole = *vault.ExternalRoleID
		}
		result, err := s.membership.CheckMembership(ctx, *userID, *vault.ExternalGroupID, requiredRole)
		if err != nil {
			return model.AccessDecision{}, err
		}
		return result.Decision(), nil
	}

	return model.Denied(model.ReasonUnauthorized, false), nil
}

// Join converts a correct password into a durable membership row. Joining
// twice is a success, not a conflict.
func (s *AccessService) Join(ctx context.Context, vault *model.Vault, userID int64, password string) error {
	if vault.AccessType != model.AccessPassword {
		return ErrNotPasswordVault
	}
	if vault.PasswordHash == nil || *vault.PasswordHash == "" {
		return ErrVaultMisconfigured
	}
	if !VerifyVaultPassword(password, *vault.PasswordHash) {
		return ErrInvalidPassword
	}
	return s.store.UpsertMembership(ctx, vault.ID, userID, model.RoleMember)
}

// Subscribe grants a membership row on a public vault. Idempotent:
// concurrent duplicate subscribes both succeed with a single row.
func (s *AccessService) Subscribe(ctx context.Context, vault *model.Vault, userID int64) error {
	if vault.AccessType != model.AccessPublic {
		return ErrNotPublicVault
	}
	if userID == vault.OwnerID {
		return ErrOwnerMembership
	}
	return s.store.UpsertMembership(ctx, vault.ID, userID, model.RoleMember)
}

// Unsubscribe removes a membership row. The owner cannot be removed.
func (s *AccessService) Unsubscribe(ctx context.Context, vault *model.Vault, userID int64) error {
	if userID == vault.OwnerID {
		return ErrOwnerMembership
	}
	return s.store.DeleteMembership(ctx, vault.ID, userID)
}
