package model

import (
	"time"

	"github.com/google/uuid"
)

type AccessType string

const (
	AccessPublic   AccessType = "public"
	AccessPassword AccessType = "password"
	AccessGroup    AccessType = "group"
)

func (t AccessType) Valid() bool {
	switch t {
	case AccessPublic, AccessPassword, AccessGroup:
		return true
	}
	return false
}

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

type Vault struct {
	ID              uuid.UUID
	Slug            string
	Name            string
	AccessType      AccessType
	PasswordHash    *string
	ExternalGroupID *string
	ExternalRoleID  *string
	OwnerID         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type VaultMember struct {
	VaultID   uuid.UUID
	UserID    int64
	Role      MemberRole
	CreatedAt time.Time
}

type CreateVaultRequest struct {
	Slug            string  `json:"slug"`
	Name            string  `json:"name"`
	AccessType      string  `json:"accessType"`
	Password        string  `json:"password,omitempty"`
	ExternalGroupID *string `json:"externalGroupId,omitempty"`
	ExternalRoleID  *string `json:"externalRoleId,omitempty"`
}

type UpdateVaultAccessRequest struct {
	AccessType      string  `json:"accessType"`
	Password        string  `json:"password,omitempty"`
	ExternalGroupID *string `json:"externalGroupId,omitempty"`
	ExternalRoleID  *string `json:"externalRoleId,omitempty"`
}

type VaultResponse struct {
	ID              string  `json:"id"`
	Slug            string  `json:"slug"`
	Name            string  `json:"name"`
	AccessType      string  `json:"accessType"`
	ExternalGroupID *string `json:"externalGroupId,omitempty"`
	ExternalRoleID  *string `json:"externalRoleId,omitempty"`
	OwnerID         int64   `json:"ownerId"`
}

func VaultResponseFrom(v *Vault) VaultResponse {
	return VaultResponse{
		ID:              v.ID.String(),
		Slug:            v.Slug,
		Name:            v.Name,
		AccessType:      string(v.AccessType),
		ExternalGroupID: v.ExternalGroupID,
		ExternalRoleID:  v.ExternalRoleID,
		OwnerID:         v.OwnerID,
	}
}

type JoinVaultRequest struct {
	Password string `json:"password"`
}
