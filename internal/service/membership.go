package service

import (
	"context"
	"errors"
	"log"
	"slices"

	"github.com/vaultmarks/backend/internal/client"
	"github.com/vaultmarks/backend/internal/db"
	"github.com/vaultmarks/backend/internal/model"
)

type directoryAPI interface {
	HasServiceCredential() bool
	GetGroupMember(ctx context.Context, groupID, externalUserID string) (*client.GroupMember, error)
	GetMyGroups(ctx context.Context, userToken string) ([]client.Group, error)
	GetMyGroupMember(ctx context.Context, userToken, groupID string) (*client.GroupMember, error)
}

type accountSource interface {
	GetLinkedAccount(ctx context.Context, userID int64, provider string) (*model.LinkedAccount, error)
}

type tokenSource interface {
	FreshAccessToken(ctx context.Context, account *model.LinkedAccount) string
}

// MembershipService answers "is this user in that group, with that role"
// against the external directory. Two strategies are tried in order: the
// service-credential lookup (authoritative, independent of the user's
// token), then the delegated user-token lookup. A strategy either returns
// a definitive verdict or declares itself inconclusive, in which case the
// next one runs; the last strategy's verdict stands either way.
type MembershipService struct {
	accounts  accountSource
	directory directoryAPI
	tokens    tokenSource
	provider  string
}

func NewMembershipService(accounts accountSource, directory directoryAPI, tokens tokenSource, provider string) *MembershipService {
	return &MembershipService{
		accounts:  accounts,
		directory: directory,
		tokens:    tokens,
		provider:  provider,
	}
}

// membershipStrategy returns its verdict and whether that verdict is
// definitive. An inconclusive verdict means "try the next strategy".
type membershipStrategy func(ctx context.Context) (model.MembershipResult, bool)

// CheckMembership resolves group (and optional role) membership for the
// given user. requiredRole == "" means any member passes. A missing linked
// account short-circuits before any directory call. Only persistence
// failures surface as errors; directory failures become deny verdicts.
func (s *MembershipService) CheckMembership(ctx context.Context, userID int64, groupID, requiredRole string) (model.MembershipResult, error) {
	account, err := s.accounts.GetLinkedAccount(ctx, userID, s.provider)
	if err != nil {
		if db.IsNoRows(err) {
			return model.MembershipResult{Reason: model.ReasonNoExternalAccount, NeedsReconnect: true}, nil
		}
		return model.MembershipResult{}, err
	}

	var strategies []membershipStrategy
	if s.directory.HasServiceCredential() {
		strategies = append(strategies, func(ctx context.Context) (model.MembershipResult, bool) {
			return s.checkViaService(ctx, account, groupID, requiredRole)
		})
	}
	strategies = append(strategies, func(ctx context.Context) (model.MembershipResult, bool) {
		return s.checkViaUserToken(ctx, account, groupID, requiredRole)
	})

	var result model.MembershipResult
	for _, strategy := range strategies {
		var definitive bool
		result, definitive = strategy(ctx)
		if definitive {
			return result, nil
		}
	}
	return result, nil
}

// checkViaService queries the group's member list as the application.
// Only a clean 404 or a successful member record is definitive; any other
// failure (service token rejected, 5xx, timeout) hands over to the
// delegated-token strategy.
func (s *MembershipService) checkViaService(ctx context.Context, account *model.LinkedAccount, groupID, requiredRole string) (model.MembershipResult, bool) {
	member, err := s.directory.GetGroupMember(ctx, groupID, account.ExternalUserID)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return model.MembershipResult{Reason: model.ReasonNotInGroup}, true
		}
		log.Printf("[Membership] service lookup failed for group %s: %v", groupID, err)
		return model.MembershipResult{Reason: model.ReasonAPIError}, false
	}

	if requiredRole != "" && !slices.Contains(member.Roles, requiredRole) {
		return model.MembershipResult{Reason: model.ReasonNoRole}, true
	}
	return model.MembershipResult{HasAccess: true}, true
}

// checkViaUserToken queries the directory as the user. Always definitive.
func (s *MembershipService) checkViaUserToken(ctx context.Context, account *model.LinkedAccount, groupID, requiredRole string) (model.MembershipResult, bool) {
	token := s.tokens.FreshAccessToken(ctx, account)
	if token == "" {
		return model.MembershipResult{Reason: model.ReasonTokenExpired, NeedsReconnect: true}, true
	}

	groups, err := s.directory.GetMyGroups(ctx, token)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return model.MembershipResult{Reason: model.ReasonTokenExpired, NeedsReconnect: true}, true
		}
		log.Printf("[Membership] group list lookup failed: %v", err)
		return model.MembershipResult{Reason: model.ReasonAPIError}, true
	}

	inGroup := false
	for _, g := range groups {
		if g.ID == groupID {
			inGroup = true
			break
		}
	}
	if !inGroup {
		return model.MembershipResult{Reason: model.ReasonNotInGroup}, true
	}

	if requiredRole != "" {
		member, err := s.directory.GetMyGroupMember(ctx, token, groupID)
		if err != nil {
			log.Printf("[Membership] member lookup failed for group %s: %v", groupID, err)
			return model.MembershipResult{Reason: model.ReasonAPIError}, true
		}
		if !slices.Contains(member.Roles, requiredRole) {
			return model.MembershipResult{Reason: model.ReasonNoRole}, true
		}
	}

	return model.MembershipResult{HasAccess: true}, true
}
