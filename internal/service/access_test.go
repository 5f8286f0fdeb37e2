package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/vaultmarks/backend/internal/model"
)

type fakeMemberStore struct {
	members map[string]model.MemberRole
}

func newFakeMemberStore() *fakeMemberStore {
	return &fakeMemberStore{members: map[string]model.MemberRole{}}
}

func memberKey(vaultID uuid.UUID, userID int64) string {
	return fmt.Sprintf("%s/%d", vaultID, userID)
}

func (f *fakeMemberStore) IsMember(ctx context.Context, vaultID uuid.UUID, userID int64) (bool, error) {
	_, ok := f.members[memberKey(vaultID, userID)]
	return ok, nil
}

func (f *fakeMemberStore) UpsertMembership(ctx context.Context, vaultID uuid.UUID, userID int64, role model.MemberRole) error {
	key := memberKey(vaultID, userID)
	if _, ok := f.members[key]; !ok {
		f.members[key] = role
	}
	return nil
}

func (f *fakeMemberStore) DeleteMembership(ctx context.Context, vaultID uuid.UUID, userID int64) error {
	delete(f.members, memberKey(vaultID, userID))
	return nil
}

type fakeMembershipChecker struct {
	result model.MembershipResult
	calls  int
}

func (f *fakeMembershipChecker) CheckMembership(ctx context.Context, userID int64, groupID, requiredRole string) (model.MembershipResult, error) {
	f.calls++
	return f.result, nil
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func testVault(accessType model.AccessType) *model.Vault {
	return &model.Vault{
		ID:         uuid.New(),
		Slug:       "team-links",
		Name:       "Team Links",
		AccessType: accessType,
		OwnerID:    1,
	}
}

func TestResolvePublicVault(t *testing.T) {
	svc := NewAccessService(newFakeMemberStore(), &fakeMembershipChecker{})
	vault := testVault(model.AccessPublic)

	for _, userID := range []*int64{nil, int64Ptr(42)} {
		decision, err := svc.Resolve(context.Background(), vault, userID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !decision.Granted {
			t.Fatalf("public vault must grant access, got %+v", decision)
		}
	}
}

func TestResolveAnonymousDenied(t *testing.T) {
	svc := NewAccessService(newFakeMemberStore(), &fakeMembershipChecker{})

	for _, accessType := range []model.AccessType{model.AccessPassword, model.AccessGroup} {
		decision, err := svc.Resolve(context.Background(), testVault(accessType), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Granted || decision.Reason != model.ReasonUnauthorized || decision.NeedsReconnect {
			t.Fatalf("anonymous access to %s vault: got %+v", accessType, decision)
		}
	}
}

func TestResolveOwnerAlwaysGranted(t *testing.T) {
	checker := &fakeMembershipChecker{result: model.MembershipResult{Reason: model.ReasonNotInGroup}}
	svc := NewAccessService(newFakeMemberStore(), checker)

	for _, accessType := range []model.AccessType{model.AccessPublic, model.AccessPassword, model.AccessGroup} {
		vault := testVault(accessType)
		vault.ExternalGroupID = strPtr("G1")
		decision, err := svc.Resolve(context.Background(), vault, int64Ptr(vault.OwnerID))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !decision.Granted {
			t.Fatalf("owner denied on %s vault: %+v", accessType, decision)
		}
	}
	if checker.calls != 0 {
		t.Fatalf("owner resolution must not consult the directory")
	}
}

func TestResolveExplicitMemberGranted(t *testing.T) {
	store := newFakeMemberStore()
	checker := &fakeMembershipChecker{result: model.MembershipResult{Reason: model.ReasonNotInGroup}}
	svc := NewAccessService(store, checker)

	vault := testVault(model.AccessGroup)
	vault.ExternalGroupID = strPtr("G1")
	store.members[memberKey(vault.ID, 7)] = model.RoleMember

	decision, err := svc.Resolve(context.Background(), vault, int64Ptr(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Granted {
		t.Fatalf("explicit member denied: %+v", decision)
	}
	if checker.calls != 0 {
		t.Fatalf("explicit membership must short-circuit the directory check")
	}
}

func TestResolvePasswordVaultWithoutMembership(t *testing.T) {
	svc := NewAccessService(newFakeMemberStore(), &fakeMembershipChecker{})

	decision, err := svc.Resolve(context.Background(), testVault(model.AccessPassword), int64Ptr(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Granted || decision.Reason != model.ReasonUnauthorized {
		t.Fatalf("password vault without membership: got %+v", decision)
	}
}

func TestResolveGroupVaultDelegates(t *testing.T) {
	tests := []struct {
		name   string
		result model.MembershipResult
	}{
		{"granted", model.MembershipResult{HasAccess: true}},
		{"not-in-group", model.MembershipResult{Reason: model.ReasonNotInGroup}},
		{"token-expired", model.MembershipResult{Reason: model.ReasonTokenExpired, NeedsReconnect: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &fakeMembershipChecker{result: tt.result}
			svc := NewAccessService(newFakeMemberStore(), checker)

			vault := testVault(model.AccessGroup)
			vault.ExternalGroupID = strPtr("G1")

			decision, err := svc.Resolve(context.Background(), vault, int64Ptr(7))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := tt.result.Decision()
			if decision != want {
				t.Fatalf("decision = %+v, want %+v", decision, want)
			}
			if checker.calls != 1 {
				t.Fatalf("expected exactly one directory check, got %d", checker.calls)
			}
		})
	}
}

func TestResolveGroupVaultWithoutGroupID(t *testing.T) {
	checker := &fakeMembershipChecker{result: model.MembershipResult{HasAccess: true}}
	svc := NewAccessService(newFakeMemberStore(), checker)

	decision, err := svc.Resolve(context.Background(), testVault(model.AccessGroup), int64Ptr(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Granted || decision.Reason != model.ReasonUnauthorized {
		t.Fatalf("group vault with no group id: got %+v", decision)
	}
	if checker.calls != 0 {
		t.Fatalf("directory must not be consulted without a group id")
	}
}

func TestJoinPasswordVault(t *testing.T) {
	store := newFakeMemberStore()
	svc := NewAccessService(store, &fakeMembershipChecker{})

	hash, err := HashVaultPassword("open-sesame")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	vault := testVault(model.AccessPassword)
	vault.PasswordHash = &hash

	if err := svc.Join(context.Background(), vault, 7, "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("wrong password: got %v", err)
	}
	if err := svc.Join(context.Background(), vault, 7, "open-sesame"); err != nil {
		t.Fatalf("join: %v", err)
	}
	// Joining again is a success, not a conflict.
	if err := svc.Join(context.Background(), vault, 7, "open-sesame"); err != nil {
		t.Fatalf("second join: %v", err)
	}

	// Subsequent resolution grants through the membership row, without
	// touching the password again.
	decision, err := svc.Resolve(context.Background(), vault, int64Ptr(7))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !decision.Granted {
		t.Fatalf("joined user denied: %+v", decision)
	}
}

func TestJoinMisconfiguredVault(t *testing.T) {
	svc := NewAccessService(newFakeMemberStore(), &fakeMembershipChecker{})

	vault := testVault(model.AccessPassword)
	if err := svc.Join(context.Background(), vault, 7, "anything"); !errors.Is(err, ErrVaultMisconfigured) {
		t.Fatalf("missing hash must be a configuration error, got %v", err)
	}

	empty := ""
	vault.PasswordHash = &empty
	if err := svc.Join(context.Background(), vault, 7, "anything"); !errors.Is(err, ErrVaultMisconfigured) {
		t.Fatalf("empty hash must be a configuration error, got %v", err)
	}
}

func TestJoinNonPasswordVault(t *testing.T) {
	svc := NewAccessService(newFakeMemberStore(), &fakeMembershipChecker{})

	if err := svc.Join(context.Background(), testVault(model.AccessPublic), 7, "pw"); !errors.Is(err, ErrNotPasswordVault) {
		t.Fatalf("got %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	store := newFakeMemberStore()
	svc := NewAccessService(store, &fakeMembershipChecker{})
	vault := testVault(model.AccessPublic)

	if err := svc.Subscribe(context.Background(), vault, vault.OwnerID); !errors.Is(err, ErrOwnerMembership) {
		t.Fatalf("owner subscribe: got %v", err)
	}
	if err := svc.Subscribe(context.Background(), testVault(model.AccessPassword), 7); !errors.Is(err, ErrNotPublicVault) {
		t.Fatalf("non-public subscribe: got %v", err)
	}

	if err := svc.Subscribe(context.Background(), vault, 7); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := svc.Subscribe(context.Background(), vault, 7); err != nil {
		t.Fatalf("duplicate subscribe must succeed: %v", err)
	}
	if len(store.members) != 1 {
		t.Fatalf("expected one membership row, got %d", len(store.members))
	}
}

func TestUnsubscribe(t *testing.T) {
	store := newFakeMemberStore()
	svc := NewAccessService(store, &fakeMembershipChecker{})
	vault := testVault(model.AccessPublic)
	store.members[memberKey(vault.ID, 7)] = model.RoleMember

	if err := svc.Unsubscribe(context.Background(), vault, vault.OwnerID); !errors.Is(err, ErrOwnerMembership) {
		t.Fatalf("owner unsubscribe: got %v", err)
	}
	if err := svc.Unsubscribe(context.Background(), vault, 7); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if len(store.members) != 0 {
		t.Fatalf("membership row not removed")
	}
}
