package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vaultmarks/backend/internal/config"
	"github.com/vaultmarks/backend/internal/model"
)

type fakeTokenStore struct {
	updates []model.TokenUpdate
	err     error
}

func (f *fakeTokenStore) UpdateLinkedAccountTokens(ctx context.Context, accountID int64, upd model.TokenUpdate) error {
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, upd)
	return nil
}

func newTokenTestServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","expires_in":3600,"token_type":"Bearer"}`))
	}))
}

func newTestTokenManager(store tokenStore, tokenURL string, now time.Time) *TokenManager {
	m := NewTokenManager(store, config.DirectoryConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      "http://localhost/authorize",
		TokenURL:     tokenURL,
		Scopes:       "identify",
	})
	m.now = func() time.Time { return now }
	return m
}

func tokenAccount(access, refresh string, expiresAt *time.Time) *model.LinkedAccount {
	account := &model.LinkedAccount{ID: 1, UserID: 7, Provider: "discord", ExternalUserID: "ext-7"}
	if access != "" {
		account.AccessToken = &access
	}
	if refresh != "" {
		account.RefreshToken = &refresh
	}
	account.TokenExpiresAt = expiresAt
	return account
}

func TestFreshAccessTokenNoStoredToken(t *testing.T) {
	hits := 0
	srv := newTokenTestServer(t, &hits)
	defer srv.Close()

	m := newTestTokenManager(&fakeTokenStore{}, srv.URL, time.Now())
	if got := m.FreshAccessToken(context.Background(), tokenAccount("", "refresh", nil)); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
	if hits != 0 {
		t.Fatalf("no refresh call expected, got %d", hits)
	}
}

func TestFreshAccessTokenStillValid(t *testing.T) {
	hits := 0
	srv := newTokenTestServer(t, &hits)
	defer srv.Close()

	now := time.Now()
	expiry := now.Add(10 * time.Minute)
	m := newTestTokenManager(&fakeTokenStore{}, srv.URL, now)

	got := m.FreshAccessToken(context.Background(), tokenAccount("stored-access", "stored-refresh", &expiry))
	if got != "stored-access" {
		t.Fatalf("got %q, want stored token", got)
	}
	if hits != 0 {
		t.Fatalf("valid token must not trigger a network call, got %d", hits)
	}
}

func TestFreshAccessTokenInsideExpiryBuffer(t *testing.T) {
	hits := 0
	srv := newTokenTestServer(t, &hits)
	defer srv.Close()

	store := &fakeTokenStore{}
	now := time.Now()
	expiry := now.Add(4 * time.Minute) // inside the 5-minute buffer
	m := newTestTokenManager(store, srv.URL, now)

	got := m.FreshAccessToken(context.Background(), tokenAccount("stored-access", "stored-refresh", &expiry))
	if got != "new-access" {
		t.Fatalf("got %q, want refreshed token", got)
	}
	if hits != 1 {
		t.Fatalf("expected one refresh call, got %d", hits)
	}
	if len(store.updates) != 1 {
		t.Fatalf("rotated tokens not persisted")
	}
	upd := store.updates[0]
	if upd.AccessToken != "new-access" || upd.RefreshToken != "new-refresh" {
		t.Fatalf("persisted pair = %+v", upd)
	}
	if upd.TokenExpiresAt.Before(now.Add(50 * time.Minute)) {
		t.Fatalf("expiry not derived from expires_in: %v", upd.TokenExpiresAt)
	}
}

func TestFreshAccessTokenExpiredWithoutRefreshToken(t *testing.T) {
	hits := 0
	srv := newTokenTestServer(t, &hits)
	defer srv.Close()

	now := time.Now()
	expiry := now.Add(-time.Hour)
	m := newTestTokenManager(&fakeTokenStore{}, srv.URL, now)

	if got := m.FreshAccessToken(context.Background(), tokenAccount("stored-access", "", &expiry)); got != "" {
		t.Fatalf("got %q, want empty (re-link required)", got)
	}
	if hits != 0 {
		t.Fatalf("no refresh possible without a refresh token, got %d calls", hits)
	}
}

func TestFreshAccessTokenRefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	store := &fakeTokenStore{}
	now := time.Now()
	expiry := now.Add(-time.Hour)
	m := newTestTokenManager(store, srv.URL, now)

	if got := m.FreshAccessToken(context.Background(), tokenAccount("stored-access", "stored-refresh", &expiry)); got != "" {
		t.Fatalf("got %q, want empty on refresh failure", got)
	}
	if len(store.updates) != 0 {
		t.Fatalf("failed refresh must not mutate stored state")
	}
}

func TestFreshAccessTokenPersistFailure(t *testing.T) {
	hits := 0
	srv := newTokenTestServer(t, &hits)
	defer srv.Close()

	now := time.Now()
	expiry := now.Add(-time.Hour)
	m := newTestTokenManager(&fakeTokenStore{err: errors.New("db down")}, srv.URL, now)

	if got := m.FreshAccessToken(context.Background(), tokenAccount("stored-access", "stored-refresh", &expiry)); got != "" {
		t.Fatalf("unpersisted rotation must not be handed out, got %q", got)
	}
}
