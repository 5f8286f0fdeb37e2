package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vaultmarks/backend/internal/config"
)

func newTestClient(srv *httptest.Server, serviceToken string) *DirectoryClient {
	return NewDirectoryClient(config.DirectoryConfig{
		BaseURL:      srv.URL,
		ServiceToken: serviceToken,
	})
}

func TestGetGroupMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/G1/members/ext-7" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bot svc-token" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"roles":["r1","r2"]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, "svc-token")
	member, err := c.GetGroupMember(context.Background(), "G1", "ext-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(member.Roles) != 2 || member.Roles[0] != "r1" {
		t.Fatalf("roles = %v", member.Roles)
	}
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not-found", http.StatusNotFound, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := newTestClient(srv, "svc-token")
			_, err := c.GetGroupMember(context.Background(), "G1", "ext-7")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerErrorIsNotSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv, "svc-token")
	_, err := c.GetMyGroups(context.Background(), "user-token")
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) {
		t.Fatalf("5xx must not map to a sentinel: %v", err)
	}
}

func TestGetMyGroups(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me/groups" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"G1","name":"Guild One"},{"id":"G2"}]`))
	}))
	defer srv.Close()

	c := newTestClient(srv, "")
	groups, err := c.GetMyGroups(context.Background(), "user-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 2 || groups[0].ID != "G1" {
		t.Fatalf("groups = %v", groups)
	}
}

func TestGetMyGroupMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me/groups/G1/member" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"roles":["r1"]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, "")
	member, err := c.GetMyGroupMember(context.Background(), "user-token", "G1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(member.Roles) != 1 {
		t.Fatalf("roles = %v", member.Roles)
	}
}

func TestHasServiceCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	if newTestClient(srv, "").HasServiceCredential() {
		t.Fatal("empty service token must report unconfigured")
	}
	if !newTestClient(srv, "svc").HasServiceCredential() {
		t.Fatal("service token must report configured")
	}
}
