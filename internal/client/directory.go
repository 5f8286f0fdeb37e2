// Client for the external membership directory (Discord-style REST API).
//
// Two endpoint families are used:
//   - service-authenticated: GET /groups/{groupID}/members/{externalUserID},
//     authorized with the application's service token. Authoritative, does
//     not depend on any user's delegated token.
//   - user-delegated: GET /users/me, GET /users/me/groups,
//     GET /users/me/groups/{groupID}/member, authorized with a user's
//     OAuth bearer token.
//
// Status codes that carry meaning for the access engine (404 = not a
// member, 401/403 = token rejected) are surfaced as sentinel errors so the
// service layer can map them to deny reasons without parsing messages.

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vaultmarks/backend/internal/config"
)

var (
	// ErrNotFound: the directory answered 404 (no such member).
	ErrNotFound = errors.New("directory: not found")
	// ErrUnauthorized: the directory rejected the credential (401/403).
	ErrUnauthorized = errors.New("directory: unauthorized")
)

type DirectoryClient struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

// GroupMember is the directory's member record within a group.
type GroupMember struct {
	Roles []string `json:"roles"`
}

// Group is an entry in the user's group list.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// DirectoryUser is the identity behind a delegated token.
type DirectoryUser struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

func NewDirectoryClient(cfg config.DirectoryConfig) *DirectoryClient {
	return &DirectoryClient{
		baseURL:      cfg.BaseURL,
		serviceToken: cfg.ServiceToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// HasServiceCredential reports whether the authoritative lookup path is
// available in this deployment.
func (c *DirectoryClient) HasServiceCredential() bool {
	return c.serviceToken != ""
}

// GetGroupMember looks up a member record with the service credential.
// Returns ErrNotFound when the user is not in the group.
func (c *DirectoryClient) GetGroupMember(ctx context.Context, groupID, externalUserID string) (*GroupMember, error) {
	path := fmt.Sprintf("/groups/%s/members/%s", url.PathEscape(groupID), url.PathEscape(externalUserID))
	var member GroupMember
	if err := c.get(ctx, path, "Bot "+c.serviceToken, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// GetMyGroups lists the groups visible to the given delegated token.
func (c *DirectoryClient) GetMyGroups(ctx context.Context, userToken string) ([]Group, error) {
	var groups []Group
	if err := c.get(ctx, "/users/me/groups", "Bearer "+userToken, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetMyGroupMember fetches the token owner's member record in one group.
func (c *DirectoryClient) GetMyGroupMember(ctx context.Context, userToken, groupID string) (*GroupMember, error) {
	path := fmt.Sprintf("/users/me/groups/%s/member", url.PathEscape(groupID))
	var member GroupMember
	if err := c.get(ctx, path, "Bearer "+userToken, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// GetMe fetches the identity behind a delegated token. Used once at
// account-linking time to learn the external user id.
func (c *DirectoryClient) GetMe(ctx context.Context, userToken string) (*DirectoryUser, error) {
	var user DirectoryUser
	if err := c.get(ctx, "/users/me", "Bearer "+userToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *DirectoryClient) get(ctx context.Context, path, authorization string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("directory returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
