package model

import "time"

// LinkedAccount is a user's connected identity at an external provider,
// carrying the delegated OAuth token pair. Tokens are nullable: an account
// can be linked (external user id known) while its tokens have been lost
// or never granted.
type LinkedAccount struct {
	ID             int64
	UserID         int64
	Provider       string
	ExternalUserID string
	AccessToken    *string
	RefreshToken   *string
	TokenExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TokenUpdate is the rotated credential set persisted after a successful
// refresh. The refresh token is whatever the provider returned, since
// providers may invalidate the previous one on use.
type TokenUpdate struct {
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt time.Time
}

type ConnectionResponse struct {
	Provider       string `json:"provider"`
	ExternalUserID string `json:"externalUserId"`
	Connected      bool   `json:"connected"`
}
