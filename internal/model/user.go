package model

import "time"

// User is a dashboard user authenticated through GitHub OAuth.
// ID is GitHub's stable node ID.
type User struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Email       *string   `json:"email,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	AccessToken *string   `json:"-"`
	ID          string    `json:"id"`
	GitHubID    string    `json:"github_id"`
	Username    string    `json:"username"`
}
