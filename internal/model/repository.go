package model

import "time"

// Repository is a GitHub repository a user has connected to the dashboard.
type Repository struct {
	CreatedAt     time.Time `json:"created_at"`
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Owner         string    `json:"owner"`
	Description   string    `json:"description"`
	DefaultBranch string    `json:"default_branch"`
	URL           string    `json:"url"`
	Private       bool      `json:"private"`
}
