package models

import (
	"strings"
	"time"
)

// Permissions understood by the API
const (
	PermExercisesRead = "exercises:read"
	PermAttemptsRead  = "attempts:read"
	PermAttemptsWrite = "attempts:write"
)

// ApiClient is a caller of the exercise API (a frontend, an LMS integration)
type ApiClient struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	ApiKey      string     `json:"-"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	Permissions []string   `json:"permissions"`
}

// HasPermission checks required against the client's grants.
// "attempts:*" grants every attempts permission, "*" grants all.
func (c *ApiClient) HasPermission(required string) bool {
	if c == nil || !c.IsActive {
		return false
	}

	resource, _, _ := strings.Cut(required, ":")
	for _, perm := range c.Permissions {
		switch perm {
		case "*", required, resource + ":*":
			return true
		}
	}
	return false
}

// MaskedApiKey returns the key prefix for logging
func (c *ApiClient) MaskedApiKey() string {
	return MaskKey(c.ApiKey)
}

// MaskKey keeps the first 8 characters of a key
func MaskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:8] + "..."
}
