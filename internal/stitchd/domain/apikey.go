package domain

import "time"

// APIKey is a user API key. Only the fingerprint of the key is stored.
type APIKey struct {
	ID        string
	UserID    string
	Name      string
	KeyHash   string
	Disabled  bool
	CreatedAt time.Time
}
