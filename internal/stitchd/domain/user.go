package domain

import "time"

const (
	UserTypeNormal = "normal"
	UserTypeServer = "server"
)

type User struct {
	ID        string
	Type      string
	Data      map[string]any // profile fields contributed by providers (name, email, ...)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity links a user to one provider account. (ProviderType, ID) is unique.
type Identity struct {
	ID           string
	UserID       string
	ProviderType string
	CreatedAt    time.Time
}
