package domain

import "time"

// PasswordCredential backs a local-userpass identity.
type PasswordCredential struct {
	Email        string
	IdentityID   string
	PasswordHash string // argon2id, PHC encoded
	CreatedAt    time.Time
}
