package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/stitch/internal/stitchd/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. It exposes sub-repositories so
// transactions are only ever started from the root, never nested.
type Store interface {
	Users() Users
	Identities() Identities
	Sessions() Sessions
	APIKeys() APIKeys
	PasswordCredentials() PasswordCredentials

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the caller via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUserData replaces the profile data and bumps updated_at.
	UpdateUserData(ctx context.Context, userID string, data map[string]any) error
}

type Identities interface {
	CreateIdentity(ctx context.Context, i domain.Identity) error

	// GetIdentity finds an identity by provider type and provider id.
	GetIdentity(ctx context.Context, providerType, id string) (domain.Identity, error)

	// ListUserIdentities returns a user's identities in link order.
	ListUserIdentities(ctx context.Context, userID string) ([]domain.Identity, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByHash looks a session up by the fingerprint of its refresh token.
	GetSessionByHash(ctx context.Context, hash string) (domain.Session, error)

	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	DeleteSession(ctx context.Context, id string) error

	// DeleteExpiredSessions is housekeeping; it returns how many rows went.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type APIKeys interface {
	// CreateAPIKey fails with ErrAlreadyExists when the user already has a
	// key with the same name.
	CreateAPIKey(ctx context.Context, k domain.APIKey) error

	GetAPIKey(ctx context.Context, userID, id string) (domain.APIKey, error)

	// GetAPIKeyByHash is used when logging in with a key.
	GetAPIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error)

	ListAPIKeys(ctx context.Context, userID string) ([]domain.APIKey, error)

	SetAPIKeyDisabled(ctx context.Context, userID, id string, disabled bool) error

	DeleteAPIKey(ctx context.Context, userID, id string) error
}

type PasswordCredentials interface {
	// CreatePasswordCredential fails with ErrAlreadyExists for a taken email.
	CreatePasswordCredential(ctx context.Context, c domain.PasswordCredential) error

	GetPasswordCredential(ctx context.Context, email string) (domain.PasswordCredential, error)
}
