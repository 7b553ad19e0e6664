package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/stitch/internal/stitchd/domain"
	"github.com/aussiebroadwan/stitch/internal/stitchd/store"
	"github.com/aussiebroadwan/stitch/pkg/cryptox"
	"github.com/aussiebroadwan/stitch/pkg/idx"
	"github.com/aussiebroadwan/stitch/pkg/slogx"
)

// MaxAPIKeysPerUser caps how many keys one user may hold.
const MaxAPIKeysPerUser = 20

// APIKeyService manages the API keys users create for themselves. The key
// itself is only ever returned by Create.
type APIKeyService struct {
	Store  store.Store
	Tokens *TokenService
}

// Create mints a key named name for userID. The returned key carries the
// plaintext secret.
func (s *APIKeyService) Create(ctx context.Context, userID, name string) (domain.APIKey, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.APIKey{}, "", fmt.Errorf("%w: name", ErrMissingParameter)
	}

	secret, err := cryptox.GenerateToken(cryptox.TokenSize512)
	if err != nil {
		return domain.APIKey{}, "", err
	}

	key := domain.APIKey{
		ID:        idx.NewString(),
		UserID:    userID,
		Name:      name,
		KeyHash:   cryptox.FingerprintToken(secret),
		CreatedAt: s.Tokens.now(),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.APIKeys().ListAPIKeys(ctx, userID)
		if err != nil {
			return err
		}
		if len(existing) >= MaxAPIKeysPerUser {
			return fmt.Errorf("%w: at most %d api keys per user", ErrInvalidParameter, MaxAPIKeysPerUser)
		}

		err = tx.APIKeys().CreateAPIKey(ctx, key)
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrAPIKeyAlreadyExists
		}
		return err
	})
	if err != nil {
		return domain.APIKey{}, "", err
	}

	slogx.FromContext(ctx).Info("api key created", "user_id", userID, "key_id", key.ID)
	return key, secret, nil
}

func (s *APIKeyService) Get(ctx context.Context, userID, id string) (domain.APIKey, error) {
	k, err := s.Store.APIKeys().GetAPIKey(ctx, userID, id)
	return k, mapKeyErr(err)
}

func (s *APIKeyService) List(ctx context.Context, userID string) ([]domain.APIKey, error) {
	return s.Store.APIKeys().ListAPIKeys(ctx, userID)
}

func (s *APIKeyService) Delete(ctx context.Context, userID, id string) error {
	return mapKeyErr(s.Store.APIKeys().DeleteAPIKey(ctx, userID, id))
}

// SetDisabled enables or disables a key. Disabled keys cannot log in.
func (s *APIKeyService) SetDisabled(ctx context.Context, userID, id string, disabled bool) error {
	return mapKeyErr(s.Store.APIKeys().SetAPIKeyDisabled(ctx, userID, id, disabled))
}

func mapKeyErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrAPIKeyNotFound
	}
	return err
}
