package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/stitch/internal/stitchd/domain"
	"github.com/aussiebroadwan/stitch/internal/stitchd/store"
	"github.com/aussiebroadwan/stitch/pkg/cryptox"
	"github.com/aussiebroadwan/stitch/pkg/idx"
	"github.com/aussiebroadwan/stitch/pkg/jwtx"
	"github.com/aussiebroadwan/stitch/pkg/slogx"
)

// Provider types served by the dev backend. Each provider is registered under
// its type as name.
const (
	ProviderAnonymous    = "anon-user"
	ProviderUserPassword = "local-userpass"
	ProviderAPIKey       = "api-key"
	ProviderCustomToken  = "custom-token"
	ProviderFunction     = "custom-function"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 128
)

// AuthService logs users in through the auth providers and links identities
// to existing users.
type AuthService struct {
	Store  store.Store
	Tokens *TokenService
	Hasher *cryptox.PasswordHasher

	// CustomTokenSecret verifies custom-token credentials. The provider is
	// unavailable while it is empty.
	CustomTokenSecret []byte
}

// LoginRequest is one call to a provider's login route.
type LoginRequest struct {
	Provider string
	Material map[string]any

	// DeviceID is what the client reported; a fresh one is assigned when it
	// is missing or not a UUID.
	DeviceID string

	// Link is set when the caller is adding this identity to their own user.
	Link *LinkTarget
}

// LinkTarget is the authenticated caller of a link request.
type LinkTarget struct {
	UserID    string
	SessionID string
	DeviceID  string
}

// Profile is a user with their linked identities.
type Profile struct {
	User       domain.User
	Identities []domain.Identity
}

type resolvedIdentity struct {
	providerType string
	id           string
	data         map[string]any

	// ownerID pins the identity to an existing user (api keys).
	ownerID string
}

// Login authenticates req against its provider. A new identity creates a new
// user unless it is being linked.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (domain.LoginResult, error) {
	log := slogx.FromContext(ctx)

	ident, err := s.resolve(ctx, req.Provider, req.Material)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if req.Link != nil && ident.providerType == ProviderAnonymous {
		return domain.LoginResult{}, fmt.Errorf("%w: anonymous identities cannot be linked", ErrInvalidParameter)
	}

	deviceID := normalizeDeviceID(req.DeviceID)
	if req.Link != nil && req.Link.DeviceID != "" {
		deviceID = req.Link.DeviceID
	}

	var result domain.LoginResult
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		userID, err := s.userFor(ctx, tx, ident, req.Link)
		if err != nil {
			return err
		}

		if err := mergeUserData(ctx, tx, userID, ident.data); err != nil {
			return err
		}

		result = domain.LoginResult{UserID: userID, DeviceID: deviceID}
		if req.Link != nil {
			result.AccessToken, err = s.Tokens.SignAccess(userID, deviceID, req.Link.SessionID)
			return err
		}

		sess, refresh, err := s.Tokens.OpenSession(ctx, tx, userID, deviceID)
		if err != nil {
			return err
		}
		result.RefreshToken = refresh
		result.AccessToken, err = s.Tokens.SignAccess(userID, deviceID, sess.ID)
		return err
	})
	if err != nil {
		return domain.LoginResult{}, err
	}

	log.Info("user authenticated",
		"user_id", result.UserID,
		"provider", ident.providerType,
		"link", req.Link != nil,
	)
	return result, nil
}

// userFor finds or creates the user owning ident, creating the identity row
// on first use.
func (s *AuthService) userFor(ctx context.Context, tx store.Tx, ident resolvedIdentity, link *LinkTarget) (string, error) {
	existing, err := tx.Identities().GetIdentity(ctx, ident.providerType, ident.id)
	found := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	userID := ident.ownerID
	if found {
		userID = existing.UserID
	}

	if link != nil {
		if userID != "" && userID != link.UserID {
			return "", ErrIdentityLinked
		}
		if _, err := tx.Users().GetUserByID(ctx, link.UserID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", ErrInvalidSession
			}
			return "", err
		}
		userID = link.UserID
	}

	if userID == "" {
		userID = idx.NewString()
		if err := tx.Users().CreateUser(ctx, domain.User{ID: userID, Type: domain.UserTypeNormal}); err != nil {
			return "", fmt.Errorf("create user: %w", err)
		}
	}

	if !found {
		err := tx.Identities().CreateIdentity(ctx, domain.Identity{
			ID:           ident.id,
			UserID:       userID,
			ProviderType: ident.providerType,
			CreatedAt:    s.Tokens.now(),
		})
		if err != nil {
			return "", fmt.Errorf("create identity: %w", err)
		}
	}
	return userID, nil
}

func mergeUserData(ctx context.Context, tx store.Tx, userID string, data map[string]any) error {
	if len(data) == 0 {
		return nil
	}
	u, err := tx.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	merged := maps.Clone(u.Data)
	if merged == nil {
		merged = map[string]any{}
	}
	maps.Copy(merged, data)
	return tx.Users().UpdateUserData(ctx, userID, merged)
}

// resolve checks the credential material and names the identity it proves.
func (s *AuthService) resolve(ctx context.Context, provider string, material map[string]any) (resolvedIdentity, error) {
	switch provider {
	case ProviderAnonymous:
		return resolvedIdentity{providerType: ProviderAnonymous, id: idx.NewString()}, nil

	case ProviderUserPassword:
		return s.resolvePassword(ctx, material)

	case ProviderAPIKey:
		key, err := stringParam(material, "key")
		if err != nil {
			return resolvedIdentity{}, err
		}
		k, err := s.Store.APIKeys().GetAPIKeyByHash(ctx, cryptox.FingerprintToken(key))
		if errors.Is(err, store.ErrNotFound) || (err == nil && k.Disabled) {
			return resolvedIdentity{}, ErrAPIKeyNotFound
		}
		if err != nil {
			return resolvedIdentity{}, err
		}
		return resolvedIdentity{providerType: ProviderAPIKey, id: k.ID, ownerID: k.UserID}, nil

	case ProviderCustomToken:
		if len(s.CustomTokenSecret) == 0 {
			return resolvedIdentity{}, ErrProviderNotFound
		}
		token, err := stringParam(material, "token")
		if err != nil {
			return resolvedIdentity{}, err
		}
		claims, err := jwtx.VerifyHS256(token, s.CustomTokenSecret)
		if err != nil {
			return resolvedIdentity{}, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		return resolvedIdentity{
			providerType: ProviderCustomToken,
			id:           claims.Subject,
			data:         profileData(map[string]any{"name": claims.Name, "email": claims.Email}),
		}, nil

	case ProviderFunction:
		id, err := stringParam(material, "id")
		if err != nil {
			return resolvedIdentity{}, err
		}
		return resolvedIdentity{
			providerType: ProviderFunction,
			id:           id,
			data:         profileData(map[string]any{"name": material["name"], "email": material["email"]}),
		}, nil

	default:
		return resolvedIdentity{}, fmt.Errorf("%w: %s", ErrProviderNotFound, provider)
	}
}

func (s *AuthService) resolvePassword(ctx context.Context, material map[string]any) (resolvedIdentity, error) {
	username, err := stringParam(material, "username")
	if err != nil {
		return resolvedIdentity{}, err
	}
	password, err := stringParam(material, "password")
	if err != nil {
		return resolvedIdentity{}, err
	}

	cred, err := s.Store.PasswordCredentials().GetPasswordCredential(ctx, normalizeEmail(username))
	if errors.Is(err, store.ErrNotFound) {
		return resolvedIdentity{}, ErrInvalidPassword
	}
	if err != nil {
		return resolvedIdentity{}, err
	}
	if err := s.Hasher.Verify(password, cred.PasswordHash); err != nil {
		return resolvedIdentity{}, ErrInvalidPassword
	}

	return resolvedIdentity{
		providerType: ProviderUserPassword,
		id:           cred.IdentityID,
		data:         map[string]any{"email": cred.Email},
	}, nil
}

// Register creates an email/password credential. The user itself is created
// on first login.
func (s *AuthService) Register(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", ErrMissingParameter)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrInvalidParameter)
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be between %d and %d characters",
			ErrInvalidParameter, minPasswordLength, maxPasswordLength)
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return err
	}

	err = s.Store.PasswordCredentials().CreatePasswordCredential(ctx, domain.PasswordCredential{
		Email:        email,
		IdentityID:   idx.NewString(),
		PasswordHash: hash,
		CreatedAt:    s.Tokens.now(),
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return ErrAccountNameInUse
	}
	return err
}

// Profile loads a user and their identities.
func (s *AuthService) Profile(ctx context.Context, userID string) (Profile, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Profile{}, ErrUserNotFound
	}
	if err != nil {
		return Profile{}, err
	}

	identities, err := s.Store.Identities().ListUserIdentities(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: u, Identities: identities}, nil
}

func stringParam(material map[string]any, name string) (string, error) {
	v, ok := material[name]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingParameter, name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidParameter, name)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParameter, name)
	}
	return s, nil
}

// profileData keeps the non-empty string fields of m.
func profileData(m map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range m {
		if s, ok := v.(string); ok && s != "" {
			out[k] = s
		}
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeDeviceID(id string) string {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return uuid.NewString()
}
