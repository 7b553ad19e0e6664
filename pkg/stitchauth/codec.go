package stitchauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/stitch/pkg/storage"
)

// Storage keys, relative to the per-app prefix.
const (
	ActiveUserStorageKey = "auth_info"
	AllUsersStorageKey   = "all_auth_infos"
)

// storageKeyPrefix namespaces persisted state per app.
func storageKeyPrefix(appID string) string {
	return "stitch." + appID + "."
}

type storedAuthInfo struct {
	UserID               string       `json:"user_id,omitempty"`
	DeviceID             string       `json:"device_id,omitempty"`
	AccessToken          string       `json:"access_token,omitempty"`
	RefreshToken         string       `json:"refresh_token,omitempty"`
	LoggedInProviderType string       `json:"logged_in_provider_type,omitempty"`
	LoggedInProviderName string       `json:"logged_in_provider_name,omitempty"`
	UserProfile          *UserProfile `json:"user_profile,omitempty"`
	LastAuthActivity     *int64       `json:"last_auth_activity,omitempty"`
}

func toStored(a AuthInfo) storedAuthInfo {
	s := storedAuthInfo{
		UserID:               a.UserID,
		DeviceID:             a.DeviceID,
		AccessToken:          a.AccessToken,
		RefreshToken:         a.RefreshToken,
		LoggedInProviderType: a.LoggedInProviderType,
		LoggedInProviderName: a.LoggedInProviderName,
		UserProfile:          a.UserProfile,
	}
	if !a.LastAuthActivity.IsZero() {
		ms := a.LastAuthActivity.UnixMilli()
		s.LastAuthActivity = &ms
	}
	return s
}

func (s storedAuthInfo) authInfo() AuthInfo {
	a := AuthInfo{
		UserID:               s.UserID,
		DeviceID:             s.DeviceID,
		AccessToken:          s.AccessToken,
		RefreshToken:         s.RefreshToken,
		LoggedInProviderType: s.LoggedInProviderType,
		LoggedInProviderName: s.LoggedInProviderName,
		UserProfile:          s.UserProfile,
	}
	if s.LastAuthActivity != nil {
		a.LastAuthActivity = time.UnixMilli(*s.LastAuthActivity).UTC()
	}
	return a
}

// EncodeAuthInfo renders a as the persisted JSON object. The encoding is
// lossy in two places: LastAuthActivity keeps millisecond precision and
// decodes in UTC, and numbers in UserProfile.Data decode as float64.
// WithLastAuthActivity already truncates, so only hand built values notice.
func EncodeAuthInfo(a AuthInfo) ([]byte, error) {
	return json.Marshal(toStored(a))
}

// DecodeAuthInfo parses a persisted JSON object. Missing fields stay absent.
func DecodeAuthInfo(data []byte) (AuthInfo, error) {
	var s storedAuthInfo
	if err := json.Unmarshal(data, &s); err != nil {
		return AuthInfo{}, err
	}
	return s.authInfo(), nil
}

// readActiveUser returns the zero AuthInfo when nothing is stored.
func readActiveUser(ctx context.Context, s storage.Storage) (AuthInfo, error) {
	raw, err := s.Get(ctx, ActiveUserStorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return AuthInfo{}, nil
	}
	if err != nil {
		return AuthInfo{}, fmt.Errorf("%w: read %s: %v", ErrCouldNotLoadPersistedAuthInfo, ActiveUserStorageKey, err)
	}

	a, err := DecodeAuthInfo([]byte(raw))
	if err != nil {
		return AuthInfo{}, fmt.Errorf("%w: decode %s: %v", ErrCouldNotLoadPersistedAuthInfo, ActiveUserStorageKey, err)
	}
	return a, nil
}

// readAllUsers returns the cached users in their stored order. Anything but a
// JSON array is a load failure.
func readAllUsers(ctx context.Context, s storage.Storage) ([]AuthInfo, error) {
	raw, err := s.Get(ctx, AllUsersStorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrCouldNotLoadPersistedAuthInfo, AllUsersStorageKey, err)
	}

	var stored []storedAuthInfo
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCouldNotLoadPersistedAuthInfo, AllUsersStorageKey, err)
	}

	users := make([]AuthInfo, 0, len(stored))
	for _, st := range stored {
		users = append(users, st.authInfo())
	}
	return users, nil
}

func writeActiveUser(ctx context.Context, s storage.Storage, a AuthInfo) error {
	data, err := EncodeAuthInfo(a)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrCouldNotPersistAuthInfo, ActiveUserStorageKey, err)
	}
	if err := s.Set(ctx, ActiveUserStorageKey, string(data)); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrCouldNotPersistAuthInfo, ActiveUserStorageKey, err)
	}
	return nil
}

func writeAllUsers(ctx context.Context, s storage.Storage, users []AuthInfo) error {
	stored := make([]storedAuthInfo, 0, len(users))
	for _, u := range users {
		stored = append(stored, toStored(u))
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrCouldNotPersistAuthInfo, AllUsersStorageKey, err)
	}
	if err := s.Set(ctx, AllUsersStorageKey, string(data)); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrCouldNotPersistAuthInfo, AllUsersStorageKey, err)
	}
	return nil
}
