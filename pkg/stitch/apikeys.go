package stitch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
)

// APIKeysPath is the collection route of the active user's API keys.
const APIKeysPath = "/api/client/v2.0/auth/api_keys"

// UserAPIKey is an API key owned by a user. Key is only returned on create.
type UserAPIKey struct {
	ID       string `json:"_id"`
	Key      string `json:"key,omitempty"`
	Name     string `json:"name"`
	Disabled bool   `json:"disabled"`
}

// UserAPIKeyClient manages the active user's API keys. Every call
// authenticates with the refresh token, as the server requires.
type UserAPIKeyClient struct {
	auth *stitchauth.Auth
}

// UserAPIKeys returns the API key client.
func (c *Client) UserAPIKeys() *UserAPIKeyClient {
	return &UserAPIKeyClient{auth: c.auth}
}

// Create makes a new key. The returned key carries its secret; it cannot be
// fetched again.
func (k *UserAPIKeyClient) Create(ctx context.Context, name string) (*UserAPIKey, error) {
	if name == "" {
		return nil, errors.New("stitch: api key name is required")
	}
	return doKeys[*UserAPIKey](ctx, k, http.MethodPost, APIKeysPath, map[string]string{"name": name})
}

// Fetch returns one key without its secret.
func (k *UserAPIKeyClient) Fetch(ctx context.Context, id string) (*UserAPIKey, error) {
	return doKeys[*UserAPIKey](ctx, k, http.MethodGet, keyPath(id), nil)
}

// List returns all keys of the active user.
func (k *UserAPIKeyClient) List(ctx context.Context) ([]UserAPIKey, error) {
	return doKeys[[]UserAPIKey](ctx, k, http.MethodGet, APIKeysPath, nil)
}

// Delete removes a key.
func (k *UserAPIKeyClient) Delete(ctx context.Context, id string) error {
	_, err := k.send(ctx, http.MethodDelete, keyPath(id), nil)
	return err
}

// Enable allows logins with a key again.
func (k *UserAPIKeyClient) Enable(ctx context.Context, id string) error {
	_, err := k.send(ctx, http.MethodPut, keyPath(id)+"/enable", nil)
	return err
}

// Disable rejects logins with a key until it is enabled.
func (k *UserAPIKeyClient) Disable(ctx context.Context, id string) error {
	_, err := k.send(ctx, http.MethodPut, keyPath(id)+"/disable", nil)
	return err
}

func (k *UserAPIKeyClient) send(ctx context.Context, method, path string, doc any) (*stitchauth.Response, error) {
	return k.auth.DoAuthenticatedRequest(ctx, stitchauth.Request{
		Method:          method,
		Path:            path,
		Document:        doc,
		UseRefreshToken: true,
	})
}

func doKeys[T any](ctx context.Context, k *UserAPIKeyClient, method, path string, doc any) (T, error) {
	var out T

	resp, err := k.send(ctx, method, path, doc)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, &stitchauth.RequestError{Code: stitchauth.RequestErrorDecoding, Err: err}
	}
	return out, nil
}

func keyPath(id string) string {
	return APIKeysPath + "/" + url.PathEscape(id)
}
