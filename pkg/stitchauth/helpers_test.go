package stitchauth_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/stitch/pkg/httpx"
	"github.com/aussiebroadwan/stitch/pkg/slogx"
	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
	"github.com/aussiebroadwan/stitch/pkg/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testAppID         = "test-app"
	testDeviceID      = "device-1"
	accessTTL         = 30 * time.Minute
	tokenSecret       = "backend-secret"
	echoPath          = "/echo"
	alwaysInvalidPath = "/always-invalid"
	fixedTestTime     = 1_700_000_000
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Unix(fixedTestTime, 0).UTC()}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// backend is a minimal in-process Stitch server.
type backend struct {
	t     *testing.T
	srv   *httptest.Server
	clock *clock

	mu          sync.Mutex
	calls       []string
	seq         int
	access      map[string]string // token -> user id
	refresh     map[string]string
	loginBodies []map[string]any
	echoTokens  []string

	failProfile int // status code, 0 means succeed
	failRefresh bool

	// loginOverride, when set, replaces the normal login answer.
	loginOverride map[string]any
	// profileOverride, when set, replaces the normal profile answer.
	profileOverride map[string]any
}

func newBackend(t *testing.T) *backend {
	t.Helper()

	b := &backend{
		t:       t,
		clock:   newClock(),
		access:  make(map[string]string),
		refresh: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/client/v2.0/app/{app}/auth/providers/{provider}/login", b.login)
	mux.HandleFunc("GET /api/client/v2.0/auth/profile", b.profile)
	mux.HandleFunc("POST /api/client/v2.0/auth/session", b.newSession)
	mux.HandleFunc("DELETE /api/client/v2.0/auth/session", b.deleteSession)
	mux.HandleFunc("GET "+echoPath, b.echo)
	mux.HandleFunc("GET "+alwaysInvalidPath, func(w http.ResponseWriter, _ *http.Request) { invalidSession(w) })

	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls = append(b.calls, r.Method+" "+r.URL.Path)
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

func (b *backend) LastLoginBody() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(b.t, b.loginBodies)
	return b.loginBodies[len(b.loginBodies)-1]
}

// LastEchoToken is the bearer token the last echo request carried.
func (b *backend) LastEchoToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(b.t, b.echoTokens)
	return b.echoTokens[len(b.echoTokens)-1]
}

func (b *backend) set(fn func(b *backend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

// ExpireAccessTokens makes every access token of userID invalid.
func (b *backend) ExpireAccessTokens(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for tok, uid := range b.access {
		if uid == userID {
			delete(b.access, tok)
		}
	}
}

// mintAccess must be called with mu held.
func (b *backend) mintAccess(userID string) string {
	b.seq++
	now := b.clock.Now()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        strconv.Itoa(b.seq),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(accessTTL)),
	}).SignedString([]byte(tokenSecret))
	require.NoError(b.t, err)
	b.access[tok] = userID
	return tok
}

func (b *backend) mintRefresh(userID string) string {
	b.seq++
	tok := fmt.Sprintf("rt-%s-%d", userID, b.seq)
	b.refresh[tok] = userID
	return tok
}

func invalidSession(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusUnauthorized, httpx.InvalidSessionCode, "invalid session")
}

func (b *backend) login(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	require.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginBodies = append(b.loginBodies, body)

	if b.loginOverride != nil {
		httpx.WriteJSON(w, http.StatusOK, b.loginOverride)
		return
	}

	provider := r.PathValue("provider")
	link := r.URL.Query().Get("link") == "true"

	var userID string
	switch {
	case link:
		tok, _ := httpx.BearerToken(r)
		uid, ok := b.access[tok]
		if !ok {
			invalidSession(w)
			return
		}
		userID = uid
	case provider == stitchauth.ProviderTypeAnonymous:
		b.seq++
		userID = "anon-" + strconv.Itoa(b.seq)
	case provider == stitchauth.ProviderTypeUserPassword:
		userID = "user-" + body["username"].(string)
	default:
		userID = "user-" + provider
	}

	resp := map[string]any{
		"user_id":      userID,
		"device_id":    testDeviceID,
		"access_token": b.mintAccess(userID),
	}
	if !link {
		resp["refresh_token"] = b.mintRefresh(userID)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (b *backend) profile(w http.ResponseWriter, r *http.Request) {
	tok, _ := httpx.BearerToken(r)

	b.mu.Lock()
	defer b.mu.Unlock()

	userID, ok := b.access[tok]
	if !ok {
		invalidSession(w)
		return
	}
	if b.failProfile != 0 {
		httpx.WriteError(w, b.failProfile, "InternalServerError", "profile unavailable")
		return
	}
	if b.profileOverride != nil {
		httpx.WriteJSON(w, http.StatusOK, b.profileOverride)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"type": "normal",
		"data": map[string]any{"name": userID},
		"identities": []map[string]any{
			{"id": "identity-" + userID, "provider_type": providerOf(userID)},
		},
	})
}

func providerOf(userID string) string {
	if strings.HasPrefix(userID, "anon-") {
		return stitchauth.ProviderTypeAnonymous
	}
	return stitchauth.ProviderTypeUserPassword
}

func (b *backend) newSession(w http.ResponseWriter, r *http.Request) {
	tok, _ := httpx.BearerToken(r)

	b.mu.Lock()
	defer b.mu.Unlock()

	userID, ok := b.refresh[tok]
	if !ok || b.failRefresh {
		invalidSession(w)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"access_token": b.mintAccess(userID)})
}

func (b *backend) deleteSession(w http.ResponseWriter, r *http.Request) {
	tok, _ := httpx.BearerToken(r)

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.refresh, tok)
	w.WriteHeader(http.StatusNoContent)
}

func (b *backend) echo(w http.ResponseWriter, r *http.Request) {
	tok, _ := httpx.BearerToken(r)

	b.mu.Lock()
	b.echoTokens = append(b.echoTokens, tok)
	userID, ok := b.access[tok]
	b.mu.Unlock()

	if !ok {
		invalidSession(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user_id": userID})
}

type harness struct {
	backend *backend
	storage storage.Storage
	auth    *stitchauth.Auth

	mu     sync.Mutex
	events []stitchauth.Event
}

func (h *harness) Events() []stitchauth.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]stitchauth.EventType, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

func (h *harness) ResetEvents() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}

func (h *harness) config() stitchauth.Config {
	return stitchauth.Config{
		AppID:            testAppID,
		BaseURL:          h.backend.srv.URL,
		Storage:          h.storage,
		HTTPClient:       h.backend.srv.Client(),
		Logger:           slogx.Discard(),
		DisableRefresher: true,
		Now:              h.backend.clock.Now,
		OnAuthEvent: func(e stitchauth.Event) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.events = append(h.events, e)
		},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStorage(t, storage.NewMemory())
}

func newHarnessWithStorage(t *testing.T, s storage.Storage) *harness {
	t.Helper()

	h := &harness{backend: newBackend(t), storage: s}
	auth, err := stitchauth.New(context.Background(), h.config())
	require.NoError(t, err)
	t.Cleanup(auth.Close)
	h.auth = auth
	return h
}

// reopen builds a second Auth over the same storage and backend.
func (h *harness) reopen(t *testing.T) *stitchauth.Auth {
	t.Helper()

	auth, err := stitchauth.New(context.Background(), h.config())
	require.NoError(t, err)
	t.Cleanup(auth.Close)
	return auth
}

var errStorageDown = errors.New("storage down")

// flakyStorage fails writes while failing is set.
type flakyStorage struct {
	storage.Storage

	mu      sync.Mutex
	failing bool
}

func (f *flakyStorage) SetFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

func (f *flakyStorage) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return errStorageDown
	}
	return f.Storage.Set(ctx, key, value)
}

// activeKeyFailingStorage fails writes of the active user record only, while
// failing is set. The user list is still written.
type activeKeyFailingStorage struct {
	storage.Storage

	mu      sync.Mutex
	failing bool
}

func (f *activeKeyFailingStorage) SetFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

func (f *activeKeyFailingStorage) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing && strings.HasSuffix(key, "."+stitchauth.ActiveUserStorageKey) {
		return errStorageDown
	}
	return f.Storage.Set(ctx, key, value)
}
