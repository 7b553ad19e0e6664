package stitch_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/stitch/pkg/httpx"
	"github.com/aussiebroadwan/stitch/pkg/slogx"
	"github.com/aussiebroadwan/stitch/pkg/stitch"
	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
)

const testAppID = "test-app"

// fakeServer answers the handful of routes the app client uses. Tokens are
// opaque strings, so the background refresher never fires.
type fakeServer struct {
	srv *httptest.Server

	mu         sync.Mutex
	seq        int
	access     map[string]string
	refresh    map[string]string
	keys       map[string]*stitchUserKey
	registered map[string]string
}

type stitchUserKey struct {
	ID       string `json:"_id"`
	Key      string `json:"key,omitempty"`
	Name     string `json:"name"`
	Disabled bool   `json:"disabled"`
	owner    string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	f := &fakeServer{
		access:     map[string]string{},
		refresh:    map[string]string{},
		keys:       map[string]*stitchUserKey{},
		registered: map[string]string{},
	}

	app := stitchauth.AppPath(testAppID)
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+app+"/auth/providers/{provider}/login", f.login)
	mux.HandleFunc("POST "+app+"/auth/providers/local-userpass/register", f.register)
	mux.HandleFunc("GET "+stitchauth.ProfilePath, f.withAccess(f.profile))
	mux.HandleFunc("POST "+app+"/functions/call", f.withAccess(f.call))
	mux.HandleFunc("POST /api/client/v2.0/auth/api_keys", f.withRefresh(f.createKey))
	mux.HandleFunc("GET /api/client/v2.0/auth/api_keys", f.withRefresh(f.listKeys))
	mux.HandleFunc("GET /api/client/v2.0/auth/api_keys/{id}", f.withRefresh(f.getKey))
	mux.HandleFunc("DELETE /api/client/v2.0/auth/api_keys/{id}", f.withRefresh(f.deleteKey))
	mux.HandleFunc("PUT /api/client/v2.0/auth/api_keys/{id}/{action}", f.withRefresh(f.toggleKey))

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) config() stitchauth.Config {
	return stitchauth.Config{
		AppID:            testAppID,
		BaseURL:          f.srv.URL,
		Logger:           slogx.Discard(),
		DisableRefresher: true,
	}
}

func invalidSession(w http.ResponseWriter) {
	stitchauth.NewServiceError(http.StatusUnauthorized, stitchauth.ErrorCodeInvalidSession, "invalid session").WriteError(w)
}

func (f *fakeServer) withAccess(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return f.withToken(f.access, next)
}

func (f *fakeServer) withRefresh(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return f.withToken(f.refresh, next)
}

func (f *fakeServer) withToken(tokens map[string]string, next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := httpx.BearerToken(r)
		f.mu.Lock()
		userID, valid := tokens[tok]
		f.mu.Unlock()
		if !ok || !valid {
			invalidSession(w)
			return
		}
		next(w, r, userID)
	}
}

func (f *fakeServer) login(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	n := strconv.Itoa(f.seq)
	userID := "user-" + r.PathValue("provider")
	f.access["access-"+n] = userID
	f.refresh["refresh-"+n] = userID

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"user_id":       userID,
		"device_id":     "device-1",
		"access_token":  "access-" + n,
		"refresh_token": "refresh-" + n,
	})
}

func (f *fakeServer) register(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, string(stitchauth.ErrorCodeInvalidParameter), "bad body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.registered[body["email"]]; ok {
		httpx.WriteError(w, http.StatusConflict, string(stitchauth.ErrorCodeAccountNameInUse), "name already in use")
		return
	}
	f.registered[body["email"]] = body["password"]
	w.WriteHeader(http.StatusCreated)
}

func (f *fakeServer) password(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registered[email]
}

func (f *fakeServer) profile(w http.ResponseWriter, r *http.Request, userID string) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"type": "normal",
		"data": map[string]any{},
		"identities": []map[string]string{
			{"id": userID + "-identity", "provider_type": strings.TrimPrefix(userID, "user-")},
		},
	})
}

func (f *fakeServer) call(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		Name      string `json:"name"`
		Arguments []any  `json:"arguments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, string(stitchauth.ErrorCodeInvalidParameter), "bad body")
		return
	}

	switch body.Name {
	case "sum":
		var total float64
		for _, a := range body.Arguments {
			n, _ := a.(float64)
			total += n
		}
		httpx.WriteJSON(w, http.StatusOK, total)
	case "whoami":
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"user_id": userID})
	default:
		httpx.WriteError(w, http.StatusNotFound, string(stitchauth.ErrorCodeFunctionNotFound), "function not found: "+body.Name)
	}
}

func (f *fakeServer) createKey(w http.ResponseWriter, r *http.Request, userID string) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	k := &stitchUserKey{ID: "key-" + strconv.Itoa(f.seq), Name: body["name"], owner: userID}
	f.keys[k.ID] = k

	out := *k
	out.Key = "secret-" + k.ID
	httpx.WriteJSON(w, http.StatusCreated, out)
}

func (f *fakeServer) listKeys(w http.ResponseWriter, r *http.Request, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []stitchUserKey{}
	for i := 1; i <= f.seq; i++ {
		if k, ok := f.keys["key-"+strconv.Itoa(i)]; ok && k.owner == userID {
			out = append(out, *k)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (f *fakeServer) ownedKey(w http.ResponseWriter, r *http.Request, userID string) *stitchUserKey {
	k, ok := f.keys[r.PathValue("id")]
	if !ok || k.owner != userID {
		httpx.WriteError(w, http.StatusNotFound, string(stitchauth.ErrorCodeAPIKeyNotFound), "api key not found")
		return nil
	}
	return k
}

func (f *fakeServer) getKey(w http.ResponseWriter, r *http.Request, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k := f.ownedKey(w, r, userID); k != nil {
		httpx.WriteJSON(w, http.StatusOK, k)
	}
}

func (f *fakeServer) deleteKey(w http.ResponseWriter, r *http.Request, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k := f.ownedKey(w, r, userID); k != nil {
		delete(f.keys, k.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeServer) toggleKey(w http.ResponseWriter, r *http.Request, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := f.ownedKey(w, r, userID)
	if k == nil {
		return
	}
	switch r.PathValue("action") {
	case "enable":
		k.Disabled = false
	case "disable":
		k.Disabled = true
	default:
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func newClient(t *testing.T, f *fakeServer) *stitch.Client {
	t.Helper()

	c, err := stitch.NewClient(t.Context(), f.config())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func loginAnon(t *testing.T, c *stitch.Client) *stitchauth.User {
	t.Helper()

	u, err := c.Auth().LoginWithCredential(t.Context(), stitchauth.AnonymousCredential())
	require.NoError(t, err)
	return u
}
