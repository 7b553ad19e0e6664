package http

import (
	"net/http"

	"github.com/aussiebroadwan/stitch/internal/stitchd/domain"
	"github.com/aussiebroadwan/stitch/internal/stitchd/service"
	"github.com/aussiebroadwan/stitch/pkg/httpx"
	"github.com/aussiebroadwan/stitch/pkg/stitch"
)

// APIKeysHandler serves the caller's user API keys. Routes are authenticated
// with the refresh token.
type APIKeysHandler struct {
	Keys *service.APIKeyService
}

type createAPIKeyRequest struct {
	Name string `json:"name"`
}

func toAPIKey(k domain.APIKey) stitch.UserAPIKey {
	return stitch.UserAPIKey{ID: k.ID, Name: k.Name, Disabled: k.Disabled}
}

func (h *APIKeysHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	var req createAPIKeyRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	key, secret, err := h.Keys.Create(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := toAPIKey(key)
	out.Key = secret
	httpx.WriteJSON(w, http.StatusCreated, out)
}

func (h *APIKeysHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	keys, err := h.Keys.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]stitch.UserAPIKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, toAPIKey(k))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *APIKeysHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	key, err := h.Keys.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAPIKey(key))
}

func (h *APIKeysHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	if err := h.Keys.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIKeysHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, false)
}

func (h *APIKeysHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, true)
}

func (h *APIKeysHandler) setDisabled(w http.ResponseWriter, r *http.Request, disabled bool) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	if err := h.Keys.SetDisabled(r.Context(), userID, r.PathValue("id"), disabled); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
