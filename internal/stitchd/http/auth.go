package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/stitch/internal/stitchd/service"
	"github.com/aussiebroadwan/stitch/pkg/httpx"
	"github.com/aussiebroadwan/stitch/pkg/jwtx"
	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
)

type loginResponse struct {
	UserID       string `json:"user_id"`
	DeviceID     string `json:"device_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// LoginHandler serves a provider's login route. With ?link=true the caller
// must present an access token and the identity is added to their user.
type LoginHandler struct {
	Auth *service.AuthService

	link http.Handler
}

func NewLoginHandler(auth *service.AuthService, verifier jwtx.Verifier) *LoginHandler {
	h := &LoginHandler{Auth: auth}
	h.link = httpx.Chain(http.HandlerFunc(h.login), httpx.AuthnMiddleware(verifier))
	return h
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("link") == "true" {
		h.link.ServeHTTP(w, r)
		return
	}
	h.login(w, r)
}

func (h *LoginHandler) login(w http.ResponseWriter, r *http.Request) {
	material := map[string]any{}
	if err := decodeBody(r, &material); err != nil {
		writeDecodeError(w, err)
		return
	}

	req := service.LoginRequest{
		Provider: r.PathValue("provider"),
		Material: material,
		DeviceID: deviceIDFrom(material),
	}
	if claims, ok := httpx.ClaimsFromContext(r.Context()); ok {
		req.Link = &service.LinkTarget{
			UserID:    claims.Subject,
			SessionID: claims.SessionID,
			DeviceID:  claims.DeviceID,
		}
	}

	res, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		UserID:       res.UserID,
		DeviceID:     res.DeviceID,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

// deviceIDFrom digs options.device.deviceId out of a login body.
func deviceIDFrom(material map[string]any) string {
	options, _ := material["options"].(map[string]any)
	device, _ := options["device"].(map[string]any)
	id, _ := device["deviceId"].(string)
	return id
}

// RegisterHandler creates email/password credentials for local-userpass.
type RegisterHandler struct {
	Auth *service.AuthService
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("provider") != service.ProviderUserPassword {
		writeError(w, r, service.ErrProviderNotFound)
		return
	}

	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := h.Auth.Register(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// ProfileHandler returns the caller's profile.
type ProfileHandler struct {
	Auth *service.AuthService
}

func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	profile, err := h.Auth.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	identities := make([]stitchauth.Identity, 0, len(profile.Identities))
	for _, id := range profile.Identities {
		identities = append(identities, stitchauth.Identity{ID: id.ID, ProviderType: id.ProviderType})
	}
	data := profile.User.Data
	if data == nil {
		data = map[string]any{}
	}

	httpx.WriteJSON(w, http.StatusOK, stitchauth.UserProfile{
		Type:       profile.User.Type,
		Data:       data,
		Identities: identities,
	})
}

// SessionHandler refreshes access tokens and ends sessions. Both routes take
// the refresh token as bearer.
type SessionHandler struct {
	Tokens *service.TokenService
}

type sessionResponse struct {
	AccessToken string `json:"access_token"`
}

func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	raw, ok := httpx.BearerToken(r)
	if !ok {
		stitchauth.NewServiceError(http.StatusUnauthorized,
			stitchauth.ErrorCodeMissingAuthReq, "must authenticate first").WriteError(w)
		return
	}

	access, err := h.Tokens.Refresh(r.Context(), raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sessionResponse{AccessToken: access})
}

// HandleDelete is idempotent: an unknown or expired session is already gone.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	raw, ok := httpx.BearerToken(r)
	if ok {
		if err := h.Tokens.EndSession(r.Context(), raw); err != nil && !errors.Is(err, service.ErrInvalidSession) {
			writeError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
