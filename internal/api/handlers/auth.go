// Package handlers contains the HTTP controllers. They decode requests,
// call the services, and translate domain errors to HTTP; no business
// rules live here.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvoloshyn/pocket-money/internal/api/middleware"
	"github.com/dvoloshyn/pocket-money/internal/auth"
)

const refreshTokenCookie = "refresh_token"

// AuthHandler handles registration, login, and session endpoints.
type AuthHandler struct {
	svc    *auth.Service
	tokens *auth.TokenIssuer
	log    zerolog.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(svc *auth.Service, tokens *auth.TokenIssuer, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, tokens: tokens, log: log}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, pair, err := h.svc.Register(r.Context(), in)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}

	h.setTokenCookies(w, pair)
	middleware.WriteJSON(w, http.StatusCreated, profile)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		PIN   string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, pair, err := h.svc.Login(r.Context(), req.Email, req.PIN)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}

	h.setTokenCookies(w, pair)
	middleware.WriteJSON(w, http.StatusOK, profile)
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "Missing refresh token")
		return
	}

	pair, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	h.setTokenCookies(w, pair)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, middleware.AccessTokenCookie)
	h.clearCookie(w, refreshTokenCookie)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// ChangePIN handles PUT /api/auth/pin
func (h *AuthHandler) ChangePIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPIN         string `json:"current_pin"`
		NewPIN             string `json:"new_pin"`
		NewPINConfirmation string `json:"new_pin_confirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.svc.ChangePIN(r.Context(), auth.IdentityFromContext(r.Context()),
		req.CurrentPIN, req.NewPIN, req.NewPINConfirmation)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "pin_changed"})
}

// ChangePassword handles PUT /api/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword         string `json:"current_password"`
		NewPassword             string `json:"new_password"`
		NewPasswordConfirmation string `json:"new_password_confirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.svc.ChangePassword(r.Context(), auth.IdentityFromContext(r.Context()),
		req.CurrentPassword, req.NewPassword, req.NewPasswordConfirmation)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.CurrentUser(auth.IdentityFromContext(r.Context()))
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, profile)
}

func (h *AuthHandler) setTokenCookies(w http.ResponseWriter, pair *auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  time.Now().Add(h.tokens.AccessTTL()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/api/auth",
		Expires:  time.Now().Add(h.tokens.RefreshTTL()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
