package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/powerskills-labs/powerskills-go/internal/identity"
	"github.com/powerskills-labs/powerskills-go/internal/platform/auth"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

func (api *serverAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	user, err := api.identity.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			api.writeError(w, r, http.StatusBadRequest, "email_registered")
		case errors.Is(err, identity.ErrWeakPassword):
			api.writeError(w, r, http.StatusBadRequest, "weak_password")
		default:
			api.logger.Error("register failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
			api.writeError(w, r, http.StatusBadRequest, "invalid_request")
		}
		return
	}
	api.writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (api *serverAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	token, err := api.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			api.writeError(w, r, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		api.logger.Error("login failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusOK, token)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (api *serverAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	token, err := api.identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidRefresh) {
			api.writeError(w, r, http.StatusUnauthorized, "invalid_refresh_token")
			return
		}
		api.logger.Error("refresh failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusOK, token)
}

func (api *serverAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(caller.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	user, err := api.identity.GetUser(r.Context(), caller.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "user_not_found")
			return
		}
		api.logger.Error("get user failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	user.PasswordHash = ""
	api.writeJSON(w, http.StatusOK, user)
}
