/**
 * @description
 * This file contains the Handlers container and the authentication endpoints.
 * Handlers are responsible for parsing incoming requests, calling the
 * appropriate methods on the application services, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - internal/app, internal/domain: For service logic and models.
 */

package api

import (
	"encoding/json"
	"net/http"

	"github.com/meridianbank/backoffice-service/internal/app"
	"github.com/meridianbank/backoffice-service/internal/domain"
)

// Handlers holds the application services that the HTTP layer dispatches to.
type Handlers struct {
	auth      *app.AuthService
	accounts  *app.AccountService
	transfers *app.TransferService
	admin     *app.AdminService
	audits    *app.AuditService
	support   *app.SupportService
}

// NewHandlers creates a new Handlers container.
func NewHandlers(
	auth *app.AuthService,
	accounts *app.AccountService,
	transfers *app.TransferService,
	admin *app.AdminService,
	audits *app.AuditService,
	support *app.SupportService,
) *Handlers {
	return &Handlers{
		auth:      auth,
		accounts:  accounts,
		transfers: transfers,
		admin:     admin,
		audits:    audits,
		support:   support,
	}
}

// mustUser pulls the authenticated user out of the context. The auth
// middleware guarantees its presence on protected routes.
func mustUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "no authenticated user in context"})
		return nil, false
	}
	return user, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// RegisterHandler handles self-registration of new customers.
func (h *Handlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.auth.Register(r.Context(), app.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	User         *domain.User `json:"user"`
}

// LoginHandler verifies credentials and returns an access/refresh token pair.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	refresh, err := h.auth.IssueRefreshToken(user)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, RefreshToken: refresh, User: user})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshHandler exchanges a refresh token for a new token pair.
func (h *Handlers) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, refresh, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, RefreshToken: refresh, User: user})
}

// MeHandler returns the authenticated user's profile.
func (h *Handlers) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// UpdateProfileHandler changes the caller's editable profile fields.
func (h *Handlers) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req updateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.auth.UpdateProfile(r.Context(), user, req.FullName, req.Phone); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePasswordHandler replaces the caller's password.
func (h *Handlers) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.auth.ChangePassword(r.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// PermissionsHandler returns the caller's effective permission set.
func (h *Handlers) PermissionsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"role":        user.Role,
		"permissions": domain.PermissionsFor(user.Role),
	})
}
