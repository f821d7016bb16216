// Package admin contains the JSON handlers for the admin surface: login,
// VAT settings, orders, and booking exports.
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/klinkercommerce/accounting/internal/auth"
	"github.com/klinkercommerce/accounting/internal/middleware"
)

// errorJSON is the standard error response body.
type errorJSON struct {
	Error string `json:"error"`
}

// listResponse is the standard paginated list response wrapper.
type listResponse struct {
	Data       any   `json:"data"`
	Page       int   `json:"page"`
	TotalPages int   `json:"total_pages"`
	Total      int64 `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func totalPages(total int64, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	pages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		pages++
	}
	return pages
}

// AuthHandler handles admin login and logout.
type AuthHandler struct {
	authSvc *auth.Service
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authSvc *auth.Service, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authSvc: authSvc,
		logger:  logger,
	}
}

// RegisterRoutes registers the public auth routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/login", h.Login)
	mux.HandleFunc("POST /admin/logout", h.Logout)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /admin/login. On success it sets the session cookie and
// returns the token for API clients.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "email and password are required"})
		return
	}

	token, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorJSON{Error: "invalid email or password"})
			return
		}
		h.logger.Error("login failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	middleware.SetSessionCookie(w, token)
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

// Logout handles POST /admin/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("admin_session"); err == nil && cookie.Value != "" {
		if err := h.authSvc.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Error("logout failed", "error", err)
		}
	}

	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
