package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shastraw-ai/clue-story/internal/service"
)

// AuthHandler handles account registration, login and settings requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", nil)
		return
	}

	if !strings.Contains(req.Email, "@") {
		respondWithError(w, http.StatusBadRequest, "A valid email is required", "", nil)
		return
	}
	if len(req.Password) < 8 {
		respondWithError(w, http.StatusBadRequest, "Password must be at least 8 characters", "", nil)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondWithError(w, http.StatusBadRequest, "Name is required", "", nil)
		return
	}

	user, token, err := h.authService.Register(r.Context(), req.Email, req.Password, strings.TrimSpace(req.Name))
	if errors.Is(err, service.ErrEmailTaken) {
		respondWithError(w, http.StatusConflict, "An account with this email already exists", "", nil)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create account", "Registration failed", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, authResponse{Token: token, User: toUserView(user)})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", nil)
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password", "", nil)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to log in", "Login failed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, authResponse{Token: token, User: toUserView(user)})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	respondWithJSON(w, http.StatusOK, toUserView(user))
}

// UpdateSettings handles PUT /api/auth/settings
func (h *AuthHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", nil)
		return
	}

	country := strings.ToUpper(strings.TrimSpace(req.Country))
	if country != "" && len(country) != 2 {
		respondWithError(w, http.StatusBadRequest, "Country must be a 2-letter code", "", nil)
		return
	}

	model := strings.TrimSpace(req.PreferredModel)
	if model == "" {
		model = user.PreferredModel
	}

	updated, err := h.authService.UpdateSettings(r.Context(), user.ID, country, model)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update settings", "Settings update failed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, toUserView(updated))
}
