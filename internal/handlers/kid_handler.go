package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shastraw-ai/clue-story/internal/service"
)

// KidHandler handles kid profile HTTP requests
type KidHandler struct {
	kidService *service.KidService
}

// NewKidHandler creates a new kid handler
func NewKidHandler(kidService *service.KidService) *KidHandler {
	return &KidHandler{kidService: kidService}
}

// List handles GET /api/kids
func (h *KidHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	kids, err := h.kidService.ListKids(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list kids", "Kid listing failed", err)
		return
	}

	views := make([]KidView, len(kids))
	for i := range kids {
		views[i] = toKidView(&kids[i])
	}
	respondWithJSON(w, http.StatusOK, views)
}

// Create handles POST /api/kids
func (h *KidHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	req, ok := decodeKidRequest(w, r)
	if !ok {
		return
	}

	kid, err := h.kidService.CreateKid(r.Context(), user.ID, req.Name, req.Grade, req.DifficultyLevel)
	if errors.Is(err, service.ErrKidLimit) {
		respondWithError(w, http.StatusConflict, "Kid profile limit reached", "", nil)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create kid", "Kid creation failed", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, toKidView(kid))
}

// Update handles PUT /api/kids/{id}
func (h *KidHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	kidID := r.PathValue("id")

	req, ok := decodeKidRequest(w, r)
	if !ok {
		return
	}

	kid, err := h.kidService.UpdateKid(r.Context(), user.ID, kidID, req.Name, req.Grade, req.DifficultyLevel)
	if errors.Is(err, service.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Kid not found", "", nil)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update kid", "Kid update failed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, toKidView(kid))
}

// Delete handles DELETE /api/kids/{id}
func (h *KidHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	kidID := r.PathValue("id")

	err := h.kidService.DeleteKid(r.Context(), user.ID, kidID)
	if errors.Is(err, service.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Kid not found", "", nil)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to delete kid", "Kid deletion failed", err)
		return
	}

	respondWithJSON(w, http.StatusNoContent, nil)
}

// decodeKidRequest decodes and validates the shared create/update payload
func decodeKidRequest(w http.ResponseWriter, r *http.Request) (kidRequest, bool) {
	var req kidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", nil)
		return req, false
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondWithError(w, http.StatusBadRequest, "Name is required", "", nil)
		return req, false
	}
	if !validGrade(req.Grade) {
		respondWithError(w, http.StatusBadRequest, "Grade must be K or 1-12", "", nil)
		return req, false
	}
	if req.DifficultyLevel < 1 || req.DifficultyLevel > 5 {
		respondWithError(w, http.StatusBadRequest, "Difficulty level must be between 1 and 5", "", nil)
		return req, false
	}
	return req, true
}

// validGrade accepts K or a numeric grade 1-12
func validGrade(grade string) bool {
	if grade == "K" {
		return true
	}
	n, err := strconv.Atoi(grade)
	return err == nil && n >= 1 && n <= 12
}
