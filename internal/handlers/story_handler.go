package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shastraw-ai/clue-story/internal/generator"
	"github.com/shastraw-ai/clue-story/internal/security"
	"github.com/shastraw-ai/clue-story/internal/service"
)

// StoryHandler handles story generation and retrieval requests
type StoryHandler struct {
	storyService *service.StoryService
	limiter      *security.RateLimiter
}

// NewStoryHandler creates a new story handler
func NewStoryHandler(storyService *service.StoryService, limiter *security.RateLimiter) *StoryHandler {
	return &StoryHandler{storyService: storyService, limiter: limiter}
}

// Generate handles POST /api/stories
func (h *StoryHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if h.limiter != nil && !h.limiter.Allow(user.ID) {
		respondWithError(w, http.StatusTooManyRequests, "Too many generation requests, try again later", "", nil)
		return
	}

	var req generateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", nil)
		return
	}
	if msg := validateGenerateRequest(req); msg != "" {
		respondWithError(w, http.StatusBadRequest, msg, "", nil)
		return
	}

	artifact, err := h.storyService.Generate(r.Context(), user, service.GenerateRequest{
		KidIDs:          req.KidIDs,
		Subject:         req.Subject,
		Mode:            req.Mode,
		Role:            strings.TrimSpace(req.Role),
		Theme:           strings.TrimSpace(req.Theme),
		QuestionsPerKid: req.QuestionsPerKid,
	})
	if err != nil {
		respondStoryError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, artifact)
}

// Get handles GET /api/stories/{id}
func (h *StoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	artifact, err := h.storyService.GetStory(r.Context(), user.ID, r.PathValue("id"))
	if errors.Is(err, service.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Story not found", "", nil)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load story", "Story lookup failed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, artifact)
}

// List handles GET /api/stories?skip=N&limit=N
func (h *StoryHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 20)
	if skip < 0 {
		skip = 0
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	items, total, err := h.storyService.ListStories(r.Context(), user.ID, skip, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list stories", "Story listing failed", err)
		return
	}

	views := make([]StoryListView, len(items))
	for i, item := range items {
		views[i] = toStoryListView(item)
	}
	respondWithJSON(w, http.StatusOK, storyListResponse{Stories: views, Total: total})
}

// Delete handles DELETE /api/stories/{id}
func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	err := h.storyService.DeleteStory(r.Context(), user.ID, r.PathValue("id"))
	if errors.Is(err, service.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Story not found", "", nil)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to delete story", "Story deletion failed", err)
		return
	}

	respondWithJSON(w, http.StatusNoContent, nil)
}

// validateGenerateRequest returns an error message, or "" if the request is
// acceptable
func validateGenerateRequest(req generateStoryRequest) string {
	if len(req.KidIDs) == 0 {
		return "At least one kid is required"
	}
	if len(req.KidIDs) > service.MaxKids {
		return "Too many kids in one story"
	}
	if req.Subject != "math" && req.Subject != "reading" {
		return "Subject must be math or reading"
	}
	if req.Mode != "plot" && req.Mode != "story" {
		return "Mode must be plot or story"
	}
	if strings.TrimSpace(req.Role) == "" || strings.TrimSpace(req.Theme) == "" {
		return "Role and theme are required"
	}
	if req.QuestionsPerKid < 1 || req.QuestionsPerKid > 10 {
		return "Questions per kid must be between 1 and 10"
	}
	return ""
}

// respondStoryError maps generation failures to HTTP statuses
func respondStoryError(w http.ResponseWriter, err error) {
	var genErr *generator.GenerationError
	var malformed *generator.MalformedResponseError

	switch {
	case errors.Is(err, service.ErrNoKids):
		respondWithError(w, http.StatusBadRequest, "One or more kids were not found", "", nil)
	case errors.As(err, &malformed):
		respondWithError(w, http.StatusBadGateway, "The story generator returned an unusable response", "Malformed generation", err)
	case errors.As(err, &genErr):
		respondWithError(w, http.StatusBadGateway, "Story generation failed, please try again", "Generation failed", err)
	default:
		respondWithError(w, http.StatusInternalServerError, "Failed to generate story", "Story generation failed", err)
	}
}

// queryInt reads an integer query parameter with a default
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
