package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shastraw-ai/clue-story/internal/generator"
	"github.com/shastraw-ai/clue-story/internal/models"
	"github.com/shastraw-ai/clue-story/internal/repository"
)

// stageMarkerRegexp matches the === STAGE X === boundary lines emitted by
// the generator, case-insensitively.
var stageMarkerRegexp = regexp.MustCompile(`(?i)===\s*STAGE\s*\d+\s*===`)

// TemplateStore is the persistence surface the template resolver needs
type TemplateStore interface {
	GetByFingerprint(ctx context.Context, theme, role, mode string, numStages int) (*models.StoryTemplate, error)
	GetByID(ctx context.Context, templateID string) (*models.StoryTemplate, error)
	InsertTemplate(ctx context.Context, theme, role, mode string, numStages int, rawNarrative string, stageContents []string) (*models.StoryTemplate, error)
}

// TemplateService resolves story templates by fingerprint, generating and
// persisting a new one on miss. Templates are shared across all users.
type TemplateService struct {
	store TemplateStore
	gen   generator.TextGenerator
}

// NewTemplateService creates a new template service
func NewTemplateService(store TemplateStore, gen generator.TextGenerator) *TemplateService {
	return &TemplateService{store: store, gen: gen}
}

// Resolve returns the template for the request's (theme, role, mode,
// stage count) fingerprint, generating one if none exists. Two concurrent
// misses on the same fingerprint are resolved by the store's uniqueness
// constraint: the loser re-fetches the winner's row.
func (s *TemplateService) Resolve(ctx context.Context, params StoryParams, model string) (*models.StoryTemplate, error) {
	template, err := s.store.GetByFingerprint(ctx, params.Theme, params.Role, params.Mode, params.QuestionsPerKid)
	if err != nil {
		return nil, fmt.Errorf("failed to look up template: %w", err)
	}
	if template != nil {
		return template, nil
	}

	prompt, system, maxTokens := buildStoryPrompt(params)
	narrative, err := s.gen.GenerateText(ctx, prompt, model, system, maxTokens, false)
	if err != nil {
		return nil, err
	}

	// The stage count persisted is whatever the generator actually emitted;
	// under- or over-production is not retried or padded.
	stageContents := parseStages(narrative)
	if len(stageContents) == 0 {
		return nil, &generator.MalformedResponseError{Message: "narrative contains no stage markers"}
	}

	template, err = s.store.InsertTemplate(ctx, params.Theme, params.Role, params.Mode,
		params.QuestionsPerKid, narrative, stageContents)
	if errors.Is(err, repository.ErrDuplicateTemplate) {
		// A concurrent request won the insert race; use its template and
		// discard this generation.
		template, err = s.store.GetByFingerprint(ctx, params.Theme, params.Role, params.Mode, params.QuestionsPerKid)
		if err != nil {
			return nil, fmt.Errorf("failed to re-fetch template after conflict: %w", err)
		}
		if template == nil {
			return nil, fmt.Errorf("template vanished after uniqueness conflict")
		}
		return template, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist template: %w", err)
	}

	return template, nil
}

// GetByID returns a template by ID, or ErrNotFound
func (s *TemplateService) GetByID(ctx context.Context, templateID string) (*models.StoryTemplate, error) {
	template, err := s.store.GetByID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if template == nil {
		return nil, ErrNotFound
	}
	return template, nil
}

// parseStages splits a raw narrative into stage contents using the
// === STAGE X === marker convention. Any preamble before the first marker is
// dropped, empty segments are discarded, and stages are numbered in emission
// order by the caller. A narrative with no markers yields no stages.
func parseStages(narrative string) []string {
	parts := stageMarkerRegexp.Split(narrative, -1)
	if len(parts) < 2 {
		return nil
	}

	var stages []string
	for _, part := range parts[1:] {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			stages = append(stages, trimmed)
		}
	}
	return stages
}
