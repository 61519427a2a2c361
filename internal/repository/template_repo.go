package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shastraw-ai/clue-story/internal/database"
	"github.com/shastraw-ai/clue-story/internal/models"
)

// ErrDuplicateTemplate is returned by InsertTemplate when another template
// with the same fingerprint already exists. Callers are expected to re-fetch
// the winning row instead of treating this as fatal.
var ErrDuplicateTemplate = errors.New("template with this fingerprint already exists")

// TemplateRepository handles story template database operations. Like
// StoryRepository it holds the full *database.DB because template creation
// spans a transaction.
type TemplateRepository struct {
	db *database.DB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *database.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// GetByFingerprint retrieves the template matching (theme, role, mode,
// numStages) with its stages loaded in stage order, or nil if none exists.
func (r *TemplateRepository) GetByFingerprint(ctx context.Context, theme, role, mode string, numStages int) (*models.StoryTemplate, error) {
	query := `
		SELECT id, theme, role, mode, num_stages, raw_narrative, created_at
		FROM story_templates
		WHERE theme = ? AND role = ? AND mode = ? AND num_stages = ?
	`

	template := &models.StoryTemplate{}
	err := r.db.QueryRowContext(ctx, query, theme, role, mode, numStages).Scan(
		&template.ID, &template.Theme, &template.Role, &template.Mode,
		&template.NumStages, &template.RawNarrative, &template.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadStages(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

// GetByID retrieves a template by ID with its stages loaded in stage order
func (r *TemplateRepository) GetByID(ctx context.Context, templateID string) (*models.StoryTemplate, error) {
	query := `
		SELECT id, theme, role, mode, num_stages, raw_narrative, created_at
		FROM story_templates
		WHERE id = ?
	`

	template := &models.StoryTemplate{}
	err := r.db.QueryRowContext(ctx, query, templateID).Scan(
		&template.ID, &template.Theme, &template.Role, &template.Mode,
		&template.NumStages, &template.RawNarrative, &template.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadStages(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

// InsertTemplate persists a new template and its stages in a single
// transaction, so a concurrent fingerprint lookup can never observe a
// template with missing stages. Stage numbers are assigned from the order of
// contents, starting at 1. Returns ErrDuplicateTemplate when the fingerprint
// uniqueness constraint fires.
func (r *TemplateRepository) InsertTemplate(ctx context.Context, theme, role, mode string, numStages int, rawNarrative string, stageContents []string) (*models.StoryTemplate, error) {
	template := &models.StoryTemplate{
		ID:           uuid.NewString(),
		Theme:        theme,
		Role:         role,
		Mode:         mode,
		NumStages:    numStages,
		RawNarrative: rawNarrative,
		CreatedAt:    time.Now().UTC(),
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO story_templates (id, theme, role, mode, num_stages, raw_narrative, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		template.ID, template.Theme, template.Role, template.Mode,
		template.NumStages, template.RawNarrative, template.CreatedAt)
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return nil, ErrDuplicateTemplate
		}
		return nil, err
	}

	stageQuery := `
		INSERT INTO template_stages (id, template_id, stage_number, content)
		VALUES (?, ?, ?, ?)
	`
	for i, content := range stageContents {
		stage := models.TemplateStage{
			ID:          uuid.NewString(),
			TemplateID:  template.ID,
			StageNumber: i + 1,
			Content:     content,
		}
		if _, err := tx.ExecContext(ctx, stageQuery, stage.ID, stage.TemplateID, stage.StageNumber, stage.Content); err != nil {
			return nil, err
		}
		template.Stages = append(template.Stages, stage)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit template: %w", err)
	}
	return template, nil
}

// loadStages loads a template's stages ordered by stage number
func (r *TemplateRepository) loadStages(ctx context.Context, template *models.StoryTemplate) error {
	query := `
		SELECT id, template_id, stage_number, content
		FROM template_stages
		WHERE template_id = ?
		ORDER BY stage_number ASC
	`

	rows, err := r.db.QueryContext(ctx, query, template.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var stage models.TemplateStage
		if err := rows.Scan(&stage.ID, &stage.TemplateID, &stage.StageNumber, &stage.Content); err != nil {
			return err
		}
		template.Stages = append(template.Stages, stage)
	}

	return rows.Err()
}
