package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shastraw-ai/clue-story/internal/database"
	"github.com/shastraw-ai/clue-story/internal/models"
)

// StoryRepository handles story database operations. Unlike the other
// repositories it holds the full *database.DB because story creation spans
// a transaction.
type StoryRepository struct {
	db *database.DB
}

// NewStoryRepository creates a new story repository
func NewStoryRepository(db *database.DB) *StoryRepository {
	return &StoryRepository{db: db}
}

// CreateStory persists a story with its kid snapshots, rendered problem
// assignments and the corresponding seen-records in a single transaction.
// Nothing user-visible is committed if any insert fails.
func (r *StoryRepository) CreateStory(ctx context.Context, story *models.Story) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	storyQuery := `
		INSERT INTO user_stories (id, user_id, template_id, title, subject, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, storyQuery,
		story.ID, story.UserID, story.TemplateID, story.Title, story.Subject, story.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert story: %w", err)
	}

	// position preserves the original request order of the kids
	kidQuery := `
		INSERT INTO user_story_kids (id, story_id, kid_id, kid_name, kid_grade, kid_difficulty, kid_alias, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, sk := range story.Kids {
		_, err = tx.ExecContext(ctx, kidQuery,
			sk.ID, sk.StoryID, sk.KidID, sk.Name, sk.Grade, sk.Difficulty, sk.Alias, i)
		if err != nil {
			return fmt.Errorf("failed to insert kid snapshot: %w", err)
		}
	}

	problemQuery := `
		INSERT INTO user_story_problems (id, story_id, stage_number, story_kid_id, problem_id, problem_text_rendered, solution_rendered)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	seenQuery := `
		INSERT INTO user_seen_problems (user_id, problem_id, seen_at)
		VALUES (?, ?, ?)
	`
	for _, sp := range story.Problems {
		_, err = tx.ExecContext(ctx, problemQuery,
			sp.ID, sp.StoryID, sp.StageNumber, sp.StoryKidID, sp.ProblemID,
			sp.RenderedText, sp.RenderedSolution)
		if err != nil {
			return fmt.Errorf("failed to insert story problem: %w", err)
		}

		// Seen-records commit in the same transaction as the assignments
		// that justify them.
		_, err = tx.ExecContext(ctx, seenQuery, story.UserID, sp.ProblemID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to insert seen record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit story: %w", err)
	}
	return nil
}

// GetStoryByID retrieves a story owned by the given user with its kid
// snapshots and problem assignments loaded, or nil if not found
func (r *StoryRepository) GetStoryByID(ctx context.Context, userID, storyID string) (*models.Story, error) {
	query := `
		SELECT id, user_id, template_id, title, subject, created_at
		FROM user_stories
		WHERE id = ? AND user_id = ?
	`

	story := &models.Story{}
	err := r.db.QueryRowContext(ctx, query, storyID, userID).Scan(
		&story.ID, &story.UserID, &story.TemplateID, &story.Title,
		&story.Subject, &story.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadKids(ctx, story); err != nil {
		return nil, err
	}
	if err := r.loadProblems(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

// ListStories retrieves story summaries for a user, newest first
func (r *StoryRepository) ListStories(ctx context.Context, userID string, offset, limit int) ([]models.StoryListItem, error) {
	query := `
		SELECT s.id, s.title, s.subject, t.mode, t.num_stages, s.created_at
		FROM user_stories s
		JOIN story_templates t ON t.id = s.template_id
		WHERE s.user_id = ?
		ORDER BY s.created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.StoryListItem
	for rows.Next() {
		var item models.StoryListItem
		err := rows.Scan(&item.ID, &item.Title, &item.Subject, &item.Mode,
			&item.NumStages, &item.CreatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		names, err := r.kidNames(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].KidNames = names
	}

	return items, nil
}

// CountStories returns the total number of stories for a user
func (r *StoryRepository) CountStories(ctx context.Context, userID string) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM user_stories WHERE user_id = ?"
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&count)
	return count, err
}

// DeleteStory removes a story owned by the given user. Kid snapshots and
// problem assignments cascade; seen-records are retained since the user has
// still seen those problems. Returns false if no such story exists.
func (r *StoryRepository) DeleteStory(ctx context.Context, userID, storyID string) (bool, error) {
	query := "DELETE FROM user_stories WHERE id = ? AND user_id = ?"
	result, err := r.db.ExecContext(ctx, query, storyID, userID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *StoryRepository) loadKids(ctx context.Context, story *models.Story) error {
	query := `
		SELECT id, story_id, kid_id, kid_name, kid_grade, kid_difficulty, kid_alias
		FROM user_story_kids
		WHERE story_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, story.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var sk models.StoryKid
		err := rows.Scan(&sk.ID, &sk.StoryID, &sk.KidID, &sk.Name,
			&sk.Grade, &sk.Difficulty, &sk.Alias)
		if err != nil {
			return err
		}
		story.Kids = append(story.Kids, sk)
	}
	return rows.Err()
}

// loadProblems loads assignments ordered by stage, then by the kid's
// position within the story, so a re-fetched story renders identically to
// the one returned at generation time on every dialect.
func (r *StoryRepository) loadProblems(ctx context.Context, story *models.Story) error {
	query := `
		SELECT p.id, p.story_id, p.stage_number, p.story_kid_id, p.problem_id, p.problem_text_rendered, p.solution_rendered
		FROM user_story_problems p
		JOIN user_story_kids k ON k.id = p.story_kid_id
		WHERE p.story_id = ?
		ORDER BY p.stage_number ASC, k.position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, story.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var sp models.StoryProblem
		err := rows.Scan(&sp.ID, &sp.StoryID, &sp.StageNumber, &sp.StoryKidID,
			&sp.ProblemID, &sp.RenderedText, &sp.RenderedSolution)
		if err != nil {
			return err
		}
		story.Problems = append(story.Problems, sp)
	}
	return rows.Err()
}

func (r *StoryRepository) kidNames(ctx context.Context, storyID string) ([]string, error) {
	query := "SELECT kid_name FROM user_story_kids WHERE story_id = ? ORDER BY position ASC"

	rows, err := r.db.QueryContext(ctx, query, storyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
