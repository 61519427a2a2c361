package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shastraw-ai/clue-story/internal/database"
	"github.com/shastraw-ai/clue-story/internal/models"
)

// ProblemRepository handles problem bank database operations
type ProblemRepository struct {
	db database.DBTX
}

// NewProblemRepository creates a new problem repository
func NewProblemRepository(db database.DBTX) *ProblemRepository {
	return &ProblemRepository{db: db}
}

// GetSeenProblemIDs returns the IDs of every problem the user has already
// been served
func (r *ProblemRepository) GetSeenProblemIDs(ctx context.Context, userID string) ([]string, error) {
	query := "SELECT problem_id FROM user_seen_problems WHERE user_id = ?"

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// GetAvailableProblems returns bank entries matching the subject/grade/
// difficulty fingerprint, excluding the given IDs
func (r *ProblemRepository) GetAvailableProblems(ctx context.Context, subject, grade string, difficultyLevel int, excludeIDs []string) ([]models.Problem, error) {
	query := `
		SELECT id, subject, grade, difficulty_level, problem_text, solution, created_at
		FROM problems
		WHERE subject = ? AND grade = ? AND difficulty_level = ?
	`
	args := []interface{}{subject, grade, difficultyLevel}

	if len(excludeIDs) > 0 {
		placeholders := strings.Repeat("?,", len(excludeIDs))
		placeholders = placeholders[:len(placeholders)-1]
		query += " AND id NOT IN (" + placeholders + ")"
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var problems []models.Problem
	for rows.Next() {
		var p models.Problem
		err := rows.Scan(&p.ID, &p.Subject, &p.Grade, &p.DifficultyLevel,
			&p.ProblemText, &p.Solution, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}

	return problems, rows.Err()
}

// InsertProblems persists newly generated problems into the bank and returns
// them with assigned IDs
func (r *ProblemRepository) InsertProblems(ctx context.Context, subject, grade string, difficultyLevel int, generated []models.Problem) ([]models.Problem, error) {
	query := `
		INSERT INTO problems (id, subject, grade, difficulty_level, problem_text, solution, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	inserted := make([]models.Problem, 0, len(generated))
	for _, p := range generated {
		p.ID = uuid.NewString()
		p.Subject = subject
		p.Grade = grade
		p.DifficultyLevel = difficultyLevel
		p.CreatedAt = time.Now().UTC()

		_, err := r.db.ExecContext(ctx, query,
			p.ID, p.Subject, p.Grade, p.DifficultyLevel, p.ProblemText, p.Solution, p.CreatedAt)
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, p)
	}

	return inserted, nil
}
