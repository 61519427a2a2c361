package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shastraw-ai/clue-story/internal/database"
	"github.com/shastraw-ai/clue-story/internal/models"
)

// KidRepository handles kid profile database operations
type KidRepository struct {
	db database.DBTX
}

// NewKidRepository creates a new kid repository
func NewKidRepository(db database.DBTX) *KidRepository {
	return &KidRepository{db: db}
}

// CreateKid creates a new kid profile
func (r *KidRepository) CreateKid(ctx context.Context, userID, name, grade string, difficultyLevel int, alias string) (*models.Kid, error) {
	kid := &models.Kid{
		ID:              uuid.NewString(),
		UserID:          userID,
		Name:            name,
		Grade:           grade,
		DifficultyLevel: difficultyLevel,
		Alias:           alias,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	query := `
		INSERT INTO kids (id, user_id, name, grade, difficulty_level, alias, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		kid.ID, kid.UserID, kid.Name, kid.Grade, kid.DifficultyLevel,
		kid.Alias, kid.CreatedAt, kid.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return kid, nil
}

// GetKidByID retrieves a kid owned by the given user, or nil if not found
func (r *KidRepository) GetKidByID(ctx context.Context, userID, kidID string) (*models.Kid, error) {
	query := `
		SELECT id, user_id, name, grade, difficulty_level, alias, created_at, updated_at
		FROM kids
		WHERE id = ? AND user_id = ?
	`

	kid := &models.Kid{}
	err := r.db.QueryRowContext(ctx, query, kidID, userID).Scan(
		&kid.ID, &kid.UserID, &kid.Name, &kid.Grade,
		&kid.DifficultyLevel, &kid.Alias, &kid.CreatedAt, &kid.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return kid, nil
}

// ListKids retrieves all kids for a user, oldest first
func (r *KidRepository) ListKids(ctx context.Context, userID string) ([]models.Kid, error) {
	query := `
		SELECT id, user_id, name, grade, difficulty_level, alias, created_at, updated_at
		FROM kids
		WHERE user_id = ?
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kids []models.Kid
	for rows.Next() {
		var kid models.Kid
		err := rows.Scan(
			&kid.ID, &kid.UserID, &kid.Name, &kid.Grade,
			&kid.DifficultyLevel, &kid.Alias, &kid.CreatedAt, &kid.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		kids = append(kids, kid)
	}

	return kids, rows.Err()
}

// GetKidsByIDs retrieves the user's kids matching the given IDs. The result
// preserves the order of ids; missing or foreign kids are simply absent.
func (r *KidRepository) GetKidsByIDs(ctx context.Context, userID string, ids []string) ([]models.Kid, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	query := `
		SELECT id, user_id, name, grade, difficulty_level, alias, created_at, updated_at
		FROM kids
		WHERE user_id = ? AND id IN (` + placeholders + `)
	`

	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]models.Kid, len(ids))
	for rows.Next() {
		var kid models.Kid
		err := rows.Scan(
			&kid.ID, &kid.UserID, &kid.Name, &kid.Grade,
			&kid.DifficultyLevel, &kid.Alias, &kid.CreatedAt, &kid.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		byID[kid.ID] = kid
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	kids := make([]models.Kid, 0, len(ids))
	for _, id := range ids {
		if kid, ok := byID[id]; ok {
			kids = append(kids, kid)
		}
	}
	return kids, nil
}

// UpdateKid updates a kid's name, grade and difficulty level
func (r *KidRepository) UpdateKid(ctx context.Context, userID, kidID, name, grade string, difficultyLevel int) error {
	query := `
		UPDATE kids
		SET name = ?, grade = ?, difficulty_level = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`
	_, err := r.db.ExecContext(ctx, query, name, grade, difficultyLevel, time.Now().UTC(), kidID, userID)
	return err
}

// DeleteKid removes a kid profile
func (r *KidRepository) DeleteKid(ctx context.Context, userID, kidID string) error {
	query := "DELETE FROM kids WHERE id = ? AND user_id = ?"
	_, err := r.db.ExecContext(ctx, query, kidID, userID)
	return err
}
