package service

import (
	"context"
	"fmt"

	"github.com/shastraw-ai/clue-story/internal/models"
)

// MaxKids is the maximum number of kid profiles per account
const MaxKids = 5

// aliasPool is the fixed gender-neutral pool of placeholder names used in
// shared story templates. Each kid in an account gets a distinct alias.
var aliasPool = []string{
	"Alex", "Alice", "Ben", "Bella", "Charlie",
	"Claire", "David", "Diana", "Ethan", "Emma",
	"Finn", "Fiona", "George", "Grace", "Henry",
	"Hannah", "Isaac", "Ivy", "Jack", "Julia",
}

// KidStore is the persistence surface the kid service needs
type KidStore interface {
	CreateKid(ctx context.Context, userID, name, grade string, difficultyLevel int, alias string) (*models.Kid, error)
	GetKidByID(ctx context.Context, userID, kidID string) (*models.Kid, error)
	GetKidsByIDs(ctx context.Context, userID string, ids []string) ([]models.Kid, error)
	ListKids(ctx context.Context, userID string) ([]models.Kid, error)
	UpdateKid(ctx context.Context, userID, kidID, name, grade string, difficultyLevel int) error
	DeleteKid(ctx context.Context, userID, kidID string) error
}

// KidService handles kid profile business logic
type KidService struct {
	kids KidStore
}

// NewKidService creates a new kid service
func NewKidService(kids KidStore) *KidService {
	return &KidService{kids: kids}
}

// ListKids returns all kid profiles for a user
func (s *KidService) ListKids(ctx context.Context, userID string) ([]models.Kid, error) {
	return s.kids.ListKids(ctx, userID)
}

// CreateKid creates a kid profile, assigning the next free alias
func (s *KidService) CreateKid(ctx context.Context, userID, name, grade string, difficultyLevel int) (*models.Kid, error) {
	existing, err := s.kids.ListKids(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list kids: %w", err)
	}
	if len(existing) >= MaxKids {
		return nil, ErrKidLimit
	}

	used := make(map[string]bool, len(existing))
	for _, kid := range existing {
		used[kid.Alias] = true
	}

	return s.kids.CreateKid(ctx, userID, name, grade, difficultyLevel, nextAlias(used))
}

// UpdateKid updates a kid's name, grade and difficulty level. The alias is
// fixed for life: changing it would break alias rendering of past stories.
func (s *KidService) UpdateKid(ctx context.Context, userID, kidID, name, grade string, difficultyLevel int) (*models.Kid, error) {
	kid, err := s.kids.GetKidByID(ctx, userID, kidID)
	if err != nil {
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}
	if kid == nil {
		return nil, ErrNotFound
	}

	if err := s.kids.UpdateKid(ctx, userID, kidID, name, grade, difficultyLevel); err != nil {
		return nil, fmt.Errorf("failed to update kid: %w", err)
	}
	return s.kids.GetKidByID(ctx, userID, kidID)
}

// DeleteKid removes a kid profile
func (s *KidService) DeleteKid(ctx context.Context, userID, kidID string) error {
	kid, err := s.kids.GetKidByID(ctx, userID, kidID)
	if err != nil {
		return fmt.Errorf("failed to get kid: %w", err)
	}
	if kid == nil {
		return ErrNotFound
	}
	return s.kids.DeleteKid(ctx, userID, kidID)
}

// nextAlias returns the first pool alias not yet used, falling back to
// numbered variants of the first alias once the pool is exhausted
func nextAlias(used map[string]bool) string {
	for _, alias := range aliasPool {
		if !used[alias] {
			return alias
		}
	}

	base := aliasPool[0]
	counter := 2
	for used[fmt.Sprintf("%s%d", base, counter)] {
		counter++
	}
	return fmt.Sprintf("%s%d", base, counter)
}
