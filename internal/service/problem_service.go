package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/shastraw-ai/clue-story/internal/generator"
	"github.com/shastraw-ai/clue-story/internal/models"
)

// ProblemStore is the persistence surface the problem pool resolver needs
type ProblemStore interface {
	GetSeenProblemIDs(ctx context.Context, userID string) ([]string, error)
	GetAvailableProblems(ctx context.Context, subject, grade string, difficultyLevel int, excludeIDs []string) ([]models.Problem, error)
	InsertProblems(ctx context.Context, subject, grade string, difficultyLevel int, generated []models.Problem) ([]models.Problem, error)
}

// ProblemService resolves pools of ready-to-use problems per kid. Problems
// are drawn from the shared bank, excluding everything the user has already
// seen; any deficit is generated and banked for future reuse.
type ProblemService struct {
	store ProblemStore
	gen   generator.TextGenerator

	// rng drives sampling without replacement; injected so tests can seed it
	mu  sync.Mutex
	rng *rand.Rand
}

// NewProblemService creates a new problem service with the given random
// source
func NewProblemService(store ProblemStore, gen generator.TextGenerator, rng *rand.Rand) *ProblemService {
	return &ProblemService{store: store, gen: gen, rng: rng}
}

// Resolve returns up to needed problems for one kid: banked unseen entries
// first, then freshly generated ones for the deficit. A result shorter than
// needed signals a recoverable generator shortfall, not an error. IDs in
// reserved are excluded in addition to the user's seen set, so sibling kids
// sharing a fingerprint within one request never receive the same entry.
func (s *ProblemService) Resolve(ctx context.Context, userID, subject string, kid models.Kid, allKids []models.Kid, needed int, country, model string, reserved map[string]bool) ([]models.Problem, error) {
	sampled, err := s.Sample(ctx, userID, subject, kid, needed, reserved)
	if err != nil {
		return nil, err
	}
	if len(sampled) >= needed {
		return sampled, nil
	}

	deficit := needed - len(sampled)
	fresh, err := s.GenerateDeficit(ctx, subject, kid, allKids, deficit, country, model)
	if err != nil {
		return nil, err
	}

	return append(sampled, fresh...), nil
}

// Sample fetches the unseen bank entries matching the kid's fingerprint and
// randomly samples up to needed of them without replacement
func (s *ProblemService) Sample(ctx context.Context, userID, subject string, kid models.Kid, needed int, reserved map[string]bool) ([]models.Problem, error) {
	seenIDs, err := s.store.GetSeenProblemIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seen problems: %w", err)
	}

	exclude := make([]string, 0, len(seenIDs)+len(reserved))
	exclude = append(exclude, seenIDs...)
	for id := range reserved {
		exclude = append(exclude, id)
	}

	available, err := s.store.GetAvailableProblems(ctx, subject, kid.Grade, kid.DifficultyLevel, exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch available problems: %w", err)
	}

	if len(available) <= needed {
		return available, nil
	}
	return s.sample(available, needed), nil
}

// GenerateDeficit requests count new problems for one kid from the external
// generator and persists them into the bank. The returned slice may be
// shorter than count if the generator under-produces.
func (s *ProblemService) GenerateDeficit(ctx context.Context, subject string, kid models.Kid, allKids []models.Kid, count int, country, model string) ([]models.Problem, error) {
	prompt := buildProblemPrompt(subject, kid, allKids, count, country)

	raw, err := s.gen.GenerateText(ctx, prompt, model, problemSystemPrompt, problemMaxTokens, true)
	if err != nil {
		return nil, err
	}

	parsed, err := generator.ParseProblemPayload(raw)
	if err != nil {
		return nil, err
	}

	fresh := make([]models.Problem, len(parsed))
	for i, p := range parsed {
		fresh[i] = models.Problem{
			ProblemText: p.Problem,
			Solution:    p.Solution,
		}
	}

	inserted, err := s.store.InsertProblems(ctx, subject, kid.Grade, kid.DifficultyLevel, fresh)
	if err != nil {
		return nil, fmt.Errorf("failed to persist generated problems: %w", err)
	}
	return inserted, nil
}

// sample picks n entries uniformly without replacement
func (s *ProblemService) sample(problems []models.Problem, n int) []models.Problem {
	s.mu.Lock()
	perm := s.rng.Perm(len(problems))
	s.mu.Unlock()

	picked := make([]models.Problem, n)
	for i := 0; i < n; i++ {
		picked[i] = problems[perm[i]]
	}
	return picked
}
