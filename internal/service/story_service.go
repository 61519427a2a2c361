package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shastraw-ai/clue-story/internal/models"
)

// StoryStore is the persistence surface the story service needs
type StoryStore interface {
	CreateStory(ctx context.Context, story *models.Story) error
	GetStoryByID(ctx context.Context, userID, storyID string) (*models.Story, error)
	ListStories(ctx context.Context, userID string, offset, limit int) ([]models.StoryListItem, error)
	CountStories(ctx context.Context, userID string) (int, error)
	DeleteStory(ctx context.Context, userID, storyID string) (bool, error)
}

// GenerateRequest carries one story generation request
type GenerateRequest struct {
	KidIDs          []string
	Subject         string // 'math' | 'reading'
	Mode            string // 'plot' | 'story'
	Role            string
	Theme           string
	QuestionsPerKid int
}

// StoryArtifact is the assembled, fully rendered deliverable for one story
type StoryArtifact struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Subject   string          `json:"subject"`
	Mode      string          `json:"mode"`
	Role      string          `json:"role"`
	Theme     string          `json:"theme"`
	Kids      []ArtifactKid   `json:"kids"`
	Stages    []ArtifactStage `json:"stages"`
	CreatedAt time.Time       `json:"created_at"`
}

// ArtifactKid is a kid snapshot as delivered in an artifact
type ArtifactKid struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Grade           string `json:"grade"`
	DifficultyLevel int    `json:"difficulty_level"`
	Alias           string `json:"alias"`
}

// ArtifactStage is one rendered stage with its attached problems
type ArtifactStage struct {
	StageNumber int               `json:"stage_number"`
	Content     string            `json:"content"`
	Problems    []ArtifactProblem `json:"problems"`
}

// ArtifactProblem is one rendered problem assignment
type ArtifactProblem struct {
	KidAlias string `json:"kid_alias"`
	KidName  string `json:"kid_name"`
	Text     string `json:"text"`
	Solution string `json:"solution"`
}

// StoryService orchestrates story generation: template resolution, per-kid
// problem pool resolution with concurrent deficit generation, artifact
// assembly and atomic persistence.
type StoryService struct {
	stories      StoryStore
	kids         KidStore
	templates    *TemplateService
	problems     *ProblemService
	email        *EmailService
	defaultModel string
}

// NewStoryService creates a new story service. defaultModel is used for
// accounts that have not chosen a preferred model.
func NewStoryService(stories StoryStore, kids KidStore, templates *TemplateService, problems *ProblemService, email *EmailService, defaultModel string) *StoryService {
	return &StoryService{
		stories:      stories,
		kids:         kids,
		templates:    templates,
		problems:     problems,
		email:        email,
		defaultModel: defaultModel,
	}
}

// storyTitle derives the artifact title from role and theme
func storyTitle(theme, role string) string {
	return fmt.Sprintf("%s in %s", role, theme)
}

// Generate produces a personalized story for the requested kids. Template
// and problem bank entries are reused wherever fingerprints match; only the
// shortfall is generated. The request is all-or-nothing: any generation
// failure aborts it with no story, assignments or seen-records persisted.
func (s *StoryService) Generate(ctx context.Context, user *models.User, req GenerateRequest) (*StoryArtifact, error) {
	kids, err := s.kids.GetKidsByIDs(ctx, user.ID, req.KidIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch kids: %w", err)
	}
	if len(kids) == 0 || len(kids) != len(req.KidIDs) {
		return nil, ErrNoKids
	}

	model := user.PreferredModel
	if model == "" {
		model = s.defaultModel
	}
	params := StoryParams{
		Subject:         req.Subject,
		Mode:            req.Mode,
		Role:            req.Role,
		Theme:           req.Theme,
		QuestionsPerKid: req.QuestionsPerKid,
		Kids:            kids,
	}

	template, err := s.templates.Resolve(ctx, params, model)
	if err != nil {
		return nil, err
	}

	// Sample the bank sequentially so sibling kids sharing a grade/difficulty
	// fingerprint never claim the same entry within this request.
	needed := req.QuestionsPerKid
	reserved := make(map[string]bool)
	pools := make([][]models.Problem, len(kids))
	deficits := make([]int, len(kids))

	for i, kid := range kids {
		sampled, err := s.problems.Sample(ctx, user.ID, req.Subject, kid, needed, reserved)
		if err != nil {
			return nil, err
		}
		for _, p := range sampled {
			reserved[p.ID] = true
		}
		pools[i] = sampled
		deficits[i] = needed - len(sampled)
	}

	// Fan out deficit generation, one call per kid. The first failure
	// cancels the siblings and aborts the request; rows already banked by
	// completed siblings remain as reusable inventory.
	g, gctx := errgroup.WithContext(ctx)
	fresh := make([][]models.Problem, len(kids))

	for i, kid := range kids {
		if deficits[i] == 0 {
			continue
		}
		g.Go(func() error {
			generated, err := s.problems.GenerateDeficit(gctx, req.Subject, kid, kids, deficits[i], user.Country, model)
			if err != nil {
				return err
			}
			fresh[i] = generated
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	story := &models.Story{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		TemplateID: template.ID,
		Title:      storyTitle(req.Theme, req.Role),
		Subject:    req.Subject,
		CreatedAt:  time.Now().UTC(),
	}

	for _, kid := range kids {
		story.Kids = append(story.Kids, models.StoryKid{
			ID:         uuid.NewString(),
			StoryID:    story.ID,
			KidID:      kid.ID,
			Name:       kid.Name,
			Grade:      kid.Grade,
			Difficulty: kid.DifficultyLevel,
			Alias:      kid.Alias,
		})
	}

	// Assign one problem per kid per stage and render it once. A generator
	// shortfall leaves later stages without that kid's problem rather than
	// padding with duplicates.
	for i, kid := range kids {
		pool := append(pools[i], fresh[i]...)
		for stage := 1; stage <= needed && stage <= len(pool); stage++ {
			problem := pool[stage-1]
			story.Problems = append(story.Problems, models.StoryProblem{
				ID:               uuid.NewString(),
				StoryID:          story.ID,
				StageNumber:      stage,
				StoryKidID:       story.Kids[i].ID,
				ProblemID:        problem.ID,
				RenderedText:     RenderProblemText(problem.ProblemText, kid.Name),
				RenderedSolution: RenderProblemText(problem.Solution, kid.Name),
			})
		}
	}

	if err := s.stories.CreateStory(ctx, story); err != nil {
		return nil, err
	}

	if s.email != nil && s.email.IsEnabled() {
		names := make([]string, len(kids))
		for i, kid := range kids {
			names[i] = kid.Name
		}
		// Fire and forget; the story is already committed.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.email.SendStoryReadyEmail(ctx, user.Email, user.Name, story.Title, names); err != nil {
				log.Printf("Failed to send story ready email: %v", err)
			}
		}()
	}

	return s.assemble(template, story), nil
}

// GetStory re-assembles a previously generated story from its persisted
// rendered rows. Re-assembly is idempotent: stage/kid associations come from
// the stored assignments, never from re-sampling.
func (s *StoryService) GetStory(ctx context.Context, userID, storyID string) (*StoryArtifact, error) {
	story, err := s.stories.GetStoryByID(ctx, userID, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	if story == nil {
		return nil, ErrNotFound
	}

	template, err := s.templates.GetByID(ctx, story.TemplateID)
	if err != nil {
		return nil, err
	}

	return s.assemble(template, story), nil
}

// ListStories returns story summaries for a user, newest first, plus the
// total count
func (s *StoryService) ListStories(ctx context.Context, userID string, offset, limit int) ([]models.StoryListItem, int, error) {
	total, err := s.stories.CountStories(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count stories: %w", err)
	}

	items, err := s.stories.ListStories(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stories: %w", err)
	}
	return items, total, nil
}

// DeleteStory removes a story and its owned snapshots and assignments
func (s *StoryService) DeleteStory(ctx context.Context, userID, storyID string) error {
	deleted, err := s.stories.DeleteStory(ctx, userID, storyID)
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// assemble merges a template's stages with a story's rendered assignments
// into the final artifact: stages in ascending order, stage text rendered
// alias-to-name, kids in request order.
func (s *StoryService) assemble(template *models.StoryTemplate, story *models.Story) *StoryArtifact {
	artifact := &StoryArtifact{
		ID:        story.ID,
		Title:     story.Title,
		Subject:   story.Subject,
		Mode:      template.Mode,
		Role:      template.Role,
		Theme:     template.Theme,
		CreatedAt: story.CreatedAt,
	}

	aliasToName := make(map[string]string, len(story.Kids))
	kidsByID := make(map[string]models.StoryKid, len(story.Kids))
	for _, sk := range story.Kids {
		aliasToName[sk.Alias] = sk.Name
		kidsByID[sk.ID] = sk
		artifact.Kids = append(artifact.Kids, ArtifactKid{
			ID:              sk.ID,
			Name:            sk.Name,
			Grade:           sk.Grade,
			DifficultyLevel: sk.Difficulty,
			Alias:           sk.Alias,
		})
	}

	for _, stage := range template.Stages {
		rendered := ArtifactStage{
			StageNumber: stage.StageNumber,
			Content:     RenderStageContent(stage.Content, aliasToName),
		}

		for _, sp := range story.Problems {
			if sp.StageNumber != stage.StageNumber {
				continue
			}
			sk, ok := kidsByID[sp.StoryKidID]
			if !ok {
				continue
			}
			rendered.Problems = append(rendered.Problems, ArtifactProblem{
				KidAlias: sk.Alias,
				KidName:  sk.Name,
				Text:     sp.RenderedText,
				Solution: sp.RenderedSolution,
			})
		}

		artifact.Stages = append(artifact.Stages, rendered)
	}

	return artifact
}
