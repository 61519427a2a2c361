package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shastraw-ai/clue-story/internal/models"
	"github.com/shastraw-ai/clue-story/internal/repository"
)

// memStore is an in-memory stand-in for the persistence layer, implementing
// TemplateStore, ProblemStore, StoryStore, KidStore and UserStore.
type memStore struct {
	mu        sync.Mutex
	templates []*models.StoryTemplate
	problems  []models.Problem
	seen      map[string][]string // userID -> problem IDs
	stories   []*models.Story
	kids      []models.Kid
	users     []*models.User

	nextID int
}

func newMemStore() *memStore {
	return &memStore{seen: make(map[string][]string)}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memStore) GetByFingerprint(ctx context.Context, theme, role, mode string, numStages int) (*models.StoryTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.templates {
		if t.Theme == theme && t.Role == role && t.Mode == mode && t.NumStages == numStages {
			return t, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetByID(ctx context.Context, templateID string) (*models.StoryTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.templates {
		if t.ID == templateID {
			return t, nil
		}
	}
	return nil, nil
}

func (m *memStore) InsertTemplate(ctx context.Context, theme, role, mode string, numStages int, rawNarrative string, stageContents []string) (*models.StoryTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.templates {
		if t.Theme == theme && t.Role == role && t.Mode == mode && t.NumStages == numStages {
			return nil, repository.ErrDuplicateTemplate
		}
	}

	template := &models.StoryTemplate{
		ID:           m.id("tpl"),
		Theme:        theme,
		Role:         role,
		Mode:         mode,
		NumStages:    numStages,
		RawNarrative: rawNarrative,
	}
	for i, content := range stageContents {
		template.Stages = append(template.Stages, models.TemplateStage{
			ID:          m.id("stage"),
			TemplateID:  template.ID,
			StageNumber: i + 1,
			Content:     content,
		})
	}
	m.templates = append(m.templates, template)
	return template, nil
}

func (m *memStore) GetSeenProblemIDs(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seen[userID]...), nil
}

func (m *memStore) GetAvailableProblems(ctx context.Context, subject, grade string, difficultyLevel int, excludeIDs []string) ([]models.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	var available []models.Problem
	for _, p := range m.problems {
		if p.Subject == subject && p.Grade == grade && p.DifficultyLevel == difficultyLevel && !excluded[p.ID] {
			available = append(available, p)
		}
	}
	return available, nil
}

func (m *memStore) InsertProblems(ctx context.Context, subject, grade string, difficultyLevel int, generated []models.Problem) ([]models.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := make([]models.Problem, 0, len(generated))
	for _, p := range generated {
		p.ID = m.id("prob")
		p.Subject = subject
		p.Grade = grade
		p.DifficultyLevel = difficultyLevel
		m.problems = append(m.problems, p)
		inserted = append(inserted, p)
	}
	return inserted, nil
}

func (m *memStore) addBankProblem(subject, grade string, difficulty int, text, solution string) models.Problem {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := models.Problem{
		ID:              m.id("prob"),
		Subject:         subject,
		Grade:           grade,
		DifficultyLevel: difficulty,
		ProblemText:     text,
		Solution:        solution,
	}
	m.problems = append(m.problems, p)
	return p
}

func (m *memStore) CreateStory(ctx context.Context, story *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories = append(m.stories, story)
	for _, sp := range story.Problems {
		m.seen[story.UserID] = append(m.seen[story.UserID], sp.ProblemID)
	}
	return nil
}

func (m *memStore) GetStoryByID(ctx context.Context, userID, storyID string) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.stories {
		if s.ID == storyID && s.UserID == userID {
			// Assignments come back ordered by stage, then by the kid's
			// position within the story, matching the repository's load order.
			position := make(map[string]int, len(s.Kids))
			for i, sk := range s.Kids {
				position[sk.ID] = i
			}
			loaded := *s
			loaded.Problems = append([]models.StoryProblem(nil), s.Problems...)
			sort.SliceStable(loaded.Problems, func(i, j int) bool {
				a, b := loaded.Problems[i], loaded.Problems[j]
				if a.StageNumber != b.StageNumber {
					return a.StageNumber < b.StageNumber
				}
				return position[a.StoryKidID] < position[b.StoryKidID]
			})
			return &loaded, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListStories(ctx context.Context, userID string, offset, limit int) ([]models.StoryListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var items []models.StoryListItem
	for i := len(m.stories) - 1; i >= 0; i-- {
		s := m.stories[i]
		if s.UserID != userID {
			continue
		}
		items = append(items, models.StoryListItem{ID: s.ID, Title: s.Title, Subject: s.Subject})
	}
	if offset > len(items) {
		return nil, nil
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (m *memStore) CountStories(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.stories {
		if s.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) DeleteStory(ctx context.Context, userID, storyID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.stories {
		if s.ID == storyID && s.UserID == userID {
			m.stories = append(m.stories[:i], m.stories[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateKid(ctx context.Context, userID, name, grade string, difficultyLevel int, alias string) (*models.Kid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kid := models.Kid{
		ID:              m.id("kid"),
		UserID:          userID,
		Name:            name,
		Grade:           grade,
		DifficultyLevel: difficultyLevel,
		Alias:           alias,
	}
	m.kids = append(m.kids, kid)
	return &kid, nil
}

func (m *memStore) GetKidByID(ctx context.Context, userID, kidID string) (*models.Kid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, kid := range m.kids {
		if kid.ID == kidID && kid.UserID == userID {
			k := kid
			return &k, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetKidsByIDs(ctx context.Context, userID string, ids []string) ([]models.Kid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := make(map[string]models.Kid)
	for _, kid := range m.kids {
		if kid.UserID == userID {
			byID[kid.ID] = kid
		}
	}

	var kids []models.Kid
	for _, id := range ids {
		if kid, ok := byID[id]; ok {
			kids = append(kids, kid)
		}
	}
	return kids, nil
}

func (m *memStore) ListKids(ctx context.Context, userID string) ([]models.Kid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kids []models.Kid
	for _, kid := range m.kids {
		if kid.UserID == userID {
			kids = append(kids, kid)
		}
	}
	return kids, nil
}

func (m *memStore) UpdateKid(ctx context.Context, userID, kidID, name, grade string, difficultyLevel int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, kid := range m.kids {
		if kid.ID == kidID && kid.UserID == userID {
			m.kids[i].Name = name
			m.kids[i].Grade = grade
			m.kids[i].DifficultyLevel = difficultyLevel
			return nil
		}
	}
	return nil
}

func (m *memStore) DeleteKid(ctx context.Context, userID, kidID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, kid := range m.kids {
		if kid.ID == kidID && kid.UserID == userID {
			m.kids = append(m.kids[:i], m.kids[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) CreateUser(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := &models.User{ID: m.id("user"), Email: email, PasswordHash: passwordHash, Name: name, PreferredModel: "gpt-4o-mini"}
	m.users = append(m.users, user)
	return user, nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpdateSettings(ctx context.Context, userID, country, preferredModel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			u.Country = country
			u.PreferredModel = preferredModel
		}
	}
	return nil
}

// storyProblemCount counts the total problem assignments across all stored
// stories for a user
func (m *memStore) storyProblemCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.stories {
		if s.UserID == userID {
			count += len(s.Problems)
		}
	}
	return count
}

// scriptedGenerator is a TextGenerator fake. Narrative calls return the
// configured narrative; structured calls synthesize the requested number of
// problems unless failWhen matches the prompt.
type scriptedGenerator struct {
	mu             sync.Mutex
	narrative      string
	narrativeCalls int
	problemCalls   int
	produced       int
	modelsUsed     []string
	failWhen       func(prompt string) error
	shortBy        int // produce this many fewer problems than requested
}

func (g *scriptedGenerator) GenerateText(ctx context.Context, prompt, model, systemInstruction string, maxOutputTokens int, structured bool) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.modelsUsed = append(g.modelsUsed, model)

	if !structured {
		g.narrativeCalls++
		return g.narrative, nil
	}

	g.problemCalls++
	if g.failWhen != nil {
		if err := g.failWhen(prompt); err != nil {
			return "", err
		}
	}

	var count int
	if _, err := fmt.Sscanf(prompt, "Generate %d", &count); err != nil {
		return "", fmt.Errorf("fake generator could not parse count from prompt: %w", err)
	}
	count -= g.shortBy
	if count < 0 {
		count = 0
	}

	var entries []string
	for i := 0; i < count; i++ {
		g.produced++
		entries = append(entries, fmt.Sprintf(
			`{"problem": "{name} collects %d shells on the beach. How many pairs is that?", "solution": "%d pairs"}`,
			g.produced*2, g.produced))
	}
	return `{"problems": [` + strings.Join(entries, ",") + `]}`, nil
}

const testNarrative = `=== STAGE 1 ===
Alex and Bella step into the glowing woods, where a silver fox watches them.

=== STAGE 2 ===
A bridge of moonlight appears. The wise owl blocks the way with a riddle for each child.

=== STAGE 3 ===
At the crystal cave, a sleepy dragon demands one puzzle from every explorer.

And so the friends head home under the stars.`
