package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/shastraw-ai/clue-story/internal/generator"
	"github.com/shastraw-ai/clue-story/internal/models"
	"github.com/shastraw-ai/clue-story/internal/repository"
)

func TestParseStages(t *testing.T) {
	tests := []struct {
		name      string
		narrative string
		want      []string
	}{
		{
			name: "standard markers",
			narrative: `=== STAGE 1 ===
The forest gate.

=== STAGE 2 ===
The river crossing.`,
			want: []string{"The forest gate.", "The river crossing."},
		},
		{
			name: "lowercase and loose spacing",
			narrative: `===  stage 1  ===
First part.
=== Stage  2 ===
Second part.`,
			want: []string{"First part.", "Second part."},
		},
		{
			name: "preamble before first marker is dropped",
			narrative: `Here is your story:
=== STAGE 1 ===
Only stage.`,
			want: []string{"Only stage."},
		},
		{
			name: "conclusion stays with the last stage",
			narrative: `=== STAGE 1 ===
The cave.

And they all went home.`,
			want: []string{"The cave.\n\nAnd they all went home."},
		},
		{
			name:      "no markers",
			narrative: "Just a plain paragraph with no structure.",
			want:      nil,
		},
		{
			name:      "empty narrative",
			narrative: "",
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseStages(tt.narrative)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseStages() = %q, want %q", got, tt.want)
			}
		})
	}
}

func testStoryParams(numStages int) StoryParams {
	return StoryParams{
		Subject:         "math",
		Mode:            "story",
		Role:            "brave explorers",
		Theme:           "the Enchanted Forest",
		QuestionsPerKid: numStages,
		Kids: []models.Kid{
			{ID: "kid-a", Name: "Maya", Grade: "2", DifficultyLevel: 2, Alias: "Alex"},
			{ID: "kid-b", Name: "Theo", Grade: "4", DifficultyLevel: 3, Alias: "Bella"},
		},
	}
}

func TestTemplateServiceResolveGeneratesOnMiss(t *testing.T) {
	store := newMemStore()
	gen := &scriptedGenerator{narrative: testNarrative}
	svc := NewTemplateService(store, gen)

	template, err := svc.Resolve(context.Background(), testStoryParams(3), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if gen.narrativeCalls != 1 {
		t.Errorf("narrative calls = %d, want 1", gen.narrativeCalls)
	}
	if len(template.Stages) != 3 {
		t.Fatalf("stages = %d, want 3", len(template.Stages))
	}
	for i, stage := range template.Stages {
		if stage.StageNumber != i+1 {
			t.Errorf("stage %d numbered %d", i, stage.StageNumber)
		}
	}
	if template.RawNarrative != testNarrative {
		t.Errorf("raw narrative not persisted")
	}
}

func TestTemplateServiceResolveReusesOnHit(t *testing.T) {
	store := newMemStore()
	gen := &scriptedGenerator{narrative: testNarrative}
	svc := NewTemplateService(store, gen)

	first, err := svc.Resolve(context.Background(), testStoryParams(3), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}
	second, err := svc.Resolve(context.Background(), testStoryParams(3), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("second Resolve() returned a different template: %s vs %s", second.ID, first.ID)
	}
	if gen.narrativeCalls != 1 {
		t.Errorf("narrative calls = %d, want 1 (template must be reused)", gen.narrativeCalls)
	}
}

func TestTemplateServiceResolveDistinctFingerprints(t *testing.T) {
	store := newMemStore()
	gen := &scriptedGenerator{narrative: testNarrative}
	svc := NewTemplateService(store, gen)

	params := testStoryParams(3)
	if _, err := svc.Resolve(context.Background(), params, "gpt-4o-mini"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// A different stage count is a different fingerprint and must regenerate.
	params.QuestionsPerKid = 4
	gen.narrative = `=== STAGE 1 ===
a
=== STAGE 2 ===
b
=== STAGE 3 ===
c
=== STAGE 4 ===
d`
	if _, err := svc.Resolve(context.Background(), params, "gpt-4o-mini"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if gen.narrativeCalls != 2 {
		t.Errorf("narrative calls = %d, want 2", gen.narrativeCalls)
	}
	if len(store.templates) != 2 {
		t.Errorf("stored templates = %d, want 2", len(store.templates))
	}
}

func TestTemplateServiceResolveMalformedNarrative(t *testing.T) {
	store := newMemStore()
	gen := &scriptedGenerator{narrative: "a story with no markers at all"}
	svc := NewTemplateService(store, gen)

	_, err := svc.Resolve(context.Background(), testStoryParams(3), "gpt-4o-mini")

	var malformed *generator.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("Resolve() error = %v, want MalformedResponseError", err)
	}
	if len(store.templates) != 0 {
		t.Errorf("malformed narrative must not be persisted")
	}
}

// conflictTemplateStore simulates losing an insert race: the first
// InsertTemplate persists a concurrent winner's row and reports a duplicate.
type conflictTemplateStore struct {
	*memStore
	conflicted bool
}

func (c *conflictTemplateStore) InsertTemplate(ctx context.Context, theme, role, mode string, numStages int, rawNarrative string, stageContents []string) (*models.StoryTemplate, error) {
	if !c.conflicted {
		c.conflicted = true
		if _, err := c.memStore.InsertTemplate(ctx, theme, role, mode, numStages, "winner narrative", []string{"winner stage"}); err != nil {
			return nil, err
		}
		return nil, repository.ErrDuplicateTemplate
	}
	return c.memStore.InsertTemplate(ctx, theme, role, mode, numStages, rawNarrative, stageContents)
}

func TestTemplateServiceResolveUniquenessConflict(t *testing.T) {
	store := &conflictTemplateStore{memStore: newMemStore()}
	gen := &scriptedGenerator{narrative: testNarrative}
	svc := NewTemplateService(store, gen)

	template, err := svc.Resolve(context.Background(), testStoryParams(3), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if template.RawNarrative != "winner narrative" {
		t.Errorf("conflict loser must adopt the winner's template, got narrative %q", template.RawNarrative)
	}
	if len(store.templates) != 1 {
		t.Errorf("stored templates = %d, want 1", len(store.templates))
	}
}

func TestTemplateServiceGetByID(t *testing.T) {
	store := newMemStore()
	svc := NewTemplateService(store, &scriptedGenerator{narrative: testNarrative})

	created, err := svc.Resolve(context.Background(), testStoryParams(3), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	got, err := svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByID() returned %s, want %s", got.ID, created.ID)
	}

	if _, err := svc.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}
