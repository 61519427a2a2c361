package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/shastraw-ai/clue-story/internal/models"
)

func newTestProblemService(store *memStore, gen *scriptedGenerator) *ProblemService {
	return NewProblemService(store, gen, rand.New(rand.NewSource(1)))
}

func seedBank(store *memStore, subject, grade string, difficulty, count int) []models.Problem {
	problems := make([]models.Problem, count)
	for i := range problems {
		problems[i] = store.addBankProblem(subject, grade, difficulty,
			fmt.Sprintf("{name} counts %d stars.", i+1), fmt.Sprintf("%d", i+1))
	}
	return problems
}

func TestProblemServiceResolveFromBank(t *testing.T) {
	store := newMemStore()
	gen := &scriptedGenerator{}
	svc := newTestProblemService(store, gen)

	seedBank(store, "math", "2", 2, 5)
	kid := models.Kid{ID: "kid-a", Name: "Maya", Grade: "2", DifficultyLevel: 2, Alias: "Alex"}

	got, err := svc.Resolve(context.Background(), "user-1", "math", kid, []models.Kid{kid}, 3, "", "gpt-4o-mini", nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("resolved %d problems, want 3", len(got))
	}
	if gen.problemCalls != 0 {
		t.Errorf("generator calls = %d, want 0 when the bank suffices", gen.problemCalls)
	}

	ids := make(map[string]bool)
	for _, p := range got {
		if ids[p.ID] {
			t.Errorf("problem %s sampled twice", p.ID)
		}
		ids[p.ID] = true
	}
}

func TestProblemServiceResolveGeneratesDeficit(t *testing.T) {
	store := newMemStore()
	gen := &scriptedGenerator{}
	svc := newTestProblemService(store, gen)

	seedBank(store, "math", "2", 2, 1)
	kid := models.Kid{ID: "kid-a", Name: "Maya", Grade: "2", DifficultyLevel: 2, Alias: "Alex"}

	got, err := svc.Resolve(context.Background(), "user-1", "math", kid, []models.Kid{kid}, 3, "", "gpt-4o-mini", nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("resolved %d problems, want 3", len(got))
	}
	if gen.problemCalls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.problemCalls)
	}
	// The two fresh problems must be banked for future reuse.
	if len(store.problems) != 3 {
		t.Errorf("bank holds %d problems, want 3", len(store.problems))
	}
	for _, p := range got {
		if p.ID == "" {
			t.Errorf("resolved problem without a bank ID: %q", p.ProblemText)
		}
	}
}

func TestProblemServiceSampleExcludesSeenAndReserved(t *testing.T) {
	store := newMemStore()
	gen := &scriptedGenerator{}
	svc := newTestProblemService(store, gen)

	banked := seedBank(store, "math", "2", 2, 4)
	store.seen["user-1"] = []string{banked[0].ID}
	reserved := map[string]bool{banked[1].ID: true}

	kid := models.Kid{ID: "kid-a", Name: "Maya", Grade: "2", DifficultyLevel: 2, Alias: "Alex"}
	got, err := svc.Sample(context.Background(), "user-1", "math", kid, 4, reserved)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("sampled %d problems, want 2", len(got))
	}
	for _, p := range got {
		if p.ID == banked[0].ID {
			t.Errorf("sampled a seen problem")
		}
		if p.ID == banked[1].ID {
			t.Errorf("sampled a reserved problem")
		}
	}
}

func TestProblemServiceSampleIgnoresOtherFingerprints(t *testing.T) {
	store := newMemStore()
	svc := newTestProblemService(store, &scriptedGenerator{})

	seedBank(store, "math", "2", 2, 2)
	seedBank(store, "math", "2", 4, 2)    // same grade, harder
	seedBank(store, "math", "5", 2, 2)    // same difficulty, older
	seedBank(store, "reading", "2", 2, 2) // other subject

	kid := models.Kid{ID: "kid-a", Name: "Maya", Grade: "2", DifficultyLevel: 2, Alias: "Alex"}
	got, err := svc.Sample(context.Background(), "user-1", "math", kid, 10, nil)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("sampled %d problems, want 2 (exact fingerprint only)", len(got))
	}
	for _, p := range got {
		if p.Subject != "math" || p.Grade != "2" || p.DifficultyLevel != 2 {
			t.Errorf("sampled problem outside the fingerprint: %+v", p)
		}
	}
}

func TestProblemServiceSamplingIsSeedDeterministic(t *testing.T) {
	pick := func() []string {
		store := newMemStore()
		svc := newTestProblemService(store, &scriptedGenerator{})
		seedBank(store, "math", "2", 2, 10)

		kid := models.Kid{ID: "kid-a", Name: "Maya", Grade: "2", DifficultyLevel: 2, Alias: "Alex"}
		got, err := svc.Sample(context.Background(), "user-1", "math", kid, 3, nil)
		if err != nil {
			t.Fatalf("Sample() error = %v", err)
		}
		ids := make([]string, len(got))
		for i, p := range got {
			ids[i] = p.ID
		}
		return ids
	}

	first := pick()
	second := pick()
	if strings.Join(first, ",") != strings.Join(second, ",") {
		t.Errorf("same seed produced different samples: %v vs %v", first, second)
	}
}

func TestProblemServiceResolveShortfall(t *testing.T) {
	store := newMemStore()
	gen := &scriptedGenerator{shortBy: 1}
	svc := newTestProblemService(store, gen)

	kid := models.Kid{ID: "kid-a", Name: "Maya", Grade: "2", DifficultyLevel: 2, Alias: "Alex"}
	got, err := svc.Resolve(context.Background(), "user-1", "math", kid, []models.Kid{kid}, 3, "", "gpt-4o-mini", nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v, shortfall must not be an error", err)
	}

	if len(got) != 2 {
		t.Errorf("resolved %d problems, want 2 after a one-problem shortfall", len(got))
	}
}

func TestProblemServiceGenerateDeficitFailure(t *testing.T) {
	store := newMemStore()
	gen := &scriptedGenerator{failWhen: func(string) error {
		return fmt.Errorf("model overloaded")
	}}
	svc := newTestProblemService(store, gen)

	kid := models.Kid{ID: "kid-a", Name: "Maya", Grade: "2", DifficultyLevel: 2, Alias: "Alex"}
	_, err := svc.Resolve(context.Background(), "user-1", "math", kid, []models.Kid{kid}, 3, "", "gpt-4o-mini", nil)
	if err == nil {
		t.Fatal("Resolve() succeeded, want generation error")
	}
	if len(store.problems) != 0 {
		t.Errorf("failed generation must not bank problems")
	}
}
