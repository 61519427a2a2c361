package models

import "time"

// Story is a user's generated story. It references a shared template and
// owns per-kid snapshots and rendered problem assignments, so later edits
// to kid profiles never alter a past story.
type Story struct {
	ID         string
	UserID     string
	TemplateID string
	Title      string
	Subject    string // 'math' | 'reading'
	CreatedAt  time.Time

	Kids     []StoryKid
	Problems []StoryProblem
}

// StoryKid is a snapshot of a kid at story generation time
type StoryKid struct {
	ID         string
	StoryID    string
	KidID      string // live profile reference; informational only
	Name       string
	Grade      string
	Difficulty int
	Alias      string
}

// StoryProblem is a problem assigned to a kid in a specific story stage.
// Rendered text has the {name} placeholder already substituted; it is
// stored once and never re-rendered.
type StoryProblem struct {
	ID               string
	StoryID          string
	StageNumber      int
	StoryKidID       string
	ProblemID        string
	RenderedText     string
	RenderedSolution string
}

// SeenProblem marks that a user has already been served a problem,
// preventing it from ever being assigned to the same user again.
type SeenProblem struct {
	UserID    string
	ProblemID string
	SeenAt    time.Time
}

// StoryListItem is a summary row for story history listings
type StoryListItem struct {
	ID        string
	Title     string
	Subject   string
	Mode      string
	NumStages int
	KidNames  []string
	CreatedAt time.Time
}
