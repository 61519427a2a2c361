package models

import "time"

// StoryTemplate is a reusable narrative skeleton shared across users.
// At most one template exists per (theme, role, mode, num_stages)
// combination, enforced by a uniqueness constraint in the store.
type StoryTemplate struct {
	ID           string
	Theme        string
	Role         string
	Mode         string // 'plot' | 'story'
	NumStages    int
	RawNarrative string
	CreatedAt    time.Time

	Stages []TemplateStage
}

// TemplateStage is one stage of a story template. Content contains alias
// placeholders, never real kid names.
type TemplateStage struct {
	ID          string
	TemplateID  string
	StageNumber int
	Content     string
}
