package models

import "time"

// Problem is an entry in the shared problem bank, indexed by
// subject/grade/difficulty. Problem and solution text carry a {name}
// placeholder for personalization; entries are append-only and reused
// across all users who have not seen them yet.
type Problem struct {
	ID              string
	Subject         string // 'math' | 'reading'
	Grade           string // 'K', '1', ... '12'
	DifficultyLevel int    // 1-5
	ProblemText     string // uses {name} placeholder
	Solution        string
	CreatedAt       time.Time
}
