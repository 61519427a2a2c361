package models

import "time"

// Kid represents a child profile in the system.
// The alias is a neutral placeholder name used inside shared story templates
// so that templates never contain real names.
type Kid struct {
	ID              string
	UserID          string
	Name            string
	Grade           string // 'K', '1', '2', ... '12'
	DifficultyLevel int    // 1-5
	Alias           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
