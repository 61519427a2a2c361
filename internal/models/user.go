package models

import "time"

// User represents a parent account
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	Name           string
	Country        string // ISO 3166-1 alpha-2, e.g. "US", "GB"
	PreferredModel string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
