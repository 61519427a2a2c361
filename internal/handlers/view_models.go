package handlers

import (
	"time"

	"github.com/shastraw-ai/clue-story/internal/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type settingsRequest struct {
	Country        string `json:"country"`
	PreferredModel string `json:"preferred_model"`
}

// UserView is the API representation of an account
type UserView struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Country        string `json:"country"`
	PreferredModel string `json:"preferred_model"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

func toUserView(user *models.User) UserView {
	return UserView{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Country:        user.Country,
		PreferredModel: user.PreferredModel,
	}
}

type kidRequest struct {
	Name            string `json:"name"`
	Grade           string `json:"grade"`
	DifficultyLevel int    `json:"difficulty_level"`
}

// KidView is the API representation of a kid profile
type KidView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Grade           string    `json:"grade"`
	DifficultyLevel int       `json:"difficulty_level"`
	Alias           string    `json:"alias"`
	CreatedAt       time.Time `json:"created_at"`
}

func toKidView(kid *models.Kid) KidView {
	return KidView{
		ID:              kid.ID,
		Name:            kid.Name,
		Grade:           kid.Grade,
		DifficultyLevel: kid.DifficultyLevel,
		Alias:           kid.Alias,
		CreatedAt:       kid.CreatedAt,
	}
}

type generateStoryRequest struct {
	KidIDs          []string `json:"kid_ids"`
	Subject         string   `json:"subject"`
	Mode            string   `json:"mode"`
	Role            string   `json:"role"`
	Theme           string   `json:"theme"`
	QuestionsPerKid int      `json:"questions_per_kid"`
}

// StoryListView is one entry in the paginated story list
type StoryListView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Subject   string    `json:"subject"`
	Mode      string    `json:"mode"`
	NumStages int       `json:"num_stages"`
	KidNames  []string  `json:"kid_names"`
	CreatedAt time.Time `json:"created_at"`
}

type storyListResponse struct {
	Stories []StoryListView `json:"stories"`
	Total   int             `json:"total"`
}

func toStoryListView(item models.StoryListItem) StoryListView {
	return StoryListView{
		ID:        item.ID,
		Title:     item.Title,
		Subject:   item.Subject,
		Mode:      item.Mode,
		NumStages: item.NumStages,
		KidNames:  item.KidNames,
		CreatedAt: item.CreatedAt,
	}
}
