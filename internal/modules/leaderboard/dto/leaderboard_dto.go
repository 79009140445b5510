package dto

import "github.com/google/uuid"

type LeaderboardEntry struct {
	Rank            int       `json:"rank"`
	UserID          uuid.UUID `json:"user_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Username        string    `json:"username"`
	BayanihanPoints int       `json:"bayanihan_points"`
	Level           int       `json:"level"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}
