package model

import "time"

// Choice is the card a player picked
type Choice string

const (
	ChoiceTrue  Choice = "true"
	ChoiceFalse Choice = "false"
)

// Answer records one player selection within a session
type Answer struct {
	SessionID  string    `json:"session_id"`
	ClaimID    string    `json:"claim_id"`
	Selected   Choice    `json:"selected_claim"`
	IsCorrect  bool      `json:"is_correct"`
	AnsweredAt time.Time `json:"answered_at,omitempty"`
}

// SessionStats summarizes a player's session
type SessionStats struct {
	SessionID  string  `json:"session_id"`
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Accuracy   float64 `json:"accuracy"`    // 0-100
	BestStreak int     `json:"best_streak"` // Longest run of correct answers
}
