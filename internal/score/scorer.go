// Package score grades player answers and summarizes sessions.
package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/realitycheck/internal/model"
)

// Grade reports whether selected identifies the true claim
func Grade(selected model.Choice) (bool, error) {
	switch selected {
	case model.ChoiceTrue:
		return true, nil
	case model.ChoiceFalse:
		return false, nil
	default:
		return false, fmt.Errorf("invalid choice %q: want %q or %q", selected, model.ChoiceTrue, model.ChoiceFalse)
	}
}

// Summarize computes the stats for one session from its answers in order
func Summarize(sessionID string, answers []model.Answer) model.SessionStats {
	stats := model.SessionStats{SessionID: sessionID, Total: len(answers)}

	streak := 0
	for _, a := range answers {
		if !a.IsCorrect {
			streak = 0
			continue
		}
		stats.Correct++
		streak++
		if streak > stats.BestStreak {
			stats.BestStreak = streak
		}
	}

	stats.Accuracy = accuracy(stats.Correct, stats.Total)
	return stats
}

// accuracy is a percentage rounded to one decimal, 0 for an empty session
func accuracy(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*1000) / 10
}

// Rating maps an accuracy percentage to a short label for the results screen
func Rating(stats model.SessionStats) string {
	switch {
	case stats.Total == 0:
		return "No answers yet"
	case stats.Accuracy >= 90:
		return "Sharp eye"
	case stats.Accuracy >= 70:
		return "Well informed"
	case stats.Accuracy >= 50:
		return "Keep reading"
	default:
		return "Easily fooled"
	}
}
