package classifier

import (
	"context"
	"strings"

	"github.com/xaenox/sms-sentinel/internal/models"
)

// urgentWords is the fixed vocabulary scanned by the heuristic tier.
// Order matters: the first word found names the reason.
var urgentWords = []string{
	"urgent", "emergency", "asap", "help",
	"important", "now", "immediately", "call me",
}

// Heuristic is the terminal classifier tier: pure substring matching over
// the lowercased subject and body. It is used when both LLM tiers are
// unreachable and is guaranteed to succeed.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Classify(_ context.Context, msg models.Message) (models.Classification, error) {
	text := strings.ToLower(msg.Subject + " " + msg.Body)

	for _, word := range urgentWords {
		if strings.Contains(text, word) {
			return models.Classification{
				Urgency: models.Urgent,
				Reason:  "Contains urgent word: " + word + " (fallback)",
			}, nil
		}
	}

	return models.Classification{
		Urgency: models.NotUrgent,
		Reason:  "No urgent indicators found (fallback)",
	}, nil
}
