// Package rules implements the fast-path rule matcher: VIP-sender and
// keyword lists checked before any LLM call. A rule hit is deterministic,
// zero-latency and always URGENT, so it short-circuits the classifier
// entirely.
package rules

import (
	"strings"

	"github.com/xaenox/sms-sentinel/internal/models"
)

// Match is a fast-path hit. Reason carries which rule fired.
type Match struct {
	Reason string
}

// Check tests the message against VIP sender rules first, then urgent
// keywords. Rules are expected to be lowercased already (the admin CRUD
// stores them that way). First match wins.
func Check(msg models.Message, vipSenders, keywords []string) (Match, bool) {
	sender := strings.ToLower(msg.Sender)
	for _, rule := range vipSenders {
		if rule == "" {
			continue
		}
		if strings.Contains(sender, rule) ||
			strings.HasSuffix(sender, "@"+rule) ||
			strings.HasSuffix(sender, "."+rule) {
			return Match{Reason: "VIP sender: " + rule}, true
		}
	}

	text := strings.ToLower(msg.Subject + " " + msg.Body)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			return Match{Reason: "Urgent keyword: " + kw}, true
		}
	}

	return Match{}, false
}

// Classification converts a fast-path match into the classifier output
// shape so the orchestrator handles both paths uniformly.
func (m Match) Classification() models.Classification {
	return models.Classification{
		Urgency: models.Urgent,
		Reason:  m.Reason,
	}
}
