package models

import "time"

// Urgency values are the only two the pipeline ever emits. Any other
// value coming back from a classifier backend is coerced to NotUrgent
// before it leaves the classifier layer.
const (
	Urgent    = "URGENT"
	NotUrgent = "NOT_URGENT"
)

// Message is the canonical unit processed by the pipeline, regardless of
// which source (email, mobile notification, Telegram) it came from.
// ID doubles as the deduplication key and must be unique per source
// namespace.
type Message struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	Sender        string    `json:"sender"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	ReceivedAt    time.Time `json:"received_at"`
	ForwardedFrom string    `json:"forwarded_from,omitempty"`
}

// Classification is the output of the classifier stage. SMSMessage is
// optional; when empty and urgency is URGENT the alert formatter
// synthesizes one.
type Classification struct {
	Urgency    string `json:"urgency"`
	Reason     string `json:"reason"`
	SMSMessage string `json:"sms_message,omitempty"`
}

// DispatchDecision gates whether an urgent message actually produces an
// outbound SMS. Computed once per urgent classification, never persisted.
type DispatchDecision struct {
	Allowed       bool   `json:"allowed"`
	BlockedReason string `json:"blocked_reason,omitempty"`
}

// Blocked reasons for DispatchDecision.
const (
	BlockedDuplicate   = "duplicate"
	BlockedQuietHours  = "quiet_hours"
	BlockedRateLimited = "rate_limited"
)

// AlertResult is the per-message outcome of one pipeline run.
type AlertResult struct {
	MessageID string `json:"message_id"`
	Sender    string `json:"sender"`
	Subject   string `json:"subject"`
	Urgency   string `json:"urgency"`
	Reason    string `json:"reason"`
	SMSSent   bool   `json:"sms_sent"`
}

// RunResult aggregates one pipeline run over a batch of messages. It is
// created fresh at the start of each run and immutable once returned.
type RunResult struct {
	RunID           string        `json:"run_id"`
	MessagesChecked int           `json:"messages_checked"`
	AlertsSent      int           `json:"alerts_sent"`
	Results         []AlertResult `json:"results"`
}

// QuietHours is a configured local-time window during which SMS dispatch
// is suppressed. StartHour > EndHour means the window wraps past
// midnight: 22 -> 7 covers hours 22, 23, 0..6.
type QuietHours struct {
	Enabled   bool `json:"enabled"`
	StartHour int  `json:"start_hour"`
	EndHour   int  `json:"end_hour"`
}

// Contains reports whether the given local hour falls inside the window.
func (q QuietHours) Contains(hour int) bool {
	if !q.Enabled {
		return false
	}
	if q.StartHour <= q.EndHour {
		return hour >= q.StartHour && hour < q.EndHour
	}
	return hour >= q.StartHour || hour < q.EndHour
}

// RateLimit caps SMS sends per trailing 60 minutes.
type RateLimit struct {
	Enabled    bool `json:"enabled"`
	MaxPerHour int  `json:"max_per_hour"`
}
