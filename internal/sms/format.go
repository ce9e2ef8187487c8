// Package sms formats urgent messages into single-segment SMS bodies and
// sends them through the Twilio REST API.
package sms

import (
	"strings"

	"github.com/xaenox/sms-sentinel/internal/models"
	"github.com/xaenox/sms-sentinel/internal/normalize"
)

// MaxLength is the single-segment SMS budget. Format never returns a
// longer string.
const MaxLength = 160

const maxSenderNameLen = 30

// Format renders a message as an SMS body with a source-aware prefix:
//
//	mobile:   "WHATSAPP: Mom - text"
//	telegram: "TG: Mom - text"
//	email:    "URGENT from Mom: subject"
//
// The function is pure and total: any combination of sender/body lengths,
// including empty strings, yields a valid result within MaxLength.
func Format(msg models.Message) string {
	var prefix, bare, text string

	switch {
	case strings.HasPrefix(msg.Source, "android:"):
		app := strings.ToUpper(strings.TrimPrefix(msg.Source, "android:"))
		prefix = app + ": " + msg.Sender + " - "
		bare = app + ": "
		text = msg.Body
	case msg.Source == normalize.SourceTelegram:
		prefix = "TG: " + msg.Sender + " - "
		bare = "TG: "
		text = msg.Body
	default:
		prefix = "URGENT from " + senderName(msg.Sender) + ": "
		bare = "URGENT: "
		text = msg.Subject
	}

	maxText := MaxLength - len(prefix)
	if maxText <= 0 {
		// Sender alone blew the budget; fall back to the bare prefix.
		prefix = bare
		text = truncate(text, MaxLength-len(prefix))
	} else if len(text) > maxText {
		text = truncate(text, maxText)
	}

	out := prefix + text
	if len(out) > MaxLength {
		out = out[:MaxLength-3] + "..."
	}
	return out
}

// senderName extracts the display part of an email sender ("Sarah Chen
// <boss@company.com>" -> "Sarah Chen"), clamped to 30 chars.
func senderName(sender string) string {
	if i := strings.Index(sender, "<"); i >= 0 {
		sender = strings.TrimSpace(sender[:i])
	}
	if len(sender) > maxSenderNameLen {
		sender = sender[:maxSenderNameLen-3] + "..."
	}
	return sender
}

// truncate bounds s to max bytes, appending "..." when something was cut
// and there is room for the ellipsis.
func truncate(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
