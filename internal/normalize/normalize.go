// Package normalize converts heterogeneous source payloads (email,
// mobile-app push notifications, Telegram messages) into the canonical
// Message shape the pipeline processes. Malformed items are skipped, not
// surfaced as errors, so one bad payload never aborts a batch.
package normalize

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/sms-sentinel/internal/models"
)

const maxBodyLen = 500

// SourceEmail and SourceTelegram tag where a message came from. Mobile
// notifications use a per-app tag of the form "android:<app>".
const (
	SourceEmail    = "email"
	SourceTelegram = "telegram"
)

// EmailPayload is the provider-supplied view of one inbox message.
type EmailPayload struct {
	ID         string
	Sender     string
	Subject    string
	Snippet    string
	ReceivedAt time.Time
}

// MobileNotification is one item of a notification batch pushed by the
// companion Android app.
type MobileNotification struct {
	ID        string
	App       string
	Sender    string
	Text      string
	Timestamp int64
}

// FromEmail builds a Message from an email payload. The second return is
// false when the payload carries no usable identity.
func FromEmail(p EmailPayload) (models.Message, bool) {
	if p.ID == "" {
		return models.Message{}, false
	}

	sender := p.Sender
	if sender == "" {
		sender = "Unknown"
	}
	subject := p.Subject
	if subject == "" {
		subject = "(No Subject)"
	}

	received := p.ReceivedAt
	if received.IsZero() {
		received = time.Now()
	}

	return models.Message{
		ID:         p.ID,
		Source:     SourceEmail,
		Sender:     sender,
		Subject:    subject,
		Body:       clamp(p.Snippet),
		ReceivedAt: received,
	}, true
}

// FromMobile builds a Message from an Android notification. The source
// tag is derived from the app name ("android:whatsapp" for "WhatsApp").
func FromMobile(n MobileNotification) (models.Message, bool) {
	if n.ID == "" || n.App == "" {
		return models.Message{}, false
	}

	app := strings.ReplaceAll(strings.ToLower(n.App), " ", "")

	received := time.Now()
	if n.Timestamp > 0 {
		received = time.Unix(n.Timestamp, 0)
	}

	return models.Message{
		ID:         "mobile:" + n.ID,
		Source:     "android:" + app,
		Sender:     n.Sender,
		Subject:    fmt.Sprintf("%s notification", n.App),
		Body:       clamp(n.Text),
		ReceivedAt: received,
	}, true
}

// FromTelegram builds a Message from a Telegram update. Only text
// messages are processed; media-only updates are skipped. The wall-clock
// epoch is appended to the message ID so that Telegram's reuse of small
// message IDs across chats cannot collide; redelivery of the identical
// update is filtered upstream by update ID.
func FromTelegram(update tgbotapi.Update, now time.Time) (models.Message, bool) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return models.Message{}, false
	}

	sender := displayName(msg.From)
	if sender == "" {
		sender = "Unknown"
	}

	label := "message"
	if msg.From != nil && msg.From.UserName != "" {
		label = msg.From.UserName
	}

	forwardedFrom := ""
	if msg.ForwardFrom != nil {
		forwardedFrom = displayName(msg.ForwardFrom)
		if msg.ForwardFrom.UserName != "" {
			forwardedFrom += fmt.Sprintf(" (@%s)", msg.ForwardFrom.UserName)
		}
	} else if msg.ForwardSenderName != "" {
		forwardedFrom = msg.ForwardSenderName
	}

	return models.Message{
		ID:            fmt.Sprintf("tg_%d_%d", msg.MessageID, now.Unix()),
		Source:        SourceTelegram,
		Sender:        sender,
		Subject:       fmt.Sprintf("Telegram: %s", label),
		Body:          clamp(msg.Text),
		ReceivedAt:    time.Unix(int64(msg.Date), 0),
		ForwardedFrom: forwardedFrom,
	}, true
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.UserName
	}
	return name
}

func clamp(s string) string {
	if len(s) > maxBodyLen {
		return s[:maxBodyLen]
	}
	return s
}
