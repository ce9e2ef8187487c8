package sms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xaenox/sms-sentinel/internal/models"
)

func TestFormatMobile(t *testing.T) {
	msg := models.Message{
		Source: "android:whatsapp",
		Sender: "Mom",
		Body:   "call me when you can",
	}

	out := Format(msg)
	assert.Equal(t, "WHATSAPP: Mom - call me when you can", out)
}

func TestFormatTelegram(t *testing.T) {
	msg := models.Message{
		Source: "telegram",
		Sender: "Jane Doe",
		Body:   "are you coming?",
	}

	out := Format(msg)
	assert.Equal(t, "TG: Jane Doe - are you coming?", out)
}

func TestFormatEmailUsesSubject(t *testing.T) {
	msg := models.Message{
		Source:  "email",
		Sender:  "Sarah Chen <boss@company.com>",
		Subject: "Quick sync needed",
		Body:    "long body ignored for email alerts",
	}

	out := Format(msg)
	assert.Equal(t, "URGENT from Sarah Chen: Quick sync needed", out)
}

func TestFormatEmailClampsSenderName(t *testing.T) {
	msg := models.Message{
		Source:  "email",
		Sender:  strings.Repeat("A", 60) + " <a@b.com>",
		Subject: "hi",
	}

	out := Format(msg)
	assert.LessOrEqual(t, len(out), MaxLength)
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "URGENT from ")
}

func TestFormatTruncatesLongBody(t *testing.T) {
	msg := models.Message{
		Source: "telegram",
		Sender: "Bob",
		Body:   strings.Repeat("x", 400),
	}

	out := Format(msg)
	assert.Len(t, out, MaxLength)
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.True(t, strings.HasPrefix(out, "TG: Bob - "))
}

func TestFormatPrefixOverflowCollapses(t *testing.T) {
	msg := models.Message{
		Source: "android:signal",
		Sender: strings.Repeat("s", 200),
		Body:   "the actual content",
	}

	out := Format(msg)
	assert.LessOrEqual(t, len(out), MaxLength)
	assert.True(t, strings.HasPrefix(out, "SIGNAL: "))
	assert.Contains(t, out, "the actual content")
}

func TestFormatLengthBound(t *testing.T) {
	// Every combination of extreme lengths stays within one segment.
	lengths := []int{0, 1, 10, 100, 159, 160, 161, 500, 2000}
	sources := []string{"email", "telegram", "android:whatsapp"}

	for _, source := range sources {
		for _, senderLen := range lengths {
			for _, bodyLen := range lengths {
				msg := models.Message{
					Source:  source,
					Sender:  strings.Repeat("s", senderLen),
					Subject: strings.Repeat("j", bodyLen),
					Body:    strings.Repeat("b", bodyLen),
				}
				out := Format(msg)
				assert.LessOrEqual(t, len(out), MaxLength,
					"source=%s sender=%d body=%d", source, senderLen, bodyLen)
				assert.NotEmpty(t, out)
			}
		}
	}
}

func TestFormatContentInclusion(t *testing.T) {
	msg := models.Message{
		Source: "telegram",
		Sender: "Alice",
		Body:   "dinner at 8?",
	}

	out := Format(msg)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "dinner at 8?")
}

func TestFormatEmptyEverything(t *testing.T) {
	out := Format(models.Message{Source: "email"})
	assert.LessOrEqual(t, len(out), MaxLength)
}

func TestSenderName(t *testing.T) {
	assert.Equal(t, "Sarah Chen", senderName("Sarah Chen <boss@company.com>"))
	assert.Equal(t, "boss@company.com", senderName("boss@company.com"))
	assert.Equal(t, strings.Repeat("n", 27)+"...", senderName(strings.Repeat("n", 50)))
}
