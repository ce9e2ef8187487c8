package source

import (
	"context"
	"time"

	"github.com/xaenox/sms-sentinel/internal/models"
	"github.com/xaenox/sms-sentinel/internal/normalize"
)

// demoEmails is a fixed canned batch covering every classification
// scenario: VIP match, keyword match, LLM-urgent, and clearly
// not-urgent items. Demo runs never touch real external systems.
var demoEmails = []normalize.EmailPayload{
	{
		ID:      "demo-001",
		Sender:  "Sarah Chen <boss@company.com>",
		Subject: "Quick sync needed on Q1 roadmap",
		Snippet: "Hey, can we hop on a call in 30 mins? Need to discuss the timeline changes for the product launch.",
	},
	{
		ID:      "demo-002",
		Sender:  "IT Support <support@company.com>",
		Subject: "URGENT: Password reset required",
		Snippet: "Your account password will expire in 24 hours. Please reset it immediately to avoid losing access.",
	},
	{
		ID:      "demo-003",
		Sender:  "Professor Williams <prof.williams@university.edu>",
		Subject: "Assignment deadline extended to TODAY 11:59 PM",
		Snippet: "Due to technical issues, I'm extending the deadline. Please submit by tonight.",
	},
	{
		ID:      "demo-004",
		Sender:  "Amazon <deals@amazon.com>",
		Subject: "Flash Sale: Up to 70% off electronics",
		Snippet: "Don't miss out on our biggest sale of the year! Limited time offer on laptops, phones, and more.",
	},
	{
		ID:      "demo-005",
		Sender:  "TechCrunch Daily <newsletter@techcrunch.com>",
		Subject: "Your daily tech digest",
		Snippet: "Top stories: AI breakthrough at OpenAI, Tesla's new factory, and more startup funding news.",
	},
	{
		ID:      "demo-006",
		Sender:  "Mom <mom@gmail.com>",
		Subject: "Call me when you can - Dad's in hospital",
		Snippet: "Don't panic, he's stable now. Had a minor fall. Doctor says he'll be fine but call when free.",
	},
	{
		ID:      "demo-007",
		Sender:  "HR Team <recruiting@techstartup.io>",
		Subject: "Interview scheduled for tomorrow 10 AM",
		Snippet: "Congratulations! We'd like to invite you for a final round interview. Please confirm your availability.",
	},
	{
		ID:      "demo-008",
		Sender:  "LinkedIn <notifications@linkedin.com>",
		Subject: "You have 5 new connection requests",
		Snippet: "John Smith and 4 others want to connect with you. See who's in your network.",
	},
	{
		ID:      "demo-009",
		Sender:  "Chase Bank <alerts@chase.com>",
		Subject: "Unusual activity detected on your account",
		Snippet: "We noticed a $500 transaction from an unfamiliar location. If this wasn't you, please call us.",
	},
	{
		ID:      "demo-010",
		Sender:  "GitHub <noreply@github.com>",
		Subject: "[sentinel] New pull request #42",
		Snippet: "dependabot opened a pull request: Bump module dependencies",
	},
}

// Demo serves the canned sample batch.
type Demo struct{}

func NewDemo() *Demo {
	return &Demo{}
}

func (d *Demo) FetchUnprocessed(_ context.Context, maxCount int) ([]models.Message, error) {
	now := time.Now()
	var messages []models.Message
	for _, payload := range demoEmails {
		if len(messages) >= maxCount {
			break
		}
		payload.ReceivedAt = now
		if msg, ok := normalize.FromEmail(payload); ok {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}
