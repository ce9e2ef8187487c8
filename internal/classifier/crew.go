package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/sms-sentinel/internal/models"
	"github.com/xaenox/sms-sentinel/internal/sms"
	"go.uber.org/zap"
)

const monitorSystemPrompt = `You are a message monitor, expert at analyzing communication patterns and identifying important signals. You examine sender information, subject lines and timing to provide context that helps determine if a message needs immediate attention. You are concise and focus on actionable insights.`

const monitorTaskTemplate = `Analyze this message and provide brief context for urgency classification:

From: %s
Subject: %s
Preview: %s

Identify key signals:
1. Sender type (person, company, automated system)
2. Subject urgency indicators (deadlines, action words)
3. Any time-sensitive language in the preview

Provide a 1-2 sentence context summary.`

const crewClassifySystemPrompt = `You are an urgency classifier, expert at identifying urgent communications. URGENT messages include: time-sensitive deadlines, emergencies, messages from important people (boss, family, professors), financial matters requiring immediate action, and health or safety concerns. NOT_URGENT messages include: marketing, newsletters, social notifications, and routine updates. You always provide a brief reason for your classification.`

const crewClassifyTaskTemplate = `Based on the context provided, classify this message's urgency.

Context: %s

Message Details:
From: %s
Subject: %s
Preview: %s

Respond with ONLY a JSON object in this exact format:
{"urgency": "URGENT" or "NOT_URGENT", "reason": "one line explanation"}`

const alertSystemPrompt = `You are an alert formatter, expert at condensing information into brief, actionable SMS messages. SMS messages must be under 160 characters to avoid splitting. You always include the sender in a clear, readable format and prioritize clarity over completeness.`

const alertTaskTemplate = `Create a concise SMS alert (max 160 characters) for this urgent message:

From: %s
Subject: %s
Preview: %s

Respond with ONLY a JSON object:
{"sms": "your message here"} or {"sms": null}`

// Crew is the multi-agent classifier tier: a monitor step summarizing
// signal, a classification step emitting {urgency, reason}, and, only for
// urgent messages, an alert-formatting step emitting {sms}. Each step is
// an independent chat completion against the same backend.
type Crew struct {
	client    chatCompleter
	model     string
	maxTokens int
	logger    *zap.Logger
}

func NewCrew(client *openai.Client, model string, maxTokens int, logger *zap.Logger) *Crew {
	return &Crew{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

func (c *Crew) Classify(ctx context.Context, msg models.Message) (models.Classification, error) {
	summary, err := c.complete(ctx, monitorSystemPrompt,
		fmt.Sprintf(monitorTaskTemplate, msg.Sender, msg.Subject, msg.Body))
	if err != nil {
		return models.Classification{}, fmt.Errorf("monitor step: %w", err)
	}

	raw, err := c.complete(ctx, crewClassifySystemPrompt,
		fmt.Sprintf(crewClassifyTaskTemplate, summary, msg.Sender, msg.Subject, msg.Body))
	if err != nil {
		return models.Classification{}, fmt.Errorf("classify step: %w", err)
	}

	span, ok := extractJSON(raw, "urgency")
	if !ok {
		return models.Classification{}, fmt.Errorf("no urgency JSON in crew output")
	}

	var parsed struct {
		Urgency string `json:"urgency"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return models.Classification{}, fmt.Errorf("parse crew classification: %w", err)
	}

	result := models.Classification{
		Urgency: parsed.Urgency,
		Reason:  parsed.Reason,
	}
	if result.Urgency != models.Urgent {
		result.Urgency = models.NotUrgent
	}
	if result.Reason == "" {
		result.Reason = "No reason provided"
	}

	if result.Urgency == models.Urgent {
		result.SMSMessage = c.formatAlert(ctx, msg)
	}

	return result, nil
}

// formatAlert runs the alert-formatting step. Any failure or an unusable
// response falls back to the deterministic formatter; by this point the
// message is already classified, so formatting must not fail the tier.
func (c *Crew) formatAlert(ctx context.Context, msg models.Message) string {
	raw, err := c.complete(ctx, alertSystemPrompt,
		fmt.Sprintf(alertTaskTemplate, msg.Sender, msg.Subject, msg.Body))
	if err != nil {
		c.logger.Warn("alert step failed, using deterministic format", zap.Error(err))
		return sms.Format(msg)
	}

	span, ok := extractJSON(raw, "sms")
	if ok {
		var parsed struct {
			SMS *string `json:"sms"`
		}
		if err := json.Unmarshal([]byte(span), &parsed); err == nil &&
			parsed.SMS != nil && *parsed.SMS != "" && len(*parsed.SMS) <= sms.MaxLength {
			return *parsed.SMS
		}
	}

	return sms.Format(msg)
}

func (c *Crew) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// extractJSON locates the first flat {...} span in text that contains the
// given key and decodes as valid JSON. LLM output often wraps the object
// in prose or code fences, so a plain Unmarshal of the whole response is
// not enough here.
func extractJSON(text, key string) (string, bool) {
	needle := `"` + key + `"`
	for start := strings.IndexByte(text, '{'); start >= 0; {
		rel := strings.IndexByte(text[start+1:], '}')
		if rel < 0 {
			return "", false
		}
		end := start + 1 + rel
		span := text[start : end+1]
		if strings.Contains(span, needle) && json.Valid([]byte(span)) {
			return span, true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			return "", false
		}
		start = start + 1 + next
	}
	return "", false
}
