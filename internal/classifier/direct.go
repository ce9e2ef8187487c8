package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/sms-sentinel/internal/models"
	"go.uber.org/zap"
)

const directSystemPrompt = "You are a message urgency classifier. Respond only with valid JSON."

const directPromptTemplate = `You are a message urgency classifier. Analyze the message and determine if it requires immediate attention.

Consider these factors for URGENT classification:
- Time-sensitive deadlines (today, tomorrow, ASAP)
- Emergency or crisis situations
- Important people (boss, family, professors)
- Financial matters requiring immediate action
- Health or safety concerns
- Job/interview related urgent matters

Consider these factors for NOT_URGENT:
- Marketing/promotional messages
- Newsletters and subscriptions
- Social media notifications
- General updates that can wait
- Automated system notifications

Message Details:
- From: %s
- Subject: %s
- Preview: %s

Respond with ONLY a JSON object in this exact format:
{"urgency": "URGENT" or "NOT_URGENT", "reason": "one line explanation"}`

// chatCompleter is the slice of the OpenAI client the classifiers use.
// *openai.Client satisfies it; tests substitute a stub.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Direct is the single-call classifier tier: one chat completion with a
// fixed prompt, low temperature and a small token budget, parsed with a
// strict JSON decode.
type Direct struct {
	client    chatCompleter
	model     string
	maxTokens int
	logger    *zap.Logger
}

func NewDirect(client *openai.Client, model string, maxTokens int, logger *zap.Logger) *Direct {
	return &Direct{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

func (d *Direct) Classify(ctx context.Context, msg models.Message) (models.Classification, error) {
	prompt := fmt.Sprintf(directPromptTemplate, msg.Sender, msg.Subject, msg.Body)

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: directSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   d.maxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		return models.Classification{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Classification{}, fmt.Errorf("chat completion returned no choices")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	d.logger.Debug("direct classifier response", zap.String("raw", raw))

	return parseClassification(raw)
}

// parseClassification decodes a {"urgency": ..., "reason": ...} object.
// A decode failure or a missing urgency key is a classification failure
// fed back into the cascade, never an exception to the caller.
func parseClassification(raw string) (models.Classification, error) {
	var parsed struct {
		Urgency string `json:"urgency"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return models.Classification{}, fmt.Errorf("parse classifier response: %w", err)
	}
	if parsed.Urgency == "" {
		return models.Classification{}, fmt.Errorf("classifier response missing urgency key")
	}

	urgency := parsed.Urgency
	if urgency != models.Urgent {
		urgency = models.NotUrgent
	}
	reason := parsed.Reason
	if reason == "" {
		reason = "No reason provided"
	}

	return models.Classification{Urgency: urgency, Reason: reason}, nil
}
