// Package pipeline drives one run over a batch of messages:
// fetch -> normalize -> dedup -> classify -> gate -> dispatch -> record.
// Messages are processed sequentially so the rate-limit check always
// observes a consistent count of sends so far; whole runs are serialized
// by TryRun.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/xaenox/sms-sentinel/internal/gate"
	"github.com/xaenox/sms-sentinel/internal/models"
	"github.com/xaenox/sms-sentinel/internal/policy"
	"github.com/xaenox/sms-sentinel/internal/rules"
	"github.com/xaenox/sms-sentinel/internal/sms"
	"github.com/xaenox/sms-sentinel/internal/source"
	"github.com/xaenox/sms-sentinel/internal/storage"
	"go.uber.org/zap"
)

// ErrRunInProgress is returned by TryRun when another run holds the
// pipeline. The scheduler skips the tick instead of stacking runs.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// UrgencyClassifier is the classifier stage as the orchestrator sees it:
// total, never failing. The three-tier cascade satisfies it.
type UrgencyClassifier interface {
	Classify(ctx context.Context, msg models.Message) models.Classification
}

// Pipeline holds the injected collaborators for the triage flow. Build
// one at process start and pass it to whatever trigger needs it; there is
// no ambient global instance.
type Pipeline struct {
	source     source.Source
	demo       source.Source
	classifier UrgencyClassifier
	gate       *gate.Gate
	sender     sms.Sender
	policy     *policy.Store
	store      storage.Storage
	alertPhone string
	logger     *zap.Logger

	runMu sync.Mutex
}

func New(
	src source.Source,
	clf UrgencyClassifier,
	g *gate.Gate,
	sender sms.Sender,
	pol *policy.Store,
	store storage.Storage,
	alertPhone string,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		source:     src,
		demo:       source.NewDemo(),
		classifier: clf,
		gate:       g,
		sender:     sender,
		policy:     pol,
		store:      store,
		alertPhone: alertPhone,
		logger:     logger,
	}
}

// TryRun executes one run unless another is already in flight.
func (p *Pipeline) TryRun(ctx context.Context, maxMessages int, demoMode bool) (models.RunResult, error) {
	if !p.runMu.TryLock() {
		return models.RunResult{}, ErrRunInProgress
	}
	defer p.runMu.Unlock()
	return p.Run(ctx, maxMessages, demoMode)
}

// Run executes the full pipeline over one batch. A failure processing an
// individual message is logged and skipped; only a batch-level failure
// (the source itself unreachable) surfaces as an error.
func (p *Pipeline) Run(ctx context.Context, maxMessages int, demoMode bool) (models.RunResult, error) {
	result := models.RunResult{RunID: uuid.New().String()}

	src := p.source
	if demoMode {
		src = p.demo
	}

	messages, err := src.FetchUnprocessed(ctx, maxMessages)
	if err != nil {
		return result, fmt.Errorf("fetch messages: %w", err)
	}
	result.MessagesChecked = len(messages)

	if len(messages) == 0 {
		p.logger.Info("No messages to process", zap.String("run_id", result.RunID))
		return result, nil
	}

	vips, keywords := p.loadRules(ctx)

	for _, msg := range messages {
		// Pre-emptive duplicate skip saves the classifier call; the
		// gate re-checks at dispatch time anyway.
		if !demoMode && p.gate.Seen(ctx, msg.ID) {
			p.logger.Debug("Skipping already-processed message",
				zap.String("message_id", msg.ID))
			continue
		}

		res := p.processMessage(ctx, msg, vips, keywords, demoMode)
		result.Results = append(result.Results, res)
		if res.SMSSent {
			result.AlertsSent++
		}
	}

	p.logger.Info("Pipeline run complete",
		zap.String("run_id", result.RunID),
		zap.Int("messages_checked", result.MessagesChecked),
		zap.Int("alerts_sent", result.AlertsSent))

	return result, nil
}

func (p *Pipeline) processMessage(ctx context.Context, msg models.Message, vips, keywords []string, demoMode bool) models.AlertResult {
	var cls models.Classification
	if match, ok := rules.Check(msg, vips, keywords); ok {
		cls = match.Classification()
		p.logger.Info("Fast-path rule match",
			zap.String("message_id", msg.ID),
			zap.String("reason", cls.Reason))
	} else {
		cls = p.classifier.Classify(ctx, msg)
	}

	p.logger.Info("Classification",
		zap.String("message_id", msg.ID),
		zap.String("urgency", cls.Urgency),
		zap.String("reason", cls.Reason))

	smsSent := false
	if cls.Urgency == models.Urgent {
		if demoMode {
			// Demo runs mark success without touching Twilio.
			smsSent = true
		} else {
			smsSent = p.dispatch(ctx, msg, cls)
		}
	}

	if !demoMode {
		p.record(ctx, msg, cls, smsSent)
	}

	return models.AlertResult{
		MessageID: msg.ID,
		Sender:    msg.Sender,
		Subject:   msg.Subject,
		Urgency:   cls.Urgency,
		Reason:    cls.Reason,
		SMSSent:   smsSent,
	}
}

// dispatch consults the gate and, if allowed, formats and sends the SMS.
// Rule-matched and LLM-driven urgent messages are gated identically.
func (p *Pipeline) dispatch(ctx context.Context, msg models.Message, cls models.Classification) bool {
	decision := p.gate.Decide(ctx, msg.ID)
	if !decision.Allowed {
		p.logger.Info("Dispatch blocked",
			zap.String("message_id", msg.ID),
			zap.String("reason", decision.BlockedReason))
		return false
	}

	body := cls.SMSMessage
	if body == "" {
		body = sms.Format(msg)
	}

	sent := p.sender.Send(ctx, p.alertPhone, body)
	if !sent {
		p.logger.Warn("Failed to send SMS alert", zap.String("message_id", msg.ID))
	}
	return sent
}

func (p *Pipeline) record(ctx context.Context, msg models.Message, cls models.Classification, smsSent bool) {
	err := p.store.Record(ctx, storage.AlertRecord{
		MessageID: msg.ID,
		Sender:    msg.Sender,
		Subject:   msg.Subject,
		Snippet:   msg.Body,
		Urgency:   cls.Urgency,
		Reason:    cls.Reason,
		SMSSent:   smsSent,
		Source:    msg.Source,
	})
	if err != nil {
		p.logger.Error("Failed to record outcome",
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}
	// Remember regardless of persist outcome so redelivery is caught
	// through a storage outage.
	p.gate.Remember(msg.ID)
}

func (p *Pipeline) loadRules(ctx context.Context) (vips, keywords []string) {
	var err error
	if vips, err = p.policy.VIPSenders(ctx); err != nil {
		p.logger.Warn("Could not fetch VIP senders", zap.Error(err))
		vips = nil
	}
	if keywords, err = p.policy.Keywords(ctx); err != nil {
		p.logger.Warn("Could not fetch keywords", zap.Error(err))
		keywords = nil
	}
	return vips, keywords
}
