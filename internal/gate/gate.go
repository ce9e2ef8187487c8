// Package gate decides, per urgent classification, whether an SMS may
// actually be sent: deduplication, quiet hours, rate limit, in that
// order. Policy reads fail open; an unreachable policy store must never
// silently suppress all alerts.
package gate

import (
	"context"

	"github.com/xaenox/sms-sentinel/internal/models"
	"go.uber.org/zap"
)

// ProcessedChecker answers whether a message ID has already been
// processed (persistent store lookup).
type ProcessedChecker interface {
	HasProcessed(ctx context.Context, messageID string) (bool, error)
}

// PolicySource provides the dispatch policy inputs. Implementations are
// expected to be cheap (cached); the gate consults them per decision.
type PolicySource interface {
	QuietHours(ctx context.Context) (models.QuietHours, error)
	RateLimit(ctx context.Context) (models.RateLimit, error)
	SMSSentLastHour(ctx context.Context) (int, error)
}

// recentRingCapacity bounds the in-process dedup fallback used when the
// persistent store cannot be reached.
const recentRingCapacity = 1000

// Gate is the dispatch gate. Clock is injectable for tests.
type Gate struct {
	checker ProcessedChecker
	policy  PolicySource
	recent  *Ring
	hour    func() int
	logger  *zap.Logger
}

func New(checker ProcessedChecker, policy PolicySource, hour func() int, logger *zap.Logger) *Gate {
	return &Gate{
		checker: checker,
		policy:  policy,
		recent:  NewRing(recentRingCapacity),
		hour:    hour,
		logger:  logger,
	}
}

// Decide runs the three checks for one urgent message. NOT_URGENT
// messages never reach this point.
func (g *Gate) Decide(ctx context.Context, messageID string) models.DispatchDecision {
	if g.Seen(ctx, messageID) {
		return models.DispatchDecision{BlockedReason: models.BlockedDuplicate}
	}

	if quiet, err := g.policy.QuietHours(ctx); err != nil {
		g.logger.Warn("quiet-hours read failed, failing open", zap.Error(err))
	} else if quiet.Contains(g.hour()) {
		return models.DispatchDecision{BlockedReason: models.BlockedQuietHours}
	}

	if limit, err := g.policy.RateLimit(ctx); err != nil {
		g.logger.Warn("rate-limit read failed, failing open", zap.Error(err))
	} else if limit.Enabled {
		sent, err := g.policy.SMSSentLastHour(ctx)
		if err != nil {
			g.logger.Warn("sent-count read failed, failing open", zap.Error(err))
		} else if sent >= limit.MaxPerHour {
			return models.DispatchDecision{BlockedReason: models.BlockedRateLimited}
		}
	}

	return models.DispatchDecision{Allowed: true}
}

// Seen reports whether the message ID is already known-processed. Used
// both for the gate's duplicate check and pre-emptively by the
// orchestrator to skip wasted classifier calls. When the store is
// unreachable the bounded in-process ring answers instead.
func (g *Gate) Seen(ctx context.Context, messageID string) bool {
	processed, err := g.checker.HasProcessed(ctx, messageID)
	if err != nil {
		g.logger.Warn("processed lookup failed, using recent-ID ring",
			zap.String("message_id", messageID),
			zap.Error(err))
		return g.recent.Contains(messageID)
	}
	return processed
}

// Remember records a processed ID in the fallback ring. Called after the
// outcome is persisted (or after a persist attempt fails) so redelivery
// is caught even through a storage outage.
func (g *Gate) Remember(messageID string) {
	g.recent.Insert(messageID)
}
