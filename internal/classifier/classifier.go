// Package classifier decides message urgency. Three strategies are tried
// in order: a multi-agent crew pipeline, a single-call direct classifier,
// and a pure keyword heuristic. Each is a fallback of the previous; the
// cascade as a whole never fails.
package classifier

import (
	"context"

	"github.com/xaenox/sms-sentinel/internal/models"
	"go.uber.org/zap"
)

// Classifier is one urgency-classification strategy. An error from
// Classify means "this strategy could not produce a result", not that the
// message is unclassifiable; callers fall through to the next strategy.
type Classifier interface {
	Classify(ctx context.Context, msg models.Message) (models.Classification, error)
}

// Cascade tries an ordered list of strategies and returns the first
// result. The final strategy must be infallible (the heuristic is); the
// cascade itself never returns an error to its caller.
type Cascade struct {
	tiers  []Classifier
	logger *zap.Logger
}

func NewCascade(logger *zap.Logger, tiers ...Classifier) *Cascade {
	return &Cascade{tiers: tiers, logger: logger}
}

// Classify runs the strategy chain. Whatever a backend returned, the
// result is normalized so urgency is exactly URGENT or NOT_URGENT and the
// reason is never empty.
func (c *Cascade) Classify(ctx context.Context, msg models.Message) models.Classification {
	for i, tier := range c.tiers {
		result, err := tier.Classify(ctx, msg)
		if err != nil {
			c.logger.Warn("classifier tier failed, falling back",
				zap.Int("tier", i+1),
				zap.String("message_id", msg.ID),
				zap.Error(err))
			continue
		}
		return normalize(result)
	}

	// Unreachable as long as the last tier is the heuristic, which
	// cannot fail. Kept as a hard floor.
	return models.Classification{
		Urgency: models.NotUrgent,
		Reason:  "No classifier available",
	}
}

func normalize(c models.Classification) models.Classification {
	if c.Urgency != models.Urgent {
		c.Urgency = models.NotUrgent
	}
	if c.Reason == "" {
		c.Reason = "No reason provided"
	}
	return c
}
