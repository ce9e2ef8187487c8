package storage

import (
	"context"

	"github.com/xaenox/sms-sentinel/internal/models"
)

// AlertRecord is one persisted processing outcome. Snippet is clamped to
// 500 chars at write time.
type AlertRecord struct {
	MessageID string
	Sender    string
	Subject   string
	Snippet   string
	Urgency   string
	Reason    string
	SMSSent   bool
	Source    string
}

// Storage is the pipeline's view of persistence: processed-message
// history plus the read-only policy inputs owned by the admin surface.
type Storage interface {
	HasProcessed(ctx context.Context, messageID string) (bool, error)
	Record(ctx context.Context, rec AlertRecord) error

	VIPSenders(ctx context.Context) ([]string, error)
	Keywords(ctx context.Context) ([]string, error)
	QuietHours(ctx context.Context) (models.QuietHours, error)
	RateLimit(ctx context.Context) (models.RateLimit, error)
	CountSMSSentLastHour(ctx context.Context) (int, error)

	Close() error
}
