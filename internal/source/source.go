// Package source provides the pipeline's inbound message feeds. Each
// source hands the orchestrator canonical Messages; anything
// provider-specific stays behind FetchUnprocessed.
package source

import (
	"context"

	"github.com/xaenox/sms-sentinel/internal/models"
)

// Source is the narrow fetch interface the orchestrator consumes.
type Source interface {
	FetchUnprocessed(ctx context.Context, maxCount int) ([]models.Message, error)
}
