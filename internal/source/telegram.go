package source

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/sms-sentinel/internal/gate"
	"github.com/xaenox/sms-sentinel/internal/models"
	"github.com/xaenox/sms-sentinel/internal/normalize"
	"go.uber.org/zap"
)

// telegramBuffer bounds how many normalized messages wait between
// pipeline ticks before the oldest are dropped by backpressure.
const telegramBuffer = 256

// seenUpdateCapacity bounds the ring of already-seen update IDs. Exact
// redelivery of an update is filtered here, by update ID, because the
// message's persistence key carries a wall-clock suffix and cannot serve
// that purpose.
const seenUpdateCapacity = 1000

// Telegram receives bot updates via long polling and queues normalized
// messages for the pipeline to drain.
type Telegram struct {
	api    *tgbotapi.BotAPI
	queue  chan models.Message
	seen   *gate.Ring
	logger *zap.Logger
}

func NewTelegram(token string, logger *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Telegram{
		api:    api,
		queue:  make(chan models.Message, telegramBuffer),
		seen:   gate.NewRing(seenUpdateCapacity),
		logger: logger,
	}, nil
}

// Start begins long polling. Returns when ctx is cancelled.
func (t *Telegram) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(update)
		}
	}
}

func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	updateKey := fmt.Sprintf("upd_%d", update.UpdateID)
	if t.seen.Contains(updateKey) {
		t.logger.Debug("Duplicate update skipped", zap.Int("update_id", update.UpdateID))
		return
	}
	t.seen.Insert(updateKey)

	msg, ok := normalize.FromTelegram(update, time.Now())
	if !ok {
		return
	}

	select {
	case t.queue <- msg:
	default:
		t.logger.Warn("Telegram queue full, dropping message",
			zap.String("message_id", msg.ID))
	}
}

// FetchUnprocessed drains up to maxCount queued messages without
// blocking. An empty batch is normal between ticks.
func (t *Telegram) FetchUnprocessed(_ context.Context, maxCount int) ([]models.Message, error) {
	var messages []models.Message
	for len(messages) < maxCount {
		select {
		case msg := <-t.queue:
			messages = append(messages, msg)
		default:
			return messages, nil
		}
	}
	return messages, nil
}
