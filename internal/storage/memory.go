package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/xaenox/sms-sentinel/internal/models"
)

// MemoryStorage keeps everything in process. Used for local development
// without a database and by tests.
type MemoryStorage struct {
	mu         sync.RWMutex
	records    map[string]AlertRecord
	sentAt     []time.Time
	vipSenders []string
	keywords   []string
	quietHours models.QuietHours
	rateLimit  models.RateLimit
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]AlertRecord),
	}
}

func (s *MemoryStorage) HasProcessed(ctx context.Context, messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[messageID]
	return ok, nil
}

func (s *MemoryStorage) Record(ctx context.Context, rec AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.MessageID]; ok {
		return nil
	}
	if len(rec.Snippet) > maxSnippetLen {
		rec.Snippet = rec.Snippet[:maxSnippetLen]
	}
	s.records[rec.MessageID] = rec
	if rec.SMSSent {
		s.sentAt = append(s.sentAt, time.Now())
	}
	return nil
}

func (s *MemoryStorage) VIPSenders(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.vipSenders...), nil
}

func (s *MemoryStorage) Keywords(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.keywords...), nil
}

func (s *MemoryStorage) QuietHours(ctx context.Context) (models.QuietHours, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quietHours, nil
}

func (s *MemoryStorage) RateLimit(ctx context.Context) (models.RateLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rateLimit, nil
}

func (s *MemoryStorage) CountSMSSentLastHour(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-time.Hour)
	count := 0
	for _, t := range s.sentAt {
		if t.After(cutoff) {
			count++
		}
	}
	return count, nil
}

// AddVIPSender registers a VIP rule, lowercased the way the admin CRUD
// stores it.
func (s *MemoryStorage) AddVIPSender(rule string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vipSenders = append(s.vipSenders, strings.ToLower(strings.TrimSpace(rule)))
}

// AddKeyword registers an urgent keyword, lowercased.
func (s *MemoryStorage) AddKeyword(keyword string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywords = append(s.keywords, strings.ToLower(strings.TrimSpace(keyword)))
}

func (s *MemoryStorage) SetQuietHours(q models.QuietHours) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quietHours = q
}

func (s *MemoryStorage) SetRateLimit(r models.RateLimit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimit = r
}

// MarkSent records one SMS send at the given time. Tests use it to
// pre-fill the trailing-hour window.
func (s *MemoryStorage) MarkSent(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentAt = append(s.sentAt, at)
}

func (s *MemoryStorage) Close() error {
	return nil
}
