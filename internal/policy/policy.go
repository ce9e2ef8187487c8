// Package policy exposes the read-mostly pipeline policy (VIP senders,
// keywords, quiet hours, rate limit) through a short-TTL cache so the
// orchestrator does not pay a storage round-trip per message. Writes to
// the underlying settings should be followed by Invalidate so they take
// effect before natural TTL expiry.
package policy

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/xaenox/sms-sentinel/internal/models"
	"github.com/xaenox/sms-sentinel/internal/storage"
)

const (
	keyVIPSenders = "vip_senders"
	keyKeywords   = "keywords"
	keyQuietHours = "quiet_hours"
	keyRateLimit  = "rate_limit"
)

// Store caches policy reads over the persistent store.
type Store struct {
	backend storage.Storage
	cache   *cache.Cache
	ttl     time.Duration
}

func NewStore(backend storage.Storage, ttl time.Duration) *Store {
	return &Store{
		backend: backend,
		cache:   cache.New(ttl, 2*ttl),
		ttl:     ttl,
	}
}

func (s *Store) VIPSenders(ctx context.Context) ([]string, error) {
	if v, ok := s.cache.Get(keyVIPSenders); ok {
		return v.([]string), nil
	}
	senders, err := s.backend.VIPSenders(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(keyVIPSenders, senders, s.ttl)
	return senders, nil
}

func (s *Store) Keywords(ctx context.Context) ([]string, error) {
	if v, ok := s.cache.Get(keyKeywords); ok {
		return v.([]string), nil
	}
	keywords, err := s.backend.Keywords(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(keyKeywords, keywords, s.ttl)
	return keywords, nil
}

func (s *Store) QuietHours(ctx context.Context) (models.QuietHours, error) {
	if v, ok := s.cache.Get(keyQuietHours); ok {
		return v.(models.QuietHours), nil
	}
	quiet, err := s.backend.QuietHours(ctx)
	if err != nil {
		return models.QuietHours{}, err
	}
	s.cache.Set(keyQuietHours, quiet, s.ttl)
	return quiet, nil
}

func (s *Store) RateLimit(ctx context.Context) (models.RateLimit, error) {
	if v, ok := s.cache.Get(keyRateLimit); ok {
		return v.(models.RateLimit), nil
	}
	limit, err := s.backend.RateLimit(ctx)
	if err != nil {
		return models.RateLimit{}, err
	}
	s.cache.Set(keyRateLimit, limit, s.ttl)
	return limit, nil
}

// SMSSentLastHour is deliberately uncached: the rate-limit check must
// observe a monotonically advancing count within a run.
func (s *Store) SMSSentLastHour(ctx context.Context) (int, error) {
	return s.backend.CountSMSSentLastHour(ctx)
}

// Invalidate drops all cached policy entries.
func (s *Store) Invalidate() {
	s.cache.Flush()
}
