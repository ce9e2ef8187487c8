package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/sms-sentinel/internal/gate"
	"github.com/xaenox/sms-sentinel/internal/models"
	"github.com/xaenox/sms-sentinel/internal/policy"
	"github.com/xaenox/sms-sentinel/internal/storage"
	"go.uber.org/zap"
)

type stubSource struct {
	messages []models.Message
	err      error
}

func (s *stubSource) FetchUnprocessed(_ context.Context, maxCount int) ([]models.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.messages) > maxCount {
		return s.messages[:maxCount], nil
	}
	return s.messages, nil
}

// blockingSource parks the first FetchUnprocessed until released, so a
// second TryRun can be attempted while the first is mid-flight.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
	first   atomic.Bool
}

func (s *blockingSource) FetchUnprocessed(_ context.Context, _ int) ([]models.Message, error) {
	if s.first.CompareAndSwap(false, true) {
		close(s.started)
		<-s.release
	}
	return nil, nil
}

type stubClassifier struct {
	calls  int32
	result models.Classification
}

func (s *stubClassifier) Classify(_ context.Context, _ models.Message) models.Classification {
	atomic.AddInt32(&s.calls, 1)
	return s.result
}

type recordingSender struct {
	to     []string
	bodies []string
	ok     bool
}

func (s *recordingSender) Send(_ context.Context, toNumber, body string) bool {
	s.to = append(s.to, toNumber)
	s.bodies = append(s.bodies, body)
	return s.ok
}

type fixture struct {
	pipeline *Pipeline
	backend  *storage.MemoryStorage
	sender   *recordingSender
	clf      *stubClassifier
}

func newFixture(src *stubSource, cls models.Classification) *fixture {
	backend := storage.NewMemoryStorage()
	pol := policy.NewStore(backend, time.Minute)
	g := gate.New(backend, pol, func() int { return 12 }, zap.NewNop())
	sender := &recordingSender{ok: true}
	clf := &stubClassifier{result: cls}

	p := New(src, clf, g, sender, pol, backend, "+15559998888", zap.NewNop())
	return &fixture{pipeline: p, backend: backend, sender: sender, clf: clf}
}

func bossEmail() models.Message {
	return models.Message{
		ID:      "msg-001",
		Source:  "email",
		Sender:  "Sarah Chen <boss@company.com>",
		Subject: "Quick sync needed",
		Body:    "Can you hop on a call in 10 minutes?",
	}
}

func TestRunVIPSenderFastPath(t *testing.T) {
	src := &stubSource{messages: []models.Message{bossEmail()}}
	f := newFixture(src, models.Classification{Urgency: models.NotUrgent, Reason: "should not be consulted"})
	f.backend.AddVIPSender("company.com")

	result, err := f.pipeline.Run(context.Background(), 10, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.MessagesChecked)
	assert.Equal(t, 1, result.AlertsSent)
	require.Len(t, result.Results, 1)
	assert.Equal(t, models.Urgent, result.Results[0].Urgency)
	assert.Equal(t, "VIP sender: company.com", result.Results[0].Reason)
	assert.True(t, result.Results[0].SMSSent)

	// Rule match bypasses the classifier entirely.
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.clf.calls))

	require.Len(t, f.sender.bodies, 1)
	assert.Equal(t, "+15559998888", f.sender.to[0])
	assert.Equal(t, "URGENT from Sarah Chen: Quick sync needed", f.sender.bodies[0])
}

func TestRunNotUrgentSkipsDispatch(t *testing.T) {
	src := &stubSource{messages: []models.Message{{
		ID:      "msg-002",
		Source:  "email",
		Sender:  "Newsletter <news@store.com>",
		Subject: "50% off this weekend!",
		Body:    "Don't miss our biggest sale of the year.",
	}}}
	f := newFixture(src, models.Classification{Urgency: models.NotUrgent, Reason: "Promotional content"})

	result, err := f.pipeline.Run(context.Background(), 10, false)
	require.NoError(t, err)

	assert.Equal(t, 0, result.AlertsSent)
	require.Len(t, result.Results, 1)
	assert.Equal(t, models.NotUrgent, result.Results[0].Urgency)
	assert.False(t, result.Results[0].SMSSent)
	assert.Empty(t, f.sender.bodies)

	// The outcome is still recorded so the message is not re-triaged.
	processed, err := f.backend.HasProcessed(context.Background(), "msg-002")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestRunCrossRunIdempotence(t *testing.T) {
	src := &stubSource{messages: []models.Message{bossEmail()}}
	f := newFixture(src, models.Classification{Urgency: models.Urgent, Reason: "Boss needs you"})

	first, err := f.pipeline.Run(context.Background(), 10, false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.AlertsSent)

	// Same message delivered again on the next run is skipped outright.
	second, err := f.pipeline.Run(context.Background(), 10, false)
	require.NoError(t, err)
	assert.Equal(t, 1, second.MessagesChecked)
	assert.Equal(t, 0, second.AlertsSent)
	assert.Empty(t, second.Results)

	assert.Len(t, f.sender.bodies, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.clf.calls))
}

func TestRunUsesClassifierSMSMessage(t *testing.T) {
	src := &stubSource{messages: []models.Message{bossEmail()}}
	f := newFixture(src, models.Classification{
		Urgency:    models.Urgent,
		Reason:     "Time-sensitive request",
		SMSMessage: "URGENT from Sarah: sync in 10 min",
	})

	_, err := f.pipeline.Run(context.Background(), 10, false)
	require.NoError(t, err)

	require.Len(t, f.sender.bodies, 1)
	assert.Equal(t, "URGENT from Sarah: sync in 10 min", f.sender.bodies[0])
}

func TestRunRateLimited(t *testing.T) {
	src := &stubSource{messages: []models.Message{bossEmail()}}
	f := newFixture(src, models.Classification{Urgency: models.Urgent, Reason: "Boss needs you"})
	f.backend.SetRateLimit(models.RateLimit{Enabled: true, MaxPerHour: 2})
	f.backend.MarkSent(time.Now())
	f.backend.MarkSent(time.Now())

	result, err := f.pipeline.Run(context.Background(), 10, false)
	require.NoError(t, err)

	assert.Equal(t, 0, result.AlertsSent)
	require.Len(t, result.Results, 1)
	assert.Equal(t, models.Urgent, result.Results[0].Urgency)
	assert.False(t, result.Results[0].SMSSent)
	assert.Empty(t, f.sender.bodies)

	// Blocked outcome is still recorded.
	processed, err := f.backend.HasProcessed(context.Background(), "msg-001")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestRunQuietHoursBlocksRuleMatchToo(t *testing.T) {
	src := &stubSource{messages: []models.Message{bossEmail()}}

	backend := storage.NewMemoryStorage()
	backend.AddVIPSender("company.com")
	backend.SetQuietHours(models.QuietHours{Enabled: true, StartHour: 22, EndHour: 7})

	pol := policy.NewStore(backend, time.Minute)
	g := gate.New(backend, pol, func() int { return 23 }, zap.NewNop())
	sender := &recordingSender{ok: true}
	clf := &stubClassifier{result: models.Classification{Urgency: models.NotUrgent}}
	p := New(src, clf, g, sender, pol, backend, "+15559998888", zap.NewNop())

	result, err := p.Run(context.Background(), 10, false)
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.Equal(t, models.Urgent, result.Results[0].Urgency)
	assert.False(t, result.Results[0].SMSSent)
	assert.Empty(t, sender.bodies)
}

func TestRunSendFailureReported(t *testing.T) {
	src := &stubSource{messages: []models.Message{bossEmail()}}
	f := newFixture(src, models.Classification{Urgency: models.Urgent, Reason: "Boss needs you"})
	f.sender.ok = false

	result, err := f.pipeline.Run(context.Background(), 10, false)
	require.NoError(t, err)

	assert.Equal(t, 0, result.AlertsSent)
	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].SMSSent)
	assert.Len(t, f.sender.bodies, 1, "send was attempted")
}

func TestRunDemoModeHasNoSideEffects(t *testing.T) {
	// Live source would fail if touched; demo mode must not reach it.
	src := &stubSource{err: assert.AnError}
	f := newFixture(src, models.Classification{Urgency: models.Urgent, Reason: "Looks important"})

	result, err := f.pipeline.Run(context.Background(), 10, true)
	require.NoError(t, err)

	assert.Equal(t, 10, result.MessagesChecked)
	assert.Equal(t, 10, result.AlertsSent)
	for _, res := range result.Results {
		assert.True(t, res.SMSSent)
	}

	// No real sends and no persistence in demo mode.
	assert.Empty(t, f.sender.bodies)
	for _, res := range result.Results {
		processed, err := f.backend.HasProcessed(context.Background(), res.MessageID)
		require.NoError(t, err)
		assert.False(t, processed)
	}
}

func TestRunSourceFailureSurfaces(t *testing.T) {
	src := &stubSource{err: assert.AnError}
	f := newFixture(src, models.Classification{Urgency: models.NotUrgent})

	_, err := f.pipeline.Run(context.Background(), 10, false)
	assert.Error(t, err)
}

func TestRunRespectsMaxMessages(t *testing.T) {
	msgs := make([]models.Message, 5)
	for i := range msgs {
		msgs[i] = models.Message{
			ID:     "bulk-" + string(rune('a'+i)),
			Source: "email",
			Sender: "someone@example.com",
		}
	}
	src := &stubSource{messages: msgs}
	f := newFixture(src, models.Classification{Urgency: models.NotUrgent, Reason: "Nothing pressing"})

	result, err := f.pipeline.Run(context.Background(), 3, false)
	require.NoError(t, err)
	assert.Equal(t, 3, result.MessagesChecked)
}

func TestTryRunRejectsConcurrentRun(t *testing.T) {
	src := &blockingSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}

	backend := storage.NewMemoryStorage()
	pol := policy.NewStore(backend, time.Minute)
	g := gate.New(backend, pol, func() int { return 12 }, zap.NewNop())
	p := New(src, &stubClassifier{}, g, &recordingSender{ok: true}, pol, backend, "+15559998888", zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := p.TryRun(context.Background(), 10, false)
		done <- err
	}()

	<-src.started
	_, err := p.TryRun(context.Background(), 10, false)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(src.release)
	require.NoError(t, <-done)

	// Lock is released once the first run finishes.
	_, err = p.Run(context.Background(), 10, false)
	require.NoError(t, err)
}
