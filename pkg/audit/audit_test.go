package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meritpath/secgate/internal/governance"
	"github.com/meritpath/secgate/pkg/domain"
)

type recordingSink struct {
	mu      sync.Mutex
	records []domain.AuditRecord
	err     error
	block   chan struct{}
}

func (s *recordingSink) Write(ctx context.Context, record domain.AuditRecord) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
	return s.err
}

func (s *recordingSink) all() []domain.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditRecord(nil), s.records...)
}

func TestNewRecord(t *testing.T) {
	record := NewRecord("security_scan_blocked", "rich_text", "1.2.3.4", "security",
		domain.AuditSeverityHigh, map[string]any{"issues": []string{"xss_suspected"}})

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "security_scan_blocked", record.Action)
	assert.Equal(t, "rich_text", record.Resource)
	assert.Equal(t, "1.2.3.4", record.ClientID)
	assert.Equal(t, domain.AuditSeverityHigh, record.Severity)
	assert.WithinDuration(t, time.Now().UTC(), record.CreatedAt, time.Minute)
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, nil, DispatcherConfig{QueueSize: 16})

	for i := 0; i < 5; i++ {
		d.Record(NewRecord("a", "r", "c", "security", domain.AuditSeverityLow, nil))
	}
	d.Close()

	assert.Len(t, sink.all(), 5)
	assert.Zero(t, d.Dropped())
}

// A full queue drops, it never blocks the caller.
func TestDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &recordingSink{block: block}
	d := NewDispatcher(sink, nil, DispatcherConfig{QueueSize: 1, WriteTimeout: time.Minute})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			d.Record(NewRecord("a", "r", "c", "security", domain.AuditSeverityLow, nil))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	assert.Greater(t, d.Dropped(), uint64(0))

	close(block)
	d.Close()
}

func TestDispatcherSinkErrorsAreSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink down")}
	d := NewDispatcher(sink, nil, DispatcherConfig{QueueSize: 4})

	d.Record(NewRecord("a", "r", "c", "security", domain.AuditSeverityMedium, nil))
	d.Close()

	// The write happened and the error stayed local.
	assert.Len(t, sink.all(), 1)
}

func TestDispatcherRecordAfterClose(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, nil, DispatcherConfig{})
	d.Close()

	// Ignored, no panic.
	d.Record(NewRecord("a", "r", "c", "security", domain.AuditSeverityLow, nil))
	d.Close()

	assert.Empty(t, sink.all())
}

// Producers racing shutdown must never panic; records accepted before Close
// wins the race are drained, later ones are silently ignored.
func TestDispatcherRecordCloseRace(t *testing.T) {
	for i := 0; i < 100; i++ {
		sink := &recordingSink{}
		d := NewDispatcher(sink, nil, DispatcherConfig{QueueSize: 4})

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 8; j++ {
					d.Record(NewRecord("a", "r", "c", "security", domain.AuditSeverityLow, nil))
				}
			}()
		}
		d.Close()
		wg.Wait()
	}
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	sink := sinkFunc(func(ctx context.Context, record domain.AuditRecord) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	d := NewDispatcher(sink, nil, DispatcherConfig{
		QueueSize: 4,
		Retry: governance.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
		},
	})
	d.Record(NewRecord("a", "r", "c", "security", domain.AuditSeverityLow, nil))
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, calls)
}

// Once the breaker opens, queued records are discarded without touching the
// sink until the cooldown elapses.
func TestDispatcherBreakerSuppressesDeliveries(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	sink := sinkFunc(func(ctx context.Context, record domain.AuditRecord) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return errors.New("sink down")
	})

	d := NewDispatcher(sink, nil, DispatcherConfig{
		QueueSize: 8,
		Breaker: governance.NewBreaker(governance.BreakerConfig{
			MaxFailures: 1,
			Cooldown:    time.Hour,
		}),
	})
	for i := 0; i < 5; i++ {
		d.Record(NewRecord("a", "r", "c", "security", domain.AuditSeverityLow, nil))
	}
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls, "only the first delivery should reach the sink")
}

type sinkFunc func(ctx context.Context, record domain.AuditRecord) error

func (f sinkFunc) Write(ctx context.Context, record domain.AuditRecord) error {
	return f(ctx, record)
}

func TestLogSink(t *testing.T) {
	s := NewLogSink(nil)
	err := s.Write(context.Background(), NewRecord("a", "r", "c", "security", domain.AuditSeverityLow, nil))
	require.NoError(t, err)
}
