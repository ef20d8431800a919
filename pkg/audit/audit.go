// Package audit delivers security-violation records to the external audit
// sink. Delivery is fire-and-forget relative to the request path: a slow or
// failing sink must never delay or fail the client-visible result, so records
// are handed to a background dispatcher over a bounded queue and dropped (with
// a local log line) when the queue is full.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meritpath/secgate/internal/governance"
	"github.com/meritpath/secgate/pkg/domain"
)

// Sink accepts audit records. Implementations are expected to be best-effort;
// errors are logged by the dispatcher and never propagated to callers.
type Sink interface {
	Write(ctx context.Context, record domain.AuditRecord) error
}

// NewRecord stamps a record with an identifier and creation time.
func NewRecord(action, resource, clientID, category string, severity domain.AuditSeverity, details map[string]any) domain.AuditRecord {
	return domain.AuditRecord{
		ID:        uuid.New().String(),
		Action:    action,
		Resource:  resource,
		Details:   details,
		ClientID:  clientID,
		Severity:  severity,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
}

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
)

// DispatcherConfig tunes the async delivery queue.
type DispatcherConfig struct {
	QueueSize    int
	WriteTimeout time.Duration
	// Retry schedules extra delivery attempts per record. The zero value
	// means a single attempt.
	Retry governance.RetryConfig
	// Breaker protects the sink from sustained hammering while it is down;
	// records arriving while the circuit is open are discarded. Defaults are
	// applied when nil.
	Breaker *governance.Breaker
}

// Dispatcher decouples audit writes from the request path. Records are queued
// without back-pressure; the background worker delivers them to the sink with
// a per-write timeout.
type Dispatcher struct {
	sink    Sink
	logger  *slog.Logger
	queue   chan domain.AuditRecord
	timeout time.Duration
	retry   governance.RetryConfig
	breaker *governance.Breaker

	mu      sync.Mutex
	closed  bool
	stop    chan struct{}
	done    chan struct{}
	dropped uint64
}

// NewDispatcher starts the background delivery worker.
func NewDispatcher(sink Sink, logger *slog.Logger, cfg DispatcherConfig) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = governance.NewBreaker(governance.DefaultBreakerConfig())
	}

	d := &Dispatcher{
		sink:    sink,
		logger:  logger,
		queue:   make(chan domain.AuditRecord, queueSize),
		timeout: timeout,
		retry:   cfg.Retry,
		breaker: breaker,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Record enqueues a record for delivery. Never blocks: when the queue is full
// the record is dropped and the drop is logged locally. The enqueue happens
// under the mutex so it cannot race a concurrent Close; the queue channel
// itself is never closed, so a late Record can never panic.
func (d *Dispatcher) Record(record domain.AuditRecord) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	select {
	case d.queue <- record:
		d.mu.Unlock()
		return
	default:
	}
	d.dropped++
	dropped := d.dropped
	d.mu.Unlock()

	d.logger.Warn("audit queue full, record dropped",
		"action", record.Action,
		"client_id", record.ClientID,
		"dropped_total", dropped,
	)
}

// Dropped reports how many records have been discarded due to a full queue.
func (d *Dispatcher) Dropped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Close stops accepting records and waits for the worker to drain the queue.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.stop)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case record := <-d.queue:
			d.deliver(record)
		case <-d.stop:
			// Drain whatever was queued before shutdown.
			for {
				select {
				case record := <-d.queue:
					d.deliver(record)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(record domain.AuditRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.breaker.Do(ctx, func(ctx context.Context) error {
		return governance.Retry(ctx, d.retry, func(ctx context.Context) error {
			return d.sink.Write(ctx, record)
		})
	})
	switch {
	case errors.Is(err, governance.ErrCircuitOpen):
		d.logger.Warn("audit sink circuit open, record discarded",
			"record_id", record.ID,
			"action", record.Action,
		)
	case err != nil:
		// Best-effort delivery: log locally, never escalate.
		d.logger.Error("audit write failed",
			"record_id", record.ID,
			"action", record.Action,
			"error", err,
		)
	}
}

// LogSink records audit events through the process logger. Used when no
// external sink endpoint is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink builds a sink over the supplied logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Write implements Sink.
func (s *LogSink) Write(_ context.Context, record domain.AuditRecord) error {
	s.logger.Warn("audit event",
		"record_id", record.ID,
		"action", record.Action,
		"resource", record.Resource,
		"client_id", record.ClientID,
		"severity", string(record.Severity),
		"category", record.Category,
	)
	return nil
}
