package governance

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState represents the state of a circuit breaker.
type BreakerState string

const (
	// BreakerClosed admits all calls.
	BreakerClosed BreakerState = "closed"
	// BreakerOpen rejects calls until the cooldown elapses.
	BreakerOpen BreakerState = "open"
	// BreakerHalfOpen admits a limited number of probe calls.
	BreakerHalfOpen BreakerState = "half-open"
)

// BreakerConfig tunes the consecutive-failure circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the consecutive failure count that opens the circuit.
	MaxFailures int
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration
	// HalfOpenProbes is how many probe calls may run while half-open; they
	// must all succeed for the circuit to close again.
	HalfOpenProbes int
}

// DefaultBreakerConfig returns the defaults used for the audit sink.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:    5,
		Cooldown:       30 * time.Second,
		HalfOpenProbes: 2,
	}
}

// Breaker protects a flaky downstream from sustained hammering: after
// MaxFailures consecutive errors calls fail fast with ErrCircuitOpen until the
// cooldown elapses, then a small number of probes decides whether to close.
type Breaker struct {
	mu     sync.Mutex
	config BreakerConfig
	now    func() time.Time

	state     BreakerState
	failures  int
	successes int
	probes    int
	openedAt  time.Time
}

// NewBreaker creates a breaker in the closed state.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = DefaultBreakerConfig().MaxFailures
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultBreakerConfig().Cooldown
	}
	if config.HalfOpenProbes <= 0 {
		config.HalfOpenProbes = DefaultBreakerConfig().HalfOpenProbes
	}
	return &Breaker{
		config: config,
		now:    time.Now,
		state:  BreakerClosed,
	}
}

// Do runs fn under breaker protection. While open it returns ErrCircuitOpen
// without invoking fn; fn's own error is returned otherwise.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.config.Cooldown {
			return ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		b.successes = 0
		b.probes = 1
		return nil
	default: // half-open
		if b.probes >= b.config.HalfOpenProbes {
			return ErrCircuitOpen
		}
		b.probes++
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		switch b.state {
		case BreakerHalfOpen:
			// A failed probe reopens immediately.
			b.open()
		case BreakerClosed:
			if b.failures >= b.config.MaxFailures {
				b.open()
			}
		}
		return
	}

	b.failures = 0
	if b.state == BreakerHalfOpen {
		b.successes++
		if b.successes >= b.config.HalfOpenProbes {
			b.state = BreakerClosed
			b.probes = 0
		}
	}
}

func (b *Breaker) open() {
	b.state = BreakerOpen
	b.openedAt = b.now()
	b.failures = 0
	b.successes = 0
	b.probes = 0
}

// State returns the breaker's current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Report half-open once the cooldown has elapsed even before the first
	// probe arrives.
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.config.Cooldown {
		return BreakerHalfOpen
	}
	return b.state
}
