package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests while circuit is half-open")
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker. Zero values take defaults.
type Settings struct {
	// Probes is how many calls half-open admits, and how many must succeed to close.
	Probes uint32
	// Interval clears closed-state counts periodically; zero keeps them.
	Interval time.Duration
	// Cooldown is how long the breaker stays open.
	Cooldown time.Duration
	// ShouldTrip decides, after a failure while closed, whether to open.
	ShouldTrip func(Counts) bool
	// IsFailure decides which errors count against the breaker.
	// Context cancellation never counts.
	IsFailure func(error) bool
	// OnStateChange observes transitions.
	OnStateChange func(name string, from, to State)
}

// Counts are the statistics for the current generation.
type Counts struct {
	Requests             uint32
	Successes            uint32
	Failures             uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) success() {
	c.Successes++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) failure() {
	c.Failures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// Breaker fails calls fast once a dependency keeps failing.
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	deadline   time.Time // end of open cooldown or closed interval
}

// New creates a closed breaker.
func New(name string, s Settings) *Breaker {
	if s.Probes == 0 {
		s.Probes = 1
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	if s.ShouldTrip == nil {
		s.ShouldTrip = func(c Counts) bool { return c.ConsecutiveFailures >= 5 }
	}
	if s.IsFailure == nil {
		s.IsFailure = func(err error) bool { return err != nil }
	}

	b := &Breaker{name: name, settings: s, now: time.Now}
	b.toLocked(StateClosed, b.now())
	return b
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advanceLocked(b.now())
	return b.state
}

// Counts returns the current generation's statistics.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn unless the breaker rejects it, and records the outcome.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	gen, err := b.admit()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.record(gen, false)
			panic(r)
		}
	}()

	err = fn(ctx)
	switch {
	case err == nil:
		b.record(gen, true)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// caller gave up; says nothing about the dependency
		b.release(gen)
	default:
		b.record(gen, !b.settings.IsFailure(err))
	}
	return err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advanceLocked(b.now())
	switch {
	case b.state == StateOpen:
		return 0, ErrCircuitOpen
	case b.state == StateHalfOpen && b.counts.Requests >= b.settings.Probes:
		return 0, ErrTooManyRequests
	}
	b.counts.Requests++
	return b.generation, nil
}

func (b *Breaker) release(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen == b.generation && b.counts.Requests > 0 {
		b.counts.Requests--
	}
}

func (b *Breaker) record(gen uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.advanceLocked(now)
	if gen != b.generation {
		return
	}

	switch b.state {
	case StateClosed:
		if ok {
			b.counts.success()
			return
		}
		b.counts.failure()
		if b.settings.ShouldTrip(b.counts) {
			b.toLocked(StateOpen, now)
		}
	case StateHalfOpen:
		if !ok {
			b.toLocked(StateOpen, now)
			return
		}
		b.counts.success()
		if b.counts.ConsecutiveSuccesses >= b.settings.Probes {
			b.toLocked(StateClosed, now)
		}
	}
}

// advanceLocked applies time-driven transitions.
func (b *Breaker) advanceLocked(now time.Time) {
	if b.deadline.IsZero() || now.Before(b.deadline) {
		return
	}
	switch b.state {
	case StateOpen:
		b.toLocked(StateHalfOpen, now)
	case StateClosed:
		b.generation++
		b.counts = Counts{}
		b.deadline = now.Add(b.settings.Interval)
	}
}

func (b *Breaker) toLocked(state State, now time.Time) {
	prev := b.state
	b.state = state
	b.generation++
	b.counts = Counts{}

	switch state {
	case StateClosed:
		b.deadline = time.Time{}
		if b.settings.Interval > 0 {
			b.deadline = now.Add(b.settings.Interval)
		}
	case StateOpen:
		b.deadline = now.Add(b.settings.Cooldown)
	case StateHalfOpen:
		b.deadline = time.Time{}
	}

	if prev != state && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
