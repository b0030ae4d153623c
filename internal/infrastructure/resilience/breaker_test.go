package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(s Settings) (*Breaker, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	b := New("test", s)
	b.now = c.now
	b.mu.Lock()
	b.toLocked(StateClosed, c.now())
	b.mu.Unlock()
	return b, c
}

func run(b *Breaker, err error) error {
	return b.Do(context.Background(), func(context.Context) error { return err })
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		results  []error
		want     State
	}{
		{"stays closed on successes", Settings{}, []error{nil, nil, nil}, StateClosed},
		{"default trips after five failures", Settings{}, []error{errBoom, errBoom, errBoom, errBoom, errBoom}, StateOpen},
		{"success resets consecutive failures", Settings{}, []error{errBoom, errBoom, nil, errBoom, errBoom}, StateClosed},
		{
			"custom trip",
			Settings{ShouldTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 2 }},
			[]error{errBoom, errBoom},
			StateOpen,
		},
		{
			"ignored errors",
			Settings{
				ShouldTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
				IsFailure:  func(err error) bool { return !errors.Is(err, errBoom) },
			},
			[]error{errBoom, errBoom},
			StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBreaker(tt.settings)
			for _, err := range tt.results {
				_ = run(b, err)
			}
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestOpenRejectsThenRecovers(t *testing.T) {
	var transitions []string
	b, clk := newTestBreaker(Settings{
		Probes:     2,
		Cooldown:   time.Second,
		ShouldTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})

	require.ErrorIs(t, run(b, errBoom), errBoom)
	assert.ErrorIs(t, run(b, nil), ErrCircuitOpen)

	clk.advance(time.Second)
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, run(b, nil))
	require.NoError(t, run(b, nil))
	assert.Equal(t, StateClosed, b.State())

	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, transitions)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, clk := newTestBreaker(Settings{
		Cooldown:   time.Second,
		ShouldTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	_ = run(b, errBoom)
	clk.advance(time.Second)

	assert.ErrorIs(t, run(b, errBoom), errBoom)
	assert.Equal(t, StateOpen, b.State())
}

func TestHalfOpenLimitsProbes(t *testing.T) {
	b, clk := newTestBreaker(Settings{
		Cooldown:   time.Second,
		ShouldTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	_ = run(b, errBoom)
	clk.advance(time.Second)

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Do(context.Background(), func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	assert.ErrorIs(t, run(b, nil), ErrTooManyRequests)
	close(release)
	wg.Wait()
	assert.Equal(t, StateClosed, b.State())
}

func TestCancellationIsNotFailure(t *testing.T) {
	b, _ := newTestBreaker(Settings{ShouldTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 }})

	err := run(b, context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Counts().Requests)
}

func TestIntervalClearsCounts(t *testing.T) {
	b, clk := newTestBreaker(Settings{Interval: time.Minute})
	_ = run(b, errBoom)
	require.Equal(t, uint32(1), b.Counts().Failures)

	clk.advance(time.Minute)
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Counts().Failures)
}

func TestPanicCountsAsFailure(t *testing.T) {
	b, _ := newTestBreaker(Settings{ShouldTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 }})

	assert.Panics(t, func() {
		_ = b.Do(context.Background(), func(context.Context) error { panic("bad") })
	})
	assert.Equal(t, StateOpen, b.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
