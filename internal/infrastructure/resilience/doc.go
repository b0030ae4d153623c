/*
Package resilience provides the circuit breaker the session client wraps
around server calls.

A breaker starts closed. Failures that satisfy ShouldTrip open it; while open,
calls fail with ErrCircuitOpen without touching the network. After Cooldown it
goes half-open and admits Probes calls: if they all succeed it closes, and any
failure reopens it.

	Closed --[ShouldTrip]--> Open --[Cooldown]--> Half-Open --[Probes ok]--> Closed
	                                                  |
	                                              [failure] --> Open

Context cancellation is not counted as a failure.

	b := resilience.New("sessiond", resilience.Settings{Cooldown: 10 * time.Second})
	err := b.Do(ctx, func(ctx context.Context) error {
		return call(ctx)
	})
*/
package resilience
