package redisconn

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards command execution.
// *gobreaker.CircuitBreaker[any] satisfies it.
type CircuitBreaker interface {
	Execute(req func() (any, error)) (any, error)
	State() gobreaker.State
}

// NewCircuitBreakerConfig returns a function that creates circuit breakers for connections.
// This is a helper for common use cases, pass it to WithCircuitBreaker.
//
// Only failures that break the connection count against the breaker; error
// replies from the server are results, not failures.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) CircuitBreaker {
	return func(id string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        id,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return !ShouldCloseConnection(err)
			},
		}
		return gobreaker.NewCircuitBreaker[any](settings)
	}
}
