package config

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// NewCircuitBreaker creates a breaker that opens after three consecutive
// failures and lets a trial request through after timeout. Errors matched by
// clientError are the caller's fault and never count against the remote
// service; pass nil when every error is a failure.
func NewCircuitBreaker(name string, timeout time.Duration, clientError func(error) bool) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || (clientError != nil && clientError(err))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}
