package apiclient

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

func DefaultBreakerSettings(name string) BreakerSettings {
	return BreakerSettings{
		Name:                name,
		MaxRequests:         5,
		Interval:            30 * time.Second,
		Timeout:             10 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// NewBreaker trips after consecutive retry-exhausted failures. Client errors
// (4xx) count as successes: the backend answered, the request was wrong.
func NewBreaker(s BreakerSettings, logger *slog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	if logger == nil {
		logger = slog.Default()
	}
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name: s.Name,

		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},

		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
}
