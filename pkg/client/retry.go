package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/seqkit/idremap/pkg/mapping"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idremap_retries_total",
		Help: "Total number of retry attempts",
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idremap_retry_exhausted_total",
		Help: "Total number of chunks whose retry attempts were exhausted",
	})
)

// AttemptFunc performs one submission attempt for a chunk.
type AttemptFunc func() ([]mapping.Row, error)

// RetryPolicy drives a chunk submission through bounded retry with a fixed
// inter-attempt delay. The mapping service is polling-based and
// rate-limited; a fixed delay plus bounded retry tolerates transient
// unavailability without backoff bookkeeping.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// Delay is the fixed wait between a failed attempt and the next one.
	Delay time.Duration
}

// DefaultRetryPolicy returns the service defaults: 10 retries, 5s delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 10,
		Delay:      5 * time.Second,
	}
}

// Do invokes fn up to MaxRetries+1 times, sleeping Delay between attempts.
// The first success is returned immediately with no further attempts and no
// sleep. After exhausting all attempts it returns ErrRetryExhausted wrapping
// the last failure. The delay is context-aware; cancellation during a wait
// surfaces as ErrContextCancelled.
func (p RetryPolicy) Do(ctx context.Context, fn AttemptFunc) ([]mapping.Row, error) {
	attempts := p.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}

		rows, err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Submission succeeded after retry")
			}
			return rows, nil
		}

		lastErr = err

		if attempt >= attempts {
			break
		}

		retriesTotal.Inc()
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", p.Delay).
			Msg("Submission failed, retrying after delay")

		select {
		case <-ctx.Done():
			log.Warn().
				Int("attempt", attempt).
				Msg("Context cancelled during retry delay")
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(p.Delay):
		}
	}

	retryExhaustedTotal.Inc()
	log.Warn().
		Err(lastErr).
		Int("attempts", attempts).
		Msg("Retry attempts exhausted")

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, attempts, lastErr)
}
