package translator

import (
	"context"
	"errors"
	"time"

	"github.com/oukeidos/jsontp/internal/apperrors"
	"github.com/oukeidos/jsontp/internal/logger"
	"github.com/sony/gobreaker"
)

const (
	DefaultBreakerFailures = 5
	DefaultBreakerTimeout  = 30 * time.Second
)

// BreakerOptions configures the circuit breaker placed in front of a Provider.
type BreakerOptions struct {
	// ConsecutiveFailures is the number of transient failures in a row that
	// opens the breaker.
	ConsecutiveFailures int
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

type breakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps p so that repeated network or rate-limit failures stop
// further calls for a while. Calls rejected by an open breaker fail as
// network errors.
func WithBreaker(name string, p Provider, opts BreakerOptions) Provider {
	if opts.ConsecutiveFailures <= 0 {
		opts.ConsecutiveFailures = DefaultBreakerFailures
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = DefaultBreakerTimeout
	}
	threshold := uint32(opts.ConsecutiveFailures)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !apperrors.IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "provider", name, "from", from.String(), "to", to.String())
		},
	})
	return &breakerProvider{next: p, cb: cb}
}

func (b *breakerProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.New(apperrors.KindNetwork, "Provider is failing repeatedly; requests are paused briefly.", err)
		}
		return nil, err
	}
	comp, _ := out.(*Completion)
	return comp, nil
}
