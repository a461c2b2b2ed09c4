package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while the breaker rejects sends.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerConfig tunes [NewBreaker].
type BreakerConfig struct {
	Name string
	// MaxRequests is how many probes pass while half-open.
	MaxRequests uint32
	Interval    time.Duration
	// Timeout is how long the breaker stays open.
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Breaker fails fast once the wrapped notifier keeps erroring, so a dead
// SMTP relay costs a login nothing but a log line.
type Breaker struct {
	next    sessionauth.Notifier
	breaker *gobreaker.CircuitBreaker[struct{}]
}

var _ sessionauth.Notifier = (*Breaker)(nil)

func NewBreaker(next sessionauth.Notifier, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		// Cancellation is the caller's doing, not the transport's.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("notifier circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
	return &Breaker{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (b *Breaker) Send(ctx context.Context, msg sessionauth.Message) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Send(ctx, msg)
	})
	return err
}

func (b *Breaker) State() gobreaker.State {
	return b.breaker.State()
}
