package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

type BreakerConfig struct {
	MaxFailures uint32
	OpenFor     time.Duration
}

// BreakerProvider stops calling a failing gateway for OpenFor after
// MaxFailures consecutive transport failures. Rejections the gateway
// answered deliberately and cancelled requests do not count as failures;
// timeouts do.
type BreakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker[SessionResponse]
}

func NewBreakerProvider(next Provider, cfg BreakerConfig, logger *slog.Logger) *BreakerProvider {
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker[SessionResponse](gobreaker.Settings{
		Name:        "gateway:" + next.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// a caller that went away says nothing about the gateway
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var ge *GatewayError
			return errors.As(err, &ge) || errors.Is(err, ErrInvalidRequest)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("gateway breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerProvider{next: next, cb: cb}
}

func (p *BreakerProvider) Name() string { return p.next.Name() }

func (p *BreakerProvider) CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error) {
	res, err := p.cb.Execute(func() (SessionResponse, error) {
		return p.next.CreateSession(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return SessionResponse{}, fmt.Errorf("%w: %v", ErrGatewayOpen, err)
	}
	return res, err
}
