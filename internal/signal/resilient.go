package signal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"rankwise.app/analyst/internal/model"
)

type ResilienceConfig struct {
	Timeout     time.Duration // per attempt; 0 leaves the caller's deadline
	Rate        float64       // requests per second; 0 disables limiting
	Burst       int
	Retries     int // extra attempts after the first
	BaseBackoff time.Duration

	FailureRatio float64
	MinRequests  uint32
	OpenTimeout  time.Duration
}

// Observer receives one call per Fetch attempt. Optional.
type Observer interface {
	ProviderCall(provider, outcome string, d time.Duration)
}

// Resilient wraps a Provider with rate limiting, a circuit breaker, a
// per-attempt timeout and retries with exponential backoff.
type Resilient struct {
	next     Provider
	cfg      ResilienceConfig
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	observer Observer
}

var _ Provider = (*Resilient)(nil)

func NewResilient(next Provider, cfg ResilienceConfig, observer Observer) *Resilient {
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 250 * time.Millisecond
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}

	minRequests := cfg.MinRequests
	ratio := cfg.FailureRatio
	name := next.Name()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if ratio <= 0 || counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("provider circuit breaker state changed",
				"provider", name,
				"from", from.String(),
				"to", to.String())
		},
		// Caller cancellation and client errors say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || IsPermanent(err)
		},
	})

	return &Resilient{
		next:     next,
		cfg:      cfg,
		limiter:  limiter,
		breaker:  breaker,
		observer: observer,
	}
}

func (r *Resilient) Name() string                        { return r.next.Name() }
func (r *Resilient) Category() model.Category            { return r.next.Category() }
func (r *Resilient) Supports(kind model.TargetKind) bool { return r.next.Supports(kind) }

func (r *Resilient) Fetch(ctx context.Context, req Request) (*Metrics, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.Retries; attempt++ {
		if attempt > 0 {
			backoff := r.cfg.BaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %w (last error: %v)", r.Name(), ctx.Err(), lastErr)
			}
		}

		m, err := r.attempt(ctx, req)
		if err == nil {
			return m, nil
		}
		lastErr = err

		if !retryable(ctx, err) {
			break
		}
		slog.DebugContext(ctx, "provider attempt failed, retrying",
			"provider", r.Name(),
			"attempt", attempt+1,
			"error", err)
	}
	return nil, lastErr
}

func (r *Resilient) attempt(ctx context.Context, req Request) (*Metrics, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limiter: %w", r.Name(), err)
	}

	attemptCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := r.breaker.Execute(func() (interface{}, error) {
		return r.next.Fetch(attemptCtx, req)
	})
	r.observe(outcomeLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	m, _ := res.(*Metrics)
	return m, nil
}

func (r *Resilient) observe(outcome string, d time.Duration) {
	if r.observer != nil {
		r.observer.ProviderCall(r.Name(), outcome, d)
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// retryable reports whether another attempt could succeed. An open breaker,
// permanent errors and an expired caller context end the loop.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if IsPermanent(err) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	return true
}
