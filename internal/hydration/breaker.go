package hydration

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/scrypster/postvault/pkg/types"
)

// ErrCircuitOpen is returned when the circuit breaker rejects requests to
// the platform API to prevent hammering a failing upstream.
var ErrCircuitOpen = errors.New("platform circuit breaker is open")

// BreakerConfig holds circuit breaker tuning for the platform client.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures required to trip
	// the circuit. Default: 5.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before allowing test
	// requests. Default: 60 seconds.
	Timeout time.Duration

	// HalfOpenMaxRequests is the number of requests allowed through in
	// half-open state. Default: 2.
	HalfOpenMaxRequests uint32
}

// BreakerClient wraps a PlatformClient with a circuit breaker. A tripped
// circuit surfaces as ErrCircuitOpen, which classifies as retryable
// (UNKNOWN), so affected rows are rescheduled rather than declared missing.
type BreakerClient struct {
	inner   PlatformClient
	breaker *gobreaker.CircuitBreaker
}

var _ PlatformClient = (*BreakerClient)(nil)

// NewBreakerClient wraps client with default breaker settings.
func NewBreakerClient(client PlatformClient) *BreakerClient {
	return NewBreakerClientWithConfig(client, BreakerConfig{
		MaxFailures:         5,
		Timeout:             60 * time.Second,
		HalfOpenMaxRequests: 2,
	})
}

// NewBreakerClientWithConfig wraps client with custom breaker settings.
func NewBreakerClientWithConfig(client PlatformClient, cfg BreakerConfig) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        "PlatformClient",
		MaxRequests: cfg.HalfOpenMaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// A not-found is a definitive answer from a healthy upstream,
			// not a sign the platform is down.
			return err == nil || IsNotFound(err)
		},
	}

	return &BreakerClient{
		inner:   client,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// GetByID fetches a single post through the breaker.
func (c *BreakerClient) GetByID(ctx context.Context, id string) (*types.RawPost, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.GetByID(ctx, id)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return result.(*types.RawPost), nil
}

// GetByIDs bulk-fetches posts through the breaker.
func (c *BreakerClient) GetByIDs(ctx context.Context, ids []string) ([]*types.RawPost, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.GetByIDs(ctx, ids)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return result.([]*types.RawPost), nil
}

// State returns the breaker state: "closed", "open", or "half-open".
func (c *BreakerClient) State() string {
	switch c.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
