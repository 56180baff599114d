package hydration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/postvault/pkg/types"
)

type flakyClient struct {
	err   error
	calls int
}

func (c *flakyClient) GetByID(ctx context.Context, id string) (*types.RawPost, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &types.RawPost{ID: id, Text: "ok"}, nil
}

func (c *flakyClient) GetByIDs(ctx context.Context, ids []string) ([]*types.RawPost, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return nil, nil
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyClient{err: errors.New("upstream down")}
	client := NewBreakerClientWithConfig(inner, BreakerConfig{
		MaxFailures:         3,
		Timeout:             time.Minute,
		HalfOpenMaxRequests: 1,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := client.GetByID(ctx, "p1")
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, "open", client.State())

	// Open circuit rejects without reaching the upstream.
	callsBefore := inner.calls
	_, err := client.GetByID(ctx, "p1")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, callsBefore, inner.calls)
}

func TestBreakerNotFoundDoesNotTrip(t *testing.T) {
	inner := &flakyClient{err: &NotFoundError{ID: "p1"}}
	client := NewBreakerClientWithConfig(inner, BreakerConfig{
		MaxFailures:         2,
		Timeout:             time.Minute,
		HalfOpenMaxRequests: 1,
	})
	ctx := context.Background()

	// A healthy upstream saying "gone" is not a failure signal.
	for i := 0; i < 10; i++ {
		_, err := client.GetByID(ctx, "p1")
		require.True(t, IsNotFound(err))
	}
	assert.Equal(t, "closed", client.State())
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &flakyClient{}
	client := NewBreakerClient(inner)

	post, err := client.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", post.ID)
	assert.Equal(t, "closed", client.State())
}

func TestRetryDelaySchedule(t *testing.T) {
	assert.Equal(t, time.Hour, RetryDelay(0))
	assert.Equal(t, time.Hour, RetryDelay(1))
	assert.Equal(t, 6*time.Hour, RetryDelay(2))
	assert.Equal(t, 24*time.Hour, RetryDelay(3))
	assert.Equal(t, 24*time.Hour, RetryDelay(10))
}
