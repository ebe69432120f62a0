package probe

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProbe struct {
	mu        sync.Mutex
	calls     int
	failFirst int
}

func (p *countingProbe) probe(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failFirst {
		return fmt.Errorf("transient failure %d", p.calls)
	}
	return nil
}

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestWithRetryRecoversFromTransientFailure(t *testing.T) {
	p := &countingProbe{failFirst: 2}
	wrapped := WithRetry(p.probe, fastRetryConfig(3))

	require.NoError(t, wrapped(context.Background()))
	assert.Equal(t, 3, p.calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	p := &countingProbe{failFirst: 10}
	wrapped := WithRetry(p.probe, fastRetryConfig(3))

	err := wrapped(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transient failure 3")
	assert.Equal(t, 3, p.calls)
}

func TestWithRetrySingleAttemptIsPassthrough(t *testing.T) {
	p := &countingProbe{failFirst: 1}
	wrapped := WithRetry(p.probe, RetryConfig{MaxAttempts: 1})

	assert.Error(t, wrapped(context.Background()))
	assert.Equal(t, 1, p.calls)
}

func TestWithRetryStopsOnCancelledContext(t *testing.T) {
	p := &countingProbe{failFirst: 100}
	wrapped := WithRetry(p.probe, RetryConfig{
		MaxAttempts:       10,
		InitialDelay:      50 * time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 2.0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := wrapped(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, p.calls, 10)
}
