package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	var states []int
	config := DefaultCircuitBreakerConfig("test")
	config.FailureThreshold = 2
	config.Timeout = time.Hour
	config.OnStateChange = func(name string, state int) { states = append(states, state) }
	cb := NewCircuitBreaker(config, nil)

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_, err := cb.Execute(context.Background(), func() (interface{}, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, []int{StateOpen}, states)

	called := false
	_, err := cb.Execute(context.Background(), func() (interface{}, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_PassesResults(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"), nil)

	result, err := cb.Execute(context.Background(), func() (interface{}, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, "test", cb.Name())
}

func TestCircuitBreaker_CancelledContext(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cb.Execute(ctx, func() (interface{}, error) { return nil, nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, cb.Counts().Requests)
}

func TestRetry(t *testing.T) {
	config := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}

	attempts := 0
	err := Retry(context.Background(), config, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = Retry(context.Background(), config, func() error {
		attempts++
		return errors.New("never")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)

	permanent := errors.New("permanent")
	config.RetryableErrors = func(err error) bool { return !errors.Is(err, permanent) }
	attempts = 0
	err = Retry(context.Background(), config, func() error {
		attempts++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}
