package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		BreakerEnabled:      true,
		BreakerMinRequests:  2,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  time.Minute,
	}
}

func TestExecutor_RetriesRetryableErrors(t *testing.T) {
	e := NewExecutor(fastConfig(), zap.NewNop())
	calls := 0

	err := e.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, func(error) bool { return true })

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecutor_DoesNotRetryFinalErrors(t *testing.T) {
	e := NewExecutor(fastConfig(), nil)
	calls := 0

	err := e.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("bad input")
	}, nil)

	assert.EqualError(t, err, "bad input")
	assert.Equal(t, 1, calls)
}

func TestExecutor_OpensBreaker(t *testing.T) {
	e := NewExecutor(fastConfig(), zap.NewNop())
	fail := func(context.Context) error { return errors.New("down") }

	_ = e.Execute(context.Background(), "extract", fail, nil)
	_ = e.Execute(context.Background(), "extract", fail, nil)
	err := e.Execute(context.Background(), "extract", fail, nil)

	assert.True(t, IsCircuitOpen(err))

	// breakers are per operation
	assert.NoError(t, e.Execute(context.Background(), "publish", func(context.Context) error { return nil }, nil))
}

func TestExecutor_ContextErrorsDoNotTrip(t *testing.T) {
	e := NewExecutor(fastConfig(), zap.NewNop())
	for i := 0; i < 5; i++ {
		err := e.Execute(context.Background(), "slow", func(context.Context) error {
			return context.DeadlineExceeded
		}, func(error) bool { return true })
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
}

func TestExecutor_NilFunc(t *testing.T) {
	e := NewExecutor(Config{}, nil)
	assert.Error(t, e.Execute(context.Background(), "x", nil, nil))
}
