package base

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nova/pkg/errors"
)

func newTestRetryPolicy(maxAttempts int) *RetryPolicy {
	rp := NewRetryPolicy(maxAttempts, time.Millisecond)
	rp.MaxDelay = 5 * time.Millisecond
	return rp
}

func TestRetryPolicy_ExecuteSucceedsAfterTransientFailures(t *testing.T) {
	rp := newTestRetryPolicy(3)

	attempts := 0
	err := rp.Execute(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryPolicy_ExecuteExhaustsBudget(t *testing.T) {
	rp := newTestRetryPolicy(2)

	attempts := 0
	err := rp.Execute(context.Background(), func() error {
		attempts++
		return fmt.Errorf("still broken")
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
}

func TestRetryPolicy_ConditionStopsFatalErrors(t *testing.T) {
	rp := newTestRetryPolicy(5)
	fatal := errors.New(errors.ErrorTypeValidation, "bad request")

	attempts := 0
	err := rp.ExecuteWithCondition(context.Background(), func() error {
		attempts++
		return fatal
	}, errors.IsRetryable)

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "a fatal error must not consume the retry budget")
	assert.Equal(t, fatal, err, "the error is returned as-is, not wrapped as exhaustion")
}

func TestRetryPolicy_ContextCancellation(t *testing.T) {
	rp := NewRetryPolicy(5, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- rp.Execute(ctx, func() error { return fmt.Errorf("transient") })
	}()
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retry cancelled")
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}
