package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIsRetriableError classifies API failures
func TestIsRetriableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retriable bool
	}{
		{name: "nil", err: nil, retriable: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, retriable: true},
		{name: "rate limited", err: errors.New("429 rate limit exceeded"), retriable: true},
		{name: "overloaded", err: errors.New("overloaded_error: the API is overloaded"), retriable: true},
		{name: "server error", err: errors.New("internal server error"), retriable: true},
		{name: "connection reset", err: errors.New("read tcp: connection reset by peer"), retriable: true},
		{name: "bad request", err: errors.New("400 invalid request"), retriable: false},
		{name: "auth failure", err: errors.New("401 authentication error"), retriable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retriable, isRetriableError(tt.err))
		})
	}
}

// TestCircuitBreakerOpensAfterThreshold verifies the closed -> open transition
func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, time.Minute)

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
	}
	assert.Equal(t, CircuitClosed, cb.State())
	require.NoError(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
}

// TestCircuitBreakerSuccessResetsCount verifies intermittent successes
// keep the circuit closed
func TestCircuitBreakerSuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
}

// TestCircuitBreakerRecovery verifies the open -> half-open -> closed path
func TestCircuitBreakerRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cb.Allow(), "open timeout elapsed, probe should pass")
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, cb.State(), "one success is not enough to close")
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}

// TestCircuitBreakerHalfOpenFailureReopens verifies a failed probe trips
// the circuit again
func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
}
