package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestClassifyNavigation verifies tag assignment at origin
func TestClassifyNavigation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, expected: KindTransient},
		{name: "wrapped deadline", err: fmt.Errorf("waiting for load: %w", context.DeadlineExceeded), expected: KindTransient},
		{name: "dns failure", err: &net.DNSError{Err: "no such host", Name: "example.invalid"}, expected: KindTransient},
		{name: "connection refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), expected: KindTransient},
		{name: "connection reset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), expected: KindTransient},
		{name: "protocol error", err: errors.New("net::ERR_ABORTED"), expected: KindPermanent},
		{name: "bad url", err: errors.New("invalid URL"), expected: KindPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tagged := classifyNavigation("navigate", tt.err)
			assert.Equal(t, tt.expected, tagged.Kind)
			assert.ErrorIs(t, tagged, tt.err, "the cause stays unwrappable")
		})
	}
}

func TestClassifyNavigationNil(t *testing.T) {
	assert.Nil(t, classifyNavigation("navigate", nil))
}

// TestKindOf verifies untagged errors default to permanent
func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTransient, KindOf(NewError(KindTransient, "navigate", errors.New("reset"))))
	assert.Equal(t, KindTimeout, KindOf(NewError(KindTimeout, "check", errors.New("budget"))))
	assert.Equal(t, KindPermanent, KindOf(errors.New("untagged")))

	wrapped := fmt.Errorf("check failed: %w", NewError(KindResource, "acquire", ErrPoolClosed))
	assert.Equal(t, KindResource, KindOf(wrapped), "tags survive wrapping")
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(NewError(KindTransient, "navigate", errors.New("reset"))))
	assert.False(t, IsTransient(NewError(KindPermanent, "navigate", errors.New("bad url"))))
	assert.False(t, IsTransient(errors.New("untagged")))
}
