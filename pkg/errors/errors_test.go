package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfWalksWrappedChain(t *testing.T) {
	inner := Wrap(ErrCodeExternalUnavailable, "insightly request failed", context.DeadlineExceeded)
	outer := fmt.Errorf("sync: %w", inner)

	assert.Equal(t, ErrCodeExternalUnavailable, CodeOf(outer))
	assert.ErrorIs(t, outer, context.DeadlineExceeded)
	assert.Equal(t, ErrCodeInternalError, CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		fatal     bool
		retryable bool
	}{
		{ErrCodeNotFound, true, false},
		{ErrCodeUnsupported, true, false},
		{ErrCodeInvalidPayload, true, false},
		{ErrCodeExternalUnavailable, false, true},
		{ErrCodeExternalRejected, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "boom")
			assert.Equal(t, tt.fatal, IsFatal(err))
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: inquiry not found", New(ErrCodeNotFound, "inquiry not found").Error())
	assert.Equal(t, "CONFLICT: already done (boom)", Wrap(ErrCodeConflict, "already done", fmt.Errorf("boom")).Error())
	assert.True(t, IsNotFound(Newf(ErrCodeNotFound, "task %s not found", "t1")))
}
