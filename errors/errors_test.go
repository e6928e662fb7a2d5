package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.class.String())
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "Node", "Request", "dispatch"))
	})

	t.Run("wraps with component context", func(t *testing.T) {
		err := Wrap(ErrServiceNotFound, "Node", "Request", "service lookup")
		require.Error(t, err)
		assert.Equal(t, "Node.Request: service lookup failed: service not found", err.Error())
		assert.True(t, Is(err, ErrServiceNotFound))
	})
}

func TestWrapClassified(t *testing.T) {
	base := New("boom")

	t.Run("invalid", func(t *testing.T) {
		err := WrapInvalid(base, "Registry", "Add", "duplicate check")
		assert.True(t, IsInvalid(err))
		assert.False(t, IsFatal(err))
		assert.Equal(t, ErrorInvalid, Classify(err))

		var ce *ClassifiedError
		require.True(t, As(err, &ce))
		assert.Equal(t, "Registry", ce.Component)
		assert.Equal(t, "Add", ce.Operation)
	})

	t.Run("fatal", func(t *testing.T) {
		err := WrapFatal(base, "Node", "Stop", "teardown")
		assert.True(t, IsFatal(err))
		assert.Equal(t, ErrorFatal, Classify(err))
	})

	t.Run("transient", func(t *testing.T) {
		err := WrapTransient(base, "Bus", "Drain", "waiting for handlers")
		assert.True(t, IsTransient(err))
		assert.Equal(t, ErrorTransient, Classify(err))
	})

	t.Run("nil passthrough", func(t *testing.T) {
		assert.NoError(t, WrapInvalid(nil, "a", "b", "c"))
		assert.NoError(t, WrapFatal(nil, "a", "b", "c"))
		assert.NoError(t, WrapTransient(nil, "a", "b", "c"))
	})
}

func TestSentinelClassification(t *testing.T) {
	invalid := []error{
		ErrDuplicatePath,
		ErrEmptyPath,
		ErrServiceNotFound,
		ErrOperationNotFound,
		ErrAddressFormat,
		ErrInvalidTransition,
	}
	for _, err := range invalid {
		assert.True(t, IsInvalid(err), "expected %v to be invalid", err)
	}

	fatal := []error{ErrInvalidConfig, ErrMissingConfig, ErrNodeStopped, ErrBusClosed}
	for _, err := range fatal {
		assert.True(t, IsFatal(err), "expected %v to be fatal", err)
	}

	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(ErrDrainTimeout))
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("request: %w", ErrOperationNotFound)
	assert.True(t, IsInvalid(err))
	assert.Equal(t, ErrorInvalid, Classify(err))

	wrapped := Wrap(err, "Node", "Request", "operation lookup")
	assert.True(t, Is(wrapped, ErrOperationNotFound))
}

func TestClassifyNil(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(nil))
	assert.False(t, IsTransient(nil))
	assert.False(t, IsInvalid(nil))
	assert.False(t, IsFatal(nil))
}
