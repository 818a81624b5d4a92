package rpcerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	t.Run("NetworkError", func(t *testing.T) {
		err := NetworkError("connection refused", errors.New("dial tcp: refused"))
		assert.Equal(t, KindNetwork, err.Kind)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Contains(t, err.Error(), "dial tcp: refused")
	})

	t.Run("MethodNotFoundError is RemoteInvocation", func(t *testing.T) {
		err := MethodNotFoundError("Calculator", "Add")
		assert.Equal(t, KindRemoteInvocation, err.Kind)
		assert.Contains(t, err.Error(), "Calculator.Add")
	})

	t.Run("Unwrap returns cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := SecurityError("signature mismatch", cause)
		assert.Equal(t, cause, err.Unwrap())
		assert.ErrorIs(t, err, cause)
	})
}

func TestEscalate(t *testing.T) {
	t.Run("KeyNotFound escalates to Network", func(t *testing.T) {
		err := KeyNotFoundError("session abc123 not found")
		escalated := Escalate(err)

		var e *Error
		require.True(t, As(escalated, &e))
		assert.Equal(t, KindNetwork, e.Kind)
	})

	t.Run("other kinds pass through", func(t *testing.T) {
		err := TimeoutError("invocation timed out", nil)
		assert.Equal(t, err, Escalate(err))
	})
}

func TestToEngineError(t *testing.T) {
	err := RemoteInvocationError("divide by zero", nil)
	engineErr := ToEngineError(err)
	assert.Equal(t, "REMOTE_INVOCATION", engineErr.Code)
	assert.Equal(t, "divide by zero", engineErr.Message)
}
