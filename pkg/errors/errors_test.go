package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndError(t *testing.T) {
	err := New(ErrorTypePoolExhausted, "no connection available")
	assert.Equal(t, "pool_exhausted: no connection available", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("socket closed")
	err := Wrap(cause, ErrorTypeConnectionLost, "connection dropped")

	assert.Equal(t, "connection_lost: connection dropped: socket closed", err.Error())
	assert.True(t, stderrors.Is(err, cause))
}

func TestWrapNil(t *testing.T) {
	require.Nil(t, Wrap(nil, ErrorTypeStatement, "ignored"))
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeSchemaMismatch, "rows differ")
	assert.True(t, IsType(err, ErrorTypeSchemaMismatch))
	assert.False(t, IsType(err, ErrorTypeStatement))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeSchemaMismatch))

	wrapped := Wrap(err, ErrorTypeStatement, "execution failed")
	assert.True(t, IsType(wrapped, ErrorTypeStatement))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrorTypeTimeout, "deadline")))
	assert.True(t, IsRetryable(New(ErrorTypeConnectionLost, "dropped")))
	assert.True(t, IsRetryable(New(ErrorTypePoolExhausted, "busy")))
	assert.False(t, IsRetryable(New(ErrorTypeSchemaMismatch, "rows differ")))
	assert.False(t, IsRetryable(stderrors.New("plain")))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeStatement, "failed").
		WithDetail("table", "users").
		WithDetail("verb", "insert")

	assert.Equal(t, "users", err.Details["table"])
	assert.Equal(t, "insert", err.Details["verb"])
}
