package errors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrap(ErrInvalidInput, "bad url")
	assert.True(t, Is(err, ErrInvalidInput))
	assert.Equal(t, "bad url: invalid input", err.Error())

	nested := Wrap(err, "submit failed")
	assert.True(t, Is(nested, ErrInvalidInput))

	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestLogWithError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	log := zap.New(core)

	ctx := WithRequestID(context.Background(), "req-123")
	err := LogWithError(ctx, log, "persist failed", ErrStorageUnavailable)
	require.Error(t, err)
	assert.True(t, Is(err, ErrStorageUnavailable), "wrapping must keep the sentinel reachable")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "persist failed", entries[0].Message)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
}

func TestLogWithErrorWithoutRequestID(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	log := zap.New(core)

	err := LogWithError(context.Background(), log, "persist failed", ErrStorageUnavailable)
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "request_id")
}
