package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var _ log.Logger = (*TemporalLogger)(nil)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", "json")
	require.Error(t, err)

	l, err := New("debug", "console")
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestTemporalLoggerForwardsKeyvals(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tl := NewTemporalLogger(zap.New(core))
	tl.Info("activity started", "document_id", "doc-1")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "activity started", entries[0].Message)
	require.Equal(t, "doc-1", entries[0].ContextMap()["document_id"])
}
