package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	require.True(t, StatusPending.CanTransition(StatusProcessing))
	require.False(t, StatusPending.CanTransition(StatusCompleted))
	require.True(t, StatusProcessing.CanTransition(StatusCompleted))
	require.True(t, StatusProcessing.CanTransition(StatusError))
	require.False(t, StatusProcessing.CanTransition(StatusPending))
	require.True(t, StatusCompleted.CanTransition(StatusProcessing))
	require.True(t, StatusError.CanTransition(StatusProcessing))
	require.False(t, StatusError.CanTransition(StatusCompleted))
}

func TestFormatSupported(t *testing.T) {
	require.True(t, FormatPDF.Supported())
	require.True(t, FormatDOCX.Supported())
	require.False(t, DocumentFormat("txt").Supported())
}

func TestNoContextHasEmptyChunkList(t *testing.T) {
	rc := NoContext()
	require.False(t, rc.HasContext)
	require.NotNil(t, rc.Chunks)
	require.Empty(t, rc.Chunks)
}
