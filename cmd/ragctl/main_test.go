package main

import (
	"bytes"
	"strings"
	"testing"

	"edurag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"expand", "¿Cómo", "funciona", "la", "fotosíntesis?"})
	require.NoError(t, rootCmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "1. ¿Cómo funciona la fotosíntesis?", lines[0])
	assert.Equal(t, "keywords: funciona, fotosíntesis", lines[len(lines)-1])
}

func TestRetrieveMemoryRequiresFiles(t *testing.T) {
	t.Setenv("EDURAG_EMBED_PROVIDERS", "mock")
	rootCmd.SetArgs([]string{"retrieve", "aula-1", "célula", "--memory"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--file")
}

func TestPrintRetrieval(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printRetrieval(&out, models.NoContext(), false))
	assert.Equal(t, "No context available.\n", out.String())

	out.Reset()
	result := models.RetrievalContext{
		HasContext: true,
		Chunks: []models.RetrievalResult{{
			Chunk:    models.Chunk{Seq: 2, Text: "La mitocondria produce ATP."},
			Filename: "tema4.pdf",
			Score:    0.8123,
		}},
		Digest: "La mitocondria produce ATP.",
	}
	require.NoError(t, printRetrieval(&out, result, false))
	assert.Contains(t, out.String(), "1. [0.812] tema4.pdf #2  La mitocondria produce ATP.")
	assert.Contains(t, out.String(), "Summary: La mitocondria produce ATP.")

	out.Reset()
	require.NoError(t, printRetrieval(&out, result, true))
	assert.Contains(t, out.String(), `"has_context": true`)
}
