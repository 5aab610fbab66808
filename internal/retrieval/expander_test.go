package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandQuerySpanish(t *testing.T) {
	got := ExpandQuery("  ¿Cómo funciona   la fotosíntesis? ")
	require.Equal(t, []string{
		"¿Cómo funciona la fotosíntesis?",
		"¿cómo funciona la fotosíntesis?",
		"¿Cómo Funciona La Fotosíntesis?",
		"funciona fotosíntesis",
		"¿cómo funciona la clorofila?",
	}, got)
}

func TestExpandQueryKeywordVariantDropsStopwords(t *testing.T) {
	got := ExpandQuery("¿Cómo funciona la fotosíntesis?")
	require.GreaterOrEqual(t, len(got), 3)
	require.Contains(t, got, "funciona fotosíntesis")
	require.NotContains(t, got[3], "cómo")
	require.NotContains(t, got[3], "la")
}

func TestExpandQueryDeduplicatesAndCaps(t *testing.T) {
	got := ExpandQuery("volcanes")
	require.Equal(t, []string{"volcanes", "Volcanes"}, got)

	got = ExpandQuery("machine learning algorithms explained simply today")
	require.LessOrEqual(t, len(got), MaxVariants)
	require.Equal(t, "machine learning algorithms", got[2])
	require.Equal(t, "machine learning procedures explained simply today", got[3])
}

func TestExpandQueryWithoutKeywords(t *testing.T) {
	require.Equal(t, []string{"¿Qué es?", "¿qué es?", "¿Qué Es?"}, ExpandQuery("¿Qué es?"))
	require.Empty(t, ExpandQuery("   "))
}
