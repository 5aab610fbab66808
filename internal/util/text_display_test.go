package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnippet(t *testing.T) {
	require.Equal(t, "Hola mundo cruel", Snippet("Hola\x00   mundo \n\t cruel", 100))
	require.Equal(t, "abc...", Snippet("abc def", 4))
	long := strings.Repeat("palabra ", 100)
	require.Len(t, []rune(Snippet(long, 0)), defaultSnippetRunes+3)
}
