package textproc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreprocess(t *testing.T) {
	in := "Primera línea del texto.\r\nSegunda   línea\t\tcon espacios.\r\n\r\n\r\n\r\n" +
		"Nuevo párrafo con contenido ★ útil.\n\nCorto\n\n  Último párrafo: cuesta 5 € y 3 + 4 = 7.  "
	want := "Primera línea del texto.\n\nSegunda línea con espacios.\n\n" +
		"Nuevo párrafo con contenido útil.\n\nÚltimo párrafo: cuesta 5 € y 3 + 4 = 7."
	require.Equal(t, want, Preprocess(in))
}

func TestPreprocessKeepsSingleLineBreaksInsideParagraph(t *testing.T) {
	in := "Lista de materiales\n- tijeras grandes\n- papel de colores"
	require.Equal(t, in, Preprocess(in))
}

func TestPreprocessIsIdempotent(t *testing.T) {
	in := "Título del tema\r\n\r\n\r\nLa célula es la unidad básica de la vida.\nTodas las células provienen de otras."
	once := Preprocess(in)
	require.Equal(t, once, Preprocess(once))
	require.Equal(t, "Título del tema\n\nLa célula es la unidad básica de la vida.\n\nTodas las células provienen de otras.", once)
}

func TestPreprocessEmpty(t *testing.T) {
	require.Equal(t, "", Preprocess(""))
	require.Equal(t, "", Preprocess("ok\n\n\n\nno"))
}

func TestFoldAccentsAndKeywords(t *testing.T) {
	require.Equal(t, "fotosintesis camion pinguino", FoldAccents("fotosíntesis camión pingüino"))
	require.Equal(t, []string{"funciona", "fotosíntesis"}, Keywords("¿Cómo funciona la fotosíntesis?", 2))
	require.True(t, IsStopword("Cómo"))
	require.False(t, IsStopword("célula"))
}

func TestDensity(t *testing.T) {
	a := Density("The quick brown fox jumps")
	b := Density("The quick brown fox jumps")
	require.Equal(t, a, b)
	require.GreaterOrEqual(t, a, 0.0)
	require.LessOrEqual(t, a, 1.0)

	boilerplate := Density("the the the the the the the the")
	dense := Density("Einstein published 4 papers in 1905 on relativity, quanta and Brownian motion.")
	require.Greater(t, dense, boilerplate)
	require.Equal(t, 0.0, Density(""))
	require.Equal(t, 0.0, Density("... !!!"))
}

func TestDensityKnownValue(t *testing.T) {
	// 5 unique words, avg length 4.2, no digits/terminators, one capitalized word
	want := 0.35*1 + 0.25*(4.2/6) + 0.15*0.2
	require.InDelta(t, want, Density("The quick brown fox jumps"), 1e-9)
}

func TestFlags(t *testing.T) {
	require.True(t, HasNumbers("año 2024"))
	require.False(t, HasNumbers("sin cifras"))
	require.True(t, HasFormulas("E = mc^2"))
	require.True(t, HasFormulas("3 * 4 da 12"))
	require.False(t, HasFormulas("co-operación entre 2020-2021"))
	require.True(t, IsListLike("- uno\n- dos\n- tres"))
	require.False(t, IsListLike("- solo uno"))
	require.Equal(t, 2, CountSentences("Hola mundo. ¿Qué tal?"))
	require.Equal(t, 4, CountWords("¿Qué tal, buen día?"))
}
