package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSplit_SizesForLongResponse(t *testing.T) {
	text := strings.Repeat("a", 9000)
	chunks := Collect(text, 4000)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 4000)
	require.Len(t, chunks[1], 4000)
	require.Len(t, chunks[2], 1000)
}

func TestSplit_EmptyInputYieldsNothing(t *testing.T) {
	require.Empty(t, Collect("", 10))
	require.Empty(t, Collect("", 0))
}

func TestSplit_NonPositiveMaxYieldsWholeText(t *testing.T) {
	require.Equal(t, []string{"hello"}, Collect("hello", 0))
	require.Equal(t, []string{"hello"}, Collect("hello", -3))
}

func TestSplit_ExactMultiple(t *testing.T) {
	require.Equal(t, []string{"abc", "def"}, Collect("abcdef", 3))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	require.Equal(t, []string{"hi"}, Collect("hi", 4000))
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	text := "приветмир" // 9 runes, 18 bytes
	chunks := Collect(text, 4)
	require.Equal(t, []string{"прив", "етми", "р"}, chunks)
	for _, c := range chunks {
		require.True(t, utf8.ValidString(c))
	}
}

func TestSplit_ReassemblesInput(t *testing.T) {
	inputs := []string{
		"",
		"x",
		strings.Repeat("ab", 1001),
		"class Plugin : RustPlugin {\n\t// комментарий ✓\n}\n",
		strings.Repeat("日本語テキスト", 300),
	}
	for _, in := range inputs {
		for _, limit := range []int{1, 2, 3, 7, 64, 4000} {
			chunks := Collect(in, limit)
			require.Equal(t, in, strings.Join(chunks, ""), "limit=%d", limit)
			for _, c := range chunks {
				require.NotEmpty(t, c)
				require.LessOrEqual(t, utf8.RuneCountInString(c), limit, "limit=%d", limit)
			}
		}
	}
}

func TestSplit_Restartable(t *testing.T) {
	seq := Split(strings.Repeat("0123456789", 25), 40)

	var first, second []string
	for c := range seq {
		first = append(first, c)
	}
	for c := range seq {
		second = append(second, c)
	}
	require.Equal(t, first, second)
	require.Len(t, first, 7)
}

func TestSplit_StopsEarly(t *testing.T) {
	n := 0
	for range Split(strings.Repeat("a", 100), 10) {
		n++
		if n == 2 {
			break
		}
	}
	require.Equal(t, 2, n)
}

func TestSplit_CountsUTF16Units(t *testing.T) {
	emoji := strings.Repeat("😀", 3000) // 6000 UTF-16 units
	chunks := Collect(emoji, 4000)
	require.Equal(t, []string{strings.Repeat("😀", 2000), strings.Repeat("😀", 1000)}, chunks)

	require.Equal(t, []string{"a", "😀", "b"}, Collect("a😀b", 2))
	require.Equal(t, []string{"😀", "😀"}, Collect("😀😀", 1))
	require.Equal(t, []string{"ab😀", "cd"}, Collect("ab😀cd", 4))
}
