package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitExample(t *testing.T) {
	chunks, err := Split("hello world foo bar baz", 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world foo", "foo bar baz"}, chunks)
}

func TestSplitShortText(t *testing.T) {
	chunks, err := Split("just two", 300, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"just two"}, chunks)
}

func TestSplitEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		chunks, err := Split(text, 10, 2)
		require.NoError(t, err)
		assert.Nil(t, chunks)
	}
}

func TestSplitInvalidParams(t *testing.T) {
	cases := []struct {
		name     string
		maxWords int
		overlap  int
	}{
		{"zero max", 0, 0},
		{"negative max", -1, 0},
		{"negative overlap", 10, -1},
		{"overlap equals max", 10, 10},
		{"overlap exceeds max", 10, 11},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Split("some text here", tc.maxWords, tc.overlap)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := words(137)
	first, err := Split(text, 20, 5)
	require.NoError(t, err)
	second, err := Split(text, 20, 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// Reassembling the chunks with the overlapping prefix of every chunk after
// the first removed must reproduce the original word sequence exactly.
func TestSplitRoundTrip(t *testing.T) {
	cases := []struct {
		n, maxWords, overlap int
	}{
		{1, 3, 1},
		{3, 3, 1},
		{5, 3, 1},
		{100, 10, 3},
		{137, 20, 5},
		{300, 300, 50},
		{301, 300, 50},
		{7, 4, 3},
	}
	for _, tc := range cases {
		name := fmt.Sprintf("n=%d max=%d overlap=%d", tc.n, tc.maxWords, tc.overlap)
		t.Run(name, func(t *testing.T) {
			original := strings.Fields(words(tc.n))
			chunks, err := Split(strings.Join(original, " "), tc.maxWords, tc.overlap)
			require.NoError(t, err)

			var rebuilt []string
			for i, c := range chunks {
				ws := strings.Fields(c)
				if i > 0 {
					ws = ws[tc.overlap:]
				}
				rebuilt = append(rebuilt, ws...)
			}
			assert.Equal(t, original, rebuilt)
		})
	}
}

func TestSplitChunkCount(t *testing.T) {
	cases := []struct {
		n, maxWords, overlap int
	}{
		{1, 3, 1},
		{2, 3, 1},
		{3, 3, 1},
		{4, 3, 1},
		{5, 3, 1},
		{50, 10, 0},
		{55, 10, 3},
		{300, 300, 50},
		{600, 300, 50},
	}
	for _, tc := range cases {
		name := fmt.Sprintf("n=%d max=%d overlap=%d", tc.n, tc.maxWords, tc.overlap)
		t.Run(name, func(t *testing.T) {
			chunks, err := Split(words(tc.n), tc.maxWords, tc.overlap)
			require.NoError(t, err)

			step := tc.maxWords - tc.overlap
			want := (tc.n - tc.overlap + step - 1) / step
			if want < 1 {
				want = 1
			}
			assert.Len(t, chunks, want)
		})
	}
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}
