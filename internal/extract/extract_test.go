package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextPlain(t *testing.T) {
	got, err := Text("docs/notes.txt", strings.NewReader("  hello world\n"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestTextUnknownExtensionFallsBackToPlain(t *testing.T) {
	got, err := Text("docs/readme.md", strings.NewReader("# heading"))
	require.NoError(t, err)
	assert.Equal(t, "# heading", got)
}

func TestTextInvalidUTF8Tolerated(t *testing.T) {
	got, err := Text("docs/raw.txt", strings.NewReader("ok\xff\xfeok"))
	require.NoError(t, err)
	assert.Contains(t, got, "ok")
	assert.True(t, strings.HasPrefix(got, "ok"))
}

func TestTextEmptySource(t *testing.T) {
	got, err := Text("docs/empty.txt", strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTextCorruptPDF(t *testing.T) {
	_, err := Text("docs/broken.pdf", strings.NewReader("not a pdf at all"))
	require.Error(t, err)
	var ee *Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "docs/broken.pdf", ee.SourceKey)
}

func TestTextEmptyPDF(t *testing.T) {
	got, err := Text("docs/empty.pdf", strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}
