// Package extract turns raw source bytes into plain text. The format is
// picked from the source key's extension: PDF gets a real parser, everything
// else is treated as UTF-8 text with invalid bytes tolerated.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Error marks unreadable or unsupported source content. It is fatal for the
// document being ingested.
type Error struct {
	SourceKey string
	Reason    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %q failed: %s", e.SourceKey, e.Reason)
}

// Text extracts plain text from r for the given source key. An empty result
// with nil error means the source genuinely holds no text; the caller decides
// whether that is fatal.
func Text(sourceKey string, r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", &Error{SourceKey: sourceKey, Reason: "read source failed: " + err.Error()}
	}

	ext := strings.ToLower(filepath.Ext(sourceKey))
	switch ext {
	case ".pdf":
		return pdfText(sourceKey, raw)
	default:
		return plainText(raw), nil
	}
}

func pdfText(sourceKey string, raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", &Error{SourceKey: sourceKey, Reason: "parse pdf failed: " + err.Error()}
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", &Error{SourceKey: sourceKey, Reason: "extract pdf text failed: " + err.Error()}
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", &Error{SourceKey: sourceKey, Reason: "read pdf text failed: " + err.Error()}
	}
	return strings.TrimSpace(string(out)), nil
}

// plainText decodes raw as UTF-8, replacing invalid sequences instead of
// failing, so plain-text ingestion never dies on a stray byte.
func plainText(raw []byte) string {
	if utf8.Valid(raw) {
		return strings.TrimSpace(string(raw))
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(raw), "�"))
}
