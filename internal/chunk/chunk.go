// Package chunk splits extracted document text into overlapping word-count
// bounded segments. Word boundaries keep the split encoding-agnostic.
package chunk

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidParams = errors.New("invalid chunk parameters")

// Split breaks text into chunks of up to maxWords words, with consecutive
// chunks sharing overlapWords words. The result is deterministic: the same
// input always yields the same boundaries. Empty or whitespace-only text
// yields no chunks and no error; callers treat that as nothing to ingest.
func Split(text string, maxWords, overlapWords int) ([]string, error) {
	if maxWords <= 0 {
		return nil, fmt.Errorf("%w: max_words must be positive, got %d", ErrInvalidParams, maxWords)
	}
	if overlapWords < 0 {
		return nil, fmt.Errorf("%w: overlap_words must not be negative, got %d", ErrInvalidParams, overlapWords)
	}
	if overlapWords >= maxWords {
		return nil, fmt.Errorf("%w: overlap_words (%d) must be less than max_words (%d)", ErrInvalidParams, overlapWords, maxWords)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := maxWords - overlapWords
	var chunks []string
	for i := 0; i < len(words); i += step {
		end := i + maxWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks, nil
}
