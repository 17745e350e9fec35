package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunker splits extracted text into bounded-size segments for embedding.
// Empty or whitespace-only input yields no segments.
type Chunker interface {
	Split(text string) ([]string, error)
}

// NewChunker selects a chunker implementation by name.
func NewChunker(kind string, size, overlap int) (Chunker, error) {
	switch kind {
	case "wrap":
		return NewWrapChunker(size, overlap), nil
	case "recursive":
		return &RecursiveChunker{size: size, overlap: overlap}, nil
	default:
		return nil, fmt.Errorf("%w: unknown chunker %q", ErrConfiguration, kind)
	}
}

// WrapChunker packs whole words into segments of at most maxLen characters,
// never breaking inside a word. Runs of whitespace collapse to single spaces,
// so concatenating the segments reproduces the original word sequence. An
// overlap budget (in characters) carries trailing words of one segment into
// the start of the next.
type WrapChunker struct {
	maxLen  int
	overlap int
}

func NewWrapChunker(maxLen, overlap int) *WrapChunker {
	if maxLen <= 0 {
		maxLen = 1000
	}
	if overlap < 0 || overlap >= maxLen {
		overlap = 0
	}
	return &WrapChunker{maxLen: maxLen, overlap: overlap}
}

func (c *WrapChunker) Split(text string) ([]string, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	var chunks []string
	var cur []string
	curLen := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(cur, " "))
		cur, curLen = c.carryOver(cur)
	}

	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)

		// A single word longer than the budget cannot land on a word
		// boundary; it is hard-split into full segments of its own.
		if wordLen > c.maxLen {
			flush()
			cur, curLen = nil, 0
			for _, piece := range splitRunes(word, c.maxLen) {
				pieceLen := utf8.RuneCountInString(piece)
				if pieceLen == c.maxLen {
					chunks = append(chunks, piece)
				} else {
					cur = []string{piece}
					curLen = pieceLen
				}
			}
			continue
		}

		need := wordLen
		if len(cur) > 0 {
			need++ // joining space
		}
		if curLen+need > c.maxLen {
			flush()
			need = wordLen
			if len(cur) > 0 {
				need++
			}
			// Drop the overlap carry when it would not leave room for
			// the next word.
			if curLen+need > c.maxLen {
				cur, curLen = nil, 0
				need = wordLen
			}
		}
		cur = append(cur, word)
		curLen += need
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}
	return chunks, nil
}

// carryOver returns the trailing words of a just-emitted segment that fit the
// overlap budget, to seed the next segment. Never carries the whole segment.
func (c *WrapChunker) carryOver(cur []string) ([]string, int) {
	if c.overlap == 0 || len(cur) < 2 {
		return nil, 0
	}
	carryLen := 0
	start := len(cur)
	for i := len(cur) - 1; i > 0; i-- {
		add := utf8.RuneCountInString(cur[i])
		if start < len(cur) {
			add++
		}
		if carryLen+add > c.overlap {
			break
		}
		carryLen += add
		start = i
	}
	if start == len(cur) {
		return nil, 0
	}
	carry := make([]string, len(cur)-start)
	copy(carry, cur[start:])
	return carry, carryLen
}

// splitRunes cuts s into pieces of at most n runes.
func splitRunes(s string, n int) []string {
	var pieces []string
	runes := []rune(s)
	for len(runes) > n {
		pieces = append(pieces, string(runes[:n]))
		runes = runes[n:]
	}
	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}
	return pieces
}

// RecursiveChunker delegates to the langchaingo recursive character splitter,
// which prefers paragraph and sentence boundaries over plain word wrapping.
type RecursiveChunker struct {
	size    int
	overlap int
}

func (c *RecursiveChunker) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.size),
		textsplitter.WithChunkOverlap(c.overlap),
	)
	chunks, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}
	return chunks, nil
}
