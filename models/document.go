package models

import (
	"fmt"
	"regexp"
)

// Document is one uploaded file. It lives only for the duration of a single
// ingestion request.
type Document struct {
	Filename string
	Data     []byte
}

// Extraction is the result of pulling text out of a document. Pages and
// EmptyPages are only meaningful for paged formats (PDF); empty pages are
// skipped during extraction but counted here for diagnostics.
type Extraction struct {
	Text       string
	Pages      int
	EmptyPages int
}

// Chunk is the unit of embedding and indexing: a bounded slice of a
// document's text together with its vector and provenance. Immutable once
// indexed.
type Chunk struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"embedding"`
	Filename    string    `json:"filename"`
	ChunkNumber int       `json:"chunk_number"`
}

// QueryResult is a chunk projection returned by retrieval. The embedding is
// not carried back; only content and provenance reach the caller.
type QueryResult struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Filename    string `json:"filename"`
	ChunkNumber int    `json:"chunk_number"`
}

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_\-=]`)

// SanitizeFilename replaces any character the index does not accept in a
// document key with an underscore.
func SanitizeFilename(name string) string {
	return unsafeIDChars.ReplaceAllString(name, "_")
}

// ChunkID builds the deterministic id for a chunk of a given file. Re-ingesting
// the same file therefore produces the same ids and the index upserts over the
// previous records instead of accumulating duplicates.
func ChunkID(filename string, chunkNumber int) string {
	return fmt.Sprintf("%s_chunk_%d", SanitizeFilename(filename), chunkNumber)
}
