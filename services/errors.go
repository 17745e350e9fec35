package services

import "errors"

// Sentinel errors for each pipeline stage. Call sites wrap these with
// fmt.Errorf("...: %w", ...) so the controller can classify failures with
// errors.Is without parsing messages.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtraction        = errors.New("text extraction failed")
	ErrEmbedding         = errors.New("embedding generation failed")
	ErrIndexUpsert       = errors.New("index upsert failed")
	ErrSearch            = errors.New("vector search failed")
	ErrGeneration        = errors.New("answer generation failed")
	ErrConfiguration     = errors.New("invalid configuration")
)
