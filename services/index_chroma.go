package services

import (
	"context"
	"encoding/json"
	"fmt"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"docchat/models"
)

// ChromaIndex stores chunk records in a Chroma collection. Upsert semantics
// are delete-then-add keyed by filename, so re-ingesting a document replaces
// its previous chunks instead of duplicating them.
type ChromaIndex struct {
	collection chromago.Collection
}

func NewChromaIndex(collection chromago.Collection) *ChromaIndex {
	return &ChromaIndex{collection: collection}
}

// Upsert replaces all records of the batch's source files, then adds the new
// chunks one by one. Chroma accepts or rejects each add as a whole, so the
// report counts adds that went through before the first failure.
func (c *ChromaIndex) Upsert(ctx context.Context, chunks []models.Chunk) (UpsertReport, error) {
	seen := make(map[string]bool)
	for _, chunk := range chunks {
		if seen[chunk.Filename] {
			continue
		}
		seen[chunk.Filename] = true
		where := chromago.EqString("filename", chunk.Filename)
		if err := c.collection.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
			return UpsertReport{}, fmt.Errorf("%w: deleting previous chunks of %s: %v", ErrIndexUpsert, chunk.Filename, err)
		}
	}

	report := UpsertReport{}
	for _, chunk := range chunks {
		metadata := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("filename", chunk.Filename),
			chromago.NewIntAttribute("chunk_number", int64(chunk.ChunkNumber)),
		)
		err := c.collection.Add(ctx,
			chromago.WithIDs(chromago.DocumentID(chunk.ID)),
			chromago.WithTexts(chunk.Content),
			chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(chunk.Embedding)),
			chromago.WithMetadatas(metadata),
		)
		if err != nil {
			report.Failed = append(report.Failed, chunk.ID)
			return report, fmt.Errorf("%w: adding %s: %v", ErrIndexUpsert, chunk.ID, err)
		}
		report.Succeeded++
	}
	return report, nil
}

// Search queries the collection by embedding and rebuilds chunk projections
// from the stored documents and metadata.
func (c *ChromaIndex) Search(ctx context.Context, vector []float32, topK int) ([]models.QueryResult, error) {
	if topK <= 0 {
		topK = 5
	}
	results, err := c.collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(topK),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearch, err)
	}

	var out []models.QueryResult
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	if len(documentGroups) == 0 {
		return out, nil
	}
	for i, doc := range documentGroups[0] {
		if doc.ContentString() == "" {
			continue
		}
		result := models.QueryResult{Content: doc.ContentString()}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			if meta := metadataMap(metadataGroups[0][i]); meta != nil {
				if name, ok := meta["filename"].(string); ok {
					result.Filename = name
				}
				if n, ok := meta["chunk_number"].(float64); ok {
					result.ChunkNumber = int(n)
				}
			}
		}
		if result.Filename != "" && result.ChunkNumber > 0 {
			result.ID = models.ChunkID(result.Filename, result.ChunkNumber)
		}
		out = append(out, result)
	}
	return out, nil
}

// Count returns the number of records in the collection.
func (c *ChromaIndex) Count(ctx context.Context) (int, error) {
	count, err := c.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSearch, err)
	}
	return int(count), nil
}

// metadataMap converts a Chroma DocumentMetadata to a plain map through its
// JSON form; the type exposes no direct accessor for all values.
func metadataMap(meta chromago.DocumentMetadata) map[string]any {
	if meta == nil {
		return nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
