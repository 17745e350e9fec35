package services

import (
	"context"

	"docchat/models"
)

// UpsertReport carries per-record outcomes of a batch upsert. The backing
// service may accept part of a batch; the report never claims success for a
// record that failed.
type UpsertReport struct {
	Succeeded int
	Failed    []string // ids of rejected records
}

// VectorIndex is the external index holding chunk records keyed by id.
// Upserts overwrite records with the same id; retrieval order is the
// service's own similarity ranking, highest first.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []models.Chunk) (UpsertReport, error)
	Search(ctx context.Context, vector []float32, topK int) ([]models.QueryResult, error)
	Count(ctx context.Context) (int, error)
}
