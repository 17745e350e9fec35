package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"unicode/utf8"

	"docchat/models"
)

// RAGService interface defines the two pipelines and the index stats lookup.
type RAGService interface {
	IngestDocument(ctx context.Context, doc models.Document) (*models.IngestReport, error)
	Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error)
	TotalChunks(ctx context.Context) (int, error)
}

// ragServiceImpl holds the dependencies it needs to do its job. All state is
// request-scoped; nothing is shared between invocations except the external
// index behind the VectorIndex interface.
type ragServiceImpl struct {
	embedder     Embedder
	index        VectorIndex
	generator    AnswerGenerator
	chunker      Chunker
	topK         int
	language     string
	systemPrompt string
}

// NewRAGService creates the pipeline orchestrator with its injected clients.
func NewRAGService(embedder Embedder, index VectorIndex, generator AnswerGenerator, chunker Chunker, topK int, language string) RAGService {
	if topK <= 0 {
		topK = 5
	}
	return &ragServiceImpl{
		embedder:     embedder,
		index:        index,
		generator:    generator,
		chunker:      chunker,
		topK:         topK,
		language:     language,
		systemPrompt: GetSystemPrompt(),
	}
}

// IngestDocument runs the ingestion pipeline: extract, chunk, embed each
// chunk in order, upsert the batch. A chunk whose embedding fails is skipped
// and reported, not fatal to the batch; an upsert failure is.
func (r *ragServiceImpl) IngestDocument(ctx context.Context, doc models.Document) (*models.IngestReport, error) {
	log.Printf("SERVICE: Ingesting document %q (%d bytes)", doc.Filename, len(doc.Data))

	extraction, err := ExtractText(doc)
	if err != nil {
		return nil, err
	}

	report := &models.IngestReport{
		Filename:   doc.Filename,
		Characters: utf8.RuneCountInString(extraction.Text),
		Pages:      extraction.Pages,
		EmptyPages: extraction.EmptyPages,
	}

	pieces, err := r.chunker.Split(extraction.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: chunking %s: %v", ErrExtraction, doc.Filename, err)
	}
	report.Chunks = len(pieces)
	if len(pieces) == 0 {
		report.Warnings = append(report.Warnings, "no relevant content detected; nothing was indexed")
		return report, nil
	}

	chunks := make([]models.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		n := i + 1
		vector, err := r.embedder.Embed(ctx, piece)
		if err != nil {
			log.Printf("SERVICE: Skipping chunk %d of %q: %v", n, doc.Filename, err)
			report.Skipped = append(report.Skipped, n)
			continue
		}
		chunks = append(chunks, models.Chunk{
			ID:          models.ChunkID(doc.Filename, n),
			Content:     piece,
			Embedding:   vector,
			Filename:    doc.Filename,
			ChunkNumber: n,
		})
	}
	if len(report.Skipped) > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("embedding failed for %d of %d segments; they were not indexed", len(report.Skipped), len(pieces)))
	}
	if len(chunks) == 0 {
		report.Warnings = append(report.Warnings, "embedding failed for every segment; nothing was indexed")
		return report, nil
	}

	upsert, err := r.index.Upsert(ctx, chunks)
	report.Indexed = upsert.Succeeded
	if err != nil {
		return report, err
	}

	log.Printf("SERVICE: Indexed %d chunks of %q", report.Indexed, doc.Filename)
	return report, nil
}

// Query runs the query pipeline: embed the question, retrieve the nearest
// chunks, generate the answer. A question-embedding failure aborts before
// search; a search failure degrades to a general-knowledge answer with a
// distinct notice.
func (r *ragServiceImpl) Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error) {
	log.Printf("SERVICE: Answering question (%d chars)", utf8.RuneCountInString(req.Question))

	vector, err := r.embedder.Embed(ctx, req.Question)
	if err != nil {
		return nil, err
	}

	resp := &models.QueryResponse{Question: req.Question}

	excerpts, err := r.index.Search(ctx, vector, r.topK)
	if err != nil {
		log.Printf("SERVICE: Vector search failed, falling back to general knowledge: %v", err)
		excerpts = nil
		resp.Notice = &models.Notice{
			Kind:    models.NoticeSearchFailed,
			Message: "The document index could not be searched; the answer is not grounded in your documents.",
		}
	} else if len(excerpts) == 0 {
		resp.Notice = &models.Notice{
			Kind:    models.NoticeNoMatches,
			Message: "No relevant excerpts were found; the answer is based on general knowledge.",
		}
	}
	resp.Excerpts = excerpts
	resp.Details = models.TechnicalDetails{
		Documents: usedDocuments(excerpts),
		Excerpts:  len(excerpts),
		Model:     r.generator.Model(),
	}

	prompt := BuildPrompt(req.Question, excerpts, r.language)
	answer, err := r.generator.Generate(ctx, r.systemPrompt, prompt)
	if err != nil {
		// The retrieved excerpts stay valid for the caller even when
		// generation fails; no rollback.
		return resp, err
	}
	resp.Answer = answer
	return resp, nil
}

// TotalChunks counts all chunk records currently in the index.
func (r *ragServiceImpl) TotalChunks(ctx context.Context) (int, error) {
	count, err := r.index.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting indexed chunks: %w", err)
	}
	return count, nil
}

// usedDocuments returns the sorted set of source filenames behind the
// excerpts.
func usedDocuments(excerpts []models.QueryResult) []string {
	seen := make(map[string]bool)
	names := make([]string, 0, len(excerpts))
	for _, e := range excerpts {
		if e.Filename == "" || seen[e.Filename] {
			continue
		}
		seen[e.Filename] = true
		names = append(names, e.Filename)
	}
	sort.Strings(names)
	return names
}
