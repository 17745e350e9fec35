package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"docchat/models"
)

type fakeEmbedder struct {
	failOn map[string]bool
	calls  []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.failOn[text] {
		return nil, fmt.Errorf("%w: simulated transport failure", ErrEmbedding)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeIndex struct {
	upserts       [][]models.Chunk
	upsertErr     error
	searchResults []models.QueryResult
	searchErr     error
	searchCalls   int
	count         int
}

func (f *fakeIndex) Upsert(_ context.Context, chunks []models.Chunk) (UpsertReport, error) {
	f.upserts = append(f.upserts, chunks)
	if f.upsertErr != nil {
		return UpsertReport{}, f.upsertErr
	}
	return UpsertReport{Succeeded: len(chunks)}, nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, _ int) ([]models.QueryResult, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults, nil
}

func (f *fakeIndex) Count(_ context.Context) (int, error) { return f.count, nil }

type fakeGenerator struct {
	lastSystem string
	lastPrompt string
	answer     string
	err        error
	calls      int
}

func (f *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) Model() string { return "fake-model" }

func newTestService(embedder *fakeEmbedder, index *fakeIndex, generator *fakeGenerator, chunkSize int) RAGService {
	return NewRAGService(embedder, index, generator, NewWrapChunker(chunkSize, 0), 5, "French")
}

func TestIngestDocument_OneBatchDeterministicIDs(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	svc := newTestService(embedder, index, &fakeGenerator{}, 30)

	text := "Employee agrees to the terms. Termination clause applies here."
	report, err := svc.IngestDocument(context.Background(), models.Document{
		Filename: "contract.txt",
		Data:     []byte(text),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(index.upserts) != 1 {
		t.Fatalf("expected one batch upsert call, got %d", len(index.upserts))
	}
	batch := index.upserts[0]
	if len(batch) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(batch))
	}
	for i, chunk := range batch {
		wantID := fmt.Sprintf("contract_txt_chunk_%d", i+1)
		if chunk.ID != wantID {
			t.Errorf("chunk %d id: got %q, want %q", i, chunk.ID, wantID)
		}
		if chunk.ChunkNumber != i+1 {
			t.Errorf("chunk %d number: got %d, want %d", i, chunk.ChunkNumber, i+1)
		}
		if len(chunk.Embedding) == 0 {
			t.Errorf("chunk %d has no embedding", i)
		}
		if chunk.Filename != "contract.txt" {
			t.Errorf("chunk %d filename: got %q", i, chunk.Filename)
		}
	}
	if report.Indexed != len(batch) {
		t.Errorf("report.Indexed: got %d, want %d", report.Indexed, len(batch))
	}
	if report.Chunks != len(batch) {
		t.Errorf("report.Chunks: got %d, want %d", report.Chunks, len(batch))
	}
}

func TestIngestDocument_Idempotent(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	svc := newTestService(embedder, index, &fakeGenerator{}, 30)

	doc := models.Document{Filename: "contract.txt", Data: []byte("Employee agrees to the terms. Termination clause applies here.")}
	if _, err := svc.IngestDocument(context.Background(), doc); err != nil {
		t.Fatalf("first ingestion: %v", err)
	}
	if _, err := svc.IngestDocument(context.Background(), doc); err != nil {
		t.Fatalf("second ingestion: %v", err)
	}

	if len(index.upserts) != 2 {
		t.Fatalf("expected 2 upsert batches, got %d", len(index.upserts))
	}
	first, second := index.upserts[0], index.upserts[1]
	if len(first) != len(second) {
		t.Fatalf("batch sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d id changed between ingestions: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}

func TestIngestDocument_SkipsFailedChunkAndContinues(t *testing.T) {
	embedder := &fakeEmbedder{failOn: map[string]bool{}}
	index := &fakeIndex{}
	chunker := NewWrapChunker(30, 0)
	svc := NewRAGService(embedder, index, &fakeGenerator{}, chunker, 5, "French")

	text := "Employee agrees to the terms. Termination clause applies here."
	pieces, err := chunker.Split(text)
	if err != nil || len(pieces) < 2 {
		t.Fatalf("test setup: need >= 2 chunks, got %d (err %v)", len(pieces), err)
	}
	embedder.failOn[pieces[0]] = true

	report, err := svc.IngestDocument(context.Background(), models.Document{
		Filename: "contract.txt",
		Data:     []byte(text),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Skipped) != 1 || report.Skipped[0] != 1 {
		t.Fatalf("expected chunk 1 to be skipped, got %v", report.Skipped)
	}
	if len(index.upserts) != 1 {
		t.Fatalf("expected the surviving chunks to be upserted, got %d batches", len(index.upserts))
	}
	for _, chunk := range index.upserts[0] {
		if chunk.ChunkNumber == 1 {
			t.Error("skipped chunk made it into the batch")
		}
	}
	if len(report.Warnings) == 0 {
		t.Error("expected a warning about skipped segments")
	}
}

func TestIngestDocument_EmptyTextWarnsWithoutIndexing(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	svc := newTestService(embedder, index, &fakeGenerator{}, 1000)

	report, err := svc.IngestDocument(context.Background(), models.Document{
		Filename: "blank.txt",
		Data:     []byte("   \n\t  "),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Chunks != 0 {
		t.Errorf("expected 0 chunks, got %d", report.Chunks)
	}
	if len(index.upserts) != 0 {
		t.Errorf("nothing should be upserted for empty content")
	}
	if len(report.Warnings) == 0 {
		t.Error("expected a warning about missing content")
	}
	if len(embedder.calls) != 0 {
		t.Errorf("embedding should not run on empty content, had %d calls", len(embedder.calls))
	}
}

func TestIngestDocument_UnsupportedFormat(t *testing.T) {
	svc := newTestService(&fakeEmbedder{}, &fakeIndex{}, &fakeGenerator{}, 1000)

	_, err := svc.IngestDocument(context.Background(), models.Document{
		Filename: "binary.exe",
		Data:     []byte{0x4d, 0x5a},
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected an unsupported format error, got %v", err)
	}
}

func TestIngestDocument_UpsertFailureSurfaces(t *testing.T) {
	index := &fakeIndex{upsertErr: fmt.Errorf("%w: index unreachable", ErrIndexUpsert)}
	svc := newTestService(&fakeEmbedder{}, index, &fakeGenerator{}, 1000)

	report, err := svc.IngestDocument(context.Background(), models.Document{
		Filename: "contract.txt",
		Data:     []byte("Employee agrees to the terms."),
	})
	if err == nil {
		t.Fatal("expected an upsert error")
	}
	if report == nil || report.Indexed != 0 {
		t.Errorf("report should show zero indexed chunks, got %+v", report)
	}
}

func TestQuery_EmbeddingFailureAbortsBeforeSearch(t *testing.T) {
	embedder := &fakeEmbedder{failOn: map[string]bool{"Can my employer fire me without notice?": true}}
	index := &fakeIndex{}
	generator := &fakeGenerator{answer: "should never be produced"}
	svc := newTestService(embedder, index, generator, 1000)

	resp, err := svc.Query(context.Background(), models.QueryRequest{
		Question: "Can my employer fire me without notice?",
	})
	if err == nil {
		t.Fatal("expected an embedding error")
	}
	if resp != nil {
		t.Errorf("no partial answer expected, got %+v", resp)
	}
	if index.searchCalls != 0 {
		t.Errorf("search must not run after an embedding failure, ran %d times", index.searchCalls)
	}
	if generator.calls != 0 {
		t.Errorf("generation must not run after an embedding failure, ran %d times", generator.calls)
	}
}

func TestQuery_NoMatchesUsesExplicitMarker(t *testing.T) {
	generator := &fakeGenerator{answer: "general knowledge answer"}
	svc := newTestService(&fakeEmbedder{}, &fakeIndex{}, generator, 1000)

	resp, err := svc.Query(context.Background(), models.QueryRequest{Question: "anything?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generator.calls != 1 {
		t.Fatalf("generator should run exactly once, ran %d times", generator.calls)
	}
	if !strings.Contains(generator.lastPrompt, NoExcerptsMarker) {
		t.Errorf("prompt should carry the no-excerpts marker, got %q", generator.lastPrompt)
	}
	if resp.Notice == nil || resp.Notice.Kind != models.NoticeNoMatches {
		t.Errorf("expected a no_matches notice, got %+v", resp.Notice)
	}
	if resp.Details.Excerpts != 0 || len(resp.Details.Documents) != 0 {
		t.Errorf("technical details should be empty, got %+v", resp.Details)
	}
}

func TestQuery_SearchFailureFallsBackWithDistinctNotice(t *testing.T) {
	index := &fakeIndex{searchErr: fmt.Errorf("%w: connection refused", ErrSearch)}
	generator := &fakeGenerator{answer: "ungrounded answer"}
	svc := newTestService(&fakeEmbedder{}, index, generator, 1000)

	resp, err := svc.Query(context.Background(), models.QueryRequest{Question: "anything?"})
	if err != nil {
		t.Fatalf("search failure should not abort the query: %v", err)
	}
	if resp.Notice == nil || resp.Notice.Kind != models.NoticeSearchFailed {
		t.Errorf("expected a search_failed notice, got %+v", resp.Notice)
	}
	if !strings.Contains(generator.lastPrompt, NoExcerptsMarker) {
		t.Errorf("prompt should carry the no-excerpts marker, got %q", generator.lastPrompt)
	}
	if resp.Answer != "ungrounded answer" {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
}

func TestQuery_TechnicalDetailsListUsedDocuments(t *testing.T) {
	index := &fakeIndex{searchResults: []models.QueryResult{{
		ID:          "contract_pdf_chunk_2",
		Content:     "Termination requires written notice of one month.",
		Filename:    "contract.pdf",
		ChunkNumber: 2,
	}}}
	generator := &fakeGenerator{answer: "Your employer must give written notice."}
	svc := newTestService(&fakeEmbedder{}, index, generator, 1000)

	resp, err := svc.Query(context.Background(), models.QueryRequest{
		Question: "Can my employer fire me without notice?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Details.Documents) != 1 || resp.Details.Documents[0] != "contract.pdf" {
		t.Errorf("used documents: got %v, want [contract.pdf]", resp.Details.Documents)
	}
	if resp.Details.Excerpts != 1 {
		t.Errorf("excerpt count: got %d, want 1", resp.Details.Excerpts)
	}
	if resp.Details.Model != "fake-model" {
		t.Errorf("model name: got %q", resp.Details.Model)
	}
	if !strings.Contains(generator.lastPrompt, "source: contract.pdf, segment 2") {
		t.Errorf("prompt should carry provenance, got %q", generator.lastPrompt)
	}
	if resp.Notice != nil {
		t.Errorf("no notice expected when matches exist, got %+v", resp.Notice)
	}
}

func TestQuery_GenerationFailureKeepsExcerpts(t *testing.T) {
	index := &fakeIndex{searchResults: []models.QueryResult{{
		ID: "contract_pdf_chunk_1", Content: "Employee agrees.", Filename: "contract.pdf", ChunkNumber: 1,
	}}}
	generator := &fakeGenerator{err: fmt.Errorf("%w: model overloaded", ErrGeneration)}
	svc := newTestService(&fakeEmbedder{}, index, generator, 1000)

	resp, err := svc.Query(context.Background(), models.QueryRequest{Question: "anything?"})
	if err == nil {
		t.Fatal("expected a generation error")
	}
	if resp == nil || len(resp.Excerpts) != 1 {
		t.Fatalf("retrieved excerpts must survive a generation failure, got %+v", resp)
	}
	if resp.Answer != "" {
		t.Errorf("no answer expected, got %q", resp.Answer)
	}
}

func TestTotalChunks(t *testing.T) {
	svc := newTestService(&fakeEmbedder{}, &fakeIndex{count: 7}, &fakeGenerator{}, 1000)

	count, err := svc.TotalChunks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 7 {
		t.Errorf("got %d, want 7", count)
	}
}

func TestBuildPrompt_Directives(t *testing.T) {
	prompt := BuildPrompt("What now?", nil, "French")
	for _, want := range []string{"DOCUMENT CONTEXT:", "USER QUESTION:", "What now?", "Respond in French", "Cite the documentary sources"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
