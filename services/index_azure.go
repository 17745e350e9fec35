package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"docchat/models"
)

// SearchIndexClient is a REST client for an Azure AI Search index holding
// chunk records. Records are keyed by chunk id; the vector field is named
// "embedding" and queried with k-nearest-neighbor vector queries.
type SearchIndexClient struct {
	endpoint   string
	indexName  string
	apiKey     string
	apiVersion string
	httpClient *http.Client
}

// NewSearchIndexClient builds a client for one index. The http.Client should
// carry an explicit timeout; every call here is a blocking network round trip.
func NewSearchIndexClient(httpClient *http.Client, endpoint, indexName, apiKey, apiVersion string) *SearchIndexClient {
	return &SearchIndexClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		indexName:  indexName,
		apiKey:     apiKey,
		apiVersion: apiVersion,
		httpClient: httpClient,
	}
}

type searchIndexRecord struct {
	Action      string    `json:"@search.action"`
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"embedding"`
	Filename    string    `json:"filename"`
	ChunkNumber int       `json:"chunk_number"`
}

type indexBatchResponse struct {
	Value []struct {
		Key          string `json:"key"`
		Status       bool   `json:"status"`
		ErrorMessage string `json:"errorMessage"`
		StatusCode   int    `json:"statusCode"`
	} `json:"value"`
}

// Upsert submits one batch of chunk records, each tagged with the upload
// action. The service reports per-record outcomes; rejected ids are surfaced
// in the report rather than folded into batch success.
func (c *SearchIndexClient) Upsert(ctx context.Context, chunks []models.Chunk) (UpsertReport, error) {
	records := make([]searchIndexRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = searchIndexRecord{
			Action:      "upload",
			ID:          chunk.ID,
			Content:     chunk.Content,
			Embedding:   chunk.Embedding,
			Filename:    chunk.Filename,
			ChunkNumber: chunk.ChunkNumber,
		}
	}

	var resp indexBatchResponse
	u := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s", c.endpoint, url.PathEscape(c.indexName), c.apiVersion)
	if err := c.postJSON(ctx, u, map[string]any{"value": records}, &resp); err != nil {
		return UpsertReport{}, fmt.Errorf("%w: %v", ErrIndexUpsert, err)
	}

	report := UpsertReport{}
	for _, item := range resp.Value {
		if item.Status {
			report.Succeeded++
		} else {
			report.Failed = append(report.Failed, item.Key)
		}
	}
	if len(report.Failed) > 0 {
		return report, fmt.Errorf("%w: %d of %d records rejected (first: %s)",
			ErrIndexUpsert, len(report.Failed), len(chunks), report.Failed[0])
	}
	return report, nil
}

type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
	Fields string    `json:"fields"`
}

type searchResponse struct {
	Value []struct {
		Score       float64 `json:"@search.score"`
		ID          string  `json:"id"`
		Content     string  `json:"content"`
		Filename    string  `json:"filename"`
		ChunkNumber int     `json:"chunk_number"`
	} `json:"value"`
}

// Search runs a pure vector query against the embedding field and returns the
// top-k records in the service's similarity order. An empty result is valid
// and distinct from a transport failure.
func (c *SearchIndexClient) Search(ctx context.Context, vector []float32, topK int) ([]models.QueryResult, error) {
	if topK <= 0 {
		topK = 5
	}
	body := map[string]any{
		"search": "",
		"select": "id,content,filename,chunk_number",
		"vectorQueries": []vectorQuery{{
			Kind:   "vector",
			Vector: vector,
			K:      topK,
			Fields: "embedding",
		}},
	}

	var resp searchResponse
	u := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", c.endpoint, url.PathEscape(c.indexName), c.apiVersion)
	if err := c.postJSON(ctx, u, body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearch, err)
	}

	results := make([]models.QueryResult, 0, len(resp.Value))
	for _, item := range resp.Value {
		results = append(results, models.QueryResult{
			ID:          item.ID,
			Content:     item.Content,
			Filename:    item.Filename,
			ChunkNumber: item.ChunkNumber,
		})
	}
	return results, nil
}

// Count returns the total number of records in the index.
func (c *SearchIndexClient) Count(ctx context.Context) (int, error) {
	u := fmt.Sprintf("%s/indexes/%s/docs/$count?api-version=%s", c.endpoint, url.PathEscape(c.indexName), c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSearch, err)
	}
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSearch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: count returned status %d", ErrSearch, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSearch, err)
	}
	// The count endpoint replies with a bare integer, BOM-prefixed on some
	// service versions.
	count, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(string(raw), "\ufeff")))
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected count body %q", ErrSearch, string(raw))
	}
	return count, nil
}

func (c *SearchIndexClient) postJSON(ctx context.Context, u string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 207 carries per-record statuses for a partially rejected batch; the
	// caller inspects them individually.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusMultiStatus {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
