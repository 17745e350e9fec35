package models

// IngestReport summarises one run of the ingestion pipeline for a document.
type IngestReport struct {
	Filename   string   `json:"filename"`
	Characters int      `json:"characters"`
	Pages      int      `json:"pages,omitempty"`
	EmptyPages int      `json:"empty_pages,omitempty"`
	Chunks     int      `json:"chunks"`
	Indexed    int      `json:"indexed"`
	Skipped    []int    `json:"skipped_chunks,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Notice kinds distinguish "the index had nothing relevant" from "the index
// could not be reached". The presentation layer renders them differently.
const (
	NoticeNoMatches    = "no_matches"
	NoticeSearchFailed = "search_failed"
)

// Notice is an informational condition raised by the query pipeline that is
// not fatal to the answer.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// TechnicalDetails records provenance for one answer: which documents fed it,
// how many excerpts were used and which model produced it.
type TechnicalDetails struct {
	Documents []string `json:"documents"`
	Excerpts  int      `json:"excerpts"`
	Model     string   `json:"model"`
}

// QueryResponse is one complete question-answer cycle. Nothing in it is
// persisted across requests.
type QueryResponse struct {
	Question string           `json:"question"`
	Answer   string           `json:"answer"`
	Excerpts []QueryResult    `json:"excerpts,omitempty"`
	Notice   *Notice          `json:"notice,omitempty"`
	Details  TechnicalDetails `json:"details"`
}
