package models

import (
	"time"
)

// DocumentStatus tracks a document through the ingest pipeline.
type DocumentStatus string

const (
	// DocPending is set on upload, before any page has been indexed.
	DocPending DocumentStatus = "pending"
	// DocPartial means at least one page was indexed and at least one failed or was skipped.
	DocPartial DocumentStatus = "partial"
	// DocComplete means every page was extracted and indexed.
	DocComplete DocumentStatus = "complete"
	// DocFailed means nothing extractable came out of the document.
	DocFailed DocumentStatus = "failed"
)

// PageStatus records the outcome of extracting one page.
type PageStatus string

const (
	PageOK PageStatus = "ok"
	// PageFailed: extraction errored on this page. Siblings are unaffected.
	PageFailed PageStatus = "failed"
	// PageSkipped: extracted, but below the confidence threshold. Text is kept
	// for audit but excluded from the index.
	PageSkipped PageStatus = "skipped"
)

// Document is the unit of ingestion. The ID is derived from the content hash,
// so re-ingesting identical bytes converges on the same document.
type Document struct {
	ID         string         `json:"id"`
	Filename   string         `json:"filename"`
	Format     string         `json:"format"`
	Status     DocumentStatus `json:"status"`
	PageCount  int            `json:"pageCount"`
	IngestedAt time.Time      `json:"ingestedAt"`
}

// Page belongs to exactly one Document and is immutable once written.
type Page struct {
	DocumentID string     `json:"documentId"`
	Ordinal    int        `json:"ordinal"`
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	Status     PageStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
}

// Passage is the indexable unit: a slice of one page's text with its
// normalized term set. Text keeps the original casing for display; Terms
// carry the folded, stopword-filtered form used by the inverted index.
type Passage struct {
	ID          string   `json:"id"`
	DocumentID  string   `json:"documentId"`
	PageOrdinal int      `json:"pageOrdinal"`
	Text        string   `json:"text"`
	Offset      int      `json:"offset"`
	End         int      `json:"end"`
	Terms       []string `json:"terms"`
}

// ScoredPassage pairs a passage with its relevance score for a query.
type ScoredPassage struct {
	Passage Passage `json:"passage"`
	Score   float64 `json:"score"`
}

// PassageRef identifies a passage inside the index without owning it.
type PassageRef struct {
	DocumentID string `json:"documentId"`
	PassageID  string `json:"passageId"`
}

// IngestTask is the caller-facing view of one queued ingest job.
type IngestTask struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"documentId"`
	Status     ProcessingStatus  `json:"status"`
	Progress   float64           `json:"progress"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt,omitempty"`
}

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
)
