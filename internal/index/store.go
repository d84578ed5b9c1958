package index

import (
	"context"

	"github.com/arigen-tech/docsearch/internal/models"
)

// QueryView is a point-in-time read of everything a search needs: the live
// documents, the total passage count, and each term's matching passages.
type QueryView struct {
	Documents []models.Document
	Total     int
	Hits      map[string][]models.Passage
}

// Store persists documents, their pages and passages, and the inverted
// term -> passage mapping. Implementations must make Put atomic from the
// caller's view: either all of a document's passages become searchable or
// none do.
type Store interface {
	// Put publishes a document with its pages and passages. A document that
	// already exists is replaced; its old passages stay visible until the
	// swap completes.
	Put(ctx context.Context, doc models.Document, pages []models.Page, passages []models.Passage) error

	// Document returns a document by id, or models.ErrNotFound.
	Document(ctx context.Context, id string) (models.Document, error)

	// Documents lists every document currently in the store.
	Documents(ctx context.Context) ([]models.Document, error)

	// Pages returns a document's pages in ordinal order, or models.ErrNotFound.
	Pages(ctx context.Context, docID string) ([]models.Page, error)

	// Passage resolves a posting reference. A reference that points at a
	// missing passage reports models.ErrIndexInconsistent.
	Passage(ctx context.Context, ref models.PassageRef) (models.Passage, error)

	// Postings returns the passage references recorded for a term.
	Postings(ctx context.Context, term string) ([]models.PassageRef, error)

	// Query resolves the terms against one consistent view of the index.
	// Implementations must build the whole view under a single read lock so
	// a publish or clear landing mid-search never leaves a posting without
	// a passage behind it.
	Query(ctx context.Context, terms []string) (QueryView, error)

	// PassageCount reports the number of live passages, used for IDF.
	PassageCount(ctx context.Context) (int, error)

	// ClearAll removes every document, page, passage and posting and returns
	// the number of documents removed.
	ClearAll(ctx context.Context) (int, error)

	// ClearDocument cascades: pages, passages and every posting referencing
	// the document are removed. Returns models.ErrNotFound for unknown ids.
	ClearDocument(ctx context.Context, id string) error
}
