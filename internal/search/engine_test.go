package search

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arigen-tech/docsearch/internal/index"
	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/internal/normalizer"
	"github.com/arigen-tech/docsearch/pkg/logger"
)

func publish(t *testing.T, s index.Store, id string, status models.DocumentStatus, pageTexts ...string) {
	t.Helper()
	n := normalizer.New(600, 0)

	var pages []models.Page
	var passages []models.Passage
	for i, text := range pageTexts {
		page := models.Page{
			DocumentID: id,
			Ordinal:    i + 1,
			Text:       text,
			Confidence: 1.0,
			Status:     models.PageOK,
		}
		pages = append(pages, page)
		passages = append(passages, n.Normalize(page)...)
	}

	doc := models.Document{
		ID:        id,
		Filename:  id + ".txt",
		Format:    ".txt",
		Status:    status,
		PageCount: len(pages),
	}
	require.NoError(t, s.Put(context.Background(), doc, pages, passages))
}

func newEngine(s index.Store) *Engine {
	return NewEngine(s, logger.NewTestLogger())
}

func TestSearchEmptyQuery(t *testing.T) {
	s := index.NewMemoryStore()
	publish(t, s, "d1", models.DocComplete, "invoice total due")
	e := newEngine(s)

	for _, q := range []string{"", "   ", "the and of"} {
		results, err := e.Search(context.Background(), q, ScopeAll)
		require.NoError(t, err)
		assert.Nil(t, results)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	e := newEngine(index.NewMemoryStore())

	results, err := e.Search(context.Background(), "invoice", ScopeAll)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestSearchUnknownScope(t *testing.T) {
	s := index.NewMemoryStore()
	publish(t, s, "d1", models.DocComplete, "invoice total due")
	e := newEngine(s)

	_, err := e.Search(context.Background(), "invoice", "missing-doc")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// Two documents: one about invoices, one about gardening. Querying for the
// invoice total must surface the invoice passage first and must not leak
// into the unrelated document's scope.
func TestSearchInvoiceScenario(t *testing.T) {
	s := index.NewMemoryStore()
	publish(t, s, "invoices", models.DocComplete,
		"Invoice 2042: the total amount due is 1250 euro, payable within thirty days.")
	publish(t, s, "garden", models.DocComplete,
		"Tomatoes grow best when watered early and pruned regularly in summer.")
	e := newEngine(s)

	results, err := e.Search(context.Background(), "invoice total", ScopeAll)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "invoices", results[0].Passage.DocumentID)
	for _, r := range results {
		assert.NotEqual(t, "garden", r.Passage.DocumentID)
	}

	// Scoped to the unrelated document there is no hit at all.
	results, err = e.Search(context.Background(), "invoice total", "garden")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchScopeIsolation(t *testing.T) {
	s := index.NewMemoryStore()
	publish(t, s, "d1", models.DocComplete, "shared term alpha here")
	publish(t, s, "d2", models.DocComplete, "shared term beta here")
	e := newEngine(s)

	results, err := e.Search(context.Background(), "shared", "d1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].Passage.DocumentID)
}

func TestSearchAllSkipsUnsearchableDocuments(t *testing.T) {
	s := index.NewMemoryStore()
	publish(t, s, "ok", models.DocComplete, "keyword lives here")
	publish(t, s, "part", models.DocPartial, "keyword lives here too")
	publish(t, s, "pend", models.DocPending, "keyword hidden while pending")
	publish(t, s, "dead", models.DocFailed, "keyword hidden after failure")
	e := newEngine(s)

	results, err := e.Search(context.Background(), "keyword", ScopeAll)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Contains(t, []string{"ok", "part"}, r.Passage.DocumentID)
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	s := index.NewMemoryStore()
	publish(t, s, "d1", models.DocComplete, "The INVOICE total")
	e := newEngine(s)

	results, err := e.Search(context.Background(), "invoice", ScopeAll)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchRareTermRanksHigher(t *testing.T) {
	s := index.NewMemoryStore()
	// "common" appears in three passages, "rare" in one.
	publish(t, s, "d1", models.DocComplete, "common words everywhere")
	publish(t, s, "d2", models.DocComplete, "common words again")
	publish(t, s, "d3", models.DocComplete, "common words plus rare gem")
	e := newEngine(s)

	results, err := e.Search(context.Background(), "common rare", ScopeAll)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "d3", results[0].Passage.DocumentID,
		"passage matching the rare term must outrank common-only matches")
}

// Searches racing republishes and clears of the same document must either
// see the document fully or not at all; they must never surface an index
// consistency error to the caller.
func TestSearchConcurrentWithClears(t *testing.T) {
	s := index.NewMemoryStore()
	e := newEngine(s)
	publish(t, s, "d1", models.DocComplete, "invoice total due by friday")

	done := make(chan struct{})
	errs := make(chan error, 4)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if _, err := e.Search(context.Background(), "invoice total", ScopeAll); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		require.NoError(t, s.ClearDocument(context.Background(), "d1"))
		publish(t, s, "d1", models.DocComplete, "invoice total due by friday")
	}
	close(done)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("search racing clears surfaced: %v", err)
	}
}

func TestSearchDeterministicOrder(t *testing.T) {
	s := index.NewMemoryStore()
	publish(t, s, "b", models.DocComplete, "same tied words")
	publish(t, s, "a", models.DocComplete, "same tied words")
	publish(t, s, "c", models.DocComplete, "same tied words")
	e := newEngine(s)

	first, err := e.Search(context.Background(), "tied", ScopeAll)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, "a", first[0].Passage.DocumentID)
	assert.Equal(t, "b", first[1].Passage.DocumentID)
	assert.Equal(t, "c", first[2].Passage.DocumentID)

	for i := 0; i < 5; i++ {
		again, err := e.Search(context.Background(), "tied", ScopeAll)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}
