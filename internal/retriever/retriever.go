package retriever

import (
	"context"
	"fmt"
	"sort"

	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/internal/search"
)

// Searcher is the slice of the search engine the retriever needs.
type Searcher interface {
	Search(ctx context.Context, query, scope string) ([]models.ScoredPassage, error)
}

// Retriever selects grounding context for a conversational turn: a corpus
// search trimmed to the top K passages, with a per-document cap applied
// first so a single document cannot monopolize the grounding set.
type Retriever struct {
	searcher Searcher
	topK     int
	docCap   int
}

func New(searcher Searcher, topK, perDocumentCap int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	if perDocumentCap <= 0 {
		perDocumentCap = topK
	}
	return &Retriever{
		searcher: searcher,
		topK:     topK,
		docCap:   perDocumentCap,
	}
}

// Retrieve returns up to k grounding passages for the query, best first.
// k <= 0 falls back to the configured default.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.ScoredPassage, error) {
	if k <= 0 {
		k = r.topK
	}

	results, err := r.searcher.Search(ctx, query, search.ScopeAll)
	if err != nil {
		return nil, fmt.Errorf("retrieval search failed: %w", err)
	}

	perDoc := make(map[string]int)
	out := make([]models.ScoredPassage, 0, k)
	var overflow []models.ScoredPassage
	for _, res := range results {
		if len(out) == k {
			break
		}
		if perDoc[res.Passage.DocumentID] >= r.docCap {
			overflow = append(overflow, res)
			continue
		}
		perDoc[res.Passage.DocumentID]++
		out = append(out, res)
	}
	// Backfill with capped-out passages: the cap encourages diversity but a
	// document that genuinely has the k best passages may still fill them.
	for _, res := range overflow {
		if len(out) == k {
			break
		}
		out = append(out, res)
	}

	// Restore best-first order after backfilling.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Passage.DocumentID != b.Passage.DocumentID {
			return a.Passage.DocumentID < b.Passage.DocumentID
		}
		if a.Passage.PageOrdinal != b.Passage.PageOrdinal {
			return a.Passage.PageOrdinal < b.Passage.PageOrdinal
		}
		return a.Passage.Offset < b.Passage.Offset
	})
	return out, nil
}
