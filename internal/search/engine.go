package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/arigen-tech/docsearch/internal/index"
	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/internal/normalizer"
	"github.com/arigen-tech/docsearch/pkg/logger"
)

// ScopeAll searches the whole corpus instead of one document.
const ScopeAll = "all"

// Engine ranks passages by IDF-weighted term overlap. Queries run through
// the same term pipeline as indexing, so matching is case-insensitive and
// symmetric. Results are fully deterministic: equal scores order by
// (document id, page ordinal, passage offset).
type Engine struct {
	store  index.Store
	logger logger.Logger
}

func NewEngine(store index.Store, log logger.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: log,
	}
}

// Search returns scored passages for the query within the scope, best first.
// An empty query or an empty index yields an empty result, not an error.
// An unknown document scope yields models.ErrNotFound.
//
// All index reads come from one Store.Query view, so a publish or clear
// racing the search flips results wholesale instead of leaving them torn.
func (e *Engine) Search(ctx context.Context, query, scope string) ([]models.ScoredPassage, error) {
	terms := normalizer.TermSet(query)
	if len(terms) == 0 {
		return nil, nil
	}

	view, err := e.store.Query(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	allowed, err := allowedDocuments(view, scope)
	if err != nil {
		return nil, err
	}
	if len(allowed) == 0 || view.Total == 0 {
		return nil, nil
	}

	scores := make(map[string]float64)
	matched := make(map[string]models.Passage)
	for _, term := range terms {
		hits := view.Hits[term]
		if len(hits) == 0 {
			continue
		}
		// Smoothed IDF: rarer terms contribute more.
		idf := math.Log((1+float64(view.Total))/(1+float64(len(hits)))) + 1.0
		for _, p := range hits {
			if _, ok := allowed[p.DocumentID]; !ok {
				continue
			}
			scores[p.ID] += idf
			matched[p.ID] = p
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	results := make([]models.ScoredPassage, 0, len(scores))
	for id, score := range scores {
		results = append(results, models.ScoredPassage{Passage: matched[id], Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
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

	e.logger.Debug("search completed",
		logger.String("scope", scope),
		logger.Int("terms", len(terms)),
		logger.Int("hits", len(results)),
	)
	return results, nil
}

// allowedDocuments resolves the scope against the same view the postings
// came from. ScopeAll covers complete and partial documents; pending and
// failed ones would surface empty or garbage results.
func allowedDocuments(view index.QueryView, scope string) (map[string]struct{}, error) {
	if scope == ScopeAll {
		allowed := make(map[string]struct{}, len(view.Documents))
		for _, d := range view.Documents {
			if d.Status == models.DocComplete || d.Status == models.DocPartial {
				allowed[d.ID] = struct{}{}
			}
		}
		return allowed, nil
	}

	for _, d := range view.Documents {
		if d.ID == scope {
			return map[string]struct{}{d.ID: {}}, nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", scope, models.ErrNotFound)
}
