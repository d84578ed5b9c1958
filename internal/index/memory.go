package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/arigen-tech/docsearch/internal/models"
)

// MemoryStore is the in-process Store engine. Reads take a shared lock and
// always observe either the pre-publish or post-publish state of a document,
// never a mix: a publish stages the full entry off-lock and swaps it in
// under the write lock.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]*docEntry
	inverted map[string]map[models.PassageRef]struct{}

	// publishMu guards the per-document publish locks. Two publishes of the
	// same document serialize; different documents proceed concurrently.
	publishMu    sync.Mutex
	publishLocks map[string]*sync.Mutex
}

type docEntry struct {
	doc      models.Document
	pages    []models.Page
	passages map[string]models.Passage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:         make(map[string]*docEntry),
		inverted:     make(map[string]map[models.PassageRef]struct{}),
		publishLocks: make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) docLock(id string) *sync.Mutex {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	l, ok := s.publishLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.publishLocks[id] = l
	}
	return l
}

// Put publishes the document atomically: stage, then swap under the write
// lock. Old passages remain searchable until the swap (availability over
// immediate consistency on re-ingest).
func (s *MemoryStore) Put(ctx context.Context, doc models.Document, pages []models.Page, passages []models.Passage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, p := range passages {
		if p.DocumentID != doc.ID {
			return fmt.Errorf("%w: passage %s belongs to document %s, publishing %s",
				models.ErrIndexInconsistent, p.ID, p.DocumentID, doc.ID)
		}
	}

	entry := &docEntry{
		doc:      doc,
		pages:    append([]models.Page(nil), pages...),
		passages: make(map[string]models.Passage, len(passages)),
	}
	for _, p := range passages {
		entry.passages[p.ID] = p
	}

	lock := s.docLock(doc.ID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.docs[doc.ID]; ok {
		s.unindexLocked(old)
	}
	s.docs[doc.ID] = entry
	for _, p := range passages {
		ref := models.PassageRef{DocumentID: doc.ID, PassageID: p.ID}
		for _, term := range p.Terms {
			set, ok := s.inverted[term]
			if !ok {
				set = make(map[models.PassageRef]struct{})
				s.inverted[term] = set
			}
			set[ref] = struct{}{}
		}
	}
	return nil
}

// unindexLocked prunes every posting referencing the entry's passages.
// Caller holds the write lock.
func (s *MemoryStore) unindexLocked(entry *docEntry) {
	for id, p := range entry.passages {
		ref := models.PassageRef{DocumentID: entry.doc.ID, PassageID: id}
		for _, term := range p.Terms {
			set, ok := s.inverted[term]
			if !ok {
				continue
			}
			delete(set, ref)
			if len(set) == 0 {
				delete(s.inverted, term)
			}
		}
	}
}

func (s *MemoryStore) Document(ctx context.Context, id string) (models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.docs[id]
	if !ok {
		return models.Document{}, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	return entry.doc, nil
}

func (s *MemoryStore) Documents(ctx context.Context) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Document, 0, len(s.docs))
	for _, entry := range s.docs {
		out = append(out, entry.doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Pages(ctx context.Context, docID string) ([]models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.docs[docID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", docID, models.ErrNotFound)
	}
	pages := append([]models.Page(nil), entry.pages...)
	sort.Slice(pages, func(i, j int) bool { return pages[i].Ordinal < pages[j].Ordinal })
	return pages, nil
}

func (s *MemoryStore) Passage(ctx context.Context, ref models.PassageRef) (models.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.docs[ref.DocumentID]
	if !ok {
		return models.Passage{}, fmt.Errorf("posting for missing document %s: %w",
			ref.DocumentID, models.ErrIndexInconsistent)
	}
	p, ok := entry.passages[ref.PassageID]
	if !ok {
		return models.Passage{}, fmt.Errorf("posting for missing passage %s/%s: %w",
			ref.DocumentID, ref.PassageID, models.ErrIndexInconsistent)
	}
	return p, nil
}

func (s *MemoryStore) Postings(ctx context.Context, term string) ([]models.PassageRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.inverted[term]
	if !ok {
		return nil, nil
	}
	refs := make([]models.PassageRef, 0, len(set))
	for ref := range set {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].DocumentID != refs[j].DocumentID {
			return refs[i].DocumentID < refs[j].DocumentID
		}
		return refs[i].PassageID < refs[j].PassageID
	})
	return refs, nil
}

// Query gathers documents, the passage total and per-term passages under one
// read lock, so the view reflects a single state of the index. Inside the
// lock every posting must resolve; a miss here is a real broken invariant.
func (s *MemoryStore) Query(ctx context.Context, terms []string) (QueryView, error) {
	if err := ctx.Err(); err != nil {
		return QueryView{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	view := QueryView{
		Documents: make([]models.Document, 0, len(s.docs)),
		Hits:      make(map[string][]models.Passage, len(terms)),
	}
	for _, entry := range s.docs {
		view.Documents = append(view.Documents, entry.doc)
		view.Total += len(entry.passages)
	}
	sort.Slice(view.Documents, func(i, j int) bool {
		return view.Documents[i].ID < view.Documents[j].ID
	})

	for _, term := range terms {
		set, ok := s.inverted[term]
		if !ok {
			continue
		}
		hits := make([]models.Passage, 0, len(set))
		for ref := range set {
			entry, ok := s.docs[ref.DocumentID]
			if !ok {
				return QueryView{}, fmt.Errorf("posting for missing document %s: %w",
					ref.DocumentID, models.ErrIndexInconsistent)
			}
			p, ok := entry.passages[ref.PassageID]
			if !ok {
				return QueryView{}, fmt.Errorf("posting for missing passage %s/%s: %w",
					ref.DocumentID, ref.PassageID, models.ErrIndexInconsistent)
			}
			hits = append(hits, p)
		}
		sort.Slice(hits, func(i, j int) bool {
			if hits[i].DocumentID != hits[j].DocumentID {
				return hits[i].DocumentID < hits[j].DocumentID
			}
			return hits[i].ID < hits[j].ID
		})
		view.Hits[term] = hits
	}
	return view, nil
}

func (s *MemoryStore) PassageCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, entry := range s.docs {
		total += len(entry.passages)
	}
	return total, nil
}

func (s *MemoryStore) ClearAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.docs)
	s.docs = make(map[string]*docEntry)
	s.inverted = make(map[string]map[models.PassageRef]struct{})
	return removed, nil
}

func (s *MemoryStore) ClearDocument(ctx context.Context, id string) error {
	lock := s.docLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	s.unindexLocked(entry)
	delete(s.docs, id)
	return nil
}
