// Package memstore provides an in-memory implementation of evidence.Store.
// Similarity is lexical (token overlap) rather than embedding-based, which
// is good enough for dev and testing.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/quaylabs/foghorn/internal/evidence"
)

// Store holds evidence documents in memory, grouped by module.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]evidence.Document // module -> documents
}

// New initializes an empty in-memory Store.
func New() *Store {
	return &Store{docs: make(map[string][]evidence.Document)}
}

// Add registers a document under its module collection.
func (s *Store) Add(doc evidence.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.Module] = append(s.docs[doc.Module], doc)
}

// HasModule reports whether any documents exist for the module.
func (s *Store) HasModule(_ context.Context, module string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[module]) > 0
}

// QuerySimilar returns up to topK documents of the given type ranked by
// token-overlap similarity to text.
func (s *Store) QuerySimilar(_ context.Context, text string, topK int, module string, docType evidence.DocType) ([]evidence.Document, error) {
	return s.query(text, topK, module, docType, "")
}

// QueryConstrained is QuerySimilar restricted to documents containing the
// given substring (case-insensitive).
func (s *Store) QueryConstrained(_ context.Context, text string, topK int, module string, docType evidence.DocType, contains string) ([]evidence.Document, error) {
	return s.query(text, topK, module, docType, contains)
}

func (s *Store) query(text string, topK int, module string, docType evidence.DocType, contains string) ([]evidence.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := tokens(text)
	lowered := strings.ToLower(contains)

	var out []evidence.Document
	for _, doc := range s.docs[module] {
		if docType != "" && doc.DocType != docType {
			continue
		}
		if contains != "" && !strings.Contains(strings.ToLower(doc.Content), lowered) {
			continue
		}
		cp := doc
		cp.Distance = 1 - overlap(query, tokens(doc.Content))
		out = append(out, cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// tokens lower-cases and splits text into a word set.
func tokens(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(w, ".,:;!?()[]{}\"'")] = true
	}
	delete(set, "")
	return set
}

// overlap returns the fraction of query tokens present in the document.
func overlap(query, doc map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	var hits int
	for w := range query {
		if doc[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
