// Package retrieval implements hybrid evidence retrieval: embedding
// similarity search blended with keyword/entity-constrained search over the
// same per-module corpus.
package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/linnemanlabs/go-core/log"
	"github.com/quaylabs/foghorn/internal/evidence"
)

const (
	semanticTopK = 5
	keywordTopK  = 2
	fallbackTopK = 3
)

// Retriever combines semantic and keyword queries against the evidence
// store, deduplicates, and ranks. Retrieval never fails: diagnostics must
// degrade on missing or broken evidence, not abort.
type Retriever struct {
	store  evidence.Store
	logger log.Logger
}

// New creates a Retriever.
func New(store evidence.Store, logger log.Logger) *Retriever {
	if logger == nil {
		logger = log.Nop()
	}
	return &Retriever{store: store, logger: logger}
}

// Retrieve returns candidate SOP documents for the alert, ranked by
// relevance. An unknown module yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, alertText, module string, entities []string) []evidence.Document {
	if !r.store.HasModule(ctx, module) {
		r.logger.Info(ctx, "no evidence collection for module", "module", module)
		return nil
	}

	semantic, err := r.store.QuerySimilar(ctx, alertText, semanticTopK, module, evidence.DocTypeSOP)
	if err != nil {
		// One plain retry before giving up; keyword search is skipped
		// because its results could not be merged against anything.
		r.logger.Warn(ctx, "semantic query failed, retrying plain", "module", module, "error", err.Error())
		return r.plainFallback(ctx, alertText, module)
	}
	tagSearchType(semantic, evidence.SearchSemantic)

	keyword := r.keywordSearch(ctx, module, entities)

	merged := mergeDedupe(semantic, keyword)

	// Stable: ties keep semantic-before-keyword order.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RelevanceScore() > merged[j].RelevanceScore()
	})

	r.logger.Info(ctx, "hybrid retrieval complete",
		"module", module,
		"semantic", len(semantic),
		"keyword", len(keyword),
		"merged", len(merged),
	)
	return merged
}

// keywordSearch queries with all entities joined; if the constrained query
// fails it falls back to one query per entity, skipping per-entity failures.
func (r *Retriever) keywordSearch(ctx context.Context, module string, entities []string) []evidence.Document {
	if len(entities) == 0 {
		return nil
	}

	joined := strings.Join(entities, " ")
	docs, err := r.store.QueryConstrained(ctx, joined, keywordTopK, module, evidence.DocTypeSOP, joined)
	if err == nil {
		tagSearchType(docs, evidence.SearchKeyword)
		return docs
	}
	r.logger.Warn(ctx, "constrained query failed, falling back per entity", "module", module, "error", err.Error())

	var out []evidence.Document
	for _, entity := range entities {
		entityDocs, err := r.store.QuerySimilar(ctx, entity, 1, module, evidence.DocTypeSOP)
		if err != nil {
			r.logger.Warn(ctx, "entity query failed", "entity", entity, "error", err.Error())
			continue
		}
		tagSearchType(entityDocs, evidence.SearchKeyword)
		out = append(out, entityDocs...)
	}
	return out
}

func (r *Retriever) plainFallback(ctx context.Context, alertText, module string) []evidence.Document {
	docs, err := r.store.QuerySimilar(ctx, alertText, fallbackTopK, module, evidence.DocTypeSOP)
	if err != nil {
		r.logger.Error(ctx, err, "fallback query failed", "module", module)
		return nil
	}
	tagSearchType(docs, evidence.SearchFallback)
	return docs
}

// mergeDedupe concatenates semantic results first, then keyword results,
// keeping the semantic copy when the same document ID appears in both.
func mergeDedupe(semantic, keyword []evidence.Document) []evidence.Document {
	seen := make(map[string]bool, len(semantic)+len(keyword))
	merged := make([]evidence.Document, 0, len(semantic)+len(keyword))

	for _, doc := range semantic {
		if seen[doc.ID] {
			continue
		}
		seen[doc.ID] = true
		merged = append(merged, doc)
	}
	for _, doc := range keyword {
		if seen[doc.ID] {
			continue
		}
		seen[doc.ID] = true
		merged = append(merged, doc)
	}
	return merged
}

func tagSearchType(docs []evidence.Document, st evidence.SearchType) {
	for i := range docs {
		docs[i].SearchType = st
	}
}
