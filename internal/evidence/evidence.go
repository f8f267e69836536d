// Package evidence defines the knowledge-corpus contract consumed by the
// retrieval layer: per-module document collections supporting similarity
// and substring-constrained queries.
package evidence

import "context"

// DocType distinguishes procedure documents from historical case records.
type DocType string

const (
	// DocTypeSOP is a standard-operating-procedure document.
	DocTypeSOP DocType = "SOP"

	// DocTypeCaseLog is a historical resolved-incident document.
	DocTypeCaseLog DocType = "case_log"
)

// SearchType records which retrieval strategy produced a document.
type SearchType string

const (
	SearchSemantic SearchType = "semantic"
	SearchKeyword  SearchType = "keyword"
	SearchFallback SearchType = "fallback"
)

// Document is a single retrieval result. It is produced fresh per query and
// never persisted by the caller.
type Document struct {
	ID         string            `json:"id"`
	Module     string            `json:"module"`
	DocType    DocType           `json:"doc_type"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Distance   float64           `json:"distance"`
	SearchType SearchType        `json:"search_type"`
}

// RelevanceScore converts the embedding-space distance into a descending
// relevance ordering.
func (d Document) RelevanceScore() float64 {
	return 1 - d.Distance
}

// Title returns the document title from metadata, or the ID when absent.
func (d Document) Title() string {
	if t, ok := d.Metadata["title"]; ok && t != "" {
		return t
	}
	return d.ID
}

// Store is the evidence-corpus adapter. Implementations must be safe for
// concurrent use; queries are read-only.
type Store interface {
	// HasModule reports whether a collection exists for the given module.
	HasModule(ctx context.Context, module string) bool

	// QuerySimilar returns up to topK documents of the given type ranked by
	// embedding similarity to text.
	QuerySimilar(ctx context.Context, text string, topK int, module string, docType DocType) ([]Document, error)

	// QueryConstrained is QuerySimilar restricted to documents whose content
	// contains the given substring.
	QueryConstrained(ctx context.Context, text string, topK int, module string, docType DocType, contains string) ([]Document, error)
}
