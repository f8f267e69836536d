// Package histcase holds the historical resolved-case corpus used by the
// predictive stage. The corpus is read-only during case processing; resolved
// cases may be appended after a case reaches a terminal status.
package histcase

import (
	"strings"
	"sync"
)

// Row is one historical case record.
type Row struct {
	CaseID           string
	Module           string
	ProblemStatement string
	Resolution       string
	ResolutionHours  float64
}

// text returns the lower-cased searchable content of the row.
func (r Row) text() string {
	return strings.ToLower(r.Module + " " + r.ProblemStatement + " " + r.Resolution)
}

// Corpus is an in-memory historical case table, safe for concurrent use.
type Corpus struct {
	mu   sync.RWMutex
	rows []Row
}

// NewCorpus creates a Corpus seeded with the given rows.
func NewCorpus(rows []Row) *Corpus {
	return &Corpus{rows: rows}
}

// Len returns the number of rows.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

// Append adds a resolved case to the corpus.
func (c *Corpus) Append(row Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, row)
}

// Filter returns rows whose text contains any of the given terms
// (case-insensitive substring match). Empty terms are skipped.
func (c *Corpus) Filter(terms []string) []Row {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lowered = append(lowered, t)
		}
	}
	if len(lowered) == 0 {
		return nil
	}

	var out []Row
	for _, row := range c.rows {
		text := row.text()
		for _, term := range lowered {
			if strings.Contains(text, term) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
