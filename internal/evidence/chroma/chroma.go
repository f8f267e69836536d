// Package chroma implements evidence.Store against a Chroma vector store
// over its HTTP API. One Chroma collection per alert module.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/quaylabs/foghorn/internal/evidence"
)

// Embedder turns text into embedding vectors. Implementations must be safe
// for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store queries per-module Chroma collections.
type Store struct {
	baseURL    string
	embedder   Embedder
	httpClient *http.Client

	mu          sync.Mutex
	collections map[string]string // module -> collection ID
}

// New creates a Store for the given Chroma endpoint.
func New(baseURL string, embedder Embedder) *Store {
	return &Store{
		baseURL:     strings.TrimRight(baseURL, "/"),
		embedder:    embedder,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		collections: make(map[string]string),
	}
}

// HasModule reports whether a collection exists for the module. Lookup
// failures are treated as absent.
func (s *Store) HasModule(ctx context.Context, module string) bool {
	_, err := s.collectionID(ctx, module)
	return err == nil
}

// QuerySimilar returns up to topK documents ranked by embedding similarity.
func (s *Store) QuerySimilar(ctx context.Context, text string, topK int, module string, docType evidence.DocType) ([]evidence.Document, error) {
	return s.query(ctx, text, topK, module, docType, "")
}

// QueryConstrained restricts the similarity query to documents whose content
// contains the given substring, using Chroma's $contains document filter.
func (s *Store) QueryConstrained(ctx context.Context, text string, topK int, module string, docType evidence.DocType, contains string) ([]evidence.Document, error) {
	return s.query(ctx, text, topK, module, docType, contains)
}

func (s *Store) query(ctx context.Context, text string, topK int, module string, docType evidence.DocType, contains string) ([]evidence.Document, error) {
	collID, err := s.collectionID(ctx, module)
	if err != nil {
		return nil, err
	}

	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	reqBody := map[string]any{
		"query_embeddings": vectors,
		"n_results":        topK,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	if docType != "" {
		reqBody["where"] = map[string]any{"doc_type": string(docType)}
	}
	if contains != "" {
		reqBody["where_document"] = map[string]any{"$contains": contains}
	}

	var resp queryResponse
	url := fmt.Sprintf("%s/api/v1/collections/%s/query", s.baseURL, collID)
	if err := s.postJSON(ctx, url, reqBody, &resp); err != nil {
		return nil, err
	}

	return resp.documents(module, docType), nil
}

type queryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances"`
}

// documents flattens the first (and only) query's result columns.
func (r *queryResponse) documents(module string, docType evidence.DocType) []evidence.Document {
	if len(r.IDs) == 0 {
		return nil
	}
	ids := r.IDs[0]

	out := make([]evidence.Document, 0, len(ids))
	for i, id := range ids {
		doc := evidence.Document{
			ID:      id,
			Module:  module,
			DocType: docType,
		}
		if len(r.Documents) > 0 && i < len(r.Documents[0]) {
			doc.Content = r.Documents[0][i]
		}
		if len(r.Distances) > 0 && i < len(r.Distances[0]) {
			doc.Distance = r.Distances[0][i]
		}
		if len(r.Metadatas) > 0 && i < len(r.Metadatas[0]) {
			doc.Metadata = stringifyMetadata(r.Metadatas[0][i])
		}
		out = append(out, doc)
	}
	return out
}

func stringifyMetadata(raw map[string]any) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	meta := make(map[string]string, len(raw))
	for k, v := range raw {
		meta[k] = fmt.Sprint(v)
	}
	return meta
}

// collectionID resolves a module name to its Chroma collection ID, caching
// successful lookups.
func (s *Store) collectionID(ctx context.Context, module string) (string, error) {
	s.mu.Lock()
	if id, ok := s.collections[module]; ok {
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	url := fmt.Sprintf("%s/api/v1/collections/%s", s.baseURL, module)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create collection request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chroma collection lookup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("no collection for module %q", module)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chroma collection lookup status: %s", resp.Status)
	}

	var coll struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&coll); err != nil {
		return "", fmt.Errorf("decode collection: %w", err)
	}

	s.mu.Lock()
	s.collections[module] = coll.ID
	s.mu.Unlock()
	return coll.ID, nil
}

func (s *Store) postJSON(ctx context.Context, url string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal query body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chroma query request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read query response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chroma query status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode query response: %w", err)
	}
	return nil
}
