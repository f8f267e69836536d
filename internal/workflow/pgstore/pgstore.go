// Package pgstore provides a PostgreSQL implementation of workflow.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quaylabs/foghorn/internal/postgres"
	"github.com/quaylabs/foghorn/internal/workflow"
)

var tracer = otel.Tracer("github.com/quaylabs/foghorn/internal/workflow/pgstore")

//go:embed schema.sql
var schema string

// Store persists workflow state in PostgreSQL. The full state is stored as
// a JSONB document; the indexed columns exist for listing and querying, not
// as the source of truth.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL, applies the schema, and returns a ready Store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Get retrieves workflow state by case ID.
func (s *Store) Get(ctx context.Context, id string) (*workflow.State, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM workflow_cases WHERE case_id = $1`, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("scan: %w", err)
	}

	st, err := decodeState(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	return st, true, nil
}

// Put inserts or updates workflow state (upsert on case_id).
func (s *Store) Put(ctx context.Context, st *workflow.State) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	var completedAt *time.Time
	if !st.CompletedAt.IsZero() {
		completedAt = &st.CompletedAt
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO workflow_cases (case_id, alert_text, status, state, created_at, completed_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT (case_id) DO UPDATE SET
			status       = EXCLUDED.status,
			state        = EXCLUDED.state,
			completed_at = EXCLUDED.completed_at,
			updated_at   = now()`,
		st.Case.ID, st.Case.AlertText, string(st.Status), raw, st.Case.CreatedAt, completedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert case: %w", err)
	}
	return nil
}

// List returns up to limit states, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*workflow.State, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT state FROM workflow_cases ORDER BY created_at DESC, case_id DESC LIMIT $1`, limit,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	var out []*workflow.State
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		st, err := decodeState(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}

func decodeState(raw []byte) (*workflow.State, error) {
	var st workflow.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &st, nil
}
