package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/quaylabs/foghorn/internal/workflow"
	"github.com/quaylabs/foghorn/internal/workflow/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("FOGHORN_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("FOGHORN_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	s, err := pgstore.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestPutAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	st := workflow.NewState("test-put-get-001", "ERROR: duplicate container CMAU1234567")
	st.Case.CreatedAt = now
	st.Module = "CNTR"
	st.Entities = []string{"CMAU1234567"}
	st.Severity = "high"
	st.ConfidenceScore = 0.82
	st.BestSOPID = "SOP-CNTR-001"
	st.ExecutionPath = []string{"triage", "diagnostic"}

	if err := s.Put(ctx, st); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, st.Case.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}

	assertEqual(t, "Case.ID", st.Case.ID, got.Case.ID)
	assertEqual(t, "Case.AlertText", st.Case.AlertText, got.Case.AlertText)
	assertEqual(t, "Module", st.Module, got.Module)
	assertEqual(t, "Severity", st.Severity, got.Severity)
	assertEqual(t, "ConfidenceScore", st.ConfidenceScore, got.ConfidenceScore)
	assertEqual(t, "BestSOPID", st.BestSOPID, got.BestSOPID)
	assertEqual(t, "Status", string(st.Status), string(got.Status))

	if len(got.ExecutionPath) != 2 || got.ExecutionPath[0] != "triage" || got.ExecutionPath[1] != "diagnostic" {
		t.Errorf("ExecutionPath mismatch: got %v", got.ExecutionPath)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "nonexistent-id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get returned ok=true for nonexistent ID")
	}
}

func TestUpsert(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	st := workflow.NewState("test-upsert-001", "WARNING: EDI message REF-IFT-100 stuck in error")
	st.Case.CreatedAt = now

	if err := s.Put(ctx, st); err != nil {
		t.Fatalf("Put initial: %v", err)
	}

	st.Status = workflow.StatusCompleted
	st.FinalRecommendation = "Recommended action: reprocess message"
	st.CompletedAt = now.Add(time.Minute)
	st.ExecutionPath = []string{"triage", "human_review", "finalize"}

	if err := s.Put(ctx, st); err != nil {
		t.Fatalf("Put update: %v", err)
	}

	got, ok, err := s.Get(ctx, st.Case.ID)
	if err != nil {
		t.Fatalf("Get after upsert: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false after upsert")
	}

	assertEqual(t, "Status", string(workflow.StatusCompleted), string(got.Status))
	assertEqual(t, "FinalRecommendation", st.FinalRecommendation, got.FinalRecommendation)
	if !got.CompletedAt.Equal(st.CompletedAt) {
		t.Errorf("CompletedAt: got %v, want %v", got.CompletedAt, st.CompletedAt)
	}
}

func TestList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()

	older := workflow.NewState("test-list-older", "older alert")
	older.Case.CreatedAt = now.Add(-time.Hour)
	newer := workflow.NewState("test-list-newer", "newer alert")
	newer.Case.CreatedAt = now

	if err := s.Put(ctx, older); err != nil {
		t.Fatalf("Put older: %v", err)
	}
	if err := s.Put(ctx, newer); err != nil {
		t.Fatalf("Put newer: %v", err)
	}

	got, err := s.List(ctx, 500)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	var idxOlder, idxNewer = -1, -1
	for i, st := range got {
		switch st.Case.ID {
		case older.Case.ID:
			idxOlder = i
		case newer.Case.ID:
			idxNewer = i
		}
	}
	if idxOlder == -1 || idxNewer == -1 {
		t.Fatalf("List missing inserted cases: older=%d newer=%d", idxOlder, idxNewer)
	}
	if idxNewer > idxOlder {
		t.Errorf("List order: newer at %d, older at %d, want newest first", idxNewer, idxOlder)
	}
}

func assertEqual[T comparable](t *testing.T, field string, want, got T) {
	t.Helper()
	if want != got {
		t.Errorf("%s: got %v, want %v", field, got, want)
	}
}
