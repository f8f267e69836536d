package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestOperationName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tag  pgconn.CommandTag
		sql  string
		want string
	}{
		{"from tag", pgconn.NewCommandTag("INSERT 0 1"), "insert into cases ...", "INSERT"},
		{"from sql when tag empty", pgconn.CommandTag{}, "select * from cases", "SELECT"},
		{"nothing", pgconn.CommandTag{}, "   ", "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := operationName(tt.tag, tt.sql); got != tt.want {
				t.Errorf("operationName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQueryObserver(t *testing.T) {
	var gotOp, gotOutcome string
	SetQueryObserver(QueryObserverFunc(func(_ context.Context, operation, outcome string, _ time.Duration) {
		gotOp, gotOutcome = operation, outcome
	}))
	t.Cleanup(func() { SetQueryObserver(nil) })

	obs := getQueryObserver()
	if obs == nil {
		t.Fatal("expected observer to be set")
	}
	obs.ObserveQuery(context.Background(), "SELECT", "ok", time.Millisecond)

	if gotOp != "SELECT" || gotOutcome != "ok" {
		t.Errorf("observed (%q, %q), want (SELECT, ok)", gotOp, gotOutcome)
	}

	SetQueryObserver(nil)
	if getQueryObserver() != nil {
		t.Error("expected observer to be cleared")
	}
}
