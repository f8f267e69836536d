package workflow

import "context"

// Store is the persistence interface for workflow state. Put must be an
// upsert keyed by the case ID; the orchestrator calls it after every stage
// transition so a restart never loses more than the in-flight stage.
type Store interface {
	Get(ctx context.Context, id string) (*State, bool, error)
	Put(ctx context.Context, state *State) error
	List(ctx context.Context, limit int) ([]*State, error)
}
