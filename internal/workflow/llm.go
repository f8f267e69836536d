package workflow

import "context"

// Provider is the reasoning adapter: a text prompt in, raw text out. The
// output carries no structural guarantee and must go through the response
// sanitation protocol before use. Implementations must be safe for
// concurrent use and should bound each call with a timeout; a timeout is
// treated identically to any other adapter failure.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
