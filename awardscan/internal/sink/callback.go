package sink

import (
	"context"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

// Func handles one result in-process.
type Func func(ctx context.Context, r record.Result) error

// Callback delivers results to a Go function, for library users that embed
// the scanner and want results without a file round trip.
type Callback struct {
	fn Func
}

// NewCallback creates a Callback sink. A nil fn drops results.
func NewCallback(fn Func) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Append(ctx context.Context, r record.Result) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx, r)
}

func (c *Callback) Close() error { return nil }
