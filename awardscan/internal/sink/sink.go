// Package sink persists scan results. The CSV store is the system of record;
// the other sinks mirror or stream the same results.
package sink

import (
	"context"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

// Sink receives every result the scanner produces, in order.
type Sink interface {
	Append(ctx context.Context, r record.Result) error
	Close() error
}
