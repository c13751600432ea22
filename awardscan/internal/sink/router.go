package sink

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

// DrainTimeout bounds the secondary fan-out once the caller's ctx is done.
const DrainTimeout = 2 * time.Second

// Router writes every result to a primary sink, then fans it out to
// secondary sinks. Only a primary failure is returned; secondary failures
// are logged.
//
// A result handed to Append is persisted even when ctx is already done:
// the primary ignores cancellation, and the secondaries get DrainTimeout
// after ctx ends before their context is cancelled too.
type Router struct {
	primary   Sink
	secondary []Sink
	logger    *slog.Logger
	drain     time.Duration
}

// NewRouter creates a Router. primary must not be nil.
func NewRouter(logger *slog.Logger, primary Sink, secondary ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{primary: primary, secondary: secondary, logger: logger, drain: DrainTimeout}
}

func (r *Router) Append(ctx context.Context, res record.Result) error {
	if err := r.primary.Append(context.WithoutCancel(ctx), res); err != nil {
		return err
	}
	if len(r.secondary) == 0 {
		return nil
	}

	sctx, cancel := r.drainCtx(ctx)
	defer cancel()
	for _, s := range r.secondary {
		if err := s.Append(sctx, res); err != nil {
			r.logger.Warn("sink: secondary append failed",
				"origin", res.Origin, "destination", res.Destination, "date", res.Date, "error", err)
		}
	}
	return nil
}

// drainCtx detaches from ctx, then ends r.drain after ctx is done.
func (r *Router) drainCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	dctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, func() {
		t := time.AfterFunc(r.drain, cancel)
		context.AfterFunc(dctx, func() { t.Stop() })
	})
	return dctx, func() {
		stop()
		cancel()
	}
}

// Close closes every sink and joins their errors.
func (r *Router) Close() error {
	errs := []error{r.primary.Close()}
	for _, s := range r.secondary {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
