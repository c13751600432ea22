package awardscan

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/sink"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

// Sink is the output interface for scan results.
type Sink = sink.Sink

// SinkFunc handles one result in-process.
type SinkFunc = sink.Func

// CSVMode selects how an existing CSV store is treated.
type CSVMode = sink.Mode

const (
	CSVAppend   = sink.ModeAppend
	CSVTruncate = sink.ModeTruncate
)

// NewCallbackSink creates an in-process callback sink.
func NewCallbackSink(fn SinkFunc) Sink {
	return sink.NewCallback(fn)
}

// CountRows returns the number of data rows already in a CSV store.
func CountRows(path string) (int, error) {
	return sink.CountRows(path)
}

// MirrorCounts tallies the results one run left in the SQLite mirror at
// path, by record kind.
func MirrorCounts(ctx context.Context, path, runID string) (map[record.Kind]int, error) {
	db, err := sink.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.CountByKind(ctx, runID)
}

// OpenSinks opens the CSV store as primary sink plus every mirror enabled in
// out. extra sinks are added as secondaries.
func OpenSinks(out OutputConfig, mode CSVMode, logger *slog.Logger, extra ...Sink) (Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	primary, err := sink.OpenCSV(out.CSV, mode)
	if err != nil {
		return nil, err
	}

	secondary := slices.Clone(extra)
	if out.SQLite != "" {
		db, err := sink.OpenSQLite(out.SQLite)
		if err != nil {
			primary.Close()
			for _, s := range extra {
				s.Close()
			}
			return nil, fmt.Errorf("awardscan: mirror: %w", err)
		}
		secondary = append(secondary, db)
	}
	if out.Webhook != "" {
		secondary = append(secondary, sink.NewWebhook(out.Webhook, sink.WithWebhookLogger(logger)))
	}
	if out.Stdout {
		secondary = append(secondary, sink.NewStdout(nil))
	}

	logger.Info("awardscan: sinks ready", "csv", out.CSV, "secondary", len(secondary))
	return sink.NewRouter(logger, primary, secondary...), nil
}
