package sink

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
	"github.com/Korbin-Hillan/Flight-Award/dbopen"
)

// Schema is the mirror table. Sentinel-valued fields keep their text form;
// the *_value columns hold the number when there is one.
const Schema = `
CREATE TABLE IF NOT EXISTS award_results (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id              TEXT NOT NULL,
	origin              TEXT NOT NULL,
	destination         TEXT NOT NULL,
	date                TEXT NOT NULL,
	flights_found       TEXT NOT NULL,
	flights_found_value INTEGER,
	min_miles           TEXT NOT NULL,
	min_miles_value     INTEGER,
	kind                TEXT NOT NULL,
	url                 TEXT NOT NULL DEFAULT '',
	title               TEXT NOT NULL DEFAULT '',
	scraped_at          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_award_results_route ON award_results(origin, destination, date);
CREATE INDEX IF NOT EXISTS idx_award_results_run ON award_results(run_id);
`

// SQLite mirrors results into award_results.
type SQLite struct {
	db    *sql.DB
	owned bool
}

// OpenSQLite opens the database at path, creating the table if needed.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll())
	if err != nil {
		return nil, fmt.Errorf("sink: sqlite %s: %w", path, err)
	}
	s, err := NewSQLite(context.Background(), db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLite mirrors into an already open database. The caller keeps
// ownership of db.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, fmt.Errorf("sink: sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Append(ctx context.Context, r record.Result) error {
	_, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO award_results
			(run_id, origin, destination, date, flights_found, flights_found_value,
			 min_miles, min_miles_value, kind, url, title, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Origin, r.Destination, r.Date,
		r.FlightsFound.String(), nullable(r.FlightsFound),
		r.MinMiles.String(), nullable(r.MinMiles),
		string(r.Kind), r.URL, r.Title, r.ScrapedAt.Format(record.TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("sink: sqlite insert %s/%s/%s: %w", r.Origin, r.Destination, r.Date, err)
	}
	return nil
}

// CountByKind tallies the mirrored results of one run.
func (s *SQLite) CountByKind(ctx context.Context, runID string) (map[record.Kind]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM award_results WHERE run_id = ? GROUP BY kind`, runID)
	if err != nil {
		return nil, fmt.Errorf("sink: sqlite count: %w", err)
	}
	defer rows.Close()

	out := make(map[record.Kind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("sink: sqlite count: %w", err)
		}
		out[record.Kind(kind)] = n
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func nullable(f record.Field) sql.NullInt64 {
	n, ok := f.Value()
	return sql.NullInt64{Int64: int64(n), Valid: ok}
}
