package awardscan

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

func TestOpenSinks_MirrorCounts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	out := OutputConfig{CSV: filepath.Join(dir, "awards.csv"), SQLite: filepath.Join(dir, "db", "awards.db")}

	var extra int
	s, err := OpenSinks(out, CSVTruncate, slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewCallbackSink(func(context.Context, record.Result) error {
			extra++
			return nil
		}))
	if err != nil {
		t.Fatal(err)
	}

	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	k := record.Key{Origin: "ATL", Destination: "LAX", Date: "2026-06-01"}
	results := []record.Result{
		record.NewObserved(k, 3, 12500, at),
		record.NewObserved(k, 0, 0, at),
		record.NewBlocked(k, at),
	}
	for _, r := range results {
		r.RunID = "run_a"
		if err := s.Append(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	other := record.NewFault(k, at)
	other.RunID = "run_b"
	if err := s.Append(ctx, other); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if extra != 4 {
		t.Errorf("extra sink got %d results", extra)
	}
	if n, err := CountRows(out.CSV); err != nil || n != 4 {
		t.Errorf("csv rows = %d, %v", n, err)
	}
	counts, err := MirrorCounts(ctx, out.SQLite, "run_a")
	if err != nil {
		t.Fatal(err)
	}
	want := map[record.Kind]int{record.KindFound: 1, record.KindEmpty: 1, record.KindBlocked: 1}
	if len(counts) != len(want) {
		t.Fatalf("counts = %v", counts)
	}
	for k, n := range want {
		if counts[k] != n {
			t.Errorf("%s = %d, want %d", k, counts[k], n)
		}
	}
}
