package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

var at = time.Date(2026, 3, 1, 9, 30, 15, 123456000, time.Local)

func result(o, d string, flights, miles int) record.Result {
	return record.NewObserved(record.Key{Origin: o, Destination: d, Date: "2026-04-01"}, flights, miles, at)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestCSV_HeaderOnceAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "united_awards.csv")
	ctx := context.Background()

	c, err := OpenCSV(path, ModeAppend)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Append(ctx, result("ATL", "LAX", 3, 12500)); err != nil {
		t.Fatal(err)
	}
	if err := c.Append(ctx, record.NewBlocked(record.Key{Origin: "ATL", Destination: "LAX", Date: "2026-04-02"}, at)); err != nil {
		t.Fatal(err)
	}
	c.Close()

	lines := readLines(t, path)
	want := []string{
		"origin,destination,date,flights_found,min_miles,scraped_at",
		"ATL,LAX,2026-04-01,3,12500,2026-03-01T09:30:15.123456",
		"ATL,LAX,2026-04-02,BLOCKED,BLOCKED,2026-03-01T09:30:15.123456",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}

	c, err = OpenCSV(path, ModeAppend)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Append(ctx, result("LAX", "ATL", 0, 0)); err != nil {
		t.Fatal(err)
	}
	c.Close()

	lines = readLines(t, path)
	if len(lines) != 4 {
		t.Fatalf("got %d lines after reopen, want 4", len(lines))
	}
	if lines[3] != "LAX,ATL,2026-04-01,0,N/A,2026-03-01T09:30:15.123456" {
		t.Errorf("appended row: %q", lines[3])
	}
	if n, _ := CountRows(path); n != 3 {
		t.Errorf("CountRows = %d, want 3", n)
	}
}

func TestCSV_RowVisibleBeforeClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	c, err := OpenCSV(path, ModeAppend)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Append(context.Background(), result("ORD", "DEN", 1, 7500)); err != nil {
		t.Fatal(err)
	}
	if n, err := CountRows(path); err != nil || n != 1 {
		t.Fatalf("CountRows = %d, %v; want 1", n, err)
	}
}

func TestCSV_TruncateRewritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := os.WriteFile(path, []byte("origin,destination,date,flights_found,min_miles,scraped_at\nA,B,C,1,2,3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := OpenCSV(path, ModeTruncate)
	if err != nil {
		t.Fatal(err)
	}
	c.Close()

	lines := readLines(t, path)
	if len(lines) != 1 || lines[0] != strings.Join(record.Columns, ",") {
		t.Fatalf("got %q", lines)
	}
}

func TestCSV_AppendAfterClose(t *testing.T) {
	c, err := OpenCSV(filepath.Join(t.TempDir(), "out.csv"), ModeAppend)
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
	if err := c.Append(context.Background(), result("ATL", "LAX", 1, 1)); err == nil {
		t.Fatal("expected error after close")
	}
}

func TestCountRows_Missing(t *testing.T) {
	n, err := CountRows(filepath.Join(t.TempDir(), "nope.csv"))
	if err != nil || n != 0 {
		t.Fatalf("got %d, %v", n, err)
	}
}

func TestOpenCSV_BadDir(t *testing.T) {
	_, err := OpenCSV(filepath.Join(t.TempDir(), "missing", "out.csv"), ModeAppend)
	if err == nil || !strings.Contains(err.Error(), "out.csv") {
		t.Fatalf("expected error naming the path, got %v", err)
	}
}
