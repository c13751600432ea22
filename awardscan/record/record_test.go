package record

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRow_ColumnOrder(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 30, 0, 123456000, time.Local)
	r := NewObserved(Key{Origin: "ATL", Destination: "LAX", Date: "2026-10-20"}, 4, 12500, at)

	got := strings.Join(r.Row(), ",")
	want := "ATL,LAX,2026-10-20,4,12500,2026-10-19T08:30:00.123456"
	if got != want {
		t.Fatalf("Row: got %q, want %q", got, want)
	}
	if len(Columns) != len(r.Row()) {
		t.Fatalf("Columns/Row length mismatch: %d vs %d", len(Columns), len(r.Row()))
	}
}

func TestNewObserved_NoPrice(t *testing.T) {
	r := NewObserved(Key{}, 0, 0, time.Now())
	if r.MinMiles.Sentinel() != NA {
		t.Errorf("MinMiles: got %q, want N/A", r.MinMiles)
	}
	if r.Kind != KindEmpty {
		t.Errorf("Kind: got %q, want %q", r.Kind, KindEmpty)
	}
	if n, ok := r.FlightsFound.Value(); !ok || n != 0 {
		t.Errorf("FlightsFound: got %v, want 0", r.FlightsFound)
	}
}

func TestSentinelRecords(t *testing.T) {
	b := NewBlocked(Key{}, time.Now())
	if b.FlightsFound.String() != "BLOCKED" || b.MinMiles.String() != "BLOCKED" {
		t.Errorf("blocked: got %s/%s", b.FlightsFound, b.MinMiles)
	}
	f := NewFault(Key{}, time.Now())
	if f.FlightsFound.String() != "ERROR" || f.MinMiles.String() != "ERROR" {
		t.Errorf("fault: got %s/%s", f.FlightsFound, f.MinMiles)
	}
	if _, ok := f.MinMiles.Value(); ok {
		t.Error("sentinel field must not report a numeric value")
	}
}

func TestField_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A Field `json:"a"`
		B Field `json:"b"`
	}{Int(8000), Mark(NA)})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"a":8000,"b":"N/A"}` {
		t.Fatalf("marshal: got %s", data)
	}

	var back struct {
		A Field `json:"a"`
		B Field `json:"b"`
	}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if n, ok := back.A.Value(); !ok || n != 8000 {
		t.Errorf("A: got %v", back.A)
	}
	if back.B.Sentinel() != NA {
		t.Errorf("B: got %v", back.B)
	}
}
