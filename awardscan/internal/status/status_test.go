package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

func TestProgress_Counts(t *testing.T) {
	var p Progress
	p.Begin("run_1", "batch", 4, 1)

	k := record.Key{Origin: "ATL", Destination: "LAX", Date: "2026-06-01"}
	now := time.Now()
	p.Record(record.NewObserved(k, 2, 9000, now))
	p.Record(record.NewObserved(k, 0, 0, now))
	p.Record(record.NewBlocked(k, now))

	s := p.Snapshot()
	if s.Done != 3 || s.Found != 1 || s.Empty != 1 || s.Blocked != 1 || s.Faults != 0 {
		t.Fatalf("got %+v", s)
	}
	if s.Last == nil || *s.Last != k {
		t.Fatalf("last = %v", s.Last)
	}
}

func TestHandler(t *testing.T) {
	var p Progress
	p.Begin("run_42", "interactive", 0, 0)
	p.Record(record.NewFault(record.Key{Origin: "UNKNOWN", Destination: "UNKNOWN", Date: "UNKNOWN"}, time.Now()))

	srv := httptest.NewServer(Handler(&p))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/progress")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var s Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.RunID != "run_42" || s.Mode != "interactive" || s.Faults != 1 {
		t.Fatalf("got %+v", s)
	}
}
