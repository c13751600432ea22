package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewRun_Format(t *testing.T) {
	id := NewRun()
	if !strings.HasPrefix(id, RunPrefix) {
		t.Fatalf("missing prefix: %q", id)
	}
	u, err := uuid.Parse(strings.TrimPrefix(id, RunPrefix))
	if err != nil {
		t.Fatal(err)
	}
	if u.Version() != 7 {
		t.Fatalf("version = %d, want 7", u.Version())
	}
}

func TestNewRun_SortsByCreation(t *testing.T) {
	prev := NewRun()
	for i := 0; i < 100; i++ {
		next := NewRun()
		if next <= prev {
			t.Fatalf("not increasing: %q then %q", prev, next)
		}
		prev = next
	}
}

func TestPrefixed_Injected(t *testing.T) {
	n := 0
	gen := Prefixed("x_", func() string { n++; return strings.Repeat("a", n) })
	if got := gen(); got != "x_a" {
		t.Fatalf("got %q", got)
	}
	if got := gen(); got != "x_aa" {
		t.Fatalf("got %q", got)
	}
}
