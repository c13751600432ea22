package dbopen_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/Korbin-Hillan/Flight-Award/dbopen"
)

func TestOpenMemory_Pragmas(t *testing.T) {
	db := dbopen.OpenMemory(t)

	var fk, sync, busy int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow("PRAGMA synchronous").Scan(&sync); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatal(err)
	}
	if fk != 1 || sync != 1 || busy != 10_000 {
		t.Fatalf("foreign_keys=%d synchronous=%d busy_timeout=%d", fk, sync, busy)
	}
}

func TestOptions(t *testing.T) {
	db := dbopen.OpenMemory(t,
		dbopen.WithBusyTimeout(2500),
		dbopen.WithSynchronous("FULL"),
		dbopen.WithoutForeignKeys(),
	)

	var fk, sync, busy int
	db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	db.QueryRow("PRAGMA synchronous").Scan(&sync)
	db.QueryRow("PRAGMA busy_timeout").Scan(&busy)
	if fk != 0 || sync != 2 || busy != 2500 {
		t.Fatalf("foreign_keys=%d synchronous=%d busy_timeout=%d", fk, sync, busy)
	}
}

func TestSchemaAppliedOnEveryOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	schema := `CREATE TABLE IF NOT EXISTS runs (id TEXT PRIMARY KEY)`

	for i := 0; i < 2; i++ {
		db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if _, err := db.Exec(`INSERT INTO runs (id) VALUES (?)`, i); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		db.Close()
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_BadSchema(t *testing.T) {
	if _, err := dbopen.Open(":memory:", dbopen.WithSchema("NOT SQL")); err == nil {
		t.Fatal("expected schema error")
	}
}

func TestIsBusy(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("constraint failed"), false},
		{errors.New("exec: SQLITE_BUSY (5)"), true},
		{errors.New("database is locked"), true},
		{errors.New("database table is locked"), true},
	}
	for _, tt := range tests {
		if got := dbopen.IsBusy(tt.err); got != tt.want {
			t.Errorf("IsBusy(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestExec(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE t (id INTEGER)`))

	if _, err := dbopen.Exec(context.Background(), db, `INSERT INTO t (id) VALUES (?)`, 7); err != nil {
		t.Fatal(err)
	}
	var n int
	db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n)
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}

	if _, err := dbopen.Exec(context.Background(), db, `INSERT INTO missing VALUES (1)`); err == nil {
		t.Fatal("expected error for missing table")
	}
}
