package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

// Mode selects how an existing CSV file is treated.
type Mode int

const (
	// ModeAppend keeps existing rows; the header is written only when the
	// file is new or empty.
	ModeAppend Mode = iota
	// ModeTruncate starts a fresh file with a header.
	ModeTruncate
)

// CSV appends one row per result and makes it durable before returning.
type CSV struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *csv.Writer
}

// OpenCSV opens (or creates) the store at path.
func OpenCSV(path string, mode Mode) (*CSV, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if mode == ModeTruncate {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: csv %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sink: csv %s: stat: %w", path, err)
	}

	c := &CSV{path: path, f: f, w: csv.NewWriter(f)}
	if st.Size() == 0 {
		if err := c.writeRow(record.Columns); err != nil {
			f.Close()
			return nil, err
		}
	}
	return c, nil
}

// Path returns the file the store writes to.
func (c *CSV) Path() string { return c.path }

// Append writes r, flushes and fsyncs. A row that returned nil survives a
// crash of the process.
func (c *CSV) Append(_ context.Context, r record.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeRow(r.Row())
}

func (c *CSV) writeRow(row []string) error {
	if c.f == nil {
		return fmt.Errorf("sink: csv %s: closed", c.path)
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("sink: csv %s: write: %w", c.path, err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("sink: csv %s: flush: %w", c.path, err)
	}
	if err := c.f.Sync(); err != nil {
		return fmt.Errorf("sink: csv %s: sync: %w", c.path, err)
	}
	return nil
}

// Close closes the file. Further appends fail.
func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f == nil {
		return nil
	}
	err := c.f.Close()
	c.f = nil
	if err != nil {
		return fmt.Errorf("sink: csv %s: close: %w", c.path, err)
	}
	return nil
}

// CountRows returns the number of data rows in the store at path, excluding
// the header. A missing file has zero rows.
func CountRows(path string) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sink: count %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	n := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("sink: count %s: %w", path, err)
		}
		if n == 0 && slices.Equal(row, record.Columns) {
			continue
		}
		n++
	}
}
