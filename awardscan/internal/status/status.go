// Package status exposes a running scan's progress over HTTP.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

// Snapshot is a point-in-time copy of the progress counters.
type Snapshot struct {
	RunID     string      `json:"run_id"`
	Mode      string      `json:"mode"`
	Total     int         `json:"total"`
	Skipped   int         `json:"skipped"`
	Done      int         `json:"done"`
	Found     int         `json:"found"`
	Empty     int         `json:"empty"`
	Blocked   int         `json:"blocked"`
	Faults    int         `json:"faults"`
	Last      *record.Key `json:"last,omitempty"`
	StartedAt time.Time   `json:"started_at"`
	Elapsed   string      `json:"elapsed"`
}

// Progress counts outcomes. Written by the scan loop, read by the server.
type Progress struct {
	mu sync.Mutex
	s  Snapshot
}

// Begin resets the counters for a new run. total is 0 in interactive mode.
func (p *Progress) Begin(runID, mode string, total, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s = Snapshot{RunID: runID, Mode: mode, Total: total, Skipped: skipped, StartedAt: time.Now()}
}

// Record counts one persisted result.
func (p *Progress) Record(r record.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.Done++
	switch r.Kind {
	case record.KindFound:
		p.s.Found++
	case record.KindEmpty:
		p.s.Empty++
	case record.KindBlocked:
		p.s.Blocked++
	case record.KindFault:
		p.s.Faults++
	}
	k := r.Key
	p.s.Last = &k
}

// Snapshot copies the counters.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.s
	if !s.StartedAt.IsZero() {
		s.Elapsed = time.Since(s.StartedAt).Round(time.Second).String()
	}
	return s
}

// Handler routes /healthz and /progress.
func Handler(p *Progress) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/progress", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p.Snapshot())
	})
	return r
}

// Serve listens on addr until ctx is done.
func Serve(ctx context.Context, addr string, p *Progress, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{Addr: addr, Handler: Handler(p), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("status: listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
