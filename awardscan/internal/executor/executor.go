// Package executor runs one award query against the live session: pace,
// navigate, settle, capture, and turn whatever happened into a record.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/extract"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/query"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

// ErrSession means the browser session can no longer be trusted and the
// run must stop.
var ErrSession = errors.New("executor: session fault")

// Session is the part of the browser session the executor drives.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, path string) error
}

// Pacer spaces queries out and learns from their outcome.
type Pacer interface {
	BeforeQuery(ctx context.Context) error
	Settle(ctx context.Context) error
	Observe(kind record.Kind)
}

// Config configures an Executor.
type Config struct {
	SearchURL string

	// MaxNavFailures consecutive navigation failures escalate to ErrSession.
	// Default: 3.
	MaxNavFailures int

	// Debug saves a screenshot per query and logs page titles.
	Debug    bool
	DebugDir string

	RunID  string
	Logger *slog.Logger
	Now    func() time.Time
}

func (c *Config) defaults() {
	if c.SearchURL == "" {
		c.SearchURL = query.DefaultSearchURL
	}
	if c.MaxNavFailures <= 0 {
		c.MaxNavFailures = 3
	}
	if c.DebugDir == "" {
		c.DebugDir = "."
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Executor is driven from the scanner's single goroutine.
type Executor struct {
	cfg     Config
	session Session
	pacer   Pacer
	engine  *extract.Engine

	navFailures int
}

// New creates an Executor.
func New(cfg Config, s Session, p Pacer, e *extract.Engine) *Executor {
	cfg.defaults()
	return &Executor{cfg: cfg, session: s, pacer: p, engine: e}
}

// Execute runs q and returns its record. Blocked and empty pages are
// results, not errors. The error is non-nil only when ctx is done (no
// record) or on ErrSession, which comes with the ERROR record of the
// failing query so the caller can persist it before stopping.
func (x *Executor) Execute(ctx context.Context, q query.Query) (record.Result, error) {
	log := x.cfg.Logger.With("query", q.String())

	if err := x.pacer.BeforeQuery(ctx); err != nil {
		return record.Result{}, err
	}

	url := q.URL(x.cfg.SearchURL)
	log.Info("executor: searching", "url", url)

	if err := x.session.Navigate(ctx, url); err != nil {
		if ctx.Err() != nil {
			return record.Result{}, ctx.Err()
		}
		x.navFailures++
		log.Error("executor: navigation failed", "consecutive", x.navFailures, "error", err)

		res := x.stamp(record.NewFault(q.Key(), x.cfg.Now()), url, "")
		x.pacer.Observe(res.Kind)
		if x.navFailures >= x.cfg.MaxNavFailures {
			return res, fmt.Errorf("%w: %d consecutive navigation failures: %v", ErrSession, x.navFailures, err)
		}
		return res, nil
	}
	x.navFailures = 0

	if err := x.pacer.Settle(ctx); err != nil {
		return record.Result{}, err
	}

	res, err := x.Capture(ctx, q.Key())
	if err != nil {
		return record.Result{}, err
	}
	x.pacer.Observe(res.Kind)
	return res, nil
}

// Capture extracts a record from whatever the session currently shows and
// labels it with key. Only ctx errors are returned; any other failure
// yields an ERROR record.
func (x *Executor) Capture(ctx context.Context, key record.Key) (record.Result, error) {
	log := x.cfg.Logger.With("origin", key.Origin, "destination", key.Destination, "date", key.Date)

	location, err := x.session.Location(ctx)
	if err != nil {
		log.Debug("executor: location unavailable", "error", err)
	}

	if x.cfg.Debug {
		x.debugCapture(ctx, log, key)
	}

	page, err := x.session.HTML(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return record.Result{}, ctx.Err()
		}
		log.Error("executor: capture failed", "error", err)
		return x.stamp(record.NewFault(key, x.cfg.Now()), location, ""), nil
	}

	f, err := x.engine.Inspect(strings.NewReader(page))
	if err != nil {
		log.Error("executor: extraction failed", "error", err)
		return x.stamp(record.NewFault(key, x.cfg.Now()), location, ""), nil
	}

	res := x.stamp(f.Reduce(key, x.cfg.Now()), location, f.Title)
	switch res.Kind {
	case record.KindBlocked:
		log.Warn("executor: blocked", "phrase", f.BlockPhrase)
	case record.KindEmpty:
		log.Info("executor: no flights", "no_availability", f.NoAvailability)
	default:
		log.Info("executor: flights found",
			"flights", res.FlightsFound.String(), "min_miles", res.MinMiles.String(), "tier", f.Tier)
	}
	return res, nil
}

func (x *Executor) debugCapture(ctx context.Context, log *slog.Logger, key record.Key) {
	if title, err := x.session.Title(ctx); err == nil {
		log.Info("executor: page title", "title", title)
	}
	path := filepath.Join(x.cfg.DebugDir, DebugFilename(key))
	if err := x.session.Screenshot(ctx, path); err != nil {
		log.Warn("executor: screenshot failed", "path", path, "error", err)
		return
	}
	log.Info("executor: screenshot saved", "path", path)
}

func (x *Executor) stamp(r record.Result, url, title string) record.Result {
	r.RunID = x.cfg.RunID
	r.URL = url
	r.Title = title
	return r
}

// DebugFilename names the screenshot of one query.
func DebugFilename(k record.Key) string {
	return fmt.Sprintf("debug_%s_%s_%s.png", k.Origin, k.Destination, k.Date)
}
