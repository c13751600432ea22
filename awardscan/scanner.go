// Package awardscan harvests award availability and mileage prices from an
// airline flight search, one query at a time, through a single stealth
// browser session.
//
// A batch run walks every (origin, destination, date) of a plan; an
// interactive run captures whatever results page a human navigates to.
// Every attempt produces exactly one record, including blocked and failed
// ones.
package awardscan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/browser"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/executor"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/extract"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/interactive"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/pacing"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/query"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/route"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/status"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
	"github.com/Korbin-Hillan/Flight-Award/idgen"
)

// ErrSession is returned when the browser session fails beyond recovery.
var ErrSession = executor.ErrSession

// Session is the browser session a Scanner drives.
type Session interface {
	executor.Session
	Close() error
}

// OpenFunc opens the session for one run.
type OpenFunc func(ctx context.Context) (Session, error)

// LoginFunc blocks until the operator has logged in on the open session.
type LoginFunc func(ctx context.Context) error

// Progress is the live counter set served by the status endpoint.
type Progress = status.Progress

// Options configures a Scanner.
type Options struct {
	Config *Config
	Logger *slog.Logger

	// Sink is required and closed by the caller. Append can receive a done
	// ctx for a result produced just before cancellation.
	Sink Sink

	// Open defaults to a rod session built from Config.Browser.
	Open OpenFunc

	// Login, when set, runs after navigating to the site's login page and
	// before the first query.
	Login LoginFunc

	// Smoke limits a batch to the first route and two dates.
	Smoke bool
	// Debug saves a screenshot per query.
	Debug bool
	// Skip drops the first Skip queries of the plan (resume).
	Skip int

	RunID    string
	Progress *Progress

	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Summary describes a finished run.
type Summary struct {
	RunID       string
	Mode        string
	Planned     int
	Skipped     int
	Done        int
	Found       int
	Empty       int
	Blocked     int
	Faults      int
	Interrupted bool
	Elapsed     time.Duration

	started time.Time
}

func (s *Summary) add(r record.Result) {
	s.Done++
	switch r.Kind {
	case record.KindFound:
		s.Found++
	case record.KindEmpty:
		s.Empty++
	case record.KindBlocked:
		s.Blocked++
	case record.KindFault:
		s.Faults++
	}
}

// Scanner runs scans. Each Run* call owns one browser session from open to
// close.
type Scanner struct {
	opts   Options
	cfg    *Config
	log    *slog.Logger
	engine *extract.Engine
}

// New validates the options and compiles the extraction strategies.
func New(opts Options) (*Scanner, error) {
	if opts.Sink == nil {
		return nil, errors.New("awardscan: no sink")
	}
	if opts.Config == nil {
		opts.Config = DefaultConfig()
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RunID == "" {
		opts.RunID = idgen.NewRun()
	}
	if opts.Progress == nil {
		opts.Progress = &status.Progress{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cfg := opts.Config
	if opts.Open == nil {
		opts.Open = browserOpener(cfg.Browser, opts.Logger)
	}

	engine, err := extract.New(extract.Config{
		BlockPhrases:  cfg.Extract.BlockPhrases,
		EmptyPhrases:  cfg.Extract.EmptyPhrases,
		Tiers:         cfg.Extract.Tiers,
		PriceSelector: cfg.Extract.PriceSelector,
		Logger:        opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("awardscan: %w", err)
	}

	return &Scanner{
		opts:   opts,
		cfg:    cfg,
		log:    opts.Logger.With("run_id", opts.RunID),
		engine: engine,
	}, nil
}

func browserOpener(bc BrowserConfig, logger *slog.Logger) OpenFunc {
	return func(ctx context.Context) (Session, error) {
		return browser.Open(ctx, browser.Config{
			RemoteURL:       bc.Remote,
			Bin:             bc.Bin,
			Headless:        bc.Headless,
			UserDataDir:     bc.UserDataDir,
			XvfbDisplay:     bc.XvfbDisplay,
			BlockResources:  bc.BlockResources,
			NavigateTimeout: bc.NavigateTimeout,
			Logger:          logger,
		})
	}
}

// RunID identifies the records this scanner writes.
func (s *Scanner) RunID() string { return s.opts.RunID }

// Plan builds the batch plan from the configuration.
func (s *Scanner) Plan() (*route.Plan, error) {
	start, err := s.cfg.Scan.Start(s.opts.Now())
	if err != nil {
		return nil, err
	}
	pairs := route.Pairs(s.cfg.Scan.Airports)
	days := s.cfg.Scan.Days
	if s.opts.Smoke {
		pairs, days = pairs[:1], 2
	}
	plan, err := route.NewPlan(pairs, route.Dates(start, days))
	if err != nil {
		return nil, fmt.Errorf("awardscan: plan: %w", err)
	}
	plan.Skip(s.opts.Skip)
	return plan, nil
}

// RunBatch queries every remaining entry of the plan in order. Interruption
// through ctx is not an error: the summary reports it.
func (s *Scanner) RunBatch(ctx context.Context) (Summary, error) {
	plan, err := s.Plan()
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{RunID: s.opts.RunID, Mode: "batch", Planned: plan.Len(), Skipped: plan.Skipped()}
	sum.started = time.Now()

	s.opts.Progress.Begin(s.opts.RunID, sum.Mode, sum.Planned, sum.Skipped)
	s.log.Info("awardscan: batch starting",
		"queries", plan.Len()-plan.Skipped(), "skipped", plan.Skipped(), "smoke", s.opts.Smoke)

	sess, closeSession, err := s.open(ctx)
	if err != nil {
		return sum, err
	}
	defer closeSession()

	if err := s.login(ctx, sess); err != nil {
		return s.finish(ctx, &sum, err)
	}

	x := executor.New(executor.Config{
		SearchURL:      s.cfg.Site.SearchURL,
		MaxNavFailures: s.cfg.Executor.MaxNavFailures,
		Debug:          s.opts.Debug,
		DebugDir:       s.cfg.Executor.DebugDir,
		RunID:          s.opts.RunID,
		Logger:         s.log,
		Now:            s.opts.Now,
	}, sess, s.pacer(), s.engine)

	err = plan.Each(func(i int, q query.Query) error {
		s.log.Info("awardscan: query", "index", i+1, "of", plan.Len(), "query", q.String())
		res, err := x.Execute(ctx, q)
		if res.Kind != "" {
			if perr := s.persist(ctx, &sum, res); perr != nil {
				return perr
			}
		}
		return err
	})
	return s.finish(ctx, &sum, err)
}

// RunInteractive captures every new results page the operator opens, until
// ctx is done.
func (s *Scanner) RunInteractive(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: s.opts.RunID, Mode: "interactive"}
	sum.started = time.Now()

	s.opts.Progress.Begin(s.opts.RunID, sum.Mode, 0, 0)

	sess, closeSession, err := s.open(ctx)
	if err != nil {
		return sum, err
	}
	defer closeSession()

	poller := interactive.New(interactive.Config{
		Interval: s.cfg.Interactive.PollInterval,
		Timeout:  s.cfg.Interactive.Timeout,
		Settle:   s.cfg.Interactive.Settle,
		Markers:  s.cfg.Site.Markers,
		Logger:   s.log,
		Sleep:    s.opts.Sleep,
	})
	s.log.Info("awardscan: interactive starting", "state", poller.State().String())

	if err := s.login(ctx, sess); err != nil {
		return s.finish(ctx, &sum, err)
	}
	poller.LoggedIn()

	x := executor.New(executor.Config{
		Debug:    s.opts.Debug,
		DebugDir: s.cfg.Executor.DebugDir,
		RunID:    s.opts.RunID,
		Logger:   s.log,
		Now:      s.opts.Now,
	}, sess, s.pacer(), s.engine)

	for {
		s.log.Info("awardscan: waiting for a results page", "timeout", s.cfg.Interactive.Timeout)
		state, url, err := poller.Await(ctx, sess)
		if err != nil {
			return s.finish(ctx, &sum, err)
		}
		if state == interactive.TimedOut {
			s.log.Warn("awardscan: no results page before timeout; still waiting")
			continue
		}

		key := query.ParseLocation(url)
		res, err := x.Capture(ctx, key)
		if err != nil {
			return s.finish(ctx, &sum, err)
		}
		if err := s.persist(ctx, &sum, res); err != nil {
			return s.finish(ctx, &sum, err)
		}
	}
}

// open starts the session and returns a close func that runs at most once.
func (s *Scanner) open(ctx context.Context) (Session, func(), error) {
	sess, err := s.opts.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open: %v", ErrSession, err)
	}
	var once sync.Once
	return sess, func() {
		once.Do(func() {
			if err := sess.Close(); err != nil {
				s.log.Warn("awardscan: session close", "error", err)
			}
		})
	}, nil
}

func (s *Scanner) login(ctx context.Context, sess Session) error {
	if s.opts.Login == nil {
		s.log.Info("awardscan: skipping login")
		return nil
	}
	if err := sess.Navigate(ctx, s.cfg.Site.LoginURL); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: login page: %v", ErrSession, err)
	}
	s.log.Info("awardscan: waiting for login", "url", s.cfg.Site.LoginURL)
	return s.opts.Login(ctx)
}

func (s *Scanner) pacer() *pacing.Pacer {
	pc := s.cfg.Pacing
	cfg := pacing.Config{
		Gap:          pacing.Range{Min: pc.GapMin, Max: pc.GapMax},
		Settle:       pacing.Range{Min: pc.SettleMin, Max: pc.SettleMax},
		MaxPerMinute: pc.MaxPerMinute,
		CooldownBase: pc.CooldownBase,
		CooldownMax:  pc.CooldownMax,
		Logger:       s.log,
		Sleep:        s.opts.Sleep,
	}
	if pc.DisableCooldown {
		cfg.CooldownBase, cfg.CooldownMax = 0, 0
	}
	return pacing.New(cfg)
}

func (s *Scanner) persist(ctx context.Context, sum *Summary, r record.Result) error {
	// ctx may already be done; the sink decides how long to keep writing.
	if err := s.opts.Sink.Append(ctx, r); err != nil {
		return fmt.Errorf("awardscan: persist %s/%s/%s: %w", r.Origin, r.Destination, r.Date, err)
	}
	sum.add(r)
	s.opts.Progress.Record(r)
	return nil
}

func (s *Scanner) finish(ctx context.Context, sum *Summary, err error) (Summary, error) {
	sum.Elapsed = time.Since(sum.started)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		sum.Interrupted = true
		s.log.Info("awardscan: interrupted", "done", sum.Done)
		return *sum, nil
	}
	if err != nil {
		s.log.Error("awardscan: run failed", "done", sum.Done, "error", err)
		return *sum, err
	}
	s.log.Info("awardscan: run complete", "done", sum.Done, "found", sum.Found,
		"empty", sum.Empty, "blocked", sum.Blocked, "faults", sum.Faults)
	return *sum, nil
}
