// Package interactive detects when a human operating the browser lands on
// a results page, by polling the tab's location.
package interactive

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// State is the poller's position in the capture cycle.
type State int

const (
	WaitingForLogin State = iota
	WaitingForSearch
	ResultsDetected
	TimedOut
)

func (s State) String() string {
	switch s {
	case WaitingForLogin:
		return "waiting_for_login"
	case WaitingForSearch:
		return "waiting_for_search"
	case ResultsDetected:
		return "results_detected"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Locator reports the tab's current URL.
type Locator interface {
	Location(ctx context.Context) (string, error)
}

// DefaultMarkers are location substrings of a results page.
var DefaultMarkers = []string{"choose-flights", "fsr"}

// Config configures a Poller.
type Config struct {
	Interval time.Duration // default 1s
	Timeout  time.Duration // default 300s
	Settle   time.Duration // default 5s
	Markers  []string
	Logger   *slog.Logger
	Sleep    func(ctx context.Context, d time.Duration) error
}

func (c *Config) defaults() {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 300 * time.Second
	}
	if c.Settle < 0 {
		c.Settle = 0
	} else if c.Settle == 0 {
		c.Settle = 5 * time.Second
	}
	if len(c.Markers) == 0 {
		c.Markers = DefaultMarkers
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Sleep == nil {
		c.Sleep = sleepCtx
	}
}

// Poller watches one tab. It remembers the last results page it reported
// so the same page is not captured twice.
type Poller struct {
	cfg   Config
	state State
	last  string
}

// New creates a Poller in WaitingForLogin.
func New(cfg Config) *Poller {
	cfg.defaults()
	return &Poller{cfg: cfg}
}

// State returns the current state.
func (p *Poller) State() State { return p.state }

// LoggedIn moves the poller past the login step.
func (p *Poller) LoggedIn() {
	p.transition(WaitingForSearch)
}

// Await polls until a new results page appears (ResultsDetected, with its
// URL, after the settle delay) or the timeout elapses (TimedOut). Only a
// done ctx is an error.
func (p *Poller) Await(ctx context.Context, loc Locator) (State, string, error) {
	log := p.cfg.Logger
	p.transition(WaitingForSearch)

	deadline := time.Now().Add(p.cfg.Timeout)
	seen := ""
	for {
		url, err := loc.Location(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return p.state, "", ctx.Err()
			}
			log.Debug("interactive: location unavailable", "error", err)
		case url != seen:
			log.Info("interactive: navigation", "url", url)
			seen = url
			if !p.isResults(url) {
				p.last = ""
			}
		}

		if err == nil && url != p.last && p.isResults(url) {
			p.transition(ResultsDetected)
			if err := p.cfg.Sleep(ctx, p.cfg.Settle); err != nil {
				return p.state, "", err
			}
			p.last = url
			return ResultsDetected, url, nil
		}

		if !time.Now().Before(deadline) {
			p.transition(TimedOut)
			return TimedOut, "", nil
		}
		if err := p.cfg.Sleep(ctx, p.cfg.Interval); err != nil {
			return p.state, "", err
		}
	}
}

func (p *Poller) isResults(url string) bool {
	for _, m := range p.cfg.Markers {
		if strings.Contains(url, m) {
			return true
		}
	}
	return false
}

func (p *Poller) transition(s State) {
	if p.state == s {
		return
	}
	p.cfg.Logger.Debug("interactive: state", "from", p.state.String(), "to", s.String())
	p.state = s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
