// Package config holds the scanner configuration, loaded from YAML with
// defaults for everything left out.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/extract"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/interactive"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/query"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/route"
)

// Config is the top-level configuration.
type Config struct {
	Site        SiteConfig        `yaml:"site"`
	Browser     BrowserConfig     `yaml:"browser"`
	Scan        ScanConfig        `yaml:"scan"`
	Pacing      PacingConfig      `yaml:"pacing"`
	Executor    ExecutorConfig    `yaml:"executor"`
	Extract     ExtractConfig     `yaml:"extract"`
	Interactive InteractiveConfig `yaml:"interactive"`
	Output      OutputConfig      `yaml:"output"`
	Status      StatusConfig      `yaml:"status"`
}

// SiteConfig describes the target site.
type SiteConfig struct {
	SearchURL string   `yaml:"search_url"`
	LoginURL  string   `yaml:"login_url"`
	Markers   []string `yaml:"results_markers"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"`
	Bin             string        `yaml:"bin"`
	Headless        bool          `yaml:"headless"`
	UserDataDir     string        `yaml:"user_data_dir"`
	XvfbDisplay     string        `yaml:"xvfb_display"`
	BlockResources  []string      `yaml:"block_resources"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
}

// ScanConfig selects what a batch run covers.
type ScanConfig struct {
	Airports  []string `yaml:"airports"`
	StartDate string   `yaml:"start_date"` // YYYY-MM-DD, empty = today
	Days      int      `yaml:"days"`
}

// PacingConfig controls delays between queries.
type PacingConfig struct {
	GapMin          time.Duration `yaml:"gap_min"`
	GapMax          time.Duration `yaml:"gap_max"`
	SettleMin       time.Duration `yaml:"settle_min"`
	SettleMax       time.Duration `yaml:"settle_max"`
	MaxPerMinute    float64       `yaml:"max_per_minute"`
	CooldownBase    time.Duration `yaml:"cooldown_base"`
	CooldownMax     time.Duration `yaml:"cooldown_max"`
	DisableCooldown bool          `yaml:"disable_cooldown"`
}

// ExecutorConfig controls per-query fault handling.
type ExecutorConfig struct {
	MaxNavFailures int    `yaml:"max_nav_failures"`
	DebugDir       string `yaml:"debug_dir"`
}

// ExtractConfig overrides the extraction heuristics.
type ExtractConfig struct {
	BlockPhrases  []string           `yaml:"block_phrases"`
	EmptyPhrases  []string           `yaml:"empty_phrases"`
	Tiers         []extract.Strategy `yaml:"tiers"`
	PriceSelector string             `yaml:"price_selector"`
}

// InteractiveConfig controls the URL poller.
type InteractiveConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
	Settle       time.Duration `yaml:"settle"`
}

// OutputConfig selects the sinks. CSV is always on.
type OutputConfig struct {
	CSV     string `yaml:"csv"`
	SQLite  string `yaml:"sqlite"`
	Webhook string `yaml:"webhook"`
	Stdout  bool   `yaml:"stdout"`
}

// StatusConfig enables the progress endpoint.
type StatusConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a complete configuration.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Site.SearchURL == "" {
		c.Site.SearchURL = query.DefaultSearchURL
	}
	if c.Site.LoginURL == "" {
		c.Site.LoginURL = "https://www.united.com/en/us"
	}
	if len(c.Site.Markers) == 0 {
		c.Site.Markers = interactive.DefaultMarkers
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 60 * time.Second
	}
	if len(c.Scan.Airports) == 0 {
		c.Scan.Airports = route.DefaultAirports
	}
	if c.Scan.Days <= 0 {
		c.Scan.Days = 365
	}
	if c.Pacing.GapMin <= 0 && c.Pacing.GapMax <= 0 {
		c.Pacing.GapMin, c.Pacing.GapMax = 3*time.Second, 7*time.Second
	}
	if c.Pacing.SettleMin <= 0 && c.Pacing.SettleMax <= 0 {
		c.Pacing.SettleMin, c.Pacing.SettleMax = 5*time.Second, 10*time.Second
	}
	if c.Pacing.CooldownBase <= 0 {
		c.Pacing.CooldownBase = time.Minute
	}
	if c.Pacing.CooldownMax <= 0 {
		c.Pacing.CooldownMax = 15 * time.Minute
	}
	if c.Executor.MaxNavFailures <= 0 {
		c.Executor.MaxNavFailures = 3
	}
	if c.Executor.DebugDir == "" {
		c.Executor.DebugDir = "."
	}
	if len(c.Extract.BlockPhrases) == 0 {
		c.Extract.BlockPhrases = extract.DefaultBlockPhrases
	}
	if len(c.Extract.EmptyPhrases) == 0 {
		c.Extract.EmptyPhrases = extract.DefaultEmptyPhrases
	}
	if len(c.Extract.Tiers) == 0 {
		c.Extract.Tiers = extract.DefaultTiers
	}
	if c.Extract.PriceSelector == "" {
		c.Extract.PriceSelector = extract.DefaultPriceSelector
	}
	if c.Interactive.PollInterval <= 0 {
		c.Interactive.PollInterval = time.Second
	}
	if c.Interactive.Timeout <= 0 {
		c.Interactive.Timeout = 300 * time.Second
	}
	if c.Interactive.Settle <= 0 {
		c.Interactive.Settle = 5 * time.Second
	}
	if c.Output.CSV == "" {
		c.Output.CSV = "united_awards.csv"
	}
}

// Validate reports settings that cannot run.
func (c *Config) Validate() error {
	var errs []error
	if len(route.Pairs(c.Scan.Airports)) == 0 {
		errs = append(errs, errors.New("scan.airports: need at least two distinct codes"))
	}
	for _, a := range c.Scan.Airports {
		if !query.ValidCode(a) {
			errs = append(errs, fmt.Errorf("scan.airports: invalid code %q", a))
		}
	}
	if _, err := c.Scan.Start(time.Now()); err != nil {
		errs = append(errs, err)
	}
	if c.Pacing.GapMax < c.Pacing.GapMin {
		errs = append(errs, errors.New("pacing: gap_max < gap_min"))
	}
	if c.Pacing.SettleMax < c.Pacing.SettleMin {
		errs = append(errs, errors.New("pacing: settle_max < settle_min"))
	}
	if c.Pacing.MaxPerMinute < 0 {
		errs = append(errs, errors.New("pacing: max_per_minute must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Start resolves the first search date. An empty StartDate is today.
func (s ScanConfig) Start(now time.Time) (time.Time, error) {
	if s.StartDate == "" {
		return now, nil
	}
	t, err := time.ParseInLocation(query.DateLayout, s.StartDate, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("scan.start_date: %w", err)
	}
	return t, nil
}
