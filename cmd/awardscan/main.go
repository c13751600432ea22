// Command awardscan harvests award availability and mileage prices into a
// CSV file, through a visible Chrome window the operator logs in with.
//
// Usage:
//
//	awardscan                      # full batch: every route, 365 days
//	awardscan -test -debug         # first route, two dates, screenshots
//	awardscan -resume              # continue a batch after the last saved row
//	awardscan -interactive         # capture each results page you open
//	awardscan -config awardscan.yaml -db awards.db -status-addr :8089
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Korbin-Hillan/Flight-Award/awardscan"
	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

type flags struct {
	configPath  string
	test        bool
	debug       bool
	noLogin     bool
	interactive bool
	resume      bool
	headless    bool
	out         string
	db          string
	webhook     string
	stdout      bool
	statusAddr  string
	logLevel    string
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to awardscan.yaml config file")
	flag.BoolVar(&f.test, "test", false, "smoke test: first route, two dates")
	flag.BoolVar(&f.debug, "debug", false, "save a screenshot and log the title of every results page")
	flag.BoolVar(&f.noLogin, "no-login", false, "skip the manual login step")
	flag.BoolVar(&f.interactive, "interactive", false, "capture results pages you navigate to instead of running the batch")
	flag.BoolVar(&f.resume, "resume", false, "append to the CSV and skip the queries it already holds")
	flag.BoolVar(&f.headless, "headless", false, "run Chrome without a window (implies -no-login)")
	flag.StringVar(&f.out, "out", "", "CSV output path (default united_awards.csv)")
	flag.StringVar(&f.db, "db", "", "also mirror results into this SQLite database")
	flag.StringVar(&f.webhook, "webhook", "", "also POST each result to this URL")
	flag.BoolVar(&f.stdout, "stdout", false, "also print each result as a JSON line")
	flag.StringVar(&f.statusAddr, "status-addr", "", "serve /healthz and /progress on this address")
	flag.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch f.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, f); err != nil {
		logger.Error("awardscan: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, f flags) error {
	cfg := awardscan.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = awardscan.LoadConfigFile(f.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	applyFlags(cfg, f)

	mode := awardscan.CSVTruncate
	skip := 0
	switch {
	case f.interactive:
		mode = awardscan.CSVAppend
	case f.resume:
		mode = awardscan.CSVAppend
		n, err := awardscan.CountRows(cfg.Output.CSV)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		skip = n
		logger.Info("awardscan: resuming", "csv", cfg.Output.CSV, "rows", n)
	}

	out, err := awardscan.OpenSinks(cfg.Output, mode, logger)
	if err != nil {
		return fmt.Errorf("open sinks: %w", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Warn("awardscan: close sinks", "error", err)
		}
	}()

	progress := &awardscan.Progress{}
	if cfg.Status.Addr != "" {
		go func() {
			if err := awardscan.ServeStatus(ctx, cfg.Status.Addr, progress, logger); err != nil {
				logger.Error("awardscan: status server", "error", err)
			}
		}()
	}

	opts := awardscan.Options{
		Config:   cfg,
		Sink:     out,
		Logger:   logger,
		Smoke:    f.test,
		Debug:    f.debug,
		Skip:     skip,
		Progress: progress,
	}
	if !f.noLogin && !cfg.Browser.Headless {
		opts.Login = promptLogin(os.Stdin, os.Stderr)
	}

	s, err := awardscan.New(opts)
	if err != nil {
		return err
	}

	var sum awardscan.Summary
	if f.interactive {
		sum, err = s.RunInteractive(ctx)
	} else {
		sum, err = s.RunBatch(ctx)
	}
	var m *mirror
	if cfg.Output.SQLite != "" && sum.RunID != "" {
		counts, cerr := awardscan.MirrorCounts(context.WithoutCancel(ctx), cfg.Output.SQLite, sum.RunID)
		if cerr != nil {
			logger.Warn("awardscan: mirror counts", "error", cerr)
		} else {
			m = &mirror{path: cfg.Output.SQLite, counts: counts}
		}
	}
	printSummary(os.Stdout, sum, cfg.Output.CSV, m)
	return err
}

// mirror is the SQLite tally of one run, shown under the summary table.
type mirror struct {
	path   string
	counts map[record.Kind]int
}

func applyFlags(cfg *awardscan.Config, f flags) {
	if f.out != "" {
		cfg.Output.CSV = f.out
	}
	if f.db != "" {
		cfg.Output.SQLite = f.db
	}
	if f.webhook != "" {
		cfg.Output.Webhook = f.webhook
	}
	if f.stdout {
		cfg.Output.Stdout = true
	}
	if f.statusAddr != "" {
		cfg.Status.Addr = f.statusAddr
	}
	if f.headless {
		cfg.Browser.Headless = true
	}
}

// promptLogin waits for the operator to press Enter. The read runs in its
// own goroutine so an interrupt does not hang on stdin.
func promptLogin(in io.Reader, out io.Writer) awardscan.LoginFunc {
	return func(ctx context.Context) error {
		fmt.Fprintln(out, "MANUAL LOGIN REQUIRED")
		fmt.Fprintln(out, "Log in to your United account in the browser window,")
		fmt.Fprint(out, "then press ENTER to start... ")

		done := make(chan error, 1)
		go func() {
			_, err := bufio.NewReader(in).ReadString('\n')
			if errors.Is(err, io.EOF) {
				err = nil
			}
			done <- err
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			if err != nil {
				return fmt.Errorf("login prompt: %w", err)
			}
			return nil
		}
	}
}

func printSummary(w io.Writer, sum awardscan.Summary, csvPath string, m *mirror) {
	if sum.RunID == "" {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("awardscan " + sum.Mode)
	t.AppendHeader(table.Row{"Run", "Planned", "Skipped", "Done", "Found", "Empty", "Blocked", "Errors", "Elapsed", "Interrupted"})
	t.AppendRow(table.Row{
		sum.RunID, sum.Planned, sum.Skipped, sum.Done, sum.Found, sum.Empty,
		sum.Blocked, sum.Faults, sum.Elapsed.Round(time.Second).String(), sum.Interrupted,
	})
	caption := "results: " + csvPath
	if m != nil {
		caption += fmt.Sprintf("\nmirror %s: found %d, empty %d, blocked %d, errors %d", m.path,
			m.counts[record.KindFound], m.counts[record.KindEmpty], m.counts[record.KindBlocked], m.counts[record.KindFault])
	}
	t.SetCaption("%s", caption)
	t.SetStyle(table.StyleRounded)
	t.Render()
}
