// Package extract reduces a rendered award results page to a record. It
// works from the serialized DOM and tolerates unknown markup: block
// phrases first, then a cascade of candidate selectors, then a page-wide
// price scan.
package extract

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

// Config tunes the engine. Zero fields fall back to the package defaults.
type Config struct {
	BlockPhrases  []string
	EmptyPhrases  []string
	Tiers         []Strategy
	PriceSelector string
	Logger        *slog.Logger
}

func (c *Config) defaults() {
	if len(c.BlockPhrases) == 0 {
		c.BlockPhrases = DefaultBlockPhrases
	}
	if len(c.EmptyPhrases) == 0 {
		c.EmptyPhrases = DefaultEmptyPhrases
	}
	if len(c.Tiers) == 0 {
		c.Tiers = DefaultTiers
	}
	if c.PriceSelector == "" {
		c.PriceSelector = DefaultPriceSelector
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

type tier struct {
	name string
	sel  cascadia.Selector
}

// Engine holds the compiled cascade. It is stateless between pages.
type Engine struct {
	cfg    Config
	tiers  []tier
	prices cascadia.Selector
}

// New compiles every strategy. Strategies whose selector does not compile
// are dropped with a warning; an engine with no usable tier is an error.
func New(cfg Config) (*Engine, error) {
	cfg.defaults()
	e := &Engine{cfg: cfg}

	for _, s := range cfg.Tiers {
		sel, err := cascadia.Compile(s.Selector)
		if err != nil {
			cfg.Logger.Warn("extract: skipping strategy", "name", s.Name, "selector", s.Selector, "error", err)
			continue
		}
		e.tiers = append(e.tiers, tier{name: s.Name, sel: sel})
	}
	if len(e.tiers) == 0 {
		return nil, fmt.Errorf("extract: no usable candidate strategy")
	}

	sel, err := cascadia.Compile(cfg.PriceSelector)
	if err != nil {
		return nil, fmt.Errorf("extract: price selector: %w", err)
	}
	e.prices = sel
	return e, nil
}

// Findings is what one page inspection observed, before reduction.
type Findings struct {
	Title          string
	Blocked        bool
	BlockPhrase    string
	Tier           string // strategy that matched, "" when none did
	Candidates     int
	Prices         []int
	NoAvailability bool
}

// Inspect parses a serialized page and applies the detection steps in
// precedence order. A blocked page short-circuits: stale result markup on a
// block page must not be counted. The error is reserved for pages that
// cannot be parsed at all; an empty result page is a valid Findings.
func (e *Engine) Inspect(r io.Reader) (Findings, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Findings{}, fmt.Errorf("extract: parse: %w", err)
	}

	f := Findings{Title: strings.TrimSpace(doc.Find("title").First().Text())}
	texts := visibleText(doc.Nodes)

	if p, ok := containsAny(texts, e.cfg.BlockPhrases); ok {
		f.Blocked = true
		f.BlockPhrase = p
		return f, nil
	}

	for _, t := range e.tiers {
		if n := doc.FindMatcher(t.sel).Length(); n > 0 {
			f.Tier = t.name
			f.Candidates = n
			break
		}
	}

	doc.FindMatcher(e.prices).Each(func(_ int, s *goquery.Selection) {
		if v, ok := ParseMiles(s.Text()); ok {
			f.Prices = append(f.Prices, v)
		}
	})

	_, f.NoAvailability = containsAny(texts, e.cfg.EmptyPhrases)
	return f, nil
}

// MinMiles returns the smallest positive price on the page.
func (f Findings) MinMiles() (int, bool) {
	positive := slices.DeleteFunc(slices.Clone(f.Prices), func(v int) bool { return v <= 0 })
	if len(positive) == 0 {
		return 0, false
	}
	return slices.Min(positive), true
}

// Reduce turns the findings into the record for k.
func (f Findings) Reduce(k record.Key, at time.Time) record.Result {
	if f.Blocked {
		return record.NewBlocked(k, at)
	}
	if f.NoAvailability && f.Candidates == 0 {
		// Prices scraped from page chrome do not count.
		return record.NewObserved(k, 0, 0, at)
	}
	miles, _ := f.MinMiles()
	return record.NewObserved(k, f.Candidates, miles, at)
}

// ParseMiles keeps the digits of s and parses them. "12,500 miles" is
// 12500; text without digits, or too many to fit an int, yields false.
func ParseMiles(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// visibleText collects the text nodes a reader could see; script, style and
// template bodies are skipped.
func visibleText(roots []*html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out = append(out, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}

func containsAny(texts, phrases []string) (string, bool) {
	for _, t := range texts {
		for _, p := range phrases {
			if strings.Contains(t, p) {
				return p, true
			}
		}
	}
	return "", false
}
