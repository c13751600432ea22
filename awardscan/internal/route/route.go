// Package route enumerates the (origin, destination, date) queries of a run
// in a stable nested order so that a partial run can be resumed by counting
// the records already written.
package route

import (
	"fmt"
	"strings"
	"time"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/query"
)

// DefaultAirports is the top 50 US airports by traffic.
var DefaultAirports = []string{
	"ATL", "LAX", "ORD", "DFW", "DEN", "JFK", "SFO", "SEA", "LAS", "MCO",
	"EWR", "CLT", "PHX", "IAH", "MIA", "BOS", "MSP", "FLL", "DTW", "PHL",
	"LGA", "BWI", "SLC", "SAN", "DCA", "MDW", "TPA", "PDX", "HNL", "STL",
	"BNA", "AUS", "OAK", "SJC", "MCI", "RSW", "SAT", "SMF", "DAL", "SNA",
	"PIT", "RDU", "CVG", "CMH", "IND", "CLE", "JAX", "OGG", "BDL", "MKE",
}

// Pair is an ordered origin/destination.
type Pair struct {
	Origin      string
	Destination string
}

// Pairs returns every ordered pair of distinct codes, outer loop origin in
// list order. Codes are upper-cased and duplicates dropped.
func Pairs(codes []string) []Pair {
	seen := make(map[string]bool, len(codes))
	uniq := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		uniq = append(uniq, c)
	}

	pairs := make([]Pair, 0, len(uniq)*(len(uniq)-1))
	for _, o := range uniq {
		for _, d := range uniq {
			if o != d {
				pairs = append(pairs, Pair{Origin: o, Destination: d})
			}
		}
	}
	return pairs
}

// Dates returns n consecutive calendar days beginning with the day of start.
func Dates(start time.Time, n int) []time.Time {
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	out := make([]time.Time, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, day.AddDate(0, 0, i))
	}
	return out
}

// Plan is the cross product of pairs and dates.
type Plan struct {
	pairs []Pair
	dates []time.Time
	skip  int
}

// NewPlan builds a Plan. Every pair must be a valid query.
func NewPlan(pairs []Pair, dates []time.Time) (*Plan, error) {
	for _, p := range pairs {
		if _, err := query.New(p.Origin, p.Destination, time.Time{}); err != nil {
			return nil, fmt.Errorf("route: %w", err)
		}
	}
	return &Plan{pairs: pairs, dates: dates}, nil
}

// Len is the full size of the plan, including skipped queries.
func (p *Plan) Len() int { return len(p.pairs) * len(p.dates) }

// Skip marks the first n queries as already done.
func (p *Plan) Skip(n int) {
	p.skip = min(max(n, 0), p.Len())
}

// Skipped returns the number of queries Each will not visit.
func (p *Plan) Skipped() int { return p.skip }

// At returns the i-th query in nested order: pairs outer, dates inner.
func (p *Plan) At(i int) query.Query {
	pair := p.pairs[i/len(p.dates)]
	return query.Query{
		Origin:      pair.Origin,
		Destination: pair.Destination,
		Date:        p.dates[i%len(p.dates)],
	}
}

// Each calls fn for every remaining query with its 0-based plan index and
// stops at the first error.
func (p *Plan) Each(fn func(i int, q query.Query) error) error {
	for i := p.skip; i < p.Len(); i++ {
		if err := fn(i, p.At(i)); err != nil {
			return err
		}
	}
	return nil
}
