// Package query models one award search and its URL encoding on the
// target site, in both directions.
package query

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

// DateLayout is the ISO calendar date used in URLs and records.
const DateLayout = "2006-01-02"

// DefaultSearchURL is the award search results path.
const DefaultSearchURL = "https://www.united.com/en/us/fsr/choose-flights"

var codeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidCode reports whether code is a three-letter airport code, in any case.
func ValidCode(code string) bool {
	return codeRe.MatchString(strings.ToUpper(strings.TrimSpace(code)))
}

// Query is one (origin, destination, date) search. Construct with New.
type Query struct {
	Origin      string
	Destination string
	Date        time.Time
}

// New validates the airport codes and returns a Query.
func New(origin, destination string, date time.Time) (Query, error) {
	origin = strings.ToUpper(strings.TrimSpace(origin))
	destination = strings.ToUpper(strings.TrimSpace(destination))
	if !codeRe.MatchString(origin) {
		return Query{}, fmt.Errorf("query: invalid origin %q", origin)
	}
	if !codeRe.MatchString(destination) {
		return Query{}, fmt.Errorf("query: invalid destination %q", destination)
	}
	if origin == destination {
		return Query{}, fmt.Errorf("query: origin and destination are both %s", origin)
	}
	return Query{Origin: origin, Destination: destination, Date: date}, nil
}

// DateString formats the date as YYYY-MM-DD.
func (q Query) DateString() string { return q.Date.Format(DateLayout) }

// Key returns the record key for q.
func (q Query) Key() record.Key {
	return record.Key{Origin: q.Origin, Destination: q.Destination, Date: q.DateString()}
}

func (q Query) String() string {
	return q.Origin + "->" + q.Destination + " " + q.DateString()
}

// URL builds the one-passenger, award-priced, nonstop-agnostic search URL.
// The parameter order is fixed; the site is sensitive to it.
func (q Query) URL(searchURL string) string {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	params := [][2]string{
		{"tt", "1"},           // one way
		{"st", "bestmatches"}, // sort
		{"d", q.DateString()},
		{"clm", "7"},
		{"taxng", "1"},
		{"f", q.Origin},
		{"px", "1"}, // passengers
		{"newHP", "True"},
		{"fareWheel", "true"},
		{"sc", "7"}, // award cabin class
		{"at", "0"},
		{"t", q.Destination},
	}
	var b strings.Builder
	b.WriteString(searchURL)
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}

var (
	originRe = regexp.MustCompile(`f=([A-Z]{3})`)
	destRe   = regexp.MustCompile(`t=([A-Z]{3})`)
	dateRe   = regexp.MustCompile(`d=(\d{4}-\d{2}-\d{2})`)
)

// ParseLocation recovers the record key from a results-page URL using the
// site's single-letter parameters f=, t= and d=. A missing pattern yields
// record.Unknown for that component.
func ParseLocation(location string) record.Key {
	return record.Key{
		Origin:      firstGroup(originRe, location),
		Destination: firstGroup(destRe, location),
		Date:        firstGroup(dateRe, location),
	}
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return string(record.Unknown)
	}
	return m[1]
}
