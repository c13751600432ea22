// Package record defines the award-search outcome emitted by awardscan.
// These types are the public contract shared by the extraction engine, the
// executor and every sink.
package record

import (
	"encoding/json"
	"strconv"
	"time"
)

// Sentinel is a reserved non-numeric marker standing in for a field that
// could not be determined normally.
type Sentinel string

const (
	Blocked Sentinel = "BLOCKED"
	Error   Sentinel = "ERROR"
	NA      Sentinel = "N/A"
	Unknown Sentinel = "UNKNOWN"
)

// Kind classifies one query attempt. Every kind is a valid outcome and is
// persisted; none of them is signalled through an error.
type Kind string

const (
	KindFound   Kind = "found"   // at least one result candidate matched
	KindEmpty   Kind = "empty"   // legitimate zero-result page
	KindBlocked Kind = "blocked" // site refused or rate-limited the request
	KindFault   Kind = "fault"   // navigation or inspection failed
)

// Field holds either a number or a sentinel, never both.
type Field struct {
	n int
	s Sentinel
}

// Int returns a numeric field.
func Int(n int) Field { return Field{n: n} }

// Mark returns a sentinel field.
func Mark(s Sentinel) Field { return Field{s: s} }

// Value returns the numeric value and whether the field is numeric.
func (f Field) Value() (int, bool) { return f.n, f.s == "" }

// Sentinel returns the sentinel, or "" for numeric fields.
func (f Field) Sentinel() Sentinel { return f.s }

func (f Field) String() string {
	if f.s != "" {
		return string(f.s)
	}
	return strconv.Itoa(f.n)
}

// MarshalJSON encodes numbers as JSON numbers and sentinels as strings.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.s != "" {
		return json.Marshal(string(f.s))
	}
	return json.Marshal(f.n)
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (f *Field) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = Int(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = ParseField(s)
	return nil
}

// ParseField is the inverse of String.
func ParseField(s string) Field {
	if n, err := strconv.Atoi(s); err == nil {
		return Int(n)
	}
	return Mark(Sentinel(s))
}

// Key identifies what a record is about. In interactive mode any component
// may be the Unknown sentinel.
type Key struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
}

// TimeLayout matches the ISO-8601 local timestamps of the CSV store.
const TimeLayout = "2006-01-02T15:04:05.000000"

// Result is the normalized outcome of one query attempt.
type Result struct {
	Key
	FlightsFound Field     `json:"flights_found"`
	MinMiles     Field     `json:"min_miles"`
	ScrapedAt    time.Time `json:"scraped_at"`
	Kind         Kind      `json:"kind"`

	// Mirror-only metadata; not part of the CSV schema.
	RunID string `json:"run_id,omitempty"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// Columns is the fixed CSV column order.
var Columns = []string{"origin", "destination", "date", "flights_found", "min_miles", "scraped_at"}

// Row renders r in Columns order.
func (r Result) Row() []string {
	return []string{
		r.Origin,
		r.Destination,
		r.Date,
		r.FlightsFound.String(),
		r.MinMiles.String(),
		r.ScrapedAt.Format(TimeLayout),
	}
}

// NewBlocked builds the BLOCKED/BLOCKED record.
func NewBlocked(k Key, at time.Time) Result {
	return Result{Key: k, FlightsFound: Mark(Blocked), MinMiles: Mark(Blocked), ScrapedAt: at, Kind: KindBlocked}
}

// NewFault builds the ERROR/ERROR record.
func NewFault(k Key, at time.Time) Result {
	return Result{Key: k, FlightsFound: Mark(Error), MinMiles: Mark(Error), ScrapedAt: at, Kind: KindFault}
}

// NewObserved builds a record from a counted page. minMiles <= 0 means no
// price was found and is stored as N/A.
func NewObserved(k Key, flights, minMiles int, at time.Time) Result {
	r := Result{Key: k, FlightsFound: Int(flights), MinMiles: Mark(NA), ScrapedAt: at, Kind: KindFound}
	if minMiles > 0 {
		r.MinMiles = Int(minMiles)
	}
	if flights == 0 {
		r.Kind = KindEmpty
	}
	return r
}
