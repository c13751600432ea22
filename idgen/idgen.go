// Package idgen generates the identifiers that tie a scan's mirrored records
// together. IDs are UUIDv7 so they sort by start time.
package idgen

import "github.com/google/uuid"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of RFC 9562 version 7 UUIDs.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every ID of gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the generator used when none is injected.
var Default Generator = UUIDv7()

// RunPrefix marks scan run IDs.
const RunPrefix = "run_"

// NewRun returns a fresh run ID, e.g. "run_0192f0c4-...".
func NewRun() string {
	return Prefixed(RunPrefix, Default)()
}
