// Package id generates ULID identifiers for trades.
//
// ULIDs are lexicographically sortable by generation time, which keeps
// trade records naturally ordered in the state file and the journal.
package id

import "github.com/oklog/ulid/v2"

// New returns a ULID string (time-sortable identifier).
func New() string {
	return ulid.Make().String()
}
