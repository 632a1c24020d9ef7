// Package ledger keeps the append-only per-achievement unlock time records.
//
// The ledger exists for anomaly heuristics, not ordering guarantees: the
// first recorded time for an id is final while that id stays unlocked.
package ledger

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateRecord is returned when an id already has a record.
var ErrDuplicateRecord = errors.New("ledger: id already recorded")

// Record pairs an achievement id with its unlock time in epoch millis.
type Record struct {
	ID         string `json:"id"`
	UnlockedAt int64  `json:"ts"`
}

// Ledger is an append-only list of unlock records.
type Ledger struct {
	records []Record
	seen    map[string]struct{}
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// FromRecords rebuilds a ledger from persisted records.
// Duplicate ids in the input are rejected: a persisted blob carrying two
// records for one id is malformed.
func FromRecords(records []Record) (*Ledger, error) {
	l := New()
	for _, r := range records {
		if err := l.Append(r.ID, r.UnlockedAt); err != nil {
			return nil, fmt.Errorf("rebuild ledger: %w", err)
		}
	}
	return l, nil
}

// Append adds a record for id at the given epoch-millis time.
// The first record for an id is final; a second append for the same id
// fails with ErrDuplicateRecord.
func (l *Ledger) Append(id string, atMillis int64) error {
	if _, dup := l.seen[id]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateRecord, id)
	}
	l.records = append(l.records, Record{ID: id, UnlockedAt: atMillis})
	l.seen[id] = struct{}{}
	return nil
}

// Records returns all records in append order.
func (l *Ledger) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// TimesFor returns the records for the requested ids, in append order.
// Ids without a record are simply absent from the result.
func (l *Ledger) TimesFor(ids []string) []Record {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []Record
	for _, r := range l.records {
		if _, ok := want[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Has reports whether id already has a record.
func (l *Ledger) Has(id string) bool {
	_, ok := l.seen[id]
	return ok
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// IDs returns the recorded ids, sorted for stable comparison.
func (l *Ledger) IDs() []string {
	out := make([]string, 0, len(l.records))
	for _, r := range l.records {
		out = append(out, r.ID)
	}
	sort.Strings(out)
	return out
}

// Span returns max(ts) - min(ts) across all records in millis.
// A ledger with fewer than two records has zero span.
func (l *Ledger) Span() int64 {
	if len(l.records) < 2 {
		return 0
	}
	min, max := l.records[0].UnlockedAt, l.records[0].UnlockedAt
	for _, r := range l.records[1:] {
		if r.UnlockedAt < min {
			min = r.UnlockedAt
		}
		if r.UnlockedAt > max {
			max = r.UnlockedAt
		}
	}
	return max - min
}
