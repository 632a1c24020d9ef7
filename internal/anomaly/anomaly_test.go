package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trophyd/internal/ledger"
)

const catalogSize = 7

var allIDs = []string{"konami", "explorer", "speedster", "patient", "hacker", "shaker", "tapper"}

func newValidator() *Validator {
	return New(DefaultPolicy(), catalogSize)
}

// recordsAt builds one record per id, spaced step apart starting at base.
func recordsAt(ids []string, base time.Time, step time.Duration) []ledger.Record {
	out := make([]ledger.Record, len(ids))
	for i, id := range ids {
		out[i] = ledger.Record{ID: id, UnlockedAt: base.Add(time.Duration(i) * step).UnixMilli()}
	}
	return out
}

func TestPlausibleNormalProgress(t *testing.T) {
	now := time.Now()
	ids := []string{"konami", "tapper"}
	records := recordsAt(ids, now.Add(-time.Hour), time.Minute)

	v := newValidator()
	assert.True(t, v.IsPlausible(records, ids, now))
}

func TestEmptyStateIsPlausible(t *testing.T) {
	v := newValidator()
	assert.True(t, v.IsPlausible(nil, nil, time.Now()))
}

func TestFutureTimestampRejected(t *testing.T) {
	now := time.Now()
	ids := []string{"konami"}
	records := []ledger.Record{{ID: "konami", UnlockedAt: now.Add(2 * time.Minute).UnixMilli()}}

	v := newValidator()
	verdict := v.Check(records, ids, now)
	assert.False(t, verdict.Plausible)
	assert.Contains(t, verdict.Violated, RuleFuture)
}

func TestFutureWithinSkewAccepted(t *testing.T) {
	now := time.Now()
	ids := []string{"konami"}
	records := []ledger.Record{{ID: "konami", UnlockedAt: now.Add(30 * time.Second).UnixMilli()}}

	v := newValidator()
	assert.True(t, v.IsPlausible(records, ids, now))
}

func TestStaleTimestampRejected(t *testing.T) {
	now := time.Now()
	ids := []string{"konami"}
	// Epoch-zero style forged value.
	records := []ledger.Record{{ID: "konami", UnlockedAt: 0}}

	v := newValidator()
	verdict := v.Check(records, ids, now)
	assert.False(t, verdict.Plausible)
	assert.Contains(t, verdict.Violated, RuleStale)
}

func TestSpeedRunRejected(t *testing.T) {
	now := time.Now()
	// Full catalog inside a 5-second window.
	records := recordsAt(allIDs, now.Add(-time.Minute), 700*time.Millisecond)

	v := newValidator()
	verdict := v.Check(records, allIDs, now)
	assert.False(t, verdict.Plausible)
	assert.Contains(t, verdict.Violated, RuleSpeedRun)
}

func TestFullCatalogSpreadAccepted(t *testing.T) {
	now := time.Now()
	// Same catalog spread over ~15 seconds.
	records := recordsAt(allIDs, now.Add(-time.Minute), 2500*time.Millisecond)

	v := newValidator()
	assert.True(t, v.IsPlausible(records, allIDs, now))
}

func TestSpeedRunOnlyAppliesToFullCatalog(t *testing.T) {
	now := time.Now()
	// Six of seven inside one second: fine, the rule needs all of them.
	ids := allIDs[:6]
	records := recordsAt(ids, now.Add(-time.Minute), 150*time.Millisecond)

	v := newValidator()
	assert.True(t, v.IsPlausible(records, ids, now))
}

func TestCountMismatchRejected(t *testing.T) {
	now := time.Now()
	records := recordsAt([]string{"konami"}, now.Add(-time.Hour), time.Second)

	v := newValidator()

	// Extra unlocked id without a record.
	verdict := v.Check(records, []string{"konami", "tapper"}, now)
	assert.False(t, verdict.Plausible)
	assert.Contains(t, verdict.Violated, RuleCount)

	// Record for an id that is not unlocked.
	verdict = v.Check(records, []string{"tapper"}, now)
	assert.False(t, verdict.Plausible)
	assert.Contains(t, verdict.Violated, RuleCount)
}

func TestMultipleViolationsReported(t *testing.T) {
	now := time.Now()
	records := []ledger.Record{
		{ID: "konami", UnlockedAt: now.Add(time.Hour).UnixMilli()},
		{ID: "tapper", UnlockedAt: 0},
	}

	v := newValidator()
	verdict := v.Check(records, []string{"konami"}, now)
	assert.False(t, verdict.Plausible)
	assert.Contains(t, verdict.Violated, RuleFuture)
	assert.Contains(t, verdict.Violated, RuleStale)
	assert.Contains(t, verdict.Violated, RuleCount)
}

func TestCustomPolicy(t *testing.T) {
	now := time.Now()
	ids := []string{"konami"}
	records := []ledger.Record{{ID: "konami", UnlockedAt: now.Add(5 * time.Minute).UnixMilli()}}

	relaxed := New(Policy{
		ClockSkewTolerance: 10 * time.Minute,
		StalenessHorizon:   365 * 24 * time.Hour,
		MinFullCatalogSpan: 10 * time.Second,
	}, catalogSize)
	assert.True(t, relaxed.IsPlausible(records, ids, now))
}
