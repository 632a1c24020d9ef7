// Package anomaly inspects unlock timestamps for implausible patterns.
//
// The rules are heuristics against casual state edits: garbage or
// clock-shifted timestamps, "unlock everything at once" edits, and sloppy
// tampering that leaves the id set and the timestamp records out of step.
// A false positive on a genuinely fast run is accepted; the remedy is a
// silent reset, not a punitive action.
package anomaly

import (
	"sort"
	"time"

	"trophyd/internal/ledger"
)

// Rule identifies one plausibility rule.
type Rule string

const (
	// RuleFuture rejects timestamps beyond the clock-skew tolerance.
	RuleFuture Rule = "future_timestamp"

	// RuleStale rejects timestamps older than the staleness horizon.
	RuleStale Rule = "stale_timestamp"

	// RuleSpeedRun rejects a full-catalog unlock inside the minimum span.
	RuleSpeedRun Rule = "speed_run"

	// RuleCount rejects record counts that do not match the unlocked set.
	RuleCount Rule = "count_mismatch"
)

// Policy holds the validator thresholds.
// The defaults match the legacy client but none of the values is
// a correctness requirement; they are tunable heuristics.
type Policy struct {
	// ClockSkewTolerance is how far into the future a timestamp may sit.
	ClockSkewTolerance time.Duration

	// StalenessHorizon is how far into the past a timestamp may sit.
	StalenessHorizon time.Duration

	// MinFullCatalogSpan is the minimum plausible time between the first
	// and last unlock when every achievement is present.
	MinFullCatalogSpan time.Duration
}

// DefaultPolicy returns the reference thresholds.
func DefaultPolicy() Policy {
	return Policy{
		ClockSkewTolerance: 60 * time.Second,
		StalenessHorizon:   365 * 24 * time.Hour,
		MinFullCatalogSpan: 10 * time.Second,
	}
}

// Verdict reports the outcome of one validation pass.
type Verdict struct {
	Plausible bool
	Violated  []Rule
}

// Validator applies the plausibility rules.
type Validator struct {
	policy      Policy
	catalogSize int
}

// New creates a validator for a catalog of the given size.
func New(policy Policy, catalogSize int) *Validator {
	return &Validator{policy: policy, catalogSize: catalogSize}
}

// IsPlausible reports whether records pass every rule against the
// unlocked id set at the given time.
func (v *Validator) IsPlausible(records []ledger.Record, unlockedIDs []string, now time.Time) bool {
	return v.Check(records, unlockedIDs, now).Plausible
}

// Check runs all rules and returns the per-rule verdict.
func (v *Validator) Check(records []ledger.Record, unlockedIDs []string, now time.Time) Verdict {
	var violated []Rule

	nowMillis := now.UnixMilli()
	futureLimit := nowMillis + v.policy.ClockSkewTolerance.Milliseconds()
	staleLimit := nowMillis - v.policy.StalenessHorizon.Milliseconds()

	for _, r := range records {
		if r.UnlockedAt > futureLimit {
			violated = appendRule(violated, RuleFuture)
		}
		if r.UnlockedAt < staleLimit {
			violated = appendRule(violated, RuleStale)
		}
	}

	if !countsMatch(records, unlockedIDs) {
		violated = appendRule(violated, RuleCount)
	}

	if v.catalogSize > 0 && len(records) == v.catalogSize {
		if span(records) < v.policy.MinFullCatalogSpan.Milliseconds() {
			violated = appendRule(violated, RuleSpeedRun)
		}
	}

	return Verdict{Plausible: len(violated) == 0, Violated: violated}
}

// countsMatch verifies the record ids and the unlocked set cover exactly
// the same ids, one record per id.
func countsMatch(records []ledger.Record, unlockedIDs []string) bool {
	if len(records) != len(unlockedIDs) {
		return false
	}

	recorded := make([]string, 0, len(records))
	for _, r := range records {
		recorded = append(recorded, r.ID)
	}
	sort.Strings(recorded)

	unlocked := make([]string, len(unlockedIDs))
	copy(unlocked, unlockedIDs)
	sort.Strings(unlocked)

	for i := range recorded {
		if recorded[i] != unlocked[i] {
			return false
		}
	}
	return true
}

func span(records []ledger.Record) int64 {
	if len(records) < 2 {
		return 0
	}
	min, max := records[0].UnlockedAt, records[0].UnlockedAt
	for _, r := range records[1:] {
		if r.UnlockedAt < min {
			min = r.UnlockedAt
		}
		if r.UnlockedAt > max {
			max = r.UnlockedAt
		}
	}
	return max - min
}

func appendRule(rules []Rule, r Rule) []Rule {
	for _, existing := range rules {
		if existing == r {
			return rules
		}
	}
	return append(rules, r)
}
