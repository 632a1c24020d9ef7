// Package store orchestrates load/verify/save/reset of achievement state.
//
// The store exclusively owns the persisted blob: nothing else reads or
// writes the medium directly. Every load re-derives the signature over the
// persisted id set and runs the anomaly rules; any mismatch wipes the
// state and starts from empty. Tampering is an expected, recoverable
// condition here, never an error surfaced to callers.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trophyd/internal/anomaly"
	"trophyd/internal/catalog"
	"trophyd/internal/ledger"
	"trophyd/internal/signature"
	"trophyd/internal/storage"
)

// ErrUnknownAchievement is returned when an unlock names an id outside the
// catalog. It indicates a detector/catalog mismatch, not user tampering.
var ErrUnknownAchievement = errors.New("store: unknown achievement id")

// Result is the outcome of an Unlock call.
type Result struct {
	AlreadyUnlocked bool
	Set             []catalog.ID
}

// Store is the integrity store.
type Store struct {
	mu        sync.Mutex
	medium    storage.Medium
	signer    *signature.Signer
	validator *anomaly.Validator
	cat       *catalog.Catalog
	logger    *slog.Logger
	now       func() time.Time

	// In-memory mirror of the trusted state. When the medium becomes
	// unavailable, unlocks keep accumulating here for the session.
	set     []catalog.ID
	led     *ledger.Ledger
	durable bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an integrity store over the given medium.
func New(cat *catalog.Catalog, medium storage.Medium, signer *signature.Signer, validator *anomaly.Validator, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		medium:    medium,
		signer:    signer,
		validator: validator,
		cat:       cat,
		logger:    logger.With("component", "integrity_store"),
		now:       time.Now,
		led:       ledger.New(),
		durable:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads and validates the persisted blob, returning the trusted
// unlocked set. Invalid state is wiped and an empty set returned.
func (s *Store) Load() []catalog.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Unlock marks id unlocked. It validates catalog membership, self-heals
// against tampering since the last load, and persists the new blob in one
// write. A medium failure degrades to in-memory tracking for the session
// and is reported through Durable, not through the returned error.
func (s *Store) Unlock(id catalog.ID) (Result, error) {
	if !s.cat.Contains(id) {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownAchievement, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.loadLocked()
	for _, existing := range current {
		if existing == id {
			return Result{AlreadyUnlocked: true, Set: current}, nil
		}
	}

	nowMillis := s.now().UnixMilli()
	newSet := append(append([]catalog.ID{}, current...), id)

	if err := s.led.Append(string(id), nowMillis); err != nil {
		// loadLocked already established id is absent; a duplicate here
		// means the mirror diverged, so rebuild it from the new set.
		s.logger.Warn("ledger mirror out of step, rebuilding", "id", id, "error", err)
		s.rebuildLedger(newSet, nowMillis)
	}

	blob := &Blob{
		UnlockedIDs: newSet,
		Signature:   s.signer.Sign(newSet),
		Timestamps:  s.led.Records(),
	}
	if err := s.persist(blob); err != nil {
		s.durable = false
		s.logger.Warn("persistence unavailable, unlock held in memory only",
			"id", id, "error", err)
	} else {
		s.durable = true
	}

	s.set = newSet
	return Result{AlreadyUnlocked: false, Set: copyIDs(newSet)}, nil
}

// Reset unconditionally clears all persisted fields. Idempotent.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

// Durable reports whether the last write reached the medium.
func (s *Store) Durable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durable
}

// Records returns the trusted timestamp records from the last load.
func (s *Store) Records() []ledger.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.led.Records()
}

func (s *Store) loadLocked() []catalog.ID {
	rawIDs, errIDs := s.medium.GetItem(KeyUnlocked)
	rawSig, errSig := s.medium.GetItem(KeySignature)
	rawTS, errTS := s.medium.GetItem(KeyTimestamps)

	for _, err := range []error{errIDs, errSig, errTS} {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			// Medium down: fall back to the in-memory mirror so the
			// session keeps tracking.
			s.durable = false
			s.logger.Warn("persistence unavailable on load, using in-memory state", "error", err)
			return copyIDs(s.set)
		}
	}

	absent := 0
	for _, err := range []error{errIDs, errSig, errTS} {
		if errors.Is(err, storage.ErrNotFound) {
			absent++
		}
	}

	if absent == 3 {
		if !s.durable {
			// Degraded session: the medium never received our writes, so
			// an empty medium does not mean empty progress. Keep the
			// in-memory state until a write lands again.
			return copyIDs(s.set)
		}
		// First run or post-reset: trusted empty state.
		s.set = nil
		s.led = ledger.New()
		return []catalog.ID{}
	}

	if absent > 0 {
		s.tamper("partial state", fmt.Sprintf("%d of 3 keys missing", 3-absent))
		return []catalog.ID{}
	}

	ids, err := decodeUnlocked(rawIDs)
	if err != nil {
		s.tamper("malformed unlocked ids", err.Error())
		return []catalog.ID{}
	}
	records, err := decodeTimestamps(rawTS)
	if err != nil {
		s.tamper("malformed timestamps", err.Error())
		return []catalog.ID{}
	}

	for _, id := range ids {
		if !s.cat.Contains(id) {
			s.tamper("unknown id in persisted set", string(id))
			return []catalog.ID{}
		}
	}

	if !s.signer.Verify(ids, rawSig) {
		s.tamper("signature mismatch", "")
		return []catalog.ID{}
	}

	led, err := ledger.FromRecords(records)
	if err != nil {
		s.tamper("duplicate timestamp records", err.Error())
		return []catalog.ID{}
	}

	verdict := s.validator.Check(records, idStrings(ids), s.now())
	if !verdict.Plausible {
		s.tamper("anomaly rules violated", fmt.Sprintf("%v", verdict.Violated))
		return []catalog.ID{}
	}

	s.set = ids
	s.led = led
	return copyIDs(ids)
}

// tamper logs the diagnostic and wipes persisted state. The reset is
// silent toward callers: progress reverts to zero with no error dialog.
func (s *Store) tamper(reason, detail string) {
	s.logger.Warn("tamper detected, resetting achievement state",
		"reason", reason, "detail", detail)
	if err := s.resetLocked(); err != nil {
		s.logger.Warn("reset after tamper failed", "error", err)
	}
}

func (s *Store) resetLocked() error {
	s.set = nil
	s.led = ledger.New()

	var firstErr error
	for _, key := range []string{KeyUnlocked, KeySignature, KeyTimestamps} {
		if err := s.medium.RemoveItem(key); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		s.durable = false
		return fmt.Errorf("reset: %w", firstErr)
	}
	return nil
}

// persist writes the blob, batched when the medium supports it.
func (s *Store) persist(blob *Blob) error {
	unlocked, sig, timestamps, err := blob.encode()
	if err != nil {
		return err
	}

	items := map[string]string{
		KeyUnlocked:   unlocked,
		KeySignature:  sig,
		KeyTimestamps: timestamps,
	}

	if batch, ok := s.medium.(storage.BatchMedium); ok {
		return batch.SetItems(items)
	}

	for _, key := range []string{KeyUnlocked, KeySignature, KeyTimestamps} {
		if err := s.medium.SetItem(key, items[key]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) rebuildLedger(ids []catalog.ID, nowMillis int64) {
	led := ledger.New()
	for _, r := range s.led.TimesFor(idStrings(ids)) {
		_ = led.Append(r.ID, r.UnlockedAt)
	}
	for _, id := range ids {
		if !led.Has(string(id)) {
			_ = led.Append(string(id), nowMillis)
		}
	}
	s.led = led
}

func copyIDs(ids []catalog.ID) []catalog.ID {
	out := make([]catalog.ID, len(ids))
	copy(out, ids)
	return out
}

func idStrings(ids []catalog.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
