package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"trophyd/internal/catalog"
	"trophyd/internal/ledger"
	"trophyd/internal/storage"
)

// Storage keys making up the persisted blob.
const (
	KeyUnlocked   = "trophyd.unlocked"
	KeySignature  = "trophyd.signature"
	KeyTimestamps = "trophyd.timestamps"
)

// ErrMalformed marks persisted payloads that fail schema validation or
// JSON decoding. The store treats it the same as any other tamper signal.
var ErrMalformed = errors.New("store: malformed persisted payload")

// Blob is the full persisted representation of achievement state.
type Blob struct {
	UnlockedIDs []catalog.ID
	Signature   string
	Timestamps  []ledger.Record
}

// The persisted payloads are validated against JSON schemas before
// decoding, so a hand-edited value that still parses as JSON but has the
// wrong shape is rejected instead of partially decoded.
var (
	unlockedSchema = jsonschema.MustCompileString("trophyd://unlocked.schema.json", `{
		"type": "array",
		"items": {"type": "string", "minLength": 1},
		"uniqueItems": true
	}`)

	timestampsSchema = jsonschema.MustCompileString("trophyd://timestamps.schema.json", `{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["id", "ts"],
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"ts": {"type": "integer"}
			},
			"additionalProperties": false
		}
	}`)
)

// ReadBlob reads and decodes the persisted blob without the store's
// reset-on-failure behavior. Inspection tools use it to report what is
// on disk, valid or not. A fully absent blob returns (nil, nil).
func ReadBlob(m storage.Medium) (*Blob, error) {
	rawIDs, errIDs := m.GetItem(KeyUnlocked)
	rawSig, errSig := m.GetItem(KeySignature)
	rawTS, errTS := m.GetItem(KeyTimestamps)

	absent := 0
	for _, err := range []error{errIDs, errSig, errTS} {
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrNotFound):
			absent++
		default:
			return nil, err
		}
	}
	if absent == 3 {
		return nil, nil
	}
	if absent > 0 {
		return nil, fmt.Errorf("%w: %d of 3 keys missing", ErrMalformed, absent)
	}

	ids, err := decodeUnlocked(rawIDs)
	if err != nil {
		return nil, err
	}
	records, err := decodeTimestamps(rawTS)
	if err != nil {
		return nil, err
	}

	return &Blob{UnlockedIDs: ids, Signature: rawSig, Timestamps: records}, nil
}

// decodeUnlocked parses and validates the unlocked-ids payload.
func decodeUnlocked(raw string) ([]catalog.ID, error) {
	var instance any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		return nil, fmt.Errorf("%w: unlocked ids: %v", ErrMalformed, err)
	}
	if err := unlockedSchema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: unlocked ids: %v", ErrMalformed, err)
	}

	var ids []catalog.ID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("%w: unlocked ids: %v", ErrMalformed, err)
	}
	return ids, nil
}

// decodeTimestamps parses and validates the timestamp-records payload.
func decodeTimestamps(raw string) ([]ledger.Record, error) {
	var instance any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		return nil, fmt.Errorf("%w: timestamps: %v", ErrMalformed, err)
	}
	if err := timestampsSchema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: timestamps: %v", ErrMalformed, err)
	}

	var records []ledger.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: timestamps: %v", ErrMalformed, err)
	}
	return records, nil
}

// encode serializes the blob into its three storage values.
func (b *Blob) encode() (unlocked, sig, timestamps string, err error) {
	ids := b.UnlockedIDs
	if ids == nil {
		ids = []catalog.ID{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return "", "", "", fmt.Errorf("encode unlocked ids: %w", err)
	}

	records := b.Timestamps
	if records == nil {
		records = []ledger.Record{}
	}
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return "", "", "", fmt.Errorf("encode timestamps: %w", err)
	}

	return string(idsJSON), b.Signature, string(recordsJSON), nil
}
