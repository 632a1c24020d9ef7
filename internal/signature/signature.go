// Package signature derives short deterministic signatures over an
// unlocked-achievement set.
//
// The signature is an anti-casual-tampering deterrent, not a MAC against an
// attacker who can read the client source: editing the persisted id list
// without recomputing the signature must be detectable, nothing more. Two
// modes are supported. The legacy mode reproduces the browser client's
// 32-bit rolling polynomial hash so existing persisted state keeps
// verifying. The keyed mode uses BLAKE2b-256 with the secret as MAC key.
package signature

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"trophyd/internal/catalog"
)

// Mode selects the hash used to derive signatures.
type Mode string

const (
	// ModeLegacy is the 32-bit rolling polynomial hash, base-36 encoded.
	ModeLegacy Mode = "legacy"

	// ModeKeyed is a BLAKE2b-256 keyed hash, hex encoded (truncated).
	ModeKeyed Mode = "keyed"
)

// keyedSigLen is the number of hex characters emitted in keyed mode.
const keyedSigLen = 32

// Signer derives signatures from a canonicalized id set and a secret.
type Signer struct {
	secret string
	mode   Mode
}

// New creates a signer. An unknown mode falls back to ModeLegacy.
func New(secret string, mode Mode) *Signer {
	if mode != ModeKeyed {
		mode = ModeLegacy
	}
	return &Signer{secret: secret, mode: mode}
}

// Sign returns the signature for the given id set.
// The result depends only on set membership, not on slice order.
func (s *Signer) Sign(ids []catalog.ID) string {
	payload := Canonical(ids) + ":" + s.secret

	switch s.mode {
	case ModeKeyed:
		return s.keyedSum(payload)
	default:
		return rollingSum(payload)
	}
}

// Verify reports whether sig matches the signature of ids.
func (s *Signer) Verify(ids []catalog.ID, sig string) bool {
	return s.Sign(ids) == sig
}

// Canonical returns the order-independent serialization of an id set:
// ids sorted lexicographically and joined with "|".
func Canonical(ids []catalog.ID) string {
	sorted := make([]string, 0, len(ids))
	for _, id := range ids {
		sorted = append(sorted, string(id))
	}
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

// rollingSum is the legacy client hash: h = h*31 + c over UTF-16 code
// units, wrapped to signed 32 bits, absolute value, base 36.
func rollingSum(payload string) string {
	var h int32
	for _, r := range payload {
		// Mirror JavaScript charCodeAt: runes above the BMP contribute
		// their surrogate pair halves.
		if r > 0xFFFF {
			r -= 0x10000
			hi := 0xD800 + (r >> 10)
			lo := 0xDC00 + (r & 0x3FF)
			h = h*31 + hi
			h = h*31 + lo
			continue
		}
		h = h*31 + r
	}
	if h < 0 {
		// math.MinInt32 has no positive counterpart; keep it stable.
		if h == -2147483648 {
			h = 2147483647
		} else {
			h = -h
		}
	}
	return strconv.FormatInt(int64(h), 36)
}

func (s *Signer) keyedSum(payload string) string {
	key := []byte(s.secret)
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		// Key length already clamped; New256 only fails on oversized keys.
		panic(fmt.Sprintf("signature: blake2b init: %v", err))
	}
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))[:keyedSigLen]
}
