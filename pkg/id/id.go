package id

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// EventID is a 16-byte, byte-wise sortable identifier: issue time in
// milliseconds (big-endian) followed by a per-millisecond discriminator.
type EventID [16]byte

// NowMs reports the current wall clock in milliseconds. Tests swap it
// out to exercise clock regression and same-millisecond issue paths.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Source issues strictly increasing EventIDs for one process.
type Source struct {
	mu   sync.Mutex
	last EventID
}

// NewGenerator returns a fresh Source.
func NewGenerator() *Source { return &Source{} }

// Next issues the next id. The result is the larger of a fresh
// clock-derived candidate and the previous id incremented by one, so
// ids stay strictly increasing even when the clock stalls or regresses.
func (s *Source) Next() EventID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidate EventID
	binary.BigEndian.PutUint64(candidate[:8], uint64(NowMs()))

	if candidate.Compare(s.last) <= 0 {
		candidate = s.last
		candidate.increment()
	}
	s.last = candidate
	return candidate
}

// increment adds one to the id, carrying across all 16 bytes.
func (i *EventID) increment() {
	for pos := len(i) - 1; pos >= 0; pos-- {
		i[pos]++
		if i[pos] != 0 {
			return
		}
	}
}

// Bytes returns a copy of the raw representation.
func (i EventID) Bytes() []byte {
	out := make([]byte, len(i))
	copy(out, i[:])
	return out
}

// String renders the id as 32 lowercase hex characters.
func (i EventID) String() string { return hex.EncodeToString(i[:]) }

// IsZero reports whether the id is unset.
func (i EventID) IsZero() bool { return i == EventID{} }

// Time recovers the issue timestamp embedded in the high bytes.
func (i EventID) Time() time.Time {
	return time.UnixMilli(int64(binary.BigEndian.Uint64(i[:8])))
}

// Compare orders two ids byte-wise: -1, 0, or 1.
func (i EventID) Compare(other EventID) int {
	return bytes.Compare(i[:], other[:])
}

// Parse reads an id back from its String form.
func Parse(s string) (EventID, error) {
	var out EventID
	if len(s) != hex.EncodedLen(len(out)) {
		return out, fmt.Errorf("id: want %d hex chars, got %d", hex.EncodedLen(len(out)), len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return EventID{}, fmt.Errorf("id: %w", err)
	}
	copy(out[:], raw)
	return out, nil
}
