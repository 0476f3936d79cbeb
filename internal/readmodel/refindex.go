package readmodel

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/TorratDev/Grace/internal/domain"
	pebblestore "github.com/TorratDev/Grace/internal/storage/pebble"
)

// ReferenceIndex tracks references per branch and type, newest first.
//
// Keyspace:
// - refidx/{branch-id}/{type}/{inv_created_be8}/{ref-id} -> empty
//
// The created-at timestamp is stored inverted so a forward scan yields
// the most recent reference first.
type ReferenceIndex struct {
	db *pebblestore.DB
}

// NewReferenceIndex wraps the database.
func NewReferenceIndex(db *pebblestore.DB) *ReferenceIndex { return &ReferenceIndex{db: db} }

func invert(ms int64) uint64 { return ^uint64(ms) }

func refKey(branchID string, rtype domain.ReferenceType, createdAtMs int64, refID string) []byte {
	k := make([]byte, 0, 7+len(branchID)+len(rtype)+8+len(refID)+4)
	k = append(k, "refidx/"...)
	k = append(k, branchID...)
	k = append(k, '/')
	k = append(k, rtype...)
	k = append(k, '/')
	var be [8]byte
	binary.BigEndian.PutUint64(be[:], invert(createdAtMs))
	k = append(k, be[:]...)
	k = append(k, '/')
	k = append(k, refID...)
	return k
}

func refTypePrefix(branchID string, rtype domain.ReferenceType) []byte {
	return []byte("refidx/" + branchID + "/" + string(rtype) + "/")
}

func refBranchPrefix(branchID string) []byte {
	return []byte("refidx/" + branchID + "/")
}

// Put records a reference.
func (x *ReferenceIndex) Put(branchID string, rtype domain.ReferenceType, createdAtMs int64, refID string) error {
	if err := x.db.Set(refKey(branchID, rtype, createdAtMs, refID), nil); err != nil {
		return fmt.Errorf("refindex put: %w", err)
	}
	return nil
}

// Remove drops a reference entry.
func (x *ReferenceIndex) Remove(branchID string, rtype domain.ReferenceType, createdAtMs int64, refID string) error {
	if err := x.db.Delete(refKey(branchID, rtype, createdAtMs, refID)); err != nil {
		return fmt.Errorf("refindex remove: %w", err)
	}
	return nil
}

// Latest returns the most recently created reference of the given type on
// the branch.
func (x *ReferenceIndex) Latest(branchID string, rtype domain.ReferenceType) (string, bool, error) {
	it, err := x.db.PrefixIter(refTypePrefix(branchID, rtype))
	if err != nil {
		return "", false, fmt.Errorf("refindex latest: %w", err)
	}
	defer it.Close()
	if !it.First() {
		return "", false, nil
	}
	key := it.Key()
	// .../{inv_be8}/{ref-id}
	if len(key) < 9 {
		return "", false, nil
	}
	return string(key[len(refTypePrefix(branchID, rtype))+8+1:]), true, nil
}

// Entry describes one indexed reference.
type Entry struct {
	ReferenceID string
	Type        domain.ReferenceType
	CreatedAtMs int64
}

// ListByBranch returns up to max references on the branch across all
// types, newest first within each type.
func (x *ReferenceIndex) ListByBranch(branchID string, max int) ([]Entry, error) {
	if max <= 0 {
		max = 1000
	}
	prefix := refBranchPrefix(branchID)
	it, err := x.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: pebblestore.PrefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("refindex list: %w", err)
	}
	defer it.Close()

	var out []Entry
	for it.First(); it.Valid() && len(out) < max; it.Next() {
		key := it.Key()
		rest := key[len(prefix):] // {type}/{inv_be8}/{ref-id}
		slash := -1
		for i, c := range rest {
			if c == '/' {
				slash = i
				break
			}
		}
		if slash < 0 || len(rest) < slash+1+8+1 {
			continue
		}
		inv := binary.BigEndian.Uint64(rest[slash+1 : slash+1+8])
		out = append(out, Entry{
			ReferenceID: string(rest[slash+1+8+1:]),
			Type:        domain.ReferenceType(rest[:slash]),
			CreatedAtMs: int64(^inv),
		})
	}
	return out, nil
}
