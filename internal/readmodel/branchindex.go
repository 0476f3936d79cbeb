package readmodel

import (
	"errors"
	"fmt"

	pebblestore "github.com/TorratDev/Grace/internal/storage/pebble"
)

// BranchIndex tracks a repository's branches and enforces per-repository
// branch-name uniqueness lookups.
//
// Keyspace:
// - branchidx/{repo-id}/{branch-id}   -> branch name
// - branchname/{repo-id}/{name}      -> branch id
type BranchIndex struct {
	db *pebblestore.DB
}

// NewBranchIndex wraps the database.
func NewBranchIndex(db *pebblestore.DB) *BranchIndex { return &BranchIndex{db: db} }

func branchKey(repoID, branchID string) []byte {
	return []byte("branchidx/" + repoID + "/" + branchID)
}

func branchNameKey(repoID, name string) []byte {
	return []byte("branchname/" + repoID + "/" + name)
}

// Put records a branch under its repository with its current name.
func (x *BranchIndex) Put(repoID, branchID, name string) error {
	if err := x.db.Set(branchKey(repoID, branchID), []byte(name)); err != nil {
		return fmt.Errorf("branchindex put: %w", err)
	}
	if err := x.db.Set(branchNameKey(repoID, name), []byte(branchID)); err != nil {
		return fmt.Errorf("branchindex name put: %w", err)
	}
	return nil
}

// Rename rebinds the branch's name entry.
func (x *BranchIndex) Rename(repoID, branchID, oldName, newName string) error {
	if err := x.db.Delete(branchNameKey(repoID, oldName)); err != nil {
		return fmt.Errorf("branchindex rename: %w", err)
	}
	return x.Put(repoID, branchID, newName)
}

// Remove drops the branch and its name binding.
func (x *BranchIndex) Remove(repoID, branchID, name string) error {
	if err := x.db.Delete(branchKey(repoID, branchID)); err != nil {
		return fmt.Errorf("branchindex remove: %w", err)
	}
	if err := x.db.Delete(branchNameKey(repoID, name)); err != nil {
		return fmt.Errorf("branchindex name remove: %w", err)
	}
	return nil
}

// ResolveName returns the branch id bound to name within the repository.
func (x *BranchIndex) ResolveName(repoID, name string) (string, bool, error) {
	val, err := x.db.Get(branchNameKey(repoID, name))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("branchindex resolve: %w", err)
	}
	return string(val), true, nil
}

// BranchEntry pairs a branch id with its name.
type BranchEntry struct {
	BranchID string
	Name     string
}

// List returns up to max branches of the repository.
func (x *BranchIndex) List(repoID string, max int) ([]BranchEntry, error) {
	if max <= 0 {
		max = 1000
	}
	prefix := []byte("branchidx/" + repoID + "/")
	it, err := x.db.PrefixIter(prefix)
	if err != nil {
		return nil, fmt.Errorf("branchindex list: %w", err)
	}
	defer it.Close()

	var out []BranchEntry
	for it.First(); it.Valid() && len(out) < max; it.Next() {
		out = append(out, BranchEntry{
			BranchID: string(it.Key()[len(prefix):]),
			Name:     string(it.Value()),
		})
	}
	return out, nil
}
