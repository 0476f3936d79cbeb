package readmodel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TorratDev/Grace/internal/domain"
	pebblestore "github.com/TorratDev/Grace/internal/storage/pebble"
)

// RetentionView is a durable snapshot of each repository's retention
// policy, written by the repository actor whenever the policy changes.
// Branch and reference actors read it when scheduling physical deletion
// instead of re-entering the repository actor mid-turn, which keeps
// cross-actor calls flowing strictly parent to child.
//
// Keyspace:
// - retention/{repo-id} -> policy JSON
type RetentionView struct {
	db *pebblestore.DB
}

// NewRetentionView wraps the database.
func NewRetentionView(db *pebblestore.DB) *RetentionView { return &RetentionView{db: db} }

func retentionKey(repoID string) []byte { return []byte("retention/" + repoID) }

// Put stores the repository's current policy.
func (x *RetentionView) Put(repoID string, policy domain.RetentionPolicy) error {
	b, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("retention put: %w", err)
	}
	if err := x.db.Set(retentionKey(repoID), b); err != nil {
		return fmt.Errorf("retention put: %w", err)
	}
	return nil
}

// Get returns the repository's policy snapshot.
func (x *RetentionView) Get(repoID string) (domain.RetentionPolicy, bool, error) {
	b, err := x.db.Get(retentionKey(repoID))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return domain.RetentionPolicy{}, false, nil
		}
		return domain.RetentionPolicy{}, false, fmt.Errorf("retention get: %w", err)
	}
	var p domain.RetentionPolicy
	if err := json.Unmarshal(b, &p); err != nil {
		return domain.RetentionPolicy{}, false, fmt.Errorf("retention decode: %w", err)
	}
	return p, true, nil
}

// Remove drops the snapshot after physical deletion.
func (x *RetentionView) Remove(repoID string) error {
	if err := x.db.Delete(retentionKey(repoID)); err != nil {
		return fmt.Errorf("retention remove: %w", err)
	}
	return nil
}
