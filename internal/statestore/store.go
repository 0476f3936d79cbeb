package statestore

import (
	"context"
	"errors"
	"fmt"

	pebblestore "github.com/TorratDev/Grace/internal/storage/pebble"
)

// ActorID addresses one virtual actor's state partition.
type ActorID struct {
	Kind string
	ID   string
}

func (a ActorID) String() string { return a.Kind + "/" + a.ID }

// Store is the durable key/value contract consumed by entity actors.
// Values are opaque serialized blobs.
type Store interface {
	// Save durably writes value under (actorID, key).
	Save(ctx context.Context, actorID ActorID, key string, value []byte) error
	// Retrieve reads the value under (actorID, key). The second return is
	// false when the key has never been written or was deleted.
	Retrieve(ctx context.Context, actorID ActorID, key string) ([]byte, bool, error)
	// Delete removes the value under (actorID, key), reporting whether a
	// value existed.
	Delete(ctx context.Context, actorID ActorID, key string) (bool, error)
}

// PebbleStore persists actor state in the shared Pebble keyspace under
// actor/{kind}/{id}/{key}.
type PebbleStore struct {
	db *pebblestore.DB
}

// NewPebbleStore wraps the database.
func NewPebbleStore(db *pebblestore.DB) *PebbleStore { return &PebbleStore{db: db} }

func stateKey(actorID ActorID, key string) []byte {
	k := make([]byte, 0, 6+len(actorID.Kind)+len(actorID.ID)+len(key)+3)
	k = append(k, "actor/"...)
	k = append(k, actorID.Kind...)
	k = append(k, '/')
	k = append(k, actorID.ID...)
	k = append(k, '/')
	k = append(k, key...)
	return k
}

// Save implements Store.
func (s *PebbleStore) Save(ctx context.Context, actorID ActorID, key string, value []byte) error {
	if err := s.db.Set(stateKey(actorID, key), value); err != nil {
		return fmt.Errorf("save %s/%s: %w", actorID, key, err)
	}
	return nil
}

// Retrieve implements Store.
func (s *PebbleStore) Retrieve(ctx context.Context, actorID ActorID, key string) ([]byte, bool, error) {
	val, err := s.db.Get(stateKey(actorID, key))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("retrieve %s/%s: %w", actorID, key, err)
	}
	return val, true, nil
}

// Delete implements Store.
func (s *PebbleStore) Delete(ctx context.Context, actorID ActorID, key string) (bool, error) {
	k := stateKey(actorID, key)
	existed, err := s.db.Has(k)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", actorID, key, err)
	}
	if !existed {
		return false, nil
	}
	if err := s.db.Delete(k); err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", actorID, key, err)
	}
	return true, nil
}
