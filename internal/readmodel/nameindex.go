package readmodel

import (
	"errors"
	"fmt"

	pebblestore "github.com/TorratDev/Grace/internal/storage/pebble"
)

// NameIndex binds owner and organization names to their ids.
//
// Keyspace:
// - nameidx/owner/{name}            -> owner id
// - nameidx/org/{owner-id}/{name}   -> organization id
type NameIndex struct {
	db *pebblestore.DB
}

// NewNameIndex wraps the database.
func NewNameIndex(db *pebblestore.DB) *NameIndex { return &NameIndex{db: db} }

func ownerNameKey(name string) []byte { return []byte("nameidx/owner/" + name) }

func orgNameKey(ownerID, name string) []byte {
	return []byte("nameidx/org/" + ownerID + "/" + name)
}

// BindOwner records an owner name binding.
func (x *NameIndex) BindOwner(name, ownerID string) error {
	if err := x.db.Set(ownerNameKey(name), []byte(ownerID)); err != nil {
		return fmt.Errorf("nameindex bind owner: %w", err)
	}
	return nil
}

// UnbindOwner drops an owner name binding.
func (x *NameIndex) UnbindOwner(name string) error {
	if err := x.db.Delete(ownerNameKey(name)); err != nil {
		return fmt.Errorf("nameindex unbind owner: %w", err)
	}
	return nil
}

// ResolveOwner returns the id bound to an owner name.
func (x *NameIndex) ResolveOwner(name string) (string, bool, error) {
	return x.resolve(ownerNameKey(name))
}

// BindOrganization records an organization name binding under its owner.
func (x *NameIndex) BindOrganization(ownerID, name, orgID string) error {
	if err := x.db.Set(orgNameKey(ownerID, name), []byte(orgID)); err != nil {
		return fmt.Errorf("nameindex bind org: %w", err)
	}
	return nil
}

// UnbindOrganization drops an organization name binding.
func (x *NameIndex) UnbindOrganization(ownerID, name string) error {
	if err := x.db.Delete(orgNameKey(ownerID, name)); err != nil {
		return fmt.Errorf("nameindex unbind org: %w", err)
	}
	return nil
}

// ResolveOrganization returns the id bound to an organization name under
// its owner.
func (x *NameIndex) ResolveOrganization(ownerID, name string) (string, bool, error) {
	return x.resolve(orgNameKey(ownerID, name))
}

func (x *NameIndex) resolve(key []byte) (string, bool, error) {
	val, err := x.db.Get(key)
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("nameindex resolve: %w", err)
	}
	return string(val), true, nil
}
