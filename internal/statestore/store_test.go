package statestore

import (
	"context"
	"testing"

	pebblestore "github.com/TorratDev/Grace/internal/storage/pebble"
)

func newTestStore(t *testing.T) *PebbleStore {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPebbleStore(db)
}

func TestSaveRetrieveDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	aid := ActorID{Kind: "Branch", ID: "b-1"}

	if _, found, err := s.Retrieve(ctx, aid, "events"); err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	if err := s.Save(ctx, aid, "events", []byte(`[{"tag":"BranchCreated"}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	val, found, err := s.Retrieve(ctx, aid, "events")
	if err != nil || !found {
		t.Fatalf("retrieve: found=%v err=%v", found, err)
	}
	if string(val) != `[{"tag":"BranchCreated"}]` {
		t.Fatalf("unexpected value %q", val)
	}

	existed, err := s.Delete(ctx, aid, "events")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = s.Delete(ctx, aid, "events")
	if err != nil || existed {
		t.Fatalf("second delete should report missing, got existed=%v err=%v", existed, err)
	}
}

func TestActorIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := ActorID{Kind: "Owner", ID: "1"}
	b := ActorID{Kind: "Owner", ID: "2"}

	if err := s.Save(ctx, a, "events", []byte("a")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, found, _ := s.Retrieve(ctx, b, "events"); found {
		t.Fatalf("actor b must not observe actor a's key")
	}
}
