package readmodel

import (
	"testing"

	"github.com/TorratDev/Grace/internal/domain"
	pebblestore "github.com/TorratDev/Grace/internal/storage/pebble"
)

func newTestDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestReferenceLatest(t *testing.T) {
	x := NewReferenceIndex(newTestDB(t))

	if err := x.Put("b1", domain.ReferenceSave, 100, "r-old"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := x.Put("b1", domain.ReferenceSave, 200, "r-new"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := x.Put("b1", domain.ReferenceCommit, 300, "r-commit"); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := x.Latest("b1", domain.ReferenceSave)
	if err != nil || !ok || got != "r-new" {
		t.Fatalf("latest save: got %q ok=%v err=%v", got, ok, err)
	}
	got, ok, err = x.Latest("b1", domain.ReferenceCommit)
	if err != nil || !ok || got != "r-commit" {
		t.Fatalf("latest commit: got %q ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := x.Latest("b1", domain.ReferencePromotion); ok {
		t.Fatalf("no promotion should exist")
	}
	if _, ok, _ := x.Latest("b2", domain.ReferenceSave); ok {
		t.Fatalf("other branch must be empty")
	}
}

func TestReferenceListAndRemove(t *testing.T) {
	x := NewReferenceIndex(newTestDB(t))
	_ = x.Put("b1", domain.ReferenceSave, 100, "r1")
	_ = x.Put("b1", domain.ReferenceTag, 150, "r2")

	entries, err := x.ListByBranch("b1", 10)
	if err != nil || len(entries) != 2 {
		t.Fatalf("list: %v entries=%v", err, entries)
	}
	for _, e := range entries {
		if e.CreatedAtMs != 100 && e.CreatedAtMs != 150 {
			t.Fatalf("timestamp decode broken: %+v", e)
		}
	}

	if err := x.Remove("b1", domain.ReferenceSave, 100, "r1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	entries, _ = x.ListByBranch("b1", 10)
	if len(entries) != 1 || entries[0].ReferenceID != "r2" {
		t.Fatalf("want only r2 left, got %v", entries)
	}
}

func TestBranchIndex(t *testing.T) {
	x := NewBranchIndex(newTestDB(t))
	if err := x.Put("repo1", "b1", "main"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := x.Put("repo1", "b2", "feature"); err != nil {
		t.Fatalf("put: %v", err)
	}

	id, ok, err := x.ResolveName("repo1", "main")
	if err != nil || !ok || id != "b1" {
		t.Fatalf("resolve: %q ok=%v err=%v", id, ok, err)
	}

	list, err := x.List("repo1", 10)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v %v", list, err)
	}

	if err := x.Rename("repo1", "b2", "feature", "topic"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, ok, _ := x.ResolveName("repo1", "feature"); ok {
		t.Fatalf("old name should be unbound")
	}
	if id, ok, _ := x.ResolveName("repo1", "topic"); !ok || id != "b2" {
		t.Fatalf("new name should resolve to b2, got %q", id)
	}

	if err := x.Remove("repo1", "b1", "main"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	list, _ = x.List("repo1", 10)
	if len(list) != 1 {
		t.Fatalf("want 1 branch after removal, got %v", list)
	}
}

func TestNameIndex(t *testing.T) {
	x := NewNameIndex(newTestDB(t))
	if err := x.BindOwner("alice", "o-1"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	id, ok, err := x.ResolveOwner("alice")
	if err != nil || !ok || id != "o-1" {
		t.Fatalf("resolve owner: %q ok=%v err=%v", id, ok, err)
	}

	if err := x.BindOrganization("o-1", "eng", "g-1"); err != nil {
		t.Fatalf("bind org: %v", err)
	}
	id, ok, err = x.ResolveOrganization("o-1", "eng")
	if err != nil || !ok || id != "g-1" {
		t.Fatalf("resolve org: %q ok=%v err=%v", id, ok, err)
	}
	if _, ok, _ := x.ResolveOrganization("o-2", "eng"); ok {
		t.Fatalf("org binding is scoped by owner")
	}

	if err := x.UnbindOwner("alice"); err != nil {
		t.Fatalf("unbind: %v", err)
	}
	if _, ok, _ := x.ResolveOwner("alice"); ok {
		t.Fatalf("owner binding should be gone")
	}
}
