package entity

import (
	"context"
	"testing"
	"time"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/domain"
)

func TestDirectoryVersionIDDeterministic(t *testing.T) {
	a := DirectoryVersionID("repo-1", "abc")
	b := DirectoryVersionID("repo-1", "abc")
	if a != b {
		t.Fatalf("content address must be deterministic: %s != %s", a, b)
	}
	if a == DirectoryVersionID("repo-2", "abc") {
		t.Fatalf("different repositories must get different actors")
	}
	if a == DirectoryVersionID("repo-1", "def") {
		t.Fatalf("different hashes must get different actors")
	}
}

func TestDirectoryVersionCreateChecksSize(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	dvID := DirectoryVersionID(repoID, "hash-1")

	files := []FileEntry{
		{Path: "a.txt", Sha256Hash: "fa", Size: 10},
		{Path: "b.txt", Sha256Hash: "fb", Size: 5},
	}

	// Declared size disagrees with the file sum.
	_, derr := w.dirHandle(dvID, DirectoryVersionCreate{
		RepositoryID: repoID,
		Sha256Hash:   "hash-1",
		RelativePath: ".",
		Files:        files,
		Size:         99,
	}, "c-bad")
	if derr == nil || derr.Code != domain.CodeSizeMismatch {
		t.Fatalf("want SizeMismatch, got %v", derr)
	}
	exists, _ := actor.Call(context.Background(), w.host, actor.Address{Kind: actor.KindDirectoryVersion, ID: dvID}, "Exists",
		func(ctx context.Context, a *DirectoryVersionActor) (bool, error) { return a.Exists(ctx), nil })
	if exists {
		t.Fatalf("rejected create must leave nothing behind")
	}

	// Matching size is accepted.
	if _, derr := w.dirHandle(dvID, DirectoryVersionCreate{
		RepositoryID: repoID,
		Sha256Hash:   "hash-1",
		RelativePath: ".",
		Files:        files,
		Size:         15,
	}, "c-good"); derr != nil {
		t.Fatalf("create: %v", derr)
	}

	dto, err := actor.Call(context.Background(), w.host, actor.Address{Kind: actor.KindDirectoryVersion, ID: dvID}, "Get",
		func(ctx context.Context, a *DirectoryVersionActor) (DirectoryVersionDto, error) {
			return a.Get(ctx), nil
		})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if dto.Size != 15 || len(dto.Files) != 2 || dto.Sha256Hash != "hash-1" {
		t.Fatalf("unexpected dto: %+v", dto)
	}
}

func TestDirectoryVersionDuplicateCreateRejected(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	dvID := DirectoryVersionID(repoID, "hash-1")

	create := DirectoryVersionCreate{RepositoryID: repoID, Sha256Hash: "hash-1", Size: 0}
	if _, derr := w.dirHandle(dvID, create, "c-1"); derr != nil {
		t.Fatalf("create: %v", derr)
	}
	_, derr := w.dirHandle(dvID, create, "c-2")
	if derr == nil || derr.Code != domain.CodeEntityAlreadyExists {
		t.Fatalf("want EntityAlreadyExists, got %v", derr)
	}
}

func TestDirectoryVersionCacheExpiry(t *testing.T) {
	w := newWorld(t)
	retention := domain.DefaultRetention()
	retention.DirectoryVersionCacheDays = 0.000001 // effectively immediate
	_, _, repoID := w.mkRepo(&retention)
	dvID := DirectoryVersionID(repoID, "hash-1")

	if _, derr := w.dirHandle(dvID, DirectoryVersionCreate{
		RepositoryID: repoID,
		Sha256Hash:   "hash-1",
	}, "c-1"); derr != nil {
		t.Fatalf("create: %v", derr)
	}

	time.Sleep(150 * time.Millisecond) // let the sub-second window lapse
	w.sweep()

	exists, _ := actor.Call(context.Background(), w.host, actor.Address{Kind: actor.KindDirectoryVersion, ID: dvID}, "Exists",
		func(ctx context.Context, a *DirectoryVersionActor) (bool, error) { return a.Exists(ctx), nil })
	if exists {
		t.Fatalf("cached snapshot must expire")
	}
}
