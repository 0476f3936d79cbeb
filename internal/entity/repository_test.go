package entity

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/domain"
)

func (w *world) repoGet(id string) RepositoryDto {
	w.t.Helper()
	dto, err := actor.Call(context.Background(), w.host, actor.Address{Kind: actor.KindRepository, ID: id}, "Get",
		func(ctx context.Context, a *RepositoryActor) (RepositoryDto, error) { return a.Get(ctx), nil })
	if err != nil {
		w.t.Fatalf("repo get: %v", err)
	}
	return dto
}

// Scenario: create then read back the repository dto.
func TestRepositoryCreateThenGet(t *testing.T) {
	w := newWorld(t)
	ownerID, orgID, repoID := w.mkRepo(nil)

	dto := w.repoGet(repoID)
	if dto.Name != "demo" || dto.OwnerID != ownerID || dto.OrganizationID != orgID {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.DeletedAt != nil {
		t.Fatalf("fresh repository must be active")
	}
	// No overrides supplied: server-default retention applies.
	if dto.Retention != domain.DefaultRetention() {
		t.Fatalf("want default retention, got %+v", dto.Retention)
	}
}

// Scenario: the same correlation id cannot apply a second command.
func TestRepositoryDuplicateCorrelationOnRetentionSet(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)

	if _, derr := w.repoHandle(repoID, RepositorySetRetentionDays{Window: WindowSave, Days: 30}, "c-1"); derr != nil {
		t.Fatalf("first set: %v", derr)
	}
	_, derr := w.repoHandle(repoID, RepositorySetRetentionDays{Window: WindowSave, Days: 30}, "c-1")
	if derr == nil || derr.Code != domain.CodeDuplicateCorrelation {
		t.Fatalf("want DuplicateCorrelationId, got %v", derr)
	}
	if got := w.repoGet(repoID).Retention.SaveDays; got != 30 {
		t.Fatalf("first application must stand, SaveDays=%v", got)
	}
}

func TestRepositoryRetentionSettersFoldAndSnapshot(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)

	for _, tc := range []struct {
		window string
		days   float64
	}{
		{WindowSave, 1},
		{WindowCheckpoint, 2},
		{WindowDiffCache, 3},
		{WindowDirectoryVersionCache, 4},
		{WindowLogicalDelete, 5},
	} {
		if _, derr := w.repoHandle(repoID, RepositorySetRetentionDays{Window: tc.window, Days: tc.days}, "c-"+tc.window); derr != nil {
			t.Fatalf("set %s: %v", tc.window, derr)
		}
	}
	dto := w.repoGet(repoID)
	want := domain.RetentionPolicy{SaveDays: 1, CheckpointDays: 2, DiffCacheDays: 3, DirectoryVersionCacheDays: 4, LogicalDeleteDays: 5}
	if dto.Retention != want {
		t.Fatalf("retention fold wrong: %+v", dto.Retention)
	}
	// The durable snapshot read by child actors matches the fold.
	snap, found, err := w.ctx.Retention.Get(repoID)
	if err != nil || !found || snap != want {
		t.Fatalf("snapshot wrong: %+v found=%v err=%v", snap, found, err)
	}

	if _, derr := w.repoHandle(repoID, RepositorySetRetentionDays{Window: "bogus", Days: 1}, "c-bogus"); derr == nil {
		t.Fatalf("unknown window must be rejected")
	}
	if _, derr := w.repoHandle(repoID, RepositorySetRetentionDays{Window: WindowSave, Days: -1}, "c-neg"); derr == nil {
		t.Fatalf("negative days must be rejected")
	}
}

func TestRepositoryNameUniquePerOwnerAndOrg(t *testing.T) {
	w := newWorld(t)
	ownerID, orgID, _ := w.mkRepo(nil)

	// Same (name, owner, org) is taken.
	_, derr := w.repoHandle(uuid.NewString(), RepositoryCreate{
		OwnerID: ownerID, OrganizationID: orgID, Name: "demo",
	}, "c-dup")
	if derr == nil || derr.Code != domain.CodeNameAlreadyExists {
		t.Fatalf("want NameAlreadyExists, got %v", derr)
	}

	// The same name under a different organization is fine.
	otherOrg := uuid.NewString()
	if _, derr := w.orgHandle(otherOrg, OrganizationCreate{OwnerID: ownerID, Name: "ops"}, "c-org2"); derr != nil {
		t.Fatalf("create org2: %v", derr)
	}
	if _, derr := w.repoHandle(uuid.NewString(), RepositoryCreate{
		OwnerID: ownerID, OrganizationID: otherOrg, Name: "demo",
	}, "c-repo2"); derr != nil {
		t.Fatalf("same name under other org should pass: %v", derr)
	}
}

func TestRepositoryRenameRebindsLookup(t *testing.T) {
	w := newWorld(t)
	ownerID, orgID, repoID := w.mkRepo(nil)

	if _, derr := w.repoHandle(repoID, RepositorySetName{Name: "renamed"}, "c-rename"); derr != nil {
		t.Fatalf("rename: %v", derr)
	}

	oldAddr := actor.Address{Kind: actor.KindRepositoryName, ID: RepositoryNameKey("demo", ownerID, orgID)}
	_, err := actor.Call(context.Background(), w.host, oldAddr, "GetRepositoryID",
		func(ctx context.Context, na *RepositoryNameActor) (struct{}, error) {
			if _, found := na.GetRepositoryID(ctx); found {
				t.Errorf("old name binding must be cleared")
			}
			return struct{}{}, nil
		})
	if err != nil {
		t.Fatalf("old lookup: %v", err)
	}

	newAddr := actor.Address{Kind: actor.KindRepositoryName, ID: RepositoryNameKey("renamed", ownerID, orgID)}
	_, err = actor.Call(context.Background(), w.host, newAddr, "GetRepositoryID",
		func(ctx context.Context, na *RepositoryNameActor) (struct{}, error) {
			id, found := na.GetRepositoryID(ctx)
			if !found || id != repoID {
				t.Errorf("new name binding missing: %q found=%v", id, found)
			}
			return struct{}{}, nil
		})
	if err != nil {
		t.Fatalf("new lookup: %v", err)
	}
}

func TestRepositoryDeleteGuardsOnBranches(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	w.mkBranch(repoID, "main", nil)

	_, derr := w.repoHandle(repoID, RepositoryDeleteLogical{Reason: "retire"}, "c-del")
	if derr == nil || derr.Code != domain.CodeRepositoryNotEmpty {
		t.Fatalf("want RepositoryNotEmpty without force, got %v", derr)
	}

	if _, derr := w.repoHandle(repoID, RepositoryDeleteLogical{Reason: "retire", Force: true}, "c-del-force"); derr != nil {
		t.Fatalf("force delete: %v", derr)
	}
	if w.repoGet(repoID).DeletedAt == nil {
		t.Fatalf("repository should be logically deleted")
	}
}
