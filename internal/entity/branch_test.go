package entity

import (
	"testing"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/domain"
)

// Scenario: a disabled reference type rejects the command without
// creating a reference or appending a branch event.
func TestBranchSaveDisabled(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	flags := DefaultBranchFlags()
	flags.Save = false
	branchID := w.mkBranch(repoID, "main", &flags)

	_, derr := w.branchHandle(branchID, BranchNewReference{
		Type:               domain.ReferenceSave,
		DirectoryVersionID: "dv1",
		Sha256Hash:         "h1",
		Text:               "msg",
	}, "c-save")
	if derr == nil || derr.Code != domain.CodeSaveIsDisabled {
		t.Fatalf("want SaveIsDisabled, got %v", derr)
	}

	// No reference was created on the branch.
	entries, err := w.ctx.Refs.ListByBranch(branchID, 10)
	if err != nil || len(entries) != 0 {
		t.Fatalf("no reference may exist, got %v err=%v", entries, err)
	}
	if got := w.branchGet(branchID).LatestSave; got != "" {
		t.Fatalf("latest save must stay empty, got %s", got)
	}
}

func TestBranchSaveCreatesReferenceAndPointer(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	branchID := w.mkBranch(repoID, "main", nil)

	res, derr := w.branchHandle(branchID, BranchNewReference{
		Type:               domain.ReferenceSave,
		DirectoryVersionID: "dv1",
		Sha256Hash:         "h1",
		Text:               "work in progress",
	}, "c-save")
	if derr != nil {
		t.Fatalf("save: %v", derr)
	}
	refID := res.Properties["referenceId"]
	if refID == "" {
		t.Fatalf("result must carry the minted reference id")
	}

	refDto := w.refGet(refID)
	if refDto.Type != domain.ReferenceSave || refDto.BranchID != branchID || refDto.Sha256Hash != "h1" {
		t.Fatalf("reference dto wrong: %+v", refDto)
	}
	if got := w.branchGet(branchID).LatestSave; got != refID {
		t.Fatalf("latest save pointer wrong: %s != %s", got, refID)
	}
}

// A successful promotion updates both LatestPromotion and BasedOn.
func TestBranchPromoteUpdatesBasedOn(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	branchID := w.mkBranch(repoID, "main", nil)

	res, derr := w.branchHandle(branchID, BranchNewReference{
		Type:               domain.ReferencePromotion,
		DirectoryVersionID: "dv1",
		Sha256Hash:         "h1",
		Text:               "release",
	}, "c-promote")
	if derr != nil {
		t.Fatalf("promote: %v", derr)
	}
	refID := res.Properties["referenceId"]

	dto := w.branchGet(branchID)
	if dto.LatestPromotion != refID {
		t.Fatalf("latest promotion wrong: %s != %s", dto.LatestPromotion, refID)
	}
	if dto.BasedOn != refID {
		t.Fatalf("promotion must update BasedOn: %s != %s", dto.BasedOn, refID)
	}
}

// Latest* pointers are not persisted; Activate repairs them from the
// reference index.
func TestBranchLatestPointersSurviveReactivation(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	branchID := w.mkBranch(repoID, "main", nil)

	save, _ := w.branchHandle(branchID, BranchNewReference{Type: domain.ReferenceSave, DirectoryVersionID: "dv1", Sha256Hash: "h1"}, "c-1")
	commit, _ := w.branchHandle(branchID, BranchNewReference{Type: domain.ReferenceCommit, DirectoryVersionID: "dv2", Sha256Hash: "h2"}, "c-2")

	w.host.Evict(actor.Address{Kind: actor.KindBranch, ID: branchID})

	dto := w.branchGet(branchID)
	if dto.LatestSave != save.Properties["referenceId"] {
		t.Fatalf("save pointer not repaired: %q", dto.LatestSave)
	}
	if dto.LatestCommit != commit.Properties["referenceId"] {
		t.Fatalf("commit pointer not repaired: %q", dto.LatestCommit)
	}
}

// Scenario: rebase mints a Rebase reference mirroring the promotion and
// moves BasedOn without touching Latest*.
func TestBranchRebase(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	parentID := w.mkBranch(repoID, "main", nil)
	childID := w.mkBranch(repoID, "feature", nil)

	promo, derr := w.branchHandle(parentID, BranchNewReference{
		Type:               domain.ReferencePromotion,
		DirectoryVersionID: "dv-p",
		Sha256Hash:         "h-p",
		Text:               "promoted",
	}, "c-promote")
	if derr != nil {
		t.Fatalf("promote parent: %v", derr)
	}
	promoID := promo.Properties["referenceId"]

	before := w.branchGet(childID)

	res, derr := w.branchHandle(childID, BranchRebase{ReferenceID: promoID}, "c-rebase")
	if derr != nil {
		t.Fatalf("rebase: %v", derr)
	}
	rebaseRefID := res.Properties["referenceId"]

	rebaseDto := w.refGet(rebaseRefID)
	if rebaseDto.Type != domain.ReferenceRebase {
		t.Fatalf("want Rebase reference, got %s", rebaseDto.Type)
	}
	if rebaseDto.DirectoryVersionID != "dv-p" || rebaseDto.Sha256Hash != "h-p" || rebaseDto.Text != "promoted" {
		t.Fatalf("rebase reference must mirror the promotion: %+v", rebaseDto)
	}

	after := w.branchGet(childID)
	if after.BasedOn != promoID {
		t.Fatalf("BasedOn must move to the promotion: %s", after.BasedOn)
	}
	if after.LatestSave != before.LatestSave || after.LatestCommit != before.LatestCommit ||
		after.LatestPromotion != before.LatestPromotion || after.LatestCheckpoint != before.LatestCheckpoint {
		t.Fatalf("rebase must not move Latest pointers")
	}
}

func TestBranchRebaseMissingReference(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	branchID := w.mkBranch(repoID, "main", nil)

	_, derr := w.branchHandle(branchID, BranchRebase{ReferenceID: "00000000-0000-0000-0000-000000000000"}, "c-rebase")
	if derr == nil || derr.Code != domain.CodeReferenceNotFound {
		t.Fatalf("want ReferenceNotFound, got %v", derr)
	}
}

func TestBranchNameUniquePerRepository(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	w.mkBranch(repoID, "main", nil)

	_, derr := w.branchHandle("11111111-1111-4111-8111-111111111111", BranchCreate{
		RepositoryID: repoID,
		Name:         "main",
	}, "c-dup")
	if derr == nil || derr.Code != domain.CodeNameAlreadyExists {
		t.Fatalf("want NameAlreadyExists, got %v", derr)
	}
}

func TestBranchEnableReferenceTypeToggles(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	branchID := w.mkBranch(repoID, "main", nil)

	if _, derr := w.branchHandle(branchID, BranchEnableReferenceType{ReferenceKind: RefKindTag, Enabled: false}, "c-1"); derr != nil {
		t.Fatalf("disable tag: %v", derr)
	}
	if _, derr := w.branchHandle(branchID, BranchNewReference{Type: domain.ReferenceTag, Sha256Hash: "h"}, "c-2"); derr == nil {
		t.Fatalf("tag should be disabled")
	}
	if _, derr := w.branchHandle(branchID, BranchEnableReferenceType{ReferenceKind: RefKindTag, Enabled: true}, "c-3"); derr != nil {
		t.Fatalf("enable tag: %v", derr)
	}
	if _, derr := w.branchHandle(branchID, BranchNewReference{Type: domain.ReferenceTag, Sha256Hash: "h"}, "c-4"); derr != nil {
		t.Fatalf("tag should work again: %v", derr)
	}

	if _, derr := w.branchHandle(branchID, BranchEnableReferenceType{ReferenceKind: "bogus", Enabled: true}, "c-5"); derr == nil {
		t.Fatalf("unknown kind must be rejected")
	}
}

// RemoveReference is recorded without a read-model effect.
func TestBranchRemoveReferenceRecorded(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	branchID := w.mkBranch(repoID, "main", nil)

	save, _ := w.branchHandle(branchID, BranchNewReference{Type: domain.ReferenceSave, Sha256Hash: "h"}, "c-1")
	refID := save.Properties["referenceId"]

	before := w.branchGet(branchID)
	res, derr := w.branchHandle(branchID, BranchRemoveReference{ReferenceID: refID}, "c-2")
	if derr != nil {
		t.Fatalf("remove reference: %v", derr)
	}
	if res.EventType != "BranchReferenceRemoved" {
		t.Fatalf("unexpected event type %s", res.EventType)
	}
	after := w.branchGet(branchID)
	if after.LatestSave != before.LatestSave {
		t.Fatalf("remove-reference must not prune pointers")
	}
}

// After DeletePhysical, Get returns the default dto and Exists is false.
func TestBranchPhysicalDeleteResetsToDefault(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	branchID := w.mkBranch(repoID, "main", nil)

	if _, derr := w.branchHandle(branchID, BranchDeletePhysical{Reason: "gone"}, "c-del"); derr != nil {
		t.Fatalf("delete physical: %v", derr)
	}

	dto := w.branchGet(branchID)
	if dto.ID != "" || dto.Name != "" {
		t.Fatalf("want default dto after physical delete, got %+v", dto)
	}
	// The durable event list is gone too.
	if _, found, _ := w.ctx.Store.Retrieve(
		testCtx(), branchStateID(branchID), "events"); found {
		t.Fatalf("event log must be deleted from the store")
	}
	// And the branch no longer appears under its repository.
	list, _ := w.ctx.Branches.List(repoID, 10)
	if len(list) != 0 {
		t.Fatalf("branch index must be empty, got %v", list)
	}
}
