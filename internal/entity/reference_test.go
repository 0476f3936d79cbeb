package entity

import (
	"context"
	"testing"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/domain"
)

// Scenario: with SaveDays=0 a save reference expires immediately; the
// reminder wipes its event log and the actor reads as nonexistent.
func TestSaveRetentionImmediateExpiry(t *testing.T) {
	w := newWorld(t)
	retention := domain.DefaultRetention()
	retention.SaveDays = 0
	_, _, repoID := w.mkRepo(&retention)
	branchID := w.mkBranch(repoID, "main", nil)

	res, derr := w.branchHandle(branchID, BranchNewReference{
		Type:               domain.ReferenceSave,
		DirectoryVersionID: "dv1",
		Sha256Hash:         "h1",
		Text:               "msg",
	}, "c-save")
	if derr != nil {
		t.Fatalf("save: %v", derr)
	}
	refID := res.Properties["referenceId"]
	if !w.refExists(refID) {
		t.Fatalf("reference should exist before the timer fires")
	}

	w.sweep()

	if w.refExists(refID) {
		t.Fatalf("reference must be physically deleted after the reminder fires")
	}
	if _, found, _ := w.ctx.Store.Retrieve(testCtx(), referenceStateID(refID), "events"); found {
		t.Fatalf("reference event log must be gone from the store")
	}
	entries, _ := w.ctx.Refs.ListByBranch(branchID, 10)
	if len(entries) != 0 {
		t.Fatalf("reference index must be cleaned up, got %v", entries)
	}
}

// A checkpoint uses CheckpointDays; with a nonzero window the reference
// survives an immediate sweep.
func TestCheckpointRetentionNotYetDue(t *testing.T) {
	w := newWorld(t)
	retention := domain.DefaultRetention()
	retention.SaveDays = 0
	retention.CheckpointDays = 30
	_, _, repoID := w.mkRepo(&retention)
	branchID := w.mkBranch(repoID, "main", nil)

	res, derr := w.branchHandle(branchID, BranchNewReference{
		Type:       domain.ReferenceCheckpoint,
		Sha256Hash: "h1",
	}, "c-cp")
	if derr != nil {
		t.Fatalf("checkpoint: %v", derr)
	}
	refID := res.Properties["referenceId"]

	w.sweep()

	if !w.refExists(refID) {
		t.Fatalf("checkpoint with a 30-day window must survive the sweep")
	}
	if ok, _ := w.reminders.IsRegistered(actor.Address{Kind: actor.KindReference, ID: refID}, "physical-deletion"); !ok {
		t.Fatalf("checkpoint must have a pending deletion reminder")
	}
}

// Tags and commits get no retention reminder at creation.
func TestTagHasNoRetentionReminder(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	branchID := w.mkBranch(repoID, "main", nil)

	res, derr := w.branchHandle(branchID, BranchNewReference{Type: domain.ReferenceTag, Sha256Hash: "h"}, "c-tag")
	if derr != nil {
		t.Fatalf("tag: %v", derr)
	}
	refID := res.Properties["referenceId"]
	if ok, _ := w.reminders.IsRegistered(actor.Address{Kind: actor.KindReference, ID: refID}, "physical-deletion"); ok {
		t.Fatalf("tags must not expire by retention")
	}
}

func TestReferenceLogicalDeleteSchedulesAndUndeleteCancels(t *testing.T) {
	w := newWorld(t)
	retention := domain.DefaultRetention()
	retention.LogicalDeleteDays = 30
	_, _, repoID := w.mkRepo(&retention)
	branchID := w.mkBranch(repoID, "main", nil)

	res, derr := w.branchHandle(branchID, BranchNewReference{Type: domain.ReferenceCommit, Sha256Hash: "h"}, "c-commit")
	if derr != nil {
		t.Fatalf("commit: %v", derr)
	}
	refID := res.Properties["referenceId"]

	if _, derr := w.refHandle(refID, ReferenceDeleteLogical{Reason: "cleanup"}, "c-del"); derr != nil {
		t.Fatalf("delete logical: %v", derr)
	}
	addr := actor.Address{Kind: actor.KindReference, ID: refID}
	if ok, _ := w.reminders.IsRegistered(addr, "physical-deletion"); !ok {
		t.Fatalf("logical delete must schedule physical deletion")
	}

	if _, derr := w.refHandle(refID, ReferenceUndelete{}, "c-undel"); derr != nil {
		t.Fatalf("undelete: %v", derr)
	}
	if ok, _ := w.reminders.IsRegistered(addr, "physical-deletion"); ok {
		t.Fatalf("undelete must cancel the reminder")
	}
	if w.refGet(refID).DeletedAt != nil {
		t.Fatalf("reference should be active again")
	}
}

func TestReferenceTypeFixedAtCreation(t *testing.T) {
	w := newWorld(t)
	_, _, repoID := w.mkRepo(nil)
	branchID := w.mkBranch(repoID, "main", nil)

	res, _ := w.branchHandle(branchID, BranchNewReference{Type: domain.ReferenceCommit, Sha256Hash: "h"}, "c-1")
	refID := res.Properties["referenceId"]

	rtype, err := actor.Call(testCtx(), w.host, actor.Address{Kind: actor.KindReference, ID: refID}, "GetReferenceType",
		func(ctx context.Context, a *ReferenceActor) (domain.ReferenceType, error) {
			return a.GetReferenceType(ctx), nil
		})
	if err != nil {
		t.Fatalf("get type: %v", err)
	}
	if rtype != domain.ReferenceCommit {
		t.Fatalf("want Commit, got %s", rtype)
	}
}
