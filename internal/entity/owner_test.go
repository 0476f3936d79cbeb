package entity

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/domain"
)

func TestOwnerCreateThenGet(t *testing.T) {
	w := newWorld(t)
	id := uuid.NewString()

	res, derr := w.ownerHandle(id, OwnerCreate{Name: "alice", Type: "User", Description: "first"}, "c-1")
	if derr != nil {
		t.Fatalf("create: %v", derr)
	}
	if res.EventType != "OwnerCreated" {
		t.Fatalf("want OwnerCreated, got %s", res.EventType)
	}
	if res.Properties["ownerId"] != id {
		t.Fatalf("result must carry the owner id")
	}

	dto, err := actor.Call(context.Background(), w.host, actor.Address{Kind: actor.KindOwner, ID: id}, "Get",
		func(ctx context.Context, a *OwnerActor) (OwnerDto, error) { return a.Get(ctx), nil })
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if dto.Name != "alice" || dto.Type != "User" || dto.DeletedAt != nil {
		t.Fatalf("unexpected dto: %+v", dto)
	}
}

func TestOwnerCreateTwiceRejected(t *testing.T) {
	w := newWorld(t)
	id := uuid.NewString()
	if _, derr := w.ownerHandle(id, OwnerCreate{Name: "alice"}, "c-1"); derr != nil {
		t.Fatalf("create: %v", derr)
	}
	_, derr := w.ownerHandle(id, OwnerCreate{Name: "alice"}, "c-2")
	if derr == nil || derr.Code != domain.CodeEntityAlreadyExists {
		t.Fatalf("want EntityAlreadyExists, got %v", derr)
	}
}

func TestOwnerCommandOnMissingEntity(t *testing.T) {
	w := newWorld(t)
	_, derr := w.ownerHandle(uuid.NewString(), OwnerSetName{Name: "bob"}, "c-1")
	if derr == nil || derr.Kind != domain.KindNotFound {
		t.Fatalf("want NotFound, got %v", derr)
	}
}

func TestOwnerDuplicateCorrelationRejected(t *testing.T) {
	w := newWorld(t)
	id := uuid.NewString()
	if _, derr := w.ownerHandle(id, OwnerCreate{Name: "alice"}, "c-1"); derr != nil {
		t.Fatalf("create: %v", derr)
	}
	if _, derr := w.ownerHandle(id, OwnerSetDescription{Description: "x"}, "c-2"); derr != nil {
		t.Fatalf("set description: %v", derr)
	}
	// Any second command under a used correlation id is rejected.
	_, derr := w.ownerHandle(id, OwnerSetDescription{Description: "y"}, "c-2")
	if derr == nil || derr.Code != domain.CodeDuplicateCorrelation {
		t.Fatalf("want DuplicateCorrelationId, got %v", derr)
	}
}

func TestOwnerRenameIsReversible(t *testing.T) {
	w := newWorld(t)
	id := uuid.NewString()
	if _, derr := w.ownerHandle(id, OwnerCreate{Name: "alice"}, "c-1"); derr != nil {
		t.Fatalf("create: %v", derr)
	}
	if _, derr := w.ownerHandle(id, OwnerSetName{Name: "carol"}, "c-2"); derr != nil {
		t.Fatalf("rename 1: %v", derr)
	}
	if _, derr := w.ownerHandle(id, OwnerSetName{Name: "dana"}, "c-3"); derr != nil {
		t.Fatalf("rename 2: %v", derr)
	}

	dto, _ := actor.Call(context.Background(), w.host, actor.Address{Kind: actor.KindOwner, ID: id}, "Get",
		func(ctx context.Context, a *OwnerActor) (OwnerDto, error) { return a.Get(ctx), nil })
	if dto.Name != "dana" {
		t.Fatalf("want final name dana, got %s", dto.Name)
	}

	// The latest binding resolves; the stale one is gone.
	if got, found, _ := w.ctx.Names.ResolveOwner("dana"); !found || got != id {
		t.Fatalf("dana should resolve to %s, got %q", id, got)
	}
	if _, found, _ := w.ctx.Names.ResolveOwner("carol"); found {
		t.Fatalf("carol binding should be unbound")
	}
}

func TestOwnerNameCollisionRejected(t *testing.T) {
	w := newWorld(t)
	first := uuid.NewString()
	if _, derr := w.ownerHandle(first, OwnerCreate{Name: "alice"}, "c-1"); derr != nil {
		t.Fatalf("create: %v", derr)
	}
	_, derr := w.ownerHandle(uuid.NewString(), OwnerCreate{Name: "alice"}, "c-2")
	if derr == nil || derr.Code != domain.CodeNameAlreadyExists {
		t.Fatalf("want NameAlreadyExists, got %v", derr)
	}
}

func TestOwnerInvalidNameRejected(t *testing.T) {
	w := newWorld(t)
	_, derr := w.ownerHandle(uuid.NewString(), OwnerCreate{Name: "9bad"}, "c-1")
	if derr == nil || derr.Code != domain.CodeInvalidName {
		t.Fatalf("want InvalidName, got %v", derr)
	}
}

func TestOwnerDeleteUndeleteRoundTrip(t *testing.T) {
	w := newWorld(t)
	id := uuid.NewString()
	if _, derr := w.ownerHandle(id, OwnerCreate{Name: "alice"}, "c-1"); derr != nil {
		t.Fatalf("create: %v", derr)
	}
	if _, derr := w.ownerHandle(id, OwnerDeleteLogical{Reason: "cleanup"}, "c-2"); derr != nil {
		t.Fatalf("delete: %v", derr)
	}

	deleted, _ := actor.Call(context.Background(), w.host, actor.Address{Kind: actor.KindOwner, ID: id}, "IsDeleted",
		func(ctx context.Context, a *OwnerActor) (bool, error) { return a.IsDeleted(ctx), nil })
	if !deleted {
		t.Fatalf("owner should be logically deleted")
	}
	if ok, _ := w.reminders.IsRegistered(actor.Address{Kind: actor.KindOwner, ID: id}, "physical-deletion"); !ok {
		t.Fatalf("logical delete must schedule physical deletion")
	}

	if _, derr := w.ownerHandle(id, OwnerUndelete{}, "c-3"); derr != nil {
		t.Fatalf("undelete: %v", derr)
	}
	if ok, _ := w.reminders.IsRegistered(actor.Address{Kind: actor.KindOwner, ID: id}, "physical-deletion"); ok {
		t.Fatalf("undelete must cancel the pending physical deletion")
	}
	deleted, _ = actor.Call(context.Background(), w.host, actor.Address{Kind: actor.KindOwner, ID: id}, "IsDeleted",
		func(ctx context.Context, a *OwnerActor) (bool, error) { return a.IsDeleted(ctx), nil })
	if deleted {
		t.Fatalf("owner should be active again")
	}
}

func TestOwnerUndeleteRequiresLogicalDelete(t *testing.T) {
	w := newWorld(t)
	id := uuid.NewString()
	if _, derr := w.ownerHandle(id, OwnerCreate{Name: "alice"}, "c-1"); derr != nil {
		t.Fatalf("create: %v", derr)
	}
	_, derr := w.ownerHandle(id, OwnerUndelete{}, "c-2")
	if derr == nil || derr.Code != domain.CodeNotLogicallyDeleted {
		t.Fatalf("want NotLogicallyDeleted, got %v", derr)
	}
}

func TestOwnerRebuildAcrossActivation(t *testing.T) {
	w := newWorld(t)
	id := uuid.NewString()
	if _, derr := w.ownerHandle(id, OwnerCreate{Name: "alice", Description: "d1"}, "c-1"); derr != nil {
		t.Fatalf("create: %v", derr)
	}
	if _, derr := w.ownerHandle(id, OwnerSetDescription{Description: "d2"}, "c-2"); derr != nil {
		t.Fatalf("update: %v", derr)
	}

	// Evict the live instance; the next call folds from durable state.
	w.host.Evict(actor.Address{Kind: actor.KindOwner, ID: id})

	dto, err := actor.Call(context.Background(), w.host, actor.Address{Kind: actor.KindOwner, ID: id}, "Get",
		func(ctx context.Context, a *OwnerActor) (OwnerDto, error) { return a.Get(ctx), nil })
	if err != nil {
		t.Fatalf("get after reactivate: %v", err)
	}
	if dto.Name != "alice" || dto.Description != "d2" {
		t.Fatalf("fold after reactivation wrong: %+v", dto)
	}

	// The idempotency guard survives reactivation too.
	_, derr := w.ownerHandle(id, OwnerSetDescription{Description: "d3"}, "c-2")
	if derr == nil || derr.Code != domain.CodeDuplicateCorrelation {
		t.Fatalf("correlation guard must survive replay, got %v", derr)
	}
}
