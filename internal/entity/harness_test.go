package entity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/cache"
	"github.com/TorratDev/Grace/internal/domain"
	"github.com/TorratDev/Grace/internal/eventbus"
	"github.com/TorratDev/Grace/internal/readmodel"
	"github.com/TorratDev/Grace/internal/reminders"
	"github.com/TorratDev/Grace/internal/statestore"
	pebblestore "github.com/TorratDev/Grace/internal/storage/pebble"
	logpkg "github.com/TorratDev/Grace/pkg/log"
)

// world wires a complete single-node actor environment over a temp
// keyspace. Reminder delivery is driven manually through Sweep for
// deterministic tests.
type world struct {
	t         *testing.T
	db        *pebblestore.DB
	host      *actor.Host
	bus       *eventbus.PebbleBus
	reminders *reminders.Service
	ctx       *Ctx
}

func newWorld(t *testing.T) *world {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	host := actor.NewHost(nil, time.Minute)
	bus := eventbus.NewPebbleBus(db, nil)
	t.Cleanup(func() { _ = bus.Close() })
	remSvc := reminders.New(db, host, nil, time.Hour)

	ectx := &Ctx{
		Store:            statestore.NewPebbleStore(db),
		Bus:              bus,
		Reminders:        remSvc,
		Host:             host,
		Refs:             readmodel.NewReferenceIndex(db),
		Branches:         readmodel.NewBranchIndex(db),
		Names:            readmodel.NewNameIndex(db),
		Retention:        readmodel.NewRetentionView(db),
		Cache:            cache.New(time.Minute, time.Minute),
		Logger:           logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel)),
		PubSubName:       "graceevents",
		Topic:            "graceeventstream",
		DefaultRetention: domain.DefaultRetention(),
	}
	RegisterAll(host, ectx)
	return &world{t: t, db: db, host: host, bus: bus, reminders: remSvc, ctx: ectx}
}

func (w *world) sweep() {
	w.t.Helper()
	if err := w.reminders.Sweep(context.Background()); err != nil {
		w.t.Fatalf("sweep: %v", err)
	}
}

func md(cid string) domain.EventMetadata { return domain.NewMetadata(cid) }

func testCtx() context.Context { return context.Background() }

func branchStateID(id string) statestore.ActorID {
	return statestore.ActorID{Kind: string(actor.KindBranch), ID: id}
}

func referenceStateID(id string) statestore.ActorID {
	return statestore.ActorID{Kind: string(actor.KindReference), ID: id}
}

func (w *world) ownerHandle(id string, cmd OwnerCommand, cid string) (*domain.CommandResult, *domain.Error) {
	return handleOn[*OwnerActor, OwnerCommand](w, actor.KindOwner, id, cmd, cid,
		func(ctx context.Context, a *OwnerActor, c OwnerCommand, m domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
			return a.Handle(ctx, c, m)
		})
}

func (w *world) orgHandle(id string, cmd OrganizationCommand, cid string) (*domain.CommandResult, *domain.Error) {
	return handleOn[*OrganizationActor, OrganizationCommand](w, actor.KindOrganization, id, cmd, cid,
		func(ctx context.Context, a *OrganizationActor, c OrganizationCommand, m domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
			return a.Handle(ctx, c, m)
		})
}

func (w *world) repoHandle(id string, cmd RepositoryCommand, cid string) (*domain.CommandResult, *domain.Error) {
	return handleOn[*RepositoryActor, RepositoryCommand](w, actor.KindRepository, id, cmd, cid,
		func(ctx context.Context, a *RepositoryActor, c RepositoryCommand, m domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
			return a.Handle(ctx, c, m)
		})
}

func (w *world) branchHandle(id string, cmd BranchCommand, cid string) (*domain.CommandResult, *domain.Error) {
	return handleOn[*BranchActor, BranchCommand](w, actor.KindBranch, id, cmd, cid,
		func(ctx context.Context, a *BranchActor, c BranchCommand, m domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
			return a.Handle(ctx, c, m)
		})
}

func (w *world) refHandle(id string, cmd ReferenceCommand, cid string) (*domain.CommandResult, *domain.Error) {
	return handleOn[*ReferenceActor, ReferenceCommand](w, actor.KindReference, id, cmd, cid,
		func(ctx context.Context, a *ReferenceActor, c ReferenceCommand, m domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
			return a.Handle(ctx, c, m)
		})
}

func (w *world) dirHandle(id string, cmd DirectoryVersionCommand, cid string) (*domain.CommandResult, *domain.Error) {
	return handleOn[*DirectoryVersionActor, DirectoryVersionCommand](w, actor.KindDirectoryVersion, id, cmd, cid,
		func(ctx context.Context, a *DirectoryVersionActor, c DirectoryVersionCommand, m domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
			return a.Handle(ctx, c, m)
		})
}

func handleOn[T actor.Actor, C any](w *world, kind actor.Kind, id string, cmd C, cid string,
	handle func(ctx context.Context, a T, c C, m domain.EventMetadata) (*domain.CommandResult, *domain.Error)) (*domain.CommandResult, *domain.Error) {
	w.t.Helper()
	addr := actor.Address{Kind: kind, ID: id}
	var derrOut *domain.Error
	res, err := actor.Call(context.Background(), w.host, addr, "Handle",
		func(ctx context.Context, a T) (*domain.CommandResult, error) {
			out, derr := handle(ctx, a, cmd, md(cid))
			if derr != nil {
				derrOut = derr
				return nil, derr
			}
			return out, nil
		})
	if derrOut != nil {
		return nil, derrOut
	}
	if err != nil {
		w.t.Fatalf("handle on %s/%s: %v", kind, id, err)
	}
	return res, nil
}

func (w *world) branchGet(id string) BranchDto {
	w.t.Helper()
	dto, err := actor.Call(context.Background(), w.host, actor.Address{Kind: actor.KindBranch, ID: id}, "Get",
		func(ctx context.Context, a *BranchActor) (BranchDto, error) { return a.Get(ctx), nil })
	if err != nil {
		w.t.Fatalf("branch get: %v", err)
	}
	return dto
}

func (w *world) refExists(id string) bool {
	w.t.Helper()
	exists, err := actor.Call(context.Background(), w.host, actor.Address{Kind: actor.KindReference, ID: id}, "Exists",
		func(ctx context.Context, a *ReferenceActor) (bool, error) { return a.Exists(ctx), nil })
	if err != nil {
		w.t.Fatalf("ref exists: %v", err)
	}
	return exists
}

func (w *world) refGet(id string) ReferenceDto {
	w.t.Helper()
	dto, err := actor.Call(context.Background(), w.host, actor.Address{Kind: actor.KindReference, ID: id}, "Get",
		func(ctx context.Context, a *ReferenceActor) (ReferenceDto, error) { return a.Get(ctx), nil })
	if err != nil {
		w.t.Fatalf("ref get: %v", err)
	}
	return dto
}

// mkRepo creates an owner, organization, and repository with the given
// retention, returning the three ids.
func (w *world) mkRepo(retention *domain.RetentionPolicy) (ownerID, orgID, repoID string) {
	w.t.Helper()
	ownerID, orgID, repoID = uuid.NewString(), uuid.NewString(), uuid.NewString()
	if _, derr := w.ownerHandle(ownerID, OwnerCreate{Name: "alice", Type: "User"}, "c-owner-"+ownerID); derr != nil {
		w.t.Fatalf("create owner: %v", derr)
	}
	if _, derr := w.orgHandle(orgID, OrganizationCreate{OwnerID: ownerID, Name: "eng"}, "c-org-"+orgID); derr != nil {
		w.t.Fatalf("create org: %v", derr)
	}
	if _, derr := w.repoHandle(repoID, RepositoryCreate{
		OwnerID:        ownerID,
		OrganizationID: orgID,
		Name:           "demo",
		Visibility:     "Private",
		Status:         "Active",
		Retention:      retention,
	}, "c-repo-"+repoID); derr != nil {
		w.t.Fatalf("create repo: %v", derr)
	}
	return ownerID, orgID, repoID
}

// mkBranch creates a branch on the repository.
func (w *world) mkBranch(repoID, name string, flags *BranchEnabledFlags) string {
	w.t.Helper()
	branchID := uuid.NewString()
	if _, derr := w.branchHandle(branchID, BranchCreate{
		RepositoryID: repoID,
		Name:         name,
		Flags:        flags,
	}, "c-branch-"+branchID); derr != nil {
		w.t.Fatalf("create branch: %v", derr)
	}
	return branchID
}
