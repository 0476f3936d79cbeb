package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/cache"
	"github.com/TorratDev/Grace/internal/domain"
	"github.com/TorratDev/Grace/internal/entity"
	"github.com/TorratDev/Grace/internal/eventbus"
	"github.com/TorratDev/Grace/internal/readmodel"
	"github.com/TorratDev/Grace/internal/reminders"
	"github.com/TorratDev/Grace/internal/statestore"
	pebblestore "github.com/TorratDev/Grace/internal/storage/pebble"
	logpkg "github.com/TorratDev/Grace/pkg/log"
)

type fixture struct {
	res      *Resolver
	ectx     *entity.Ctx
	ownerID  string
	orgID    string
	repoID   string
	branchID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	host := actor.NewHost(nil, time.Minute)
	bus := eventbus.NewPebbleBus(db, nil)
	t.Cleanup(func() { _ = bus.Close() })
	memCache := cache.New(time.Minute, time.Minute)

	ectx := &entity.Ctx{
		Store:            statestore.NewPebbleStore(db),
		Bus:              bus,
		Reminders:        reminders.New(db, host, nil, time.Hour),
		Host:             host,
		Refs:             readmodel.NewReferenceIndex(db),
		Branches:         readmodel.NewBranchIndex(db),
		Names:            readmodel.NewNameIndex(db),
		Retention:        readmodel.NewRetentionView(db),
		Cache:            memCache,
		Logger:           logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel)),
		PubSubName:       "graceevents",
		Topic:            "graceeventstream",
		DefaultRetention: domain.DefaultRetention(),
	}
	entity.RegisterAll(host, ectx)

	f := &fixture{
		res:      New(host, memCache, ectx.Names, ectx.Branches),
		ectx:     ectx,
		ownerID:  uuid.NewString(),
		orgID:    uuid.NewString(),
		repoID:   uuid.NewString(),
		branchID: uuid.NewString(),
	}

	ctx := context.Background()
	mustHandle := func(op string, fn func() error) {
		t.Helper()
		if err := fn(); err != nil {
			t.Fatalf("%s: %v", op, err)
		}
	}
	mustHandle("owner", func() error {
		_, err := actor.Call(ctx, host, actor.Address{Kind: actor.KindOwner, ID: f.ownerID}, "Handle",
			func(ctx context.Context, a *entity.OwnerActor) (*domain.CommandResult, error) {
				res, derr := a.Handle(ctx, entity.OwnerCreate{Name: "alice"}, domain.NewMetadata("c-owner"))
				if derr != nil {
					return nil, derr
				}
				return res, nil
			})
		return err
	})
	mustHandle("org", func() error {
		_, err := actor.Call(ctx, host, actor.Address{Kind: actor.KindOrganization, ID: f.orgID}, "Handle",
			func(ctx context.Context, a *entity.OrganizationActor) (*domain.CommandResult, error) {
				res, derr := a.Handle(ctx, entity.OrganizationCreate{OwnerID: f.ownerID, Name: "eng"}, domain.NewMetadata("c-org"))
				if derr != nil {
					return nil, derr
				}
				return res, nil
			})
		return err
	})
	mustHandle("repo", func() error {
		_, err := actor.Call(ctx, host, actor.Address{Kind: actor.KindRepository, ID: f.repoID}, "Handle",
			func(ctx context.Context, a *entity.RepositoryActor) (*domain.CommandResult, error) {
				res, derr := a.Handle(ctx, entity.RepositoryCreate{
					OwnerID: f.ownerID, OrganizationID: f.orgID, Name: "demo",
				}, domain.NewMetadata("c-repo"))
				if derr != nil {
					return nil, derr
				}
				return res, nil
			})
		return err
	})
	mustHandle("branch", func() error {
		_, err := actor.Call(ctx, host, actor.Address{Kind: actor.KindBranch, ID: f.branchID}, "Handle",
			func(ctx context.Context, a *entity.BranchActor) (*domain.CommandResult, error) {
				res, derr := a.Handle(ctx, entity.BranchCreate{RepositoryID: f.repoID, Name: "main"}, domain.NewMetadata("c-branch"))
				if derr != nil {
					return nil, derr
				}
				return res, nil
			})
		return err
	})
	return f
}

func TestResolveFullPathByNames(t *testing.T) {
	f := newFixture(t)
	resolved, derr := f.res.Resolve(context.Background(), Path{
		OwnerName:        "alice",
		OrganizationName: "eng",
		RepositoryName:   "demo",
		BranchName:       "main",
	})
	if derr != nil {
		t.Fatalf("resolve: %v", derr)
	}
	if resolved.OwnerID != f.ownerID || resolved.OrganizationID != f.orgID ||
		resolved.RepositoryID != f.repoID || resolved.BranchID != f.branchID {
		t.Fatalf("resolution wrong: %+v", resolved)
	}
}

func TestResolvePrefersProvidedID(t *testing.T) {
	f := newFixture(t)
	// A bogus name alongside a good id: the id wins.
	resolved, derr := f.res.Resolve(context.Background(), Path{
		OwnerID:   f.ownerID,
		OwnerName: "nonexistent",
	})
	if derr != nil {
		t.Fatalf("resolve: %v", derr)
	}
	if resolved.OwnerID != f.ownerID {
		t.Fatalf("id must win over name")
	}
}

func TestResolveUnknownNames(t *testing.T) {
	f := newFixture(t)
	if _, derr := f.res.Resolve(context.Background(), Path{OwnerName: "ghost"}); derr == nil || derr.Code != domain.CodeOwnerNotFound {
		t.Fatalf("want OwnerNotFound, got %v", derr)
	}
	if _, derr := f.res.Resolve(context.Background(), Path{
		OwnerName:        "alice",
		OrganizationName: "ghost",
	}); derr == nil || derr.Code != domain.CodeOrganizationNotFound {
		t.Fatalf("want OrganizationNotFound, got %v", derr)
	}
	if _, derr := f.res.Resolve(context.Background(), Path{
		OwnerName:        "alice",
		OrganizationName: "eng",
		RepositoryName:   "ghost",
	}); derr == nil || derr.Code != domain.CodeRepositoryNotFound {
		t.Fatalf("want RepositoryNotFound, got %v", derr)
	}
	if _, derr := f.res.Resolve(context.Background(), Path{
		OwnerName:        "alice",
		OrganizationName: "eng",
		RepositoryName:   "demo",
		BranchName:       "ghost",
	}); derr == nil || derr.Code != domain.CodeBranchNotFound {
		t.Fatalf("want BranchNotFound, got %v", derr)
	}
}

func TestResolveCachesRepositoryLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, derr := f.res.Repository(ctx, f.ownerID, f.orgID, "", "demo"); derr != nil {
		t.Fatalf("first lookup: %v", derr)
	}
	key := "reponame/" + entity.RepositoryNameKey("demo", f.ownerID, f.orgID)
	if got, ok := f.ectx.Cache.GetValue(key); !ok || got != f.repoID {
		t.Fatalf("lookup should be cached, got %q ok=%v", got, ok)
	}
}
