package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/cache"
	cfgpkg "github.com/TorratDev/Grace/internal/config"
	"github.com/TorratDev/Grace/internal/domain"
	"github.com/TorratDev/Grace/internal/entity"
	"github.com/TorratDev/Grace/internal/eventbus"
	"github.com/TorratDev/Grace/internal/pipeline"
	"github.com/TorratDev/Grace/internal/readmodel"
	"github.com/TorratDev/Grace/internal/reminders"
	"github.com/TorratDev/Grace/internal/resolver"
	"github.com/TorratDev/Grace/internal/statestore"
	pebblestore "github.com/TorratDev/Grace/internal/storage/pebble"
	logpkg "github.com/TorratDev/Grace/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir string
	Config  cfgpkg.Config
	Logger  logpkg.Logger
}

// Runtime owns the platform handles for one server process.
type Runtime struct {
	db        *pebblestore.DB
	config    cfgpkg.Config
	logger    logpkg.Logger
	bus       eventbus.Bus
	host      *actor.Host
	reminders *reminders.Service
	cache     *cache.Cache
	resolver  *resolver.Resolver
	pipeline  *pipeline.Runner
	entityCtx *entity.Ctx

	cancel context.CancelFunc
}

// Open initializes storage and wires every service.
func Open(opts Options) (*Runtime, error) {
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}

	fsync, err := pebblestore.ParseFsyncMode(opts.Config.Fsync)
	if err != nil {
		return nil, err
	}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         fsync,
		FsyncInterval: time.Duration(opts.Config.FsyncIntervalMs) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var bus eventbus.Bus
	switch opts.Config.Bus.Backend {
	case "", "pebble":
		bus = eventbus.NewPebbleBus(db, logger)
	case "redis":
		bus = eventbus.NewRedisBus(opts.Config.Bus.RedisAddr, logger)
	default:
		_ = db.Close()
		return nil, fmt.Errorf("unknown bus backend %q", opts.Config.Bus.Backend)
	}

	memCache := cache.New(
		time.Duration(opts.Config.CacheTTLSeconds)*time.Second,
		time.Duration(opts.Config.CacheSweepSeconds)*time.Second,
	)
	host := actor.NewHost(logger, time.Duration(opts.Config.ActorIdleSeconds)*time.Second)
	reminderSvc := reminders.New(db, host, logger, time.Duration(opts.Config.ReminderScanMs)*time.Millisecond)

	entityCtx := &entity.Ctx{
		Store:      statestore.NewPebbleStore(db),
		Bus:        bus,
		Reminders:  reminderSvc,
		Host:       host,
		Refs:       readmodel.NewReferenceIndex(db),
		Branches:   readmodel.NewBranchIndex(db),
		Names:      readmodel.NewNameIndex(db),
		Retention:  readmodel.NewRetentionView(db),
		Cache:      memCache,
		Logger:     logger,
		PubSubName: opts.Config.Bus.PubSubName,
		Topic:      opts.Config.Bus.Topic,
		DefaultRetention: domain.RetentionPolicy{
			SaveDays:                  opts.Config.Retention.SaveDays,
			CheckpointDays:            opts.Config.Retention.CheckpointDays,
			DiffCacheDays:             opts.Config.Retention.DiffCacheDays,
			DirectoryVersionCacheDays: opts.Config.Retention.DirectoryVersionCacheDays,
			LogicalDeleteDays:         opts.Config.Retention.LogicalDeleteDays,
		},
	}
	entity.RegisterAll(host, entityCtx)

	res := resolver.New(host, memCache, entityCtx.Names, entityCtx.Branches)

	return &Runtime{
		db:        db,
		config:    opts.Config,
		logger:    logger,
		bus:       bus,
		host:      host,
		reminders: reminderSvc,
		cache:     memCache,
		resolver:  res,
		pipeline:  pipeline.New(res, logger),
		entityCtx: entityCtx,
	}, nil
}

// Start launches the reminder scheduler and the actor janitor.
func (r *Runtime) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.host.StartJanitor(ctx)
	go r.reminders.Run(ctx)
}

// Close stops background loops and releases resources.
func (r *Runtime) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.host.Stop()
	if r.bus != nil {
		_ = r.bus.Close()
	}
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple storage health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// Pipeline returns the command/query runner.
func (r *Runtime) Pipeline() *pipeline.Runner { return r.pipeline }

// Resolver returns the name resolver.
func (r *Runtime) Resolver() *resolver.Resolver { return r.resolver }

// Host returns the actor host.
func (r *Runtime) Host() *actor.Host { return r.host }

// Reminders returns the reminder service.
func (r *Runtime) Reminders() *reminders.Service { return r.reminders }

// EntityCtx exposes the entity wiring (internal use and tests).
func (r *Runtime) EntityCtx() *entity.Ctx { return r.entityCtx }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// DB exposes the underlying keyspace for advanced operations.
func (r *Runtime) DB() *pebblestore.DB { return r.db }
