package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/cache"
	"github.com/TorratDev/Grace/internal/domain"
	"github.com/TorratDev/Grace/internal/eventbus"
	"github.com/TorratDev/Grace/internal/readmodel"
	"github.com/TorratDev/Grace/internal/reminders"
	"github.com/TorratDev/Grace/internal/statestore"
	logpkg "github.com/TorratDev/Grace/pkg/log"
)

// Ctx bundles the platform handles every entity actor depends on. It is
// built once at process start and passed to actor factories; there is no
// module-level mutable state.
type Ctx struct {
	Store     statestore.Store
	Bus       eventbus.Bus
	Reminders *reminders.Service
	Host      *actor.Host
	Refs      *readmodel.ReferenceIndex
	Branches  *readmodel.BranchIndex
	Names     *readmodel.NameIndex
	Retention *readmodel.RetentionView
	Cache     *cache.Cache
	Logger    logpkg.Logger

	// PubSubName and Topic address the bus component events publish to.
	PubSubName string
	Topic      string

	// DefaultRetention applies where no repository policy is reachable
	// (owner and organization logical deletes).
	DefaultRetention domain.RetentionPolicy
}

// eventsKey is the single state-store key holding an actor's ordered
// event list.
const eventsKey = "events"

// envelopeRecord is the persisted form of one applied event: the variant
// tag, the serialized event, and the metadata it was applied under.
type envelopeRecord struct {
	Tag      string               `json:"tag"`
	Event    json.RawMessage      `json:"event"`
	Metadata domain.EventMetadata `json:"metadata"`

	// transient records live in memory only (branch latest-pointer
	// updates); they are folded and consulted by the idempotency guard
	// for the instance's lifetime but never serialized.
	transient bool
}

// base carries the state shared by all entity actors.
type base struct {
	id       string
	kind     actor.Kind
	busTag   string
	ctx      *Ctx
	recs     []envelopeRecord
	disposed bool
	logger   logpkg.Logger
}

func newBase(id string, kind actor.Kind, busTag string, ctx *Ctx) base {
	return base{
		id:     id,
		kind:   kind,
		busTag: busTag,
		ctx:    ctx,
		logger: ctx.Logger.With(logpkg.Component(string(kind)+"-actor"), logpkg.Str("entity", id)),
	}
}

func (b *base) address() actor.Address {
	return actor.Address{Kind: b.kind, ID: b.id}
}

func (b *base) stateID() statestore.ActorID {
	return statestore.ActorID{Kind: string(b.kind), ID: b.id}
}

// Disposed reports whether the last turn poisoned this actor.
func (b *base) Disposed() bool { return b.disposed }

// loadRecords retrieves and decodes the persisted event list.
func (b *base) loadRecords(ctx context.Context) ([]envelopeRecord, error) {
	raw, found, err := b.ctx.Store.Retrieve(ctx, b.stateID(), eventsKey)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	if !found {
		return nil, nil
	}
	var recs []envelopeRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return recs, nil
}

// hasCorrelation reports whether any applied event carries the id. This
// is the per-entity idempotency guard.
func (b *base) hasCorrelation(correlationID string) bool {
	for _, r := range b.recs {
		if r.Metadata.CorrelationID == correlationID {
			return true
		}
	}
	return false
}

// appendEvent folds nothing itself; callers fold first, then append here.
// persist=false keeps the event in-memory only (branch pointer updates).
// On a persistence or publish failure the actor is poisoned and a
// DependencyFailure is returned; the next turn re-activates from the
// durable list, so in-memory state cannot diverge from the store.
func (b *base) appendEvent(ctx context.Context, eventType string, event interface{}, md domain.EventMetadata, persist bool) *domain.Error {
	raw, err := json.Marshal(event)
	if err != nil {
		return domain.WrapInternal(fmt.Errorf("marshal %s: %w", eventType, err))
	}
	rec := envelopeRecord{Tag: eventType, Event: raw, Metadata: md, transient: !persist}
	b.recs = append(b.recs, rec)

	if !persist {
		return nil
	}

	data, err := b.persistable()
	if err != nil {
		b.disposed = true
		return domain.WrapInternal(err)
	}
	if err := b.ctx.Store.Save(ctx, b.stateID(), eventsKey, data); err != nil {
		b.disposed = true
		b.logger.Error("persist failed; poisoning actor", logpkg.Err(err))
		return domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}

	env := eventbus.Envelope{Tag: b.busTag, Type: eventType, Event: raw, Metadata: md}
	if err := b.ctx.Bus.Publish(ctx, b.ctx.PubSubName, b.ctx.Topic, env); err != nil {
		b.disposed = true
		b.logger.Error("publish failed; poisoning actor", logpkg.Err(err))
		return domain.WrapDependency(domain.CodeEventBusUnavailable, err)
	}
	return nil
}

// persistable serializes only the records that belong in durable state,
// dropping transient latest-pointer updates.
func (b *base) persistable() ([]byte, error) {
	durable := make([]envelopeRecord, 0, len(b.recs))
	for _, r := range b.recs {
		if r.transient {
			continue
		}
		durable = append(durable, r)
	}
	data, err := json.Marshal(durable)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	return data, nil
}

// wipe removes the actor's durable event list, clears in-memory state to
// defaults, and poisons the instance so a later call re-activates clean.
// This is the physical-deletion terminal step.
func (b *base) wipe(ctx context.Context) *domain.Error {
	if _, err := b.ctx.Store.Delete(ctx, b.stateID(), eventsKey); err != nil {
		b.disposed = true
		return domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}
	b.recs = nil
	b.disposed = true
	return nil
}

// publishOnly emits an envelope without touching persisted state. Used
// for terminal PhysicalDeleted notifications after the log is gone.
func (b *base) publishOnly(ctx context.Context, eventType string, event interface{}, md domain.EventMetadata) {
	raw, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("drop unpublishable event", logpkg.Str("type", eventType), logpkg.Err(err))
		return
	}
	env := eventbus.Envelope{Tag: b.busTag, Type: eventType, Event: raw, Metadata: md}
	if err := b.ctx.Bus.Publish(ctx, b.ctx.PubSubName, b.ctx.Topic, env); err != nil {
		b.logger.Warn("publish after wipe failed", logpkg.Str("type", eventType), logpkg.Err(err))
	}
}

// guard runs the common Handle preamble: metadata validation, the
// duplicate-correlation check, and the create/exists gate.
func (b *base) guard(md domain.EventMetadata, isCreate, exists bool, notFound domain.Code) *domain.Error {
	if err := md.Validate(); err != nil {
		return err
	}
	if b.hasCorrelation(md.CorrelationID) {
		return domain.NewError(domain.KindConflict, domain.CodeDuplicateCorrelation)
	}
	if isCreate && exists {
		return domain.NewError(domain.KindConflict, domain.CodeEntityAlreadyExists)
	}
	if !isCreate && !exists {
		return domain.NewError(domain.KindNotFound, notFound)
	}
	return nil
}

// scheduleDeletion registers the one-shot physical-deletion reminder.
func (b *base) scheduleDeletion(ctx context.Context, payload reminders.DeletionPayload, dueIn time.Duration) *domain.Error {
	data, err := payload.Encode()
	if err != nil {
		return domain.WrapInternal(err)
	}
	if err := b.ctx.Reminders.Register(ctx, b.address(), reminders.PhysicalDeletionReminder, data, dueIn, 0); err != nil {
		return domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}
	return nil
}

// retentionFor reads the repository's retention snapshot, falling back
// to the server defaults when no snapshot exists.
func (b *base) retentionFor(repoID string) domain.RetentionPolicy {
	policy, found, err := b.ctx.Retention.Get(repoID)
	if err != nil {
		b.logger.Warn("retention lookup failed; using defaults", logpkg.Err(err))
		return b.ctx.DefaultRetention
	}
	if !found {
		return b.ctx.DefaultRetention
	}
	return policy
}

// cancelDeletion drops a pending physical-deletion reminder, if any.
func (b *base) cancelDeletion(ctx context.Context) *domain.Error {
	if err := b.ctx.Reminders.Unregister(ctx, b.address(), reminders.PhysicalDeletionReminder); err != nil {
		return domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}
	return nil
}
