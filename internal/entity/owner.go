package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/domain"
	"github.com/TorratDev/Grace/internal/eventbus"
	"github.com/TorratDev/Grace/internal/reminders"
	logpkg "github.com/TorratDev/Grace/pkg/log"
)

// OwnerDto is the owner read-model, a pure fold of the owner's events.
type OwnerDto struct {
	ID               string     `json:"ownerId"`
	Name             string     `json:"ownerName"`
	Type             string     `json:"ownerType"`
	Description      string     `json:"description"`
	SearchVisibility string     `json:"searchVisibility"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	DeletedAt        *time.Time `json:"deletedAt,omitempty"`
	DeleteReason     string     `json:"deleteReason,omitempty"`
}

// Owner events.

type OwnerCreated struct {
	OwnerID          string `json:"ownerId"`
	Name             string `json:"ownerName"`
	Type             string `json:"ownerType"`
	Description      string `json:"description"`
	SearchVisibility string `json:"searchVisibility"`
}

type OwnerNameSet struct {
	Name string `json:"ownerName"`
}

type OwnerTypeSet struct {
	Type string `json:"ownerType"`
}

type OwnerDescriptionSet struct {
	Description string `json:"description"`
}

type OwnerSearchVisibilitySet struct {
	SearchVisibility string `json:"searchVisibility"`
}

type OwnerLogicalDeleted struct {
	Reason string `json:"deleteReason"`
}

type OwnerPhysicalDeleted struct {
	Reason string `json:"deleteReason"`
}

type OwnerUndeleted struct{}

// Event type names, used as envelope tags on the wire.
const (
	evOwnerCreated             = "OwnerCreated"
	evOwnerNameSet             = "OwnerNameSet"
	evOwnerTypeSet             = "OwnerTypeSet"
	evOwnerDescriptionSet      = "OwnerDescriptionSet"
	evOwnerSearchVisibilitySet = "OwnerSearchVisibilitySet"
	evOwnerLogicalDeleted      = "OwnerLogicalDeleted"
	evOwnerPhysicalDeleted     = "OwnerPhysicalDeleted"
	evOwnerUndeleted           = "OwnerUndeleted"
)

// Owner commands.

type OwnerCommand interface{ ownerCommand() }

type OwnerCreate struct {
	Name             string
	Type             string
	Description      string
	SearchVisibility string
}

type OwnerSetName struct{ Name string }
type OwnerSetType struct{ Type string }
type OwnerSetDescription struct{ Description string }
type OwnerSetSearchVisibility struct{ SearchVisibility string }
type OwnerDeleteLogical struct {
	Reason string
	Force  bool
}
type OwnerDeletePhysical struct{ Reason string }
type OwnerUndelete struct{}

func (OwnerCreate) ownerCommand()              {}
func (OwnerSetName) ownerCommand()             {}
func (OwnerSetType) ownerCommand()             {}
func (OwnerSetDescription) ownerCommand()      {}
func (OwnerSetSearchVisibility) ownerCommand() {}
func (OwnerDeleteLogical) ownerCommand()       {}
func (OwnerDeletePhysical) ownerCommand()      {}
func (OwnerUndelete) ownerCommand()            {}

// OwnerActor serializes all mutations of one owner.
type OwnerActor struct {
	base
	dto OwnerDto
}

// NewOwnerActor is the host factory for owner actors.
func NewOwnerActor(ctx *Ctx) actor.Factory {
	return func(id string) actor.Actor {
		a := &OwnerActor{base: newBase(id, actor.KindOwner, eventbus.TagOwnerEvent, ctx)}
		return a
	}
}

// Activate rebuilds dto and events from durable state.
func (a *OwnerActor) Activate(ctx context.Context) error {
	recs, err := a.loadRecords(ctx)
	if err != nil {
		return err
	}
	a.recs = recs
	a.dto = OwnerDto{}
	for _, rec := range recs {
		if err := a.fold(rec); err != nil {
			return err
		}
	}
	a.disposed = false
	return nil
}

func (a *OwnerActor) fold(rec envelopeRecord) error {
	switch rec.Tag {
	case evOwnerCreated:
		var ev OwnerCreated
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto = OwnerDto{
			ID:               ev.OwnerID,
			Name:             ev.Name,
			Type:             ev.Type,
			Description:      ev.Description,
			SearchVisibility: ev.SearchVisibility,
			CreatedAt:        rec.Metadata.Timestamp,
			UpdatedAt:        rec.Metadata.Timestamp,
		}
	case evOwnerNameSet:
		var ev OwnerNameSet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.Name = ev.Name
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evOwnerTypeSet:
		var ev OwnerTypeSet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.Type = ev.Type
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evOwnerDescriptionSet:
		var ev OwnerDescriptionSet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.Description = ev.Description
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evOwnerSearchVisibilitySet:
		var ev OwnerSearchVisibilitySet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.SearchVisibility = ev.SearchVisibility
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evOwnerLogicalDeleted:
		var ev OwnerLogicalDeleted
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		ts := rec.Metadata.Timestamp
		a.dto.DeletedAt = &ts
		a.dto.DeleteReason = ev.Reason
		a.dto.UpdatedAt = ts
	case evOwnerUndeleted:
		a.dto.DeletedAt = nil
		a.dto.DeleteReason = ""
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	}
	return nil
}

// Exists reports whether the owner has been created and not physically
// deleted.
func (a *OwnerActor) Exists(ctx context.Context) bool { return a.dto.ID != "" }

// IsDeleted reports whether the owner is logically deleted.
func (a *OwnerActor) IsDeleted(ctx context.Context) bool { return a.dto.DeletedAt != nil }

// Get returns the current read-model.
func (a *OwnerActor) Get(ctx context.Context) OwnerDto { return a.dto }

// Handle applies one command under the entity skeleton's guarantees.
func (a *OwnerActor) Handle(ctx context.Context, cmd OwnerCommand, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	_, isCreate := cmd.(OwnerCreate)
	if err := a.guard(md, isCreate, a.Exists(ctx), domain.CodeOwnerNotFound); err != nil {
		return nil, err
	}

	switch c := cmd.(type) {
	case OwnerCreate:
		if err := domain.ValidateName(c.Name); err != nil {
			return nil, err
		}
		if other, bound, _ := a.ctx.Names.ResolveOwner(c.Name); bound && other != a.id {
			return nil, domain.NewError(domain.KindConflict, domain.CodeNameAlreadyExists)
		}
		ev := OwnerCreated{OwnerID: a.id, Name: c.Name, Type: c.Type, Description: c.Description, SearchVisibility: c.SearchVisibility}
		if err := a.apply(ctx, evOwnerCreated, ev, md); err != nil {
			return nil, err
		}
		if err := a.ctx.Names.BindOwner(c.Name, a.id); err != nil {
			a.logger.Warn("owner name binding failed", logpkg.Err(err))
		}
		a.ctx.Cache.SetExists(ownerCacheKey(a.id))
		return a.result(evOwnerCreated), nil

	case OwnerSetName:
		if err := domain.ValidateName(c.Name); err != nil {
			return nil, err
		}
		if other, bound, _ := a.ctx.Names.ResolveOwner(c.Name); bound && other != a.id {
			return nil, domain.NewError(domain.KindConflict, domain.CodeNameAlreadyExists)
		}
		oldName := a.dto.Name
		if err := a.apply(ctx, evOwnerNameSet, OwnerNameSet{Name: c.Name}, md); err != nil {
			return nil, err
		}
		if err := a.ctx.Names.UnbindOwner(oldName); err != nil {
			a.logger.Warn("owner name unbind failed", logpkg.Err(err))
		}
		if err := a.ctx.Names.BindOwner(c.Name, a.id); err != nil {
			a.logger.Warn("owner name rebind failed", logpkg.Err(err))
		}
		return a.result(evOwnerNameSet), nil

	case OwnerSetType:
		if err := a.apply(ctx, evOwnerTypeSet, OwnerTypeSet{Type: c.Type}, md); err != nil {
			return nil, err
		}
		return a.result(evOwnerTypeSet), nil

	case OwnerSetDescription:
		if err := a.apply(ctx, evOwnerDescriptionSet, OwnerDescriptionSet{Description: c.Description}, md); err != nil {
			return nil, err
		}
		return a.result(evOwnerDescriptionSet), nil

	case OwnerSetSearchVisibility:
		if err := a.apply(ctx, evOwnerSearchVisibilitySet, OwnerSearchVisibilitySet{SearchVisibility: c.SearchVisibility}, md); err != nil {
			return nil, err
		}
		return a.result(evOwnerSearchVisibilitySet), nil

	case OwnerDeleteLogical:
		if a.IsDeleted(ctx) {
			return nil, domain.NewError(domain.KindConflict, domain.CodeWrongLifecycleState)
		}
		if err := a.apply(ctx, evOwnerLogicalDeleted, OwnerLogicalDeleted{Reason: c.Reason}, md); err != nil {
			return nil, err
		}
		payload := reminders.DeletionPayload{OwnerID: a.id, DeleteReason: c.Reason, CorrelationID: md.CorrelationID}
		dueIn := domain.DaysToDuration(a.ctx.DefaultRetention.LogicalDeleteDays)
		if err := a.scheduleDeletion(ctx, payload, dueIn); err != nil {
			return nil, err
		}
		return a.result(evOwnerLogicalDeleted), nil

	case OwnerUndelete:
		if !a.IsDeleted(ctx) {
			return nil, domain.NewError(domain.KindPreconditionFailed, domain.CodeNotLogicallyDeleted)
		}
		if err := a.cancelDeletion(ctx); err != nil {
			return nil, err
		}
		if err := a.apply(ctx, evOwnerUndeleted, OwnerUndeleted{}, md); err != nil {
			return nil, err
		}
		return a.result(evOwnerUndeleted), nil

	case OwnerDeletePhysical:
		return a.deletePhysical(ctx, c.Reason, md)

	default:
		return nil, domain.WrapInternal(fmt.Errorf("unknown owner command %T", cmd))
	}
}

// apply folds and appends one event.
func (a *OwnerActor) apply(ctx context.Context, eventType string, event interface{}, md domain.EventMetadata) *domain.Error {
	raw, err := json.Marshal(event)
	if err != nil {
		return domain.WrapInternal(err)
	}
	rec := envelopeRecord{Tag: eventType, Event: raw, Metadata: md}
	if err := a.fold(rec); err != nil {
		return domain.WrapInternal(err)
	}
	return a.appendEvent(ctx, eventType, event, md, true)
}

func (a *OwnerActor) deletePhysical(ctx context.Context, reason string, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	name := a.dto.Name
	if err := a.wipe(ctx); err != nil {
		return nil, err
	}
	if name != "" {
		if err := a.ctx.Names.UnbindOwner(name); err != nil {
			a.logger.Warn("owner name unbind failed", logpkg.Err(err))
		}
	}
	a.ctx.Cache.SetDoesNotExist(ownerCacheKey(a.id))
	a.publishOnly(ctx, evOwnerPhysicalDeleted, OwnerPhysicalDeleted{Reason: reason}, md)
	a.dto = OwnerDto{}
	a.logger.Info("owner physically deleted", logpkg.Str("reason", reason))
	return a.result(evOwnerPhysicalDeleted), nil
}

// ReceiveReminder handles the physical-deletion timer.
func (a *OwnerActor) ReceiveReminder(ctx context.Context, name string, payload []byte, due time.Time, period time.Duration) error {
	if name != reminders.PhysicalDeletionReminder {
		return fmt.Errorf("unknown reminder %q", name)
	}
	p, err := reminders.DecodeDeletionPayload(payload)
	if err != nil {
		return err
	}
	md := domain.NewMetadata(p.CorrelationID + "/physical-deletion")
	_, derr := a.deletePhysical(ctx, p.DeleteReason, md)
	if derr != nil {
		return derr
	}
	return nil
}

func (a *OwnerActor) result(eventType string) *domain.CommandResult {
	return domain.NewResult(eventType).With("ownerId", a.id)
}

func ownerCacheKey(id string) string { return "owner/" + id }
