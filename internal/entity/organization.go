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

// OrganizationDto is the organization read-model.
type OrganizationDto struct {
	ID           string     `json:"organizationId"`
	OwnerID      string     `json:"ownerId"`
	Name         string     `json:"organizationName"`
	Type         string     `json:"organizationType"`
	Visibility   string     `json:"searchVisibility"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	DeleteReason string     `json:"deleteReason,omitempty"`
}

type OrganizationCreated struct {
	OrganizationID string `json:"organizationId"`
	OwnerID        string `json:"ownerId"`
	Name           string `json:"organizationName"`
	Type           string `json:"organizationType"`
	Visibility     string `json:"searchVisibility"`
}

type OrganizationNameSet struct {
	Name string `json:"organizationName"`
}

type OrganizationTypeSet struct {
	Type string `json:"organizationType"`
}

type OrganizationVisibilitySet struct {
	Visibility string `json:"searchVisibility"`
}

type OrganizationLogicalDeleted struct {
	Reason string `json:"deleteReason"`
}

type OrganizationPhysicalDeleted struct {
	Reason string `json:"deleteReason"`
}

type OrganizationUndeleted struct{}

const (
	evOrgCreated         = "OrganizationCreated"
	evOrgNameSet         = "OrganizationNameSet"
	evOrgTypeSet         = "OrganizationTypeSet"
	evOrgVisibilitySet   = "OrganizationVisibilitySet"
	evOrgLogicalDeleted  = "OrganizationLogicalDeleted"
	evOrgPhysicalDeleted = "OrganizationPhysicalDeleted"
	evOrgUndeleted       = "OrganizationUndeleted"
)

type OrganizationCommand interface{ organizationCommand() }

type OrganizationCreate struct {
	OwnerID    string
	Name       string
	Type       string
	Visibility string
}

type OrganizationSetName struct{ Name string }
type OrganizationSetType struct{ Type string }
type OrganizationSetVisibility struct{ Visibility string }
type OrganizationDeleteLogical struct {
	Reason string
	Force  bool
}
type OrganizationDeletePhysical struct{ Reason string }
type OrganizationUndelete struct{}

func (OrganizationCreate) organizationCommand()         {}
func (OrganizationSetName) organizationCommand()        {}
func (OrganizationSetType) organizationCommand()        {}
func (OrganizationSetVisibility) organizationCommand()  {}
func (OrganizationDeleteLogical) organizationCommand()  {}
func (OrganizationDeletePhysical) organizationCommand() {}
func (OrganizationUndelete) organizationCommand()       {}

// OrganizationActor serializes all mutations of one organization.
type OrganizationActor struct {
	base
	dto OrganizationDto
}

// NewOrganizationActor is the host factory for organization actors.
func NewOrganizationActor(ctx *Ctx) actor.Factory {
	return func(id string) actor.Actor {
		return &OrganizationActor{base: newBase(id, actor.KindOrganization, eventbus.TagOrganizationEvent, ctx)}
	}
}

func (a *OrganizationActor) Activate(ctx context.Context) error {
	recs, err := a.loadRecords(ctx)
	if err != nil {
		return err
	}
	a.recs = recs
	a.dto = OrganizationDto{}
	for _, rec := range recs {
		if err := a.fold(rec); err != nil {
			return err
		}
	}
	a.disposed = false
	return nil
}

func (a *OrganizationActor) fold(rec envelopeRecord) error {
	switch rec.Tag {
	case evOrgCreated:
		var ev OrganizationCreated
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto = OrganizationDto{
			ID:         ev.OrganizationID,
			OwnerID:    ev.OwnerID,
			Name:       ev.Name,
			Type:       ev.Type,
			Visibility: ev.Visibility,
			CreatedAt:  rec.Metadata.Timestamp,
			UpdatedAt:  rec.Metadata.Timestamp,
		}
	case evOrgNameSet:
		var ev OrganizationNameSet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.Name = ev.Name
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evOrgTypeSet:
		var ev OrganizationTypeSet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.Type = ev.Type
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evOrgVisibilitySet:
		var ev OrganizationVisibilitySet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.Visibility = ev.Visibility
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evOrgLogicalDeleted:
		var ev OrganizationLogicalDeleted
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		ts := rec.Metadata.Timestamp
		a.dto.DeletedAt = &ts
		a.dto.DeleteReason = ev.Reason
		a.dto.UpdatedAt = ts
	case evOrgUndeleted:
		a.dto.DeletedAt = nil
		a.dto.DeleteReason = ""
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	}
	return nil
}

func (a *OrganizationActor) Exists(ctx context.Context) bool         { return a.dto.ID != "" }
func (a *OrganizationActor) IsDeleted(ctx context.Context) bool      { return a.dto.DeletedAt != nil }
func (a *OrganizationActor) Get(ctx context.Context) OrganizationDto { return a.dto }

// GetOwnerID returns the owning owner's id.
func (a *OrganizationActor) GetOwnerID(ctx context.Context) string { return a.dto.OwnerID }

func (a *OrganizationActor) Handle(ctx context.Context, cmd OrganizationCommand, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	_, isCreate := cmd.(OrganizationCreate)
	if err := a.guard(md, isCreate, a.Exists(ctx), domain.CodeOrganizationNotFound); err != nil {
		return nil, err
	}

	switch c := cmd.(type) {
	case OrganizationCreate:
		if err := domain.ValidateName(c.Name); err != nil {
			return nil, err
		}
		if other, bound, _ := a.ctx.Names.ResolveOrganization(c.OwnerID, c.Name); bound && other != a.id {
			return nil, domain.NewError(domain.KindConflict, domain.CodeNameAlreadyExists)
		}
		ev := OrganizationCreated{OrganizationID: a.id, OwnerID: c.OwnerID, Name: c.Name, Type: c.Type, Visibility: c.Visibility}
		if err := a.apply(ctx, evOrgCreated, ev, md); err != nil {
			return nil, err
		}
		if err := a.ctx.Names.BindOrganization(c.OwnerID, c.Name, a.id); err != nil {
			a.logger.Warn("organization name binding failed", logpkg.Err(err))
		}
		a.ctx.Cache.SetExists(organizationCacheKey(a.id))
		return a.result(evOrgCreated), nil

	case OrganizationSetName:
		if err := domain.ValidateName(c.Name); err != nil {
			return nil, err
		}
		if other, bound, _ := a.ctx.Names.ResolveOrganization(a.dto.OwnerID, c.Name); bound && other != a.id {
			return nil, domain.NewError(domain.KindConflict, domain.CodeNameAlreadyExists)
		}
		oldName := a.dto.Name
		if err := a.apply(ctx, evOrgNameSet, OrganizationNameSet{Name: c.Name}, md); err != nil {
			return nil, err
		}
		if err := a.ctx.Names.UnbindOrganization(a.dto.OwnerID, oldName); err != nil {
			a.logger.Warn("organization name unbind failed", logpkg.Err(err))
		}
		if err := a.ctx.Names.BindOrganization(a.dto.OwnerID, c.Name, a.id); err != nil {
			a.logger.Warn("organization name rebind failed", logpkg.Err(err))
		}
		return a.result(evOrgNameSet), nil

	case OrganizationSetType:
		if err := a.apply(ctx, evOrgTypeSet, OrganizationTypeSet{Type: c.Type}, md); err != nil {
			return nil, err
		}
		return a.result(evOrgTypeSet), nil

	case OrganizationSetVisibility:
		if err := a.apply(ctx, evOrgVisibilitySet, OrganizationVisibilitySet{Visibility: c.Visibility}, md); err != nil {
			return nil, err
		}
		return a.result(evOrgVisibilitySet), nil

	case OrganizationDeleteLogical:
		if a.IsDeleted(ctx) {
			return nil, domain.NewError(domain.KindConflict, domain.CodeWrongLifecycleState)
		}
		if err := a.apply(ctx, evOrgLogicalDeleted, OrganizationLogicalDeleted{Reason: c.Reason}, md); err != nil {
			return nil, err
		}
		payload := reminders.DeletionPayload{
			OwnerID:        a.dto.OwnerID,
			OrganizationID: a.id,
			DeleteReason:   c.Reason,
			CorrelationID:  md.CorrelationID,
		}
		if err := a.scheduleDeletion(ctx, payload, domain.DaysToDuration(a.ctx.DefaultRetention.LogicalDeleteDays)); err != nil {
			return nil, err
		}
		return a.result(evOrgLogicalDeleted), nil

	case OrganizationUndelete:
		if !a.IsDeleted(ctx) {
			return nil, domain.NewError(domain.KindPreconditionFailed, domain.CodeNotLogicallyDeleted)
		}
		if err := a.cancelDeletion(ctx); err != nil {
			return nil, err
		}
		if err := a.apply(ctx, evOrgUndeleted, OrganizationUndeleted{}, md); err != nil {
			return nil, err
		}
		return a.result(evOrgUndeleted), nil

	case OrganizationDeletePhysical:
		return a.deletePhysical(ctx, c.Reason, md)

	default:
		return nil, domain.WrapInternal(fmt.Errorf("unknown organization command %T", cmd))
	}
}

func (a *OrganizationActor) apply(ctx context.Context, eventType string, event interface{}, md domain.EventMetadata) *domain.Error {
	raw, err := json.Marshal(event)
	if err != nil {
		return domain.WrapInternal(err)
	}
	if err := a.fold(envelopeRecord{Tag: eventType, Event: raw, Metadata: md}); err != nil {
		return domain.WrapInternal(err)
	}
	return a.appendEvent(ctx, eventType, event, md, true)
}

func (a *OrganizationActor) deletePhysical(ctx context.Context, reason string, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	ownerID, name := a.dto.OwnerID, a.dto.Name
	if err := a.wipe(ctx); err != nil {
		return nil, err
	}
	if name != "" {
		if err := a.ctx.Names.UnbindOrganization(ownerID, name); err != nil {
			a.logger.Warn("organization name unbind failed", logpkg.Err(err))
		}
	}
	a.ctx.Cache.SetDoesNotExist(organizationCacheKey(a.id))
	a.publishOnly(ctx, evOrgPhysicalDeleted, OrganizationPhysicalDeleted{Reason: reason}, md)
	a.dto = OrganizationDto{}
	a.logger.Info("organization physically deleted", logpkg.Str("reason", reason))
	return a.result(evOrgPhysicalDeleted), nil
}

func (a *OrganizationActor) ReceiveReminder(ctx context.Context, name string, payload []byte, due time.Time, period time.Duration) error {
	if name != reminders.PhysicalDeletionReminder {
		return fmt.Errorf("unknown reminder %q", name)
	}
	p, err := reminders.DecodeDeletionPayload(payload)
	if err != nil {
		return err
	}
	md := domain.NewMetadata(p.CorrelationID + "/physical-deletion")
	if _, derr := a.deletePhysical(ctx, p.DeleteReason, md); derr != nil {
		return derr
	}
	return nil
}

func (a *OrganizationActor) result(eventType string) *domain.CommandResult {
	return domain.NewResult(eventType).With("organizationId", a.id).With("ownerId", a.dto.OwnerID)
}

func organizationCacheKey(id string) string { return "organization/" + id }
