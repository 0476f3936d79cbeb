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

// RepositoryDto is the repository read-model.
type RepositoryDto struct {
	ID                      string                 `json:"repositoryId"`
	OwnerID                 string                 `json:"ownerId"`
	OrganizationID          string                 `json:"organizationId"`
	Name                    string                 `json:"repositoryName"`
	Visibility              string                 `json:"repositoryVisibility"`
	Status                  string                 `json:"repositoryStatus"`
	DefaultServerAPIVersion string                 `json:"defaultServerApiVersion"`
	RecordSaves             bool                   `json:"recordSaves"`
	Retention               domain.RetentionPolicy `json:"retention"`
	CreatedAt               time.Time              `json:"createdAt"`
	UpdatedAt               time.Time              `json:"updatedAt"`
	DeletedAt               *time.Time             `json:"deletedAt,omitempty"`
	DeleteReason            string                 `json:"deleteReason,omitempty"`
}

// Repository events.

type RepositoryCreated struct {
	RepositoryID            string                 `json:"repositoryId"`
	OwnerID                 string                 `json:"ownerId"`
	OrganizationID          string                 `json:"organizationId"`
	Name                    string                 `json:"repositoryName"`
	Visibility              string                 `json:"repositoryVisibility"`
	Status                  string                 `json:"repositoryStatus"`
	DefaultServerAPIVersion string                 `json:"defaultServerApiVersion"`
	RecordSaves             bool                   `json:"recordSaves"`
	Retention               domain.RetentionPolicy `json:"retention"`
}

type RepositoryNameSet struct {
	Name string `json:"repositoryName"`
}

type RepositoryVisibilitySet struct {
	Visibility string `json:"repositoryVisibility"`
}

type RepositoryStatusSet struct {
	Status string `json:"repositoryStatus"`
}

type RepositoryRecordSavesSet struct {
	RecordSaves bool `json:"recordSaves"`
}

type RepositoryDefaultServerAPIVersionSet struct {
	Version string `json:"defaultServerApiVersion"`
}

// RepositoryRetentionDaysSet covers every per-window retention setter;
// Window names which policy field changed.
type RepositoryRetentionDaysSet struct {
	Window string  `json:"window"`
	Days   float64 `json:"days"`
}

type RepositoryLogicalDeleted struct {
	Reason string `json:"deleteReason"`
}

type RepositoryPhysicalDeleted struct {
	Reason string `json:"deleteReason"`
}

type RepositoryUndeleted struct{}

const (
	evRepoCreated         = "RepositoryCreated"
	evRepoNameSet         = "RepositoryNameSet"
	evRepoVisibilitySet   = "RepositoryVisibilitySet"
	evRepoStatusSet       = "RepositoryStatusSet"
	evRepoRecordSavesSet  = "RepositoryRecordSavesSet"
	evRepoAPIVersionSet   = "RepositoryDefaultServerApiVersionSet"
	evRepoRetentionSet    = "RepositoryRetentionDaysSet"
	evRepoLogicalDeleted  = "RepositoryLogicalDeleted"
	evRepoPhysicalDeleted = "RepositoryPhysicalDeleted"
	evRepoUndeleted       = "RepositoryUndeleted"
)

// Retention window names for RepositorySetRetentionDays.
const (
	WindowSave                  = "save"
	WindowCheckpoint            = "checkpoint"
	WindowDiffCache             = "diff-cache"
	WindowDirectoryVersionCache = "directory-version-cache"
	WindowLogicalDelete         = "logical-delete"
)

// Repository commands.

type RepositoryCommand interface{ repositoryCommand() }

type RepositoryCreate struct {
	OwnerID                 string
	OrganizationID          string
	Name                    string
	Visibility              string
	Status                  string
	DefaultServerAPIVersion string
	RecordSaves             bool
	Retention               *domain.RetentionPolicy // nil selects server defaults
}

type RepositorySetName struct{ Name string }
type RepositorySetVisibility struct{ Visibility string }
type RepositorySetStatus struct{ Status string }
type RepositorySetRecordSaves struct{ RecordSaves bool }
type RepositorySetDefaultServerAPIVersion struct{ Version string }
type RepositorySetRetentionDays struct {
	Window string
	Days   float64
}
type RepositoryDeleteLogical struct {
	Reason string
	Force  bool
}
type RepositoryDeletePhysical struct{ Reason string }
type RepositoryUndelete struct{}

func (RepositoryCreate) repositoryCommand()                     {}
func (RepositorySetName) repositoryCommand()                    {}
func (RepositorySetVisibility) repositoryCommand()              {}
func (RepositorySetStatus) repositoryCommand()                  {}
func (RepositorySetRecordSaves) repositoryCommand()             {}
func (RepositorySetDefaultServerAPIVersion) repositoryCommand() {}
func (RepositorySetRetentionDays) repositoryCommand()           {}
func (RepositoryDeleteLogical) repositoryCommand()              {}
func (RepositoryDeletePhysical) repositoryCommand()             {}
func (RepositoryUndelete) repositoryCommand()                   {}

// RepositoryActor serializes all mutations of one repository.
type RepositoryActor struct {
	base
	dto RepositoryDto
}

// NewRepositoryActor is the host factory for repository actors.
func NewRepositoryActor(ctx *Ctx) actor.Factory {
	return func(id string) actor.Actor {
		return &RepositoryActor{base: newBase(id, actor.KindRepository, eventbus.TagRepositoryEvent, ctx)}
	}
}

func (a *RepositoryActor) Activate(ctx context.Context) error {
	recs, err := a.loadRecords(ctx)
	if err != nil {
		return err
	}
	a.recs = recs
	a.dto = RepositoryDto{}
	for _, rec := range recs {
		if err := a.fold(rec); err != nil {
			return err
		}
	}
	a.disposed = false
	return nil
}

func (a *RepositoryActor) fold(rec envelopeRecord) error {
	switch rec.Tag {
	case evRepoCreated:
		var ev RepositoryCreated
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto = RepositoryDto{
			ID:                      ev.RepositoryID,
			OwnerID:                 ev.OwnerID,
			OrganizationID:          ev.OrganizationID,
			Name:                    ev.Name,
			Visibility:              ev.Visibility,
			Status:                  ev.Status,
			DefaultServerAPIVersion: ev.DefaultServerAPIVersion,
			RecordSaves:             ev.RecordSaves,
			Retention:               ev.Retention,
			CreatedAt:               rec.Metadata.Timestamp,
			UpdatedAt:               rec.Metadata.Timestamp,
		}
	case evRepoNameSet:
		var ev RepositoryNameSet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.Name = ev.Name
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evRepoVisibilitySet:
		var ev RepositoryVisibilitySet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.Visibility = ev.Visibility
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evRepoStatusSet:
		var ev RepositoryStatusSet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.Status = ev.Status
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evRepoRecordSavesSet:
		var ev RepositoryRecordSavesSet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.RecordSaves = ev.RecordSaves
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evRepoAPIVersionSet:
		var ev RepositoryDefaultServerAPIVersionSet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.DefaultServerAPIVersion = ev.Version
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evRepoRetentionSet:
		var ev RepositoryRetentionDaysSet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		switch ev.Window {
		case WindowSave:
			a.dto.Retention.SaveDays = ev.Days
		case WindowCheckpoint:
			a.dto.Retention.CheckpointDays = ev.Days
		case WindowDiffCache:
			a.dto.Retention.DiffCacheDays = ev.Days
		case WindowDirectoryVersionCache:
			a.dto.Retention.DirectoryVersionCacheDays = ev.Days
		case WindowLogicalDelete:
			a.dto.Retention.LogicalDeleteDays = ev.Days
		}
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evRepoLogicalDeleted:
		var ev RepositoryLogicalDeleted
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		ts := rec.Metadata.Timestamp
		a.dto.DeletedAt = &ts
		a.dto.DeleteReason = ev.Reason
		a.dto.UpdatedAt = ts
	case evRepoUndeleted:
		a.dto.DeletedAt = nil
		a.dto.DeleteReason = ""
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	}
	return nil
}

func (a *RepositoryActor) Exists(ctx context.Context) bool       { return a.dto.ID != "" }
func (a *RepositoryActor) IsDeleted(ctx context.Context) bool    { return a.dto.DeletedAt != nil }
func (a *RepositoryActor) Get(ctx context.Context) RepositoryDto { return a.dto }

// GetRetention returns the repository's effective retention policy.
// Branch and reference actors do not call this when scheduling physical
// deletion; they read the RetentionView snapshot this actor writes.
func (a *RepositoryActor) GetRetention(ctx context.Context) domain.RetentionPolicy {
	return a.dto.Retention
}

func (a *RepositoryActor) Handle(ctx context.Context, cmd RepositoryCommand, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	_, isCreate := cmd.(RepositoryCreate)
	if err := a.guard(md, isCreate, a.Exists(ctx), domain.CodeRepositoryNotFound); err != nil {
		return nil, err
	}

	switch c := cmd.(type) {
	case RepositoryCreate:
		return a.handleCreate(ctx, c, md)

	case RepositorySetName:
		return a.handleSetName(ctx, c, md)

	case RepositorySetVisibility:
		if err := a.apply(ctx, evRepoVisibilitySet, RepositoryVisibilitySet{Visibility: c.Visibility}, md); err != nil {
			return nil, err
		}
		return a.result(evRepoVisibilitySet), nil

	case RepositorySetStatus:
		if err := a.apply(ctx, evRepoStatusSet, RepositoryStatusSet{Status: c.Status}, md); err != nil {
			return nil, err
		}
		return a.result(evRepoStatusSet), nil

	case RepositorySetRecordSaves:
		if err := a.apply(ctx, evRepoRecordSavesSet, RepositoryRecordSavesSet{RecordSaves: c.RecordSaves}, md); err != nil {
			return nil, err
		}
		return a.result(evRepoRecordSavesSet), nil

	case RepositorySetDefaultServerAPIVersion:
		if err := a.apply(ctx, evRepoAPIVersionSet, RepositoryDefaultServerAPIVersionSet{Version: c.Version}, md); err != nil {
			return nil, err
		}
		return a.result(evRepoAPIVersionSet), nil

	case RepositorySetRetentionDays:
		if c.Days < 0 {
			return nil, domain.NewError(domain.KindValidation, domain.CodeInvalidRetentionDays)
		}
		switch c.Window {
		case WindowSave, WindowCheckpoint, WindowDiffCache, WindowDirectoryVersionCache, WindowLogicalDelete:
		default:
			return nil, domain.NewErrorf(domain.KindValidation, domain.CodeInvalidRetentionDays, "window %q", c.Window)
		}
		if err := a.apply(ctx, evRepoRetentionSet, RepositoryRetentionDaysSet{Window: c.Window, Days: c.Days}, md); err != nil {
			return nil, err
		}
		if err := a.ctx.Retention.Put(a.id, a.dto.Retention); err != nil {
			a.logger.Warn("retention snapshot write failed", logpkg.Err(err))
		}
		return a.result(evRepoRetentionSet), nil

	case RepositoryDeleteLogical:
		return a.handleDeleteLogical(ctx, c, md)

	case RepositoryUndelete:
		if !a.IsDeleted(ctx) {
			return nil, domain.NewError(domain.KindPreconditionFailed, domain.CodeNotLogicallyDeleted)
		}
		if err := a.cancelDeletion(ctx); err != nil {
			return nil, err
		}
		if err := a.apply(ctx, evRepoUndeleted, RepositoryUndeleted{}, md); err != nil {
			return nil, err
		}
		return a.result(evRepoUndeleted), nil

	case RepositoryDeletePhysical:
		return a.deletePhysical(ctx, c.Reason, md)

	default:
		return nil, domain.WrapInternal(fmt.Errorf("unknown repository command %T", cmd))
	}
}

func (a *RepositoryActor) handleCreate(ctx context.Context, c RepositoryCreate, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	if err := domain.ValidateName(c.Name); err != nil {
		return nil, err
	}
	retention := a.ctx.DefaultRetention
	if c.Retention != nil {
		if err := c.Retention.Validate(); err != nil {
			return nil, err
		}
		retention = *c.Retention
	}

	// (name, owner, organization) uniqueness through the lookup actor.
	nameAddr := actor.Address{Kind: actor.KindRepositoryName, ID: RepositoryNameKey(c.Name, c.OwnerID, c.OrganizationID)}
	bound, err := actor.Call(ctx, a.ctx.Host, nameAddr, "GetRepositoryID",
		func(ctx context.Context, na *RepositoryNameActor) (bool, error) {
			existing, found := na.GetRepositoryID(ctx)
			return found && existing != a.id, nil
		})
	if err != nil {
		return nil, domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}
	if bound {
		return nil, domain.NewError(domain.KindConflict, domain.CodeNameAlreadyExists)
	}

	ev := RepositoryCreated{
		RepositoryID:            a.id,
		OwnerID:                 c.OwnerID,
		OrganizationID:          c.OrganizationID,
		Name:                    c.Name,
		Visibility:              c.Visibility,
		Status:                  c.Status,
		DefaultServerAPIVersion: c.DefaultServerAPIVersion,
		RecordSaves:             c.RecordSaves,
		Retention:               retention,
	}
	if err := a.apply(ctx, evRepoCreated, ev, md); err != nil {
		return nil, err
	}
	if err := a.ctx.Retention.Put(a.id, retention); err != nil {
		a.logger.Warn("retention snapshot write failed", logpkg.Err(err))
	}

	if _, err := actor.Call(ctx, a.ctx.Host, nameAddr, "SetRepositoryID",
		func(ctx context.Context, na *RepositoryNameActor) (struct{}, error) {
			return struct{}{}, na.SetRepositoryID(ctx, a.id)
		}); err != nil {
		a.logger.Warn("repository name binding failed", logpkg.Err(err))
	}
	a.ctx.Cache.SetExists(repositoryCacheKey(a.id))
	a.ctx.Cache.PutValue("reponame/"+nameAddr.ID, a.id)
	return a.result(evRepoCreated), nil
}

func (a *RepositoryActor) handleSetName(ctx context.Context, c RepositorySetName, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	if err := domain.ValidateName(c.Name); err != nil {
		return nil, err
	}
	newKey := RepositoryNameKey(c.Name, a.dto.OwnerID, a.dto.OrganizationID)
	newAddr := actor.Address{Kind: actor.KindRepositoryName, ID: newKey}
	taken, err := actor.Call(ctx, a.ctx.Host, newAddr, "GetRepositoryID",
		func(ctx context.Context, na *RepositoryNameActor) (bool, error) {
			existing, found := na.GetRepositoryID(ctx)
			return found && existing != a.id, nil
		})
	if err != nil {
		return nil, domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}
	if taken {
		return nil, domain.NewError(domain.KindConflict, domain.CodeNameAlreadyExists)
	}

	oldKey := RepositoryNameKey(a.dto.Name, a.dto.OwnerID, a.dto.OrganizationID)
	if err := a.apply(ctx, evRepoNameSet, RepositoryNameSet{Name: c.Name}, md); err != nil {
		return nil, err
	}

	oldAddr := actor.Address{Kind: actor.KindRepositoryName, ID: oldKey}
	if _, err := actor.Call(ctx, a.ctx.Host, oldAddr, "ClearRepositoryID",
		func(ctx context.Context, na *RepositoryNameActor) (struct{}, error) {
			return struct{}{}, na.ClearRepositoryID(ctx)
		}); err != nil {
		a.logger.Warn("stale repository name unbind failed", logpkg.Err(err))
	}
	if _, err := actor.Call(ctx, a.ctx.Host, newAddr, "SetRepositoryID",
		func(ctx context.Context, na *RepositoryNameActor) (struct{}, error) {
			return struct{}{}, na.SetRepositoryID(ctx, a.id)
		}); err != nil {
		a.logger.Warn("repository name rebind failed", logpkg.Err(err))
	}
	a.ctx.Cache.Invalidate("reponame/" + oldKey)
	a.ctx.Cache.PutValue("reponame/"+newKey, a.id)
	return a.result(evRepoNameSet), nil
}

func (a *RepositoryActor) handleDeleteLogical(ctx context.Context, c RepositoryDeleteLogical, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	if a.IsDeleted(ctx) {
		return nil, domain.NewError(domain.KindConflict, domain.CodeWrongLifecycleState)
	}
	branches, err := a.ctx.Branches.List(a.id, 0)
	if err != nil {
		return nil, domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}
	if len(branches) > 0 && !c.Force {
		return nil, domain.NewError(domain.KindPreconditionFailed, domain.CodeRepositoryNotEmpty)
	}

	if err := a.apply(ctx, evRepoLogicalDeleted, RepositoryLogicalDeleted{Reason: c.Reason}, md); err != nil {
		return nil, err
	}

	// Cascade: each branch logically deletes itself (and its references)
	// and schedules its own physical deletion.
	for _, b := range branches {
		childMD := md.Derive("branch/" + b.BranchID)
		addr := actor.Address{Kind: actor.KindBranch, ID: b.BranchID}
		if _, err := actor.Call(ctx, a.ctx.Host, addr, "DeleteLogical",
			func(ctx context.Context, ba *BranchActor) (*domain.CommandResult, error) {
				res, derr := ba.Handle(ctx, BranchDeleteLogical{Reason: c.Reason, Force: true}, childMD)
				if derr != nil {
					return nil, derr
				}
				return res, nil
			}); err != nil {
			a.logger.Error("branch cascade delete failed",
				logpkg.Str("branch", b.BranchID), logpkg.Err(err))
		}
	}

	payload := reminders.DeletionPayload{
		OwnerID:        a.dto.OwnerID,
		OrganizationID: a.dto.OrganizationID,
		RepositoryID:   a.id,
		DeleteReason:   c.Reason,
		CorrelationID:  md.CorrelationID,
	}
	if err := a.scheduleDeletion(ctx, payload, domain.DaysToDuration(a.dto.Retention.LogicalDeleteDays)); err != nil {
		return nil, err
	}
	return a.result(evRepoLogicalDeleted), nil
}

func (a *RepositoryActor) deletePhysical(ctx context.Context, reason string, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	// Branches must go first; each branch clears its own references.
	branches, err := a.ctx.Branches.List(a.id, 0)
	if err != nil {
		return nil, domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}
	for _, b := range branches {
		childMD := md.Derive("branch/" + b.BranchID)
		addr := actor.Address{Kind: actor.KindBranch, ID: b.BranchID}
		if _, cerr := actor.Call(ctx, a.ctx.Host, addr, "DeletePhysical",
			func(ctx context.Context, ba *BranchActor) (*domain.CommandResult, error) {
				res, derr := ba.Handle(ctx, BranchDeletePhysical{Reason: reason}, childMD)
				if derr != nil {
					return nil, derr
				}
				return res, nil
			}); cerr != nil {
			a.logger.Error("branch cascade physical delete failed",
				logpkg.Str("branch", b.BranchID), logpkg.Err(cerr))
		}
	}

	nameKey := RepositoryNameKey(a.dto.Name, a.dto.OwnerID, a.dto.OrganizationID)
	if err := a.wipe(ctx); err != nil {
		return nil, err
	}
	if err := a.ctx.Retention.Remove(a.id); err != nil {
		a.logger.Warn("retention snapshot remove failed", logpkg.Err(err))
	}
	nameAddr := actor.Address{Kind: actor.KindRepositoryName, ID: nameKey}
	if _, cerr := actor.Call(ctx, a.ctx.Host, nameAddr, "ClearRepositoryID",
		func(ctx context.Context, na *RepositoryNameActor) (struct{}, error) {
			return struct{}{}, na.ClearRepositoryID(ctx)
		}); cerr != nil {
		a.logger.Warn("repository name unbind failed", logpkg.Err(cerr))
	}
	a.ctx.Cache.SetDoesNotExist(repositoryCacheKey(a.id))
	a.ctx.Cache.Invalidate("reponame/" + nameKey)
	a.publishOnly(ctx, evRepoPhysicalDeleted, RepositoryPhysicalDeleted{Reason: reason}, md)
	a.dto = RepositoryDto{}
	a.logger.Info("repository physically deleted", logpkg.Str("reason", reason))
	return a.result(evRepoPhysicalDeleted), nil
}

// ReceiveReminder handles the physical-deletion timer.
func (a *RepositoryActor) ReceiveReminder(ctx context.Context, name string, payload []byte, due time.Time, period time.Duration) error {
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

func (a *RepositoryActor) apply(ctx context.Context, eventType string, event interface{}, md domain.EventMetadata) *domain.Error {
	raw, err := json.Marshal(event)
	if err != nil {
		return domain.WrapInternal(err)
	}
	if err := a.fold(envelopeRecord{Tag: eventType, Event: raw, Metadata: md}); err != nil {
		return domain.WrapInternal(err)
	}
	return a.appendEvent(ctx, eventType, event, md, true)
}

func (a *RepositoryActor) result(eventType string) *domain.CommandResult {
	return domain.NewResult(eventType).
		With("repositoryId", a.id).
		With("ownerId", a.dto.OwnerID).
		With("organizationId", a.dto.OrganizationID)
}

func repositoryCacheKey(id string) string { return "repository/" + id }
