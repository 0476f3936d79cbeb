package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/domain"
	"github.com/TorratDev/Grace/internal/eventbus"
	"github.com/TorratDev/Grace/internal/reminders"
	logpkg "github.com/TorratDev/Grace/pkg/log"
)

// BranchEnabledFlags controls which reference types a branch accepts.
type BranchEnabledFlags struct {
	Assign     bool `json:"assignEnabled"`
	Promotion  bool `json:"promotionEnabled"`
	Commit     bool `json:"commitEnabled"`
	Checkpoint bool `json:"checkpointEnabled"`
	Save       bool `json:"saveEnabled"`
	Tag        bool `json:"tagEnabled"`
	External   bool `json:"externalEnabled"`
	AutoRebase bool `json:"autoRebaseEnabled"`
}

// DefaultBranchFlags enables everything except external references.
func DefaultBranchFlags() BranchEnabledFlags {
	return BranchEnabledFlags{
		Assign:     true,
		Promotion:  true,
		Commit:     true,
		Checkpoint: true,
		Save:       true,
		Tag:        true,
		External:   false,
		AutoRebase: true,
	}
}

// BranchDto is the branch read-model. The Latest* pointers are snapshots
// maintained in memory and repaired from the reference index on Activate.
type BranchDto struct {
	ID               string             `json:"branchId"`
	RepositoryID     string             `json:"repositoryId"`
	ParentBranchID   string             `json:"parentBranchId,omitempty"`
	Name             string             `json:"branchName"`
	BasedOn          string             `json:"basedOn,omitempty"`
	LatestPromotion  string             `json:"latestPromotion,omitempty"`
	LatestCommit     string             `json:"latestCommit,omitempty"`
	LatestCheckpoint string             `json:"latestCheckpoint,omitempty"`
	LatestSave       string             `json:"latestSave,omitempty"`
	Flags            BranchEnabledFlags `json:"enabledFlags"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
	DeletedAt        *time.Time         `json:"deletedAt,omitempty"`
	DeleteReason     string             `json:"deleteReason,omitempty"`
}

// Persisted branch events.

type BranchCreated struct {
	BranchID       string             `json:"branchId"`
	RepositoryID   string             `json:"repositoryId"`
	ParentBranchID string             `json:"parentBranchId,omitempty"`
	Name           string             `json:"branchName"`
	BasedOn        string             `json:"basedOn,omitempty"`
	Flags          BranchEnabledFlags `json:"enabledFlags"`
}

type BranchNameSet struct {
	Name string `json:"branchName"`
}

type BranchRebased struct {
	ReferenceID string `json:"referenceId"`
}

type BranchReferenceTypeEnabledSet struct {
	ReferenceKind string `json:"referenceKind"`
	Enabled       bool   `json:"enabled"`
}

// BranchReferenceRemoved is accepted and recorded; the fold deliberately
// leaves the dto untouched (see DESIGN.md on RemoveReference semantics).
type BranchReferenceRemoved struct {
	ReferenceID string `json:"referenceId"`
}

type BranchLogicalDeleted struct {
	Reason string `json:"deleteReason"`
}

type BranchPhysicalDeleted struct {
	Reason string `json:"deleteReason"`
}

type BranchUndeleted struct{}

// In-memory-only pointer events. The reference actor already published
// the authoritative event; these exist to keep the branch snapshot warm.

type BranchReferencePointed struct {
	ReferenceID string               `json:"referenceId"`
	Type        domain.ReferenceType `json:"referenceType"`
}

const (
	evBranchCreated         = "BranchCreated"
	evBranchNameSet         = "BranchNameSet"
	evBranchRebased         = "BranchRebased"
	evBranchRefEnabledSet   = "BranchReferenceTypeEnabledSet"
	evBranchRefRemoved      = "BranchReferenceRemoved"
	evBranchLogicalDeleted  = "BranchLogicalDeleted"
	evBranchPhysicalDeleted = "BranchPhysicalDeleted"
	evBranchUndeleted       = "BranchUndeleted"
	evBranchAssigned        = "BranchAssigned"
	evBranchPromoted        = "BranchPromoted"
	evBranchCommitted       = "BranchCommitted"
	evBranchCheckpointed    = "BranchCheckpointed"
	evBranchSaved           = "BranchSaved"
	evBranchTagged          = "BranchTagged"
	evBranchExternalCreated = "BranchExternalCreated"
)

// Reference-kind names accepted by BranchEnableReferenceType.
const (
	RefKindAssign     = "assign"
	RefKindPromotion  = "promotion"
	RefKindCommit     = "commit"
	RefKindCheckpoint = "checkpoint"
	RefKindSave       = "save"
	RefKindTag        = "tag"
	RefKindExternal   = "external"
	RefKindAutoRebase = "auto-rebase"
)

// Branch commands.

type BranchCommand interface{ branchCommand() }

type BranchCreate struct {
	RepositoryID   string
	ParentBranchID string
	Name           string
	BasedOn        string
	Flags          *BranchEnabledFlags // nil selects defaults
}

type BranchSetName struct{ Name string }

type BranchRebase struct{ ReferenceID string }

type BranchEnableReferenceType struct {
	ReferenceKind string
	Enabled       bool
}

// BranchNewReference covers Assign, Promote, Commit, Checkpoint, Save,
// Tag, and CreateExternal: the branch mints a reference id, creates the
// reference actor, and updates its own latest pointer on success.
type BranchNewReference struct {
	Type               domain.ReferenceType
	DirectoryVersionID string
	Sha256Hash         string
	Text               string
}

type BranchRemoveReference struct{ ReferenceID string }

type BranchDeleteLogical struct {
	Reason string
	Force  bool
}

type BranchDeletePhysical struct{ Reason string }

type BranchUndelete struct{}

func (BranchCreate) branchCommand()              {}
func (BranchSetName) branchCommand()             {}
func (BranchRebase) branchCommand()              {}
func (BranchEnableReferenceType) branchCommand() {}
func (BranchNewReference) branchCommand()        {}
func (BranchRemoveReference) branchCommand()     {}
func (BranchDeleteLogical) branchCommand()       {}
func (BranchDeletePhysical) branchCommand()      {}
func (BranchUndelete) branchCommand()            {}

// BranchActor serializes all mutations of one branch.
type BranchActor struct {
	base
	dto BranchDto
}

// NewBranchActor is the host factory for branch actors.
func NewBranchActor(ctx *Ctx) actor.Factory {
	return func(id string) actor.Actor {
		return &BranchActor{base: newBase(id, actor.KindBranch, eventbus.TagBranchEvent, ctx)}
	}
}

// Activate rebuilds dto and events from durable state, then repairs the
// Latest* pointers from the reference index. Pointer events are never
// persisted, so the index query is the only way to recover them.
func (a *BranchActor) Activate(ctx context.Context) error {
	recs, err := a.loadRecords(ctx)
	if err != nil {
		return err
	}
	a.recs = recs
	a.dto = BranchDto{}
	for _, rec := range recs {
		if err := a.fold(rec); err != nil {
			return err
		}
	}
	if a.dto.ID != "" {
		for _, rtype := range []domain.ReferenceType{
			domain.ReferenceSave, domain.ReferenceCheckpoint,
			domain.ReferenceCommit, domain.ReferencePromotion,
		} {
			refID, found, err := a.ctx.Refs.Latest(a.id, rtype)
			if err != nil {
				return fmt.Errorf("repair %s pointer: %w", rtype, err)
			}
			if found {
				a.point(rtype, refID)
			}
		}
	}
	a.disposed = false
	return nil
}

func (a *BranchActor) point(rtype domain.ReferenceType, refID string) {
	switch rtype {
	case domain.ReferencePromotion:
		a.dto.LatestPromotion = refID
	case domain.ReferenceCommit:
		a.dto.LatestCommit = refID
	case domain.ReferenceCheckpoint:
		a.dto.LatestCheckpoint = refID
	case domain.ReferenceSave:
		a.dto.LatestSave = refID
	}
}

func (a *BranchActor) fold(rec envelopeRecord) error {
	switch rec.Tag {
	case evBranchCreated:
		var ev BranchCreated
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto = BranchDto{
			ID:             ev.BranchID,
			RepositoryID:   ev.RepositoryID,
			ParentBranchID: ev.ParentBranchID,
			Name:           ev.Name,
			BasedOn:        ev.BasedOn,
			Flags:          ev.Flags,
			CreatedAt:      rec.Metadata.Timestamp,
			UpdatedAt:      rec.Metadata.Timestamp,
		}
	case evBranchNameSet:
		var ev BranchNameSet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.Name = ev.Name
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evBranchRebased:
		var ev BranchRebased
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto.BasedOn = ev.ReferenceID
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evBranchRefEnabledSet:
		var ev BranchReferenceTypeEnabledSet
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		switch ev.ReferenceKind {
		case RefKindAssign:
			a.dto.Flags.Assign = ev.Enabled
		case RefKindPromotion:
			a.dto.Flags.Promotion = ev.Enabled
		case RefKindCommit:
			a.dto.Flags.Commit = ev.Enabled
		case RefKindCheckpoint:
			a.dto.Flags.Checkpoint = ev.Enabled
		case RefKindSave:
			a.dto.Flags.Save = ev.Enabled
		case RefKindTag:
			a.dto.Flags.Tag = ev.Enabled
		case RefKindExternal:
			a.dto.Flags.External = ev.Enabled
		case RefKindAutoRebase:
			a.dto.Flags.AutoRebase = ev.Enabled
		}
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evBranchRefRemoved:
		// Recorded without a read-model effect.
	case evBranchLogicalDeleted:
		var ev BranchLogicalDeleted
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		ts := rec.Metadata.Timestamp
		a.dto.DeletedAt = &ts
		a.dto.DeleteReason = ev.Reason
		a.dto.UpdatedAt = ts
	case evBranchUndeleted:
		a.dto.DeletedAt = nil
		a.dto.DeleteReason = ""
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	case evBranchAssigned, evBranchPromoted, evBranchCommitted,
		evBranchCheckpointed, evBranchSaved, evBranchTagged, evBranchExternalCreated:
		var ev BranchReferencePointed
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.point(ev.Type, ev.ReferenceID)
		if rec.Tag == evBranchPromoted {
			// A successful promotion also becomes the branch's base.
			a.dto.BasedOn = ev.ReferenceID
		}
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	}
	return nil
}

func (a *BranchActor) Exists(ctx context.Context) bool    { return a.dto.ID != "" }
func (a *BranchActor) IsDeleted(ctx context.Context) bool { return a.dto.DeletedAt != nil }
func (a *BranchActor) Get(ctx context.Context) BranchDto  { return a.dto }

// GetParentBranch returns the parent branch id, empty for root branches.
func (a *BranchActor) GetParentBranch(ctx context.Context) string { return a.dto.ParentBranchID }

// GetLatestCommit returns the latest commit reference id.
func (a *BranchActor) GetLatestCommit(ctx context.Context) string { return a.dto.LatestCommit }

// GetLatestPromotion returns the latest promotion reference id.
func (a *BranchActor) GetLatestPromotion(ctx context.Context) string { return a.dto.LatestPromotion }

func (a *BranchActor) Handle(ctx context.Context, cmd BranchCommand, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	_, isCreate := cmd.(BranchCreate)
	if err := a.guard(md, isCreate, a.Exists(ctx), domain.CodeBranchNotFound); err != nil {
		return nil, err
	}

	switch c := cmd.(type) {
	case BranchCreate:
		return a.handleCreate(ctx, c, md)
	case BranchSetName:
		return a.handleSetName(ctx, c, md)
	case BranchRebase:
		return a.handleRebase(ctx, c, md)
	case BranchEnableReferenceType:
		return a.handleEnable(ctx, c, md)
	case BranchNewReference:
		return a.handleNewReference(ctx, c, md)
	case BranchRemoveReference:
		if err := a.apply(ctx, evBranchRefRemoved, BranchReferenceRemoved{ReferenceID: c.ReferenceID}, md, true); err != nil {
			return nil, err
		}
		return a.result(evBranchRefRemoved).With("referenceId", c.ReferenceID), nil
	case BranchDeleteLogical:
		return a.handleDeleteLogical(ctx, c, md)
	case BranchUndelete:
		if !a.IsDeleted(ctx) {
			return nil, domain.NewError(domain.KindPreconditionFailed, domain.CodeNotLogicallyDeleted)
		}
		if err := a.cancelDeletion(ctx); err != nil {
			return nil, err
		}
		if err := a.apply(ctx, evBranchUndeleted, BranchUndeleted{}, md, true); err != nil {
			return nil, err
		}
		return a.result(evBranchUndeleted), nil
	case BranchDeletePhysical:
		return a.deletePhysical(ctx, c.Reason, md)
	default:
		return nil, domain.WrapInternal(fmt.Errorf("unknown branch command %T", cmd))
	}
}

func (a *BranchActor) handleCreate(ctx context.Context, c BranchCreate, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	if err := domain.ValidateName(c.Name); err != nil {
		return nil, err
	}
	// A repository's branch names are unique at any instant.
	if other, bound, err := a.ctx.Branches.ResolveName(c.RepositoryID, c.Name); err != nil {
		return nil, domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	} else if bound && other != a.id {
		return nil, domain.NewError(domain.KindConflict, domain.CodeNameAlreadyExists)
	}

	flags := DefaultBranchFlags()
	if c.Flags != nil {
		flags = *c.Flags
	}
	ev := BranchCreated{
		BranchID:       a.id,
		RepositoryID:   c.RepositoryID,
		ParentBranchID: c.ParentBranchID,
		Name:           c.Name,
		BasedOn:        c.BasedOn,
		Flags:          flags,
	}
	if err := a.apply(ctx, evBranchCreated, ev, md, true); err != nil {
		return nil, err
	}
	if err := a.ctx.Branches.Put(c.RepositoryID, a.id, c.Name); err != nil {
		a.logger.Warn("branch index write failed", logpkg.Err(err))
	}
	a.ctx.Cache.SetExists(branchCacheKey(a.id))
	return a.result(evBranchCreated), nil
}

func (a *BranchActor) handleSetName(ctx context.Context, c BranchSetName, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	if err := domain.ValidateName(c.Name); err != nil {
		return nil, err
	}
	if other, bound, err := a.ctx.Branches.ResolveName(a.dto.RepositoryID, c.Name); err != nil {
		return nil, domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	} else if bound && other != a.id {
		return nil, domain.NewError(domain.KindConflict, domain.CodeNameAlreadyExists)
	}
	oldName := a.dto.Name
	if err := a.apply(ctx, evBranchNameSet, BranchNameSet{Name: c.Name}, md, true); err != nil {
		return nil, err
	}
	if err := a.ctx.Branches.Rename(a.dto.RepositoryID, a.id, oldName, c.Name); err != nil {
		a.logger.Warn("branch rename index update failed", logpkg.Err(err))
	}
	return a.result(evBranchNameSet), nil
}

// handleRebase bases this branch on a promotion reference of the parent:
// a Rebase reference is minted carrying the promotion's directory version,
// hash, and text, and BasedOn moves to the promotion. Latest* pointers
// stay untouched.
func (a *BranchActor) handleRebase(ctx context.Context, c BranchRebase, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	promoAddr := actor.Address{Kind: actor.KindReference, ID: c.ReferenceID}
	promo, err := actor.Call(ctx, a.ctx.Host, promoAddr, "Get",
		func(ctx context.Context, ra *ReferenceActor) (ReferenceDto, error) {
			if !ra.Exists(ctx) {
				return ReferenceDto{}, domain.NewError(domain.KindNotFound, domain.CodeReferenceNotFound)
			}
			return ra.Get(ctx), nil
		})
	if err != nil {
		if derr, ok := err.(*domain.Error); ok {
			return nil, derr
		}
		return nil, domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}

	rebaseID := uuid.NewString()
	refAddr := actor.Address{Kind: actor.KindReference, ID: rebaseID}
	create := ReferenceCreate{
		RepositoryID:       a.dto.RepositoryID,
		BranchID:           a.id,
		DirectoryVersionID: promo.DirectoryVersionID,
		Sha256Hash:         promo.Sha256Hash,
		Type:               domain.ReferenceRebase,
		Text:               promo.Text,
	}
	if _, cerr := actor.Call(ctx, a.ctx.Host, refAddr, "Create",
		func(ctx context.Context, ra *ReferenceActor) (*domain.CommandResult, error) {
			res, derr := ra.Handle(ctx, create, md.Derive("reference/"+rebaseID))
			if derr != nil {
				return nil, derr
			}
			return res, nil
		}); cerr != nil {
		if derr, ok := cerr.(*domain.Error); ok {
			return nil, derr
		}
		return nil, domain.WrapDependency(domain.CodeStateStoreUnavailable, cerr)
	}

	if err := a.apply(ctx, evBranchRebased, BranchRebased{ReferenceID: c.ReferenceID}, md, true); err != nil {
		return nil, err
	}
	return a.result(evBranchRebased).
		With("referenceId", rebaseID).
		With("basedOn", c.ReferenceID), nil
}

func (a *BranchActor) handleEnable(ctx context.Context, c BranchEnableReferenceType, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	switch c.ReferenceKind {
	case RefKindAssign, RefKindPromotion, RefKindCommit, RefKindCheckpoint,
		RefKindSave, RefKindTag, RefKindExternal, RefKindAutoRebase:
	default:
		return nil, domain.NewErrorf(domain.KindValidation, domain.CodeInvalidReferenceType, "kind %q", c.ReferenceKind)
	}
	ev := BranchReferenceTypeEnabledSet{ReferenceKind: c.ReferenceKind, Enabled: c.Enabled}
	if err := a.apply(ctx, evBranchRefEnabledSet, ev, md, true); err != nil {
		return nil, err
	}
	return a.result(evBranchRefEnabledSet), nil
}

// pointerEvent maps a reference type to the branch's snapshot event name.
func pointerEvent(rtype domain.ReferenceType) string {
	switch rtype {
	case domain.ReferencePromotion:
		return evBranchPromoted
	case domain.ReferenceCommit:
		return evBranchCommitted
	case domain.ReferenceCheckpoint:
		return evBranchCheckpointed
	case domain.ReferenceSave:
		return evBranchSaved
	case domain.ReferenceTag:
		return evBranchTagged
	case domain.ReferenceExternal:
		return evBranchExternalCreated
	default:
		return evBranchAssigned
	}
}

func (a *BranchActor) refTypeEnabled(rtype domain.ReferenceType) *domain.Error {
	f := a.dto.Flags
	switch rtype {
	case domain.ReferencePromotion:
		if !f.Promotion {
			return domain.NewError(domain.KindPreconditionFailed, domain.CodePromotionIsDisabled)
		}
	case domain.ReferenceCommit:
		if !f.Commit {
			return domain.NewError(domain.KindPreconditionFailed, domain.CodeCommitIsDisabled)
		}
	case domain.ReferenceCheckpoint:
		if !f.Checkpoint {
			return domain.NewError(domain.KindPreconditionFailed, domain.CodeCheckpointIsDisabled)
		}
	case domain.ReferenceSave:
		if !f.Save {
			return domain.NewError(domain.KindPreconditionFailed, domain.CodeSaveIsDisabled)
		}
	case domain.ReferenceTag:
		if !f.Tag {
			return domain.NewError(domain.KindPreconditionFailed, domain.CodeTagIsDisabled)
		}
	case domain.ReferenceExternal:
		if !f.External {
			return domain.NewError(domain.KindPreconditionFailed, domain.CodeExternalIsDisabled)
		}
	case domain.ReferenceRebase:
		// Rebase references are produced by the rebase path only.
	default:
		if !f.Assign {
			return domain.NewError(domain.KindPreconditionFailed, domain.CodeAssignIsDisabled)
		}
	}
	return nil
}

// handleNewReference mints a reference id, creates the reference actor,
// and on success applies the branch's own pointer event in memory only;
// the reference actor already published the authoritative event.
func (a *BranchActor) handleNewReference(ctx context.Context, c BranchNewReference, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	if err := a.refTypeEnabled(c.Type); err != nil {
		return nil, err
	}

	refID := uuid.NewString()
	refAddr := actor.Address{Kind: actor.KindReference, ID: refID}
	create := ReferenceCreate{
		RepositoryID:       a.dto.RepositoryID,
		BranchID:           a.id,
		DirectoryVersionID: c.DirectoryVersionID,
		Sha256Hash:         c.Sha256Hash,
		Type:               c.Type,
		Text:               c.Text,
	}
	if _, cerr := actor.Call(ctx, a.ctx.Host, refAddr, "Create",
		func(ctx context.Context, ra *ReferenceActor) (*domain.CommandResult, error) {
			res, derr := ra.Handle(ctx, create, md.Derive("reference/"+refID))
			if derr != nil {
				return nil, derr
			}
			return res, nil
		}); cerr != nil {
		if derr, ok := cerr.(*domain.Error); ok {
			return nil, derr
		}
		return nil, domain.WrapDependency(domain.CodeStateStoreUnavailable, cerr)
	}

	evName := pointerEvent(c.Type)
	ev := BranchReferencePointed{ReferenceID: refID, Type: c.Type}
	if err := a.apply(ctx, evName, ev, md, false); err != nil {
		return nil, err
	}
	return a.result(evName).With("referenceId", refID), nil
}

func (a *BranchActor) handleDeleteLogical(ctx context.Context, c BranchDeleteLogical, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	if a.IsDeleted(ctx) {
		return nil, domain.NewError(domain.KindConflict, domain.CodeWrongLifecycleState)
	}
	refs, err := a.ctx.Refs.ListByBranch(a.id, 0)
	if err != nil {
		return nil, domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}
	if len(refs) > 0 && !c.Force {
		return nil, domain.NewError(domain.KindPreconditionFailed, domain.CodeBranchNotEmpty)
	}

	if err := a.apply(ctx, evBranchLogicalDeleted, BranchLogicalDeleted{Reason: c.Reason}, md, true); err != nil {
		return nil, err
	}

	// Each reference schedules its own physical deletion.
	for _, r := range refs {
		childMD := md.Derive("reference/" + r.ReferenceID)
		addr := actor.Address{Kind: actor.KindReference, ID: r.ReferenceID}
		if _, cerr := actor.Call(ctx, a.ctx.Host, addr, "DeleteLogical",
			func(ctx context.Context, ra *ReferenceActor) (*domain.CommandResult, error) {
				res, derr := ra.Handle(ctx, ReferenceDeleteLogical{Reason: c.Reason}, childMD)
				if derr != nil {
					return nil, derr
				}
				return res, nil
			}); cerr != nil {
			a.logger.Error("reference cascade delete failed",
				logpkg.Str("reference", r.ReferenceID), logpkg.Err(cerr))
		}
	}

	policy := a.retentionFor(a.dto.RepositoryID)
	payload := reminders.DeletionPayload{
		RepositoryID:  a.dto.RepositoryID,
		BranchID:      a.id,
		DeleteReason:  c.Reason,
		CorrelationID: md.CorrelationID,
	}
	if err := a.scheduleDeletion(ctx, payload, domain.DaysToDuration(policy.LogicalDeleteDays)); err != nil {
		return nil, err
	}
	return a.result(evBranchLogicalDeleted), nil
}

// deletePhysical removes remaining references first (a branch may only be
// physically deleted after its references are gone or co-deleted), then
// wipes the branch itself.
func (a *BranchActor) deletePhysical(ctx context.Context, reason string, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	refs, err := a.ctx.Refs.ListByBranch(a.id, 0)
	if err != nil {
		return nil, domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}
	for _, r := range refs {
		childMD := md.Derive("reference/" + r.ReferenceID)
		addr := actor.Address{Kind: actor.KindReference, ID: r.ReferenceID}
		if _, cerr := actor.Call(ctx, a.ctx.Host, addr, "DeletePhysical",
			func(ctx context.Context, ra *ReferenceActor) (*domain.CommandResult, error) {
				res, derr := ra.Handle(ctx, ReferenceDeletePhysical{Reason: reason}, childMD)
				if derr != nil {
					return nil, derr
				}
				return res, nil
			}); cerr != nil {
			a.logger.Error("reference cascade physical delete failed",
				logpkg.Str("reference", r.ReferenceID), logpkg.Err(cerr))
		}
	}

	repoID, name := a.dto.RepositoryID, a.dto.Name
	if err := a.cancelDeletion(ctx); err != nil {
		a.logger.Warn("reminder cancel during physical delete failed", logpkg.Err(err))
	}
	if err := a.wipe(ctx); err != nil {
		return nil, err
	}
	if repoID != "" {
		if err := a.ctx.Branches.Remove(repoID, a.id, name); err != nil {
			a.logger.Warn("branch index remove failed", logpkg.Err(err))
		}
	}
	a.ctx.Cache.SetDoesNotExist(branchCacheKey(a.id))
	a.publishOnly(ctx, evBranchPhysicalDeleted, BranchPhysicalDeleted{Reason: reason}, md)
	a.dto = BranchDto{}
	a.logger.Info("branch physically deleted", logpkg.Str("reason", reason))
	return a.result(evBranchPhysicalDeleted), nil
}

// ReceiveReminder handles the physical-deletion timer.
func (a *BranchActor) ReceiveReminder(ctx context.Context, name string, payload []byte, due time.Time, period time.Duration) error {
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

// apply folds and appends one event. persist=false keeps the record in
// memory only (latest-pointer snapshots).
func (a *BranchActor) apply(ctx context.Context, eventType string, event interface{}, md domain.EventMetadata, persist bool) *domain.Error {
	raw, err := json.Marshal(event)
	if err != nil {
		return domain.WrapInternal(err)
	}
	if err := a.fold(envelopeRecord{Tag: eventType, Event: raw, Metadata: md}); err != nil {
		return domain.WrapInternal(err)
	}
	return a.appendEvent(ctx, eventType, event, md, persist)
}

func (a *BranchActor) result(eventType string) *domain.CommandResult {
	return domain.NewResult(eventType).
		With("branchId", a.id).
		With("repositoryId", a.dto.RepositoryID)
}

func branchCacheKey(id string) string { return "branch/" + id }
