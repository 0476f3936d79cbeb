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

// ReferenceDto is the reference read-model. A reference is immutable
// once created apart from (un)deletion.
type ReferenceDto struct {
	ID                 string               `json:"referenceId"`
	RepositoryID       string               `json:"repositoryId"`
	BranchID           string               `json:"branchId"`
	DirectoryVersionID string               `json:"directoryId"`
	Sha256Hash         string               `json:"sha256Hash"`
	Type               domain.ReferenceType `json:"referenceType"`
	Text               string               `json:"referenceText"`
	CreatedAt          time.Time            `json:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
	DeletedAt          *time.Time           `json:"deletedAt,omitempty"`
	DeleteReason       string               `json:"deleteReason,omitempty"`
}

type ReferenceCreated struct {
	ReferenceID        string               `json:"referenceId"`
	RepositoryID       string               `json:"repositoryId"`
	BranchID           string               `json:"branchId"`
	DirectoryVersionID string               `json:"directoryId"`
	Sha256Hash         string               `json:"sha256Hash"`
	Type               domain.ReferenceType `json:"referenceType"`
	Text               string               `json:"referenceText"`
}

type ReferenceLogicalDeleted struct {
	Reason string `json:"deleteReason"`
}

type ReferencePhysicalDeleted struct {
	Reason string `json:"deleteReason"`
}

type ReferenceUndeleted struct{}

const (
	evRefCreated         = "ReferenceCreated"
	evRefLogicalDeleted  = "ReferenceLogicalDeleted"
	evRefPhysicalDeleted = "ReferencePhysicalDeleted"
	evRefUndeleted       = "ReferenceUndeleted"
)

type ReferenceCommand interface{ referenceCommand() }

type ReferenceCreate struct {
	RepositoryID       string
	BranchID           string
	DirectoryVersionID string
	Sha256Hash         string
	Type               domain.ReferenceType
	Text               string
}

type ReferenceDeleteLogical struct {
	Reason string
}

type ReferenceDeletePhysical struct {
	Reason string
}

type ReferenceUndelete struct{}

func (ReferenceCreate) referenceCommand()         {}
func (ReferenceDeleteLogical) referenceCommand()  {}
func (ReferenceDeletePhysical) referenceCommand() {}
func (ReferenceUndelete) referenceCommand()       {}

// ReferenceActor serializes all mutations of one reference.
type ReferenceActor struct {
	base
	dto ReferenceDto
}

// NewReferenceActor is the host factory for reference actors.
func NewReferenceActor(ctx *Ctx) actor.Factory {
	return func(id string) actor.Actor {
		return &ReferenceActor{base: newBase(id, actor.KindReference, eventbus.TagReferenceEvent, ctx)}
	}
}

func (a *ReferenceActor) Activate(ctx context.Context) error {
	recs, err := a.loadRecords(ctx)
	if err != nil {
		return err
	}
	a.recs = recs
	a.dto = ReferenceDto{}
	for _, rec := range recs {
		if err := a.fold(rec); err != nil {
			return err
		}
	}
	a.disposed = false
	return nil
}

func (a *ReferenceActor) fold(rec envelopeRecord) error {
	switch rec.Tag {
	case evRefCreated:
		var ev ReferenceCreated
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto = ReferenceDto{
			ID:                 ev.ReferenceID,
			RepositoryID:       ev.RepositoryID,
			BranchID:           ev.BranchID,
			DirectoryVersionID: ev.DirectoryVersionID,
			Sha256Hash:         ev.Sha256Hash,
			Type:               ev.Type,
			Text:               ev.Text,
			CreatedAt:          rec.Metadata.Timestamp,
			UpdatedAt:          rec.Metadata.Timestamp,
		}
	case evRefLogicalDeleted:
		var ev ReferenceLogicalDeleted
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		ts := rec.Metadata.Timestamp
		a.dto.DeletedAt = &ts
		a.dto.DeleteReason = ev.Reason
		a.dto.UpdatedAt = ts
	case evRefUndeleted:
		a.dto.DeletedAt = nil
		a.dto.DeleteReason = ""
		a.dto.UpdatedAt = rec.Metadata.Timestamp
	}
	return nil
}

func (a *ReferenceActor) Exists(ctx context.Context) bool      { return a.dto.ID != "" }
func (a *ReferenceActor) IsDeleted(ctx context.Context) bool   { return a.dto.DeletedAt != nil }
func (a *ReferenceActor) Get(ctx context.Context) ReferenceDto { return a.dto }

// GetReferenceType returns the immutable reference type.
func (a *ReferenceActor) GetReferenceType(ctx context.Context) domain.ReferenceType {
	return a.dto.Type
}

func (a *ReferenceActor) Handle(ctx context.Context, cmd ReferenceCommand, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	_, isCreate := cmd.(ReferenceCreate)
	if err := a.guard(md, isCreate, a.Exists(ctx), domain.CodeReferenceNotFound); err != nil {
		return nil, err
	}

	switch c := cmd.(type) {
	case ReferenceCreate:
		ev := ReferenceCreated{
			ReferenceID:        a.id,
			RepositoryID:       c.RepositoryID,
			BranchID:           c.BranchID,
			DirectoryVersionID: c.DirectoryVersionID,
			Sha256Hash:         c.Sha256Hash,
			Type:               c.Type,
			Text:               c.Text,
		}
		if err := a.apply(ctx, evRefCreated, ev, md); err != nil {
			return nil, err
		}
		if err := a.ctx.Refs.Put(c.BranchID, c.Type, a.dto.CreatedAt.UnixMilli(), a.id); err != nil {
			a.logger.Warn("reference index write failed", logpkg.Err(err))
		}

		// Saves and checkpoints expire on the repository's retention
		// windows; the reminder performs the physical deletion.
		switch c.Type {
		case domain.ReferenceSave, domain.ReferenceCheckpoint:
			policy := a.retentionFor(c.RepositoryID)
			days := policy.SaveDays
			if c.Type == domain.ReferenceCheckpoint {
				days = policy.CheckpointDays
			}
			payload := reminders.DeletionPayload{
				RepositoryID:  c.RepositoryID,
				BranchID:      c.BranchID,
				DeleteReason:  "retention",
				CorrelationID: md.CorrelationID,
			}
			if err := a.scheduleDeletion(ctx, payload, domain.DaysToDuration(days)); err != nil {
				return nil, err
			}
		}
		return a.result(evRefCreated), nil

	case ReferenceDeleteLogical:
		if a.IsDeleted(ctx) {
			return nil, domain.NewError(domain.KindConflict, domain.CodeWrongLifecycleState)
		}
		if err := a.apply(ctx, evRefLogicalDeleted, ReferenceLogicalDeleted{Reason: c.Reason}, md); err != nil {
			return nil, err
		}
		policy := a.retentionFor(a.dto.RepositoryID)
		payload := reminders.DeletionPayload{
			RepositoryID:  a.dto.RepositoryID,
			BranchID:      a.dto.BranchID,
			DeleteReason:  c.Reason,
			CorrelationID: md.CorrelationID,
		}
		if err := a.scheduleDeletion(ctx, payload, domain.DaysToDuration(policy.LogicalDeleteDays)); err != nil {
			return nil, err
		}
		return a.result(evRefLogicalDeleted), nil

	case ReferenceUndelete:
		if !a.IsDeleted(ctx) {
			return nil, domain.NewError(domain.KindPreconditionFailed, domain.CodeNotLogicallyDeleted)
		}
		if err := a.cancelDeletion(ctx); err != nil {
			return nil, err
		}
		if err := a.apply(ctx, evRefUndeleted, ReferenceUndeleted{}, md); err != nil {
			return nil, err
		}
		return a.result(evRefUndeleted), nil

	case ReferenceDeletePhysical:
		return a.deletePhysical(ctx, c.Reason, md)

	default:
		return nil, domain.WrapInternal(fmt.Errorf("unknown reference command %T", cmd))
	}
}

func (a *ReferenceActor) apply(ctx context.Context, eventType string, event interface{}, md domain.EventMetadata) *domain.Error {
	raw, err := json.Marshal(event)
	if err != nil {
		return domain.WrapInternal(err)
	}
	if err := a.fold(envelopeRecord{Tag: eventType, Event: raw, Metadata: md}); err != nil {
		return domain.WrapInternal(err)
	}
	return a.appendEvent(ctx, eventType, event, md, true)
}

func (a *ReferenceActor) deletePhysical(ctx context.Context, reason string, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	branchID, rtype, createdAt := a.dto.BranchID, a.dto.Type, a.dto.CreatedAt.UnixMilli()
	// A pending retention or logical-delete reminder is now moot.
	if err := a.cancelDeletion(ctx); err != nil {
		a.logger.Warn("reminder cancel during physical delete failed", logpkg.Err(err))
	}
	if err := a.wipe(ctx); err != nil {
		return nil, err
	}
	if branchID != "" {
		if err := a.ctx.Refs.Remove(branchID, rtype, createdAt, a.id); err != nil {
			a.logger.Warn("reference index remove failed", logpkg.Err(err))
		}
	}
	a.ctx.Cache.SetDoesNotExist(referenceCacheKey(a.id))
	a.publishOnly(ctx, evRefPhysicalDeleted, ReferencePhysicalDeleted{Reason: reason}, md)
	a.dto = ReferenceDto{}
	a.logger.Info("reference physically deleted", logpkg.Str("reason", reason))
	return a.result(evRefPhysicalDeleted), nil
}

// ReceiveReminder deletes the reference's event log, clears in-memory
// state, and poisons the instance so the next call reactivates clean.
func (a *ReferenceActor) ReceiveReminder(ctx context.Context, name string, payload []byte, due time.Time, period time.Duration) error {
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

func (a *ReferenceActor) result(eventType string) *domain.CommandResult {
	return domain.NewResult(eventType).
		With("referenceId", a.id).
		With("branchId", a.dto.BranchID).
		With("repositoryId", a.dto.RepositoryID)
}

func referenceCacheKey(id string) string { return "reference/" + id }
