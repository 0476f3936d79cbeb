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
)

// directoryVersionNamespace seeds the deterministic actor id derivation;
// (repository-id, sha256) must land on the same actor every time.
var directoryVersionNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// DirectoryVersionID derives the content-addressed actor id for a
// directory version from its repository and hash.
func DirectoryVersionID(repositoryID, sha256Hash string) string {
	return uuid.NewSHA1(directoryVersionNamespace, []byte(repositoryID+":"+sha256Hash)).String()
}

// FileEntry describes one file captured in a directory version.
type FileEntry struct {
	Path       string `json:"relativePath"`
	Sha256Hash string `json:"sha256Hash"`
	Size       int64  `json:"size"`
}

// DirectoryVersionDto is the directory-version read-model.
type DirectoryVersionDto struct {
	ID           string      `json:"directoryVersionId"`
	RepositoryID string      `json:"repositoryId"`
	Sha256Hash   string      `json:"sha256Hash"`
	RelativePath string      `json:"relativePath"`
	Files        []FileEntry `json:"files"`
	Size         int64       `json:"size"`
	Children     []string    `json:"directories"`
	CreatedAt    time.Time   `json:"createdAt"`
}

type DirectoryVersionCreated struct {
	DirectoryVersionID string      `json:"directoryVersionId"`
	RepositoryID       string      `json:"repositoryId"`
	Sha256Hash         string      `json:"sha256Hash"`
	RelativePath       string      `json:"relativePath"`
	Files              []FileEntry `json:"files"`
	Size               int64       `json:"size"`
	Children           []string    `json:"directories"`
}

type DirectoryVersionPhysicalDeleted struct {
	Reason string `json:"deleteReason"`
}

const (
	evDirCreated         = "DirectoryVersionCreated"
	evDirPhysicalDeleted = "DirectoryVersionPhysicalDeleted"
)

type DirectoryVersionCommand interface{ directoryVersionCommand() }

type DirectoryVersionCreate struct {
	RepositoryID string
	Sha256Hash   string
	RelativePath string
	Files        []FileEntry
	Size         int64
	Children     []string
}

type DirectoryVersionDeletePhysical struct{ Reason string }

func (DirectoryVersionCreate) directoryVersionCommand()         {}
func (DirectoryVersionDeletePhysical) directoryVersionCommand() {}

// DirectoryVersionActor caches one content-addressed directory snapshot.
type DirectoryVersionActor struct {
	base
	dto DirectoryVersionDto
}

// NewDirectoryVersionActor is the host factory for directory-version
// actors.
func NewDirectoryVersionActor(ctx *Ctx) actor.Factory {
	return func(id string) actor.Actor {
		return &DirectoryVersionActor{base: newBase(id, actor.KindDirectoryVersion, eventbus.TagDirectoryVersionEvent, ctx)}
	}
}

func (a *DirectoryVersionActor) Activate(ctx context.Context) error {
	recs, err := a.loadRecords(ctx)
	if err != nil {
		return err
	}
	a.recs = recs
	a.dto = DirectoryVersionDto{}
	for _, rec := range recs {
		if err := a.fold(rec); err != nil {
			return err
		}
	}
	a.disposed = false
	return nil
}

func (a *DirectoryVersionActor) fold(rec envelopeRecord) error {
	switch rec.Tag {
	case evDirCreated:
		var ev DirectoryVersionCreated
		if err := json.Unmarshal(rec.Event, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Tag, err)
		}
		a.dto = DirectoryVersionDto{
			ID:           ev.DirectoryVersionID,
			RepositoryID: ev.RepositoryID,
			Sha256Hash:   ev.Sha256Hash,
			RelativePath: ev.RelativePath,
			Files:        ev.Files,
			Size:         ev.Size,
			Children:     ev.Children,
			CreatedAt:    rec.Metadata.Timestamp,
		}
	}
	return nil
}

func (a *DirectoryVersionActor) Exists(ctx context.Context) bool { return a.dto.ID != "" }

func (a *DirectoryVersionActor) Get(ctx context.Context) DirectoryVersionDto { return a.dto }

func (a *DirectoryVersionActor) Handle(ctx context.Context, cmd DirectoryVersionCommand, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	_, isCreate := cmd.(DirectoryVersionCreate)
	if err := a.guard(md, isCreate, a.Exists(ctx), domain.CodeDirectoryVersionNotFound); err != nil {
		return nil, err
	}

	switch c := cmd.(type) {
	case DirectoryVersionCreate:
		// The declared aggregate size must equal the sum of file sizes.
		var sum int64
		for _, f := range c.Files {
			sum += f.Size
		}
		if sum != c.Size {
			return nil, domain.NewErrorf(domain.KindIntegrity, domain.CodeSizeMismatch, "declared %d, files sum %d", c.Size, sum)
		}
		ev := DirectoryVersionCreated{
			DirectoryVersionID: a.id,
			RepositoryID:       c.RepositoryID,
			Sha256Hash:         c.Sha256Hash,
			RelativePath:       c.RelativePath,
			Files:              c.Files,
			Size:               c.Size,
			Children:           c.Children,
		}
		if err := a.apply(ctx, evDirCreated, ev, md); err != nil {
			return nil, err
		}
		a.ctx.Cache.SetExists(directoryVersionCacheKey(c.RepositoryID, c.Sha256Hash))

		// The cached snapshot expires on the repository's retention window.
		policy := a.retentionFor(c.RepositoryID)
		if policy.DirectoryVersionCacheDays > 0 {
			payload := reminders.DeletionPayload{
				RepositoryID:  c.RepositoryID,
				DeleteReason:  "cache-expiry",
				CorrelationID: md.CorrelationID,
			}
			if err := a.scheduleDeletion(ctx, payload, domain.DaysToDuration(policy.DirectoryVersionCacheDays)); err != nil {
				return nil, err
			}
		}
		return a.result(evDirCreated), nil

	case DirectoryVersionDeletePhysical:
		return a.deletePhysical(ctx, c.Reason, md)

	default:
		return nil, domain.WrapInternal(fmt.Errorf("unknown directory version command %T", cmd))
	}
}

func (a *DirectoryVersionActor) apply(ctx context.Context, eventType string, event interface{}, md domain.EventMetadata) *domain.Error {
	raw, err := json.Marshal(event)
	if err != nil {
		return domain.WrapInternal(err)
	}
	if err := a.fold(envelopeRecord{Tag: eventType, Event: raw, Metadata: md}); err != nil {
		return domain.WrapInternal(err)
	}
	return a.appendEvent(ctx, eventType, event, md, true)
}

func (a *DirectoryVersionActor) deletePhysical(ctx context.Context, reason string, md domain.EventMetadata) (*domain.CommandResult, *domain.Error) {
	repoID, hash := a.dto.RepositoryID, a.dto.Sha256Hash
	if err := a.wipe(ctx); err != nil {
		return nil, err
	}
	if repoID != "" {
		a.ctx.Cache.SetDoesNotExist(directoryVersionCacheKey(repoID, hash))
	}
	a.publishOnly(ctx, evDirPhysicalDeleted, DirectoryVersionPhysicalDeleted{Reason: reason}, md)
	a.dto = DirectoryVersionDto{}
	return a.result(evDirPhysicalDeleted), nil
}

func (a *DirectoryVersionActor) ReceiveReminder(ctx context.Context, name string, payload []byte, due time.Time, period time.Duration) error {
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

func (a *DirectoryVersionActor) result(eventType string) *domain.CommandResult {
	return domain.NewResult(eventType).
		With("directoryVersionId", a.id).
		With("repositoryId", a.dto.RepositoryID)
}

func directoryVersionCacheKey(repoID, sha string) string {
	return "dirversion/" + repoID + "/" + sha
}
