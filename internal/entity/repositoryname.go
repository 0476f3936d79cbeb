package entity

import (
	"context"
	"fmt"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/statestore"
)

// RepositoryNameActor is the lookup actor backing repository name
// resolution. Its id is the composite key
// "{repo-name}|{owner-id}|{organization-id}" and its state is a single
// repository id, set by whoever created or renamed the repository.
type RepositoryNameActor struct {
	id    string
	ctx   *Ctx
	repo  string
	found bool
}

// RepositoryNameKey builds the actor id for a repository name lookup.
func RepositoryNameKey(repoName, ownerID, organizationID string) string {
	return repoName + "|" + ownerID + "|" + organizationID
}

const repositoryIDKey = "repositoryId"

// NewRepositoryNameActor is the host factory for name-index actors.
func NewRepositoryNameActor(ctx *Ctx) actor.Factory {
	return func(id string) actor.Actor {
		return &RepositoryNameActor{id: id, ctx: ctx}
	}
}

func (a *RepositoryNameActor) stateID() statestore.ActorID {
	return statestore.ActorID{Kind: string(actor.KindRepositoryName), ID: a.id}
}

// Activate loads the cached repository id, if one was ever set.
func (a *RepositoryNameActor) Activate(ctx context.Context) error {
	raw, found, err := a.ctx.Store.Retrieve(ctx, a.stateID(), repositoryIDKey)
	if err != nil {
		return fmt.Errorf("load repository name binding: %w", err)
	}
	a.repo, a.found = string(raw), found
	return nil
}

// GetRepositoryID returns the bound repository id, if any.
func (a *RepositoryNameActor) GetRepositoryID(ctx context.Context) (string, bool) {
	return a.repo, a.found
}

// SetRepositoryID binds the name to a repository id.
func (a *RepositoryNameActor) SetRepositoryID(ctx context.Context, repositoryID string) error {
	if err := a.ctx.Store.Save(ctx, a.stateID(), repositoryIDKey, []byte(repositoryID)); err != nil {
		return fmt.Errorf("bind repository name: %w", err)
	}
	a.repo, a.found = repositoryID, true
	return nil
}

// ClearRepositoryID drops the binding (repository renamed away or
// physically deleted).
func (a *RepositoryNameActor) ClearRepositoryID(ctx context.Context) error {
	if _, err := a.ctx.Store.Delete(ctx, a.stateID(), repositoryIDKey); err != nil {
		return fmt.Errorf("clear repository name: %w", err)
	}
	a.repo, a.found = "", false
	return nil
}
