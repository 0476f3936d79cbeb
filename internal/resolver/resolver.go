package resolver

import (
	"context"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/cache"
	"github.com/TorratDev/Grace/internal/domain"
	"github.com/TorratDev/Grace/internal/entity"
	"github.com/TorratDev/Grace/internal/readmodel"
)

// Resolver resolves admissible mixes of ids and names to canonical ids.
type Resolver struct {
	host     *actor.Host
	cache    *cache.Cache
	names    *readmodel.NameIndex
	branches *readmodel.BranchIndex
}

// New builds a resolver.
func New(host *actor.Host, c *cache.Cache, names *readmodel.NameIndex, branches *readmodel.BranchIndex) *Resolver {
	return &Resolver{host: host, cache: c, names: names, branches: branches}
}

// Resolved carries the canonical ids for a request's path. Fields are
// empty where the level was not part of the request.
type Resolved struct {
	OwnerID        string
	OrganizationID string
	RepositoryID   string
	BranchID       string
}

// Owner resolves an owner by id or name; id wins when both are present.
func (r *Resolver) Owner(ctx context.Context, ownerID, ownerName string) (string, *domain.Error) {
	if ownerID != "" {
		return ownerID, nil
	}
	if ownerName == "" {
		return "", domain.NewError(domain.KindNotFound, domain.CodeOwnerNotFound)
	}
	cacheKey := "resolve/owner/" + ownerName
	if id, ok := r.cache.GetValue(cacheKey); ok {
		return id, nil
	}
	id, found, err := r.names.ResolveOwner(ownerName)
	if err != nil {
		return "", domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}
	if !found {
		return "", domain.NewError(domain.KindNotFound, domain.CodeOwnerNotFound)
	}
	r.cache.PutValue(cacheKey, id)
	return id, nil
}

// Organization resolves an organization under a resolved owner.
func (r *Resolver) Organization(ctx context.Context, ownerID, orgID, orgName string) (string, *domain.Error) {
	if orgID != "" {
		return orgID, nil
	}
	if orgName == "" {
		return "", domain.NewError(domain.KindNotFound, domain.CodeOrganizationNotFound)
	}
	cacheKey := "resolve/org/" + ownerID + "/" + orgName
	if id, ok := r.cache.GetValue(cacheKey); ok {
		return id, nil
	}
	id, found, err := r.names.ResolveOrganization(ownerID, orgName)
	if err != nil {
		return "", domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}
	if !found {
		return "", domain.NewError(domain.KindNotFound, domain.CodeOrganizationNotFound)
	}
	r.cache.PutValue(cacheKey, id)
	return id, nil
}

// Repository resolves a repository by id, or by name through the
// RepositoryName lookup actor keyed {name}|{owner-id}|{org-id}.
func (r *Resolver) Repository(ctx context.Context, ownerID, orgID, repoID, repoName string) (string, *domain.Error) {
	if repoID != "" {
		return repoID, nil
	}
	if repoName == "" {
		return "", domain.NewError(domain.KindNotFound, domain.CodeRepositoryNotFound)
	}
	key := entity.RepositoryNameKey(repoName, ownerID, orgID)
	cacheKey := "reponame/" + key
	if id, ok := r.cache.GetValue(cacheKey); ok {
		return id, nil
	}
	addr := actor.Address{Kind: actor.KindRepositoryName, ID: key}
	type lookup struct {
		id    string
		found bool
	}
	res, err := actor.Call(ctx, r.host, addr, "GetRepositoryID",
		func(ctx context.Context, na *entity.RepositoryNameActor) (lookup, error) {
			id, found := na.GetRepositoryID(ctx)
			return lookup{id: id, found: found}, nil
		})
	if err != nil {
		return "", domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}
	if !res.found {
		return "", domain.NewError(domain.KindNotFound, domain.CodeRepositoryNotFound)
	}
	r.cache.PutValue(cacheKey, res.id)
	return res.id, nil
}

// Branch resolves a branch under a resolved repository.
func (r *Resolver) Branch(ctx context.Context, repoID, branchID, branchName string) (string, *domain.Error) {
	if branchID != "" {
		return branchID, nil
	}
	if branchName == "" {
		return "", domain.NewError(domain.KindNotFound, domain.CodeBranchNotFound)
	}
	cacheKey := "resolve/branch/" + repoID + "/" + branchName
	if id, ok := r.cache.GetValue(cacheKey); ok {
		return id, nil
	}
	id, found, err := r.branches.ResolveName(repoID, branchName)
	if err != nil {
		return "", domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
	}
	if !found {
		return "", domain.NewError(domain.KindNotFound, domain.CodeBranchNotFound)
	}
	r.cache.PutValue(cacheKey, id)
	return id, nil
}

// Path specifies an admissible mix of ids and names for resolution.
type Path struct {
	OwnerID          string
	OwnerName        string
	OrganizationID   string
	OrganizationName string
	RepositoryID     string
	RepositoryName   string
	BranchID         string
	BranchName       string
}

// Resolve walks the path from owner down to the deepest level provided.
func (r *Resolver) Resolve(ctx context.Context, p Path) (Resolved, *domain.Error) {
	var out Resolved

	if p.OwnerID != "" || p.OwnerName != "" {
		id, err := r.Owner(ctx, p.OwnerID, p.OwnerName)
		if err != nil {
			return out, err
		}
		out.OwnerID = id
	}
	if p.OrganizationID != "" || p.OrganizationName != "" {
		id, err := r.Organization(ctx, out.OwnerID, p.OrganizationID, p.OrganizationName)
		if err != nil {
			return out, err
		}
		out.OrganizationID = id
	}
	if p.RepositoryID != "" || p.RepositoryName != "" {
		id, err := r.Repository(ctx, out.OwnerID, out.OrganizationID, p.RepositoryID, p.RepositoryName)
		if err != nil {
			return out, err
		}
		out.RepositoryID = id
	}
	if p.BranchID != "" || p.BranchName != "" {
		id, err := r.Branch(ctx, out.RepositoryID, p.BranchID, p.BranchName)
		if err != nil {
			return out, err
		}
		out.BranchID = id
	}
	return out, nil
}
