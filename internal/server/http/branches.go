package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/domain"
	"github.com/TorratDev/Grace/internal/entity"
	"github.com/TorratDev/Grace/internal/pipeline"
	"github.com/TorratDev/Grace/internal/resolver"
)

type branchCreateReq struct {
	CorrelationID    string                     `json:"correlationId"`
	BranchID         string                     `json:"branchId"`
	OwnerID          string                     `json:"ownerId"`
	OwnerName        string                     `json:"ownerName"`
	OrganizationID   string                     `json:"organizationId"`
	OrganizationName string                     `json:"organizationName"`
	RepositoryID     string                     `json:"repositoryId"`
	RepositoryName   string                     `json:"repositoryName"`
	BranchName       string                     `json:"branchName"`
	ParentBranchID   string                     `json:"parentBranchId"`
	BasedOn          string                     `json:"basedOn"`
	Flags            *entity.BranchEnabledFlags `json:"enabledFlags"`
}

func (s *Server) handleBranchCreate(w http.ResponseWriter, r *http.Request) {
	var req branchCreateReq
	if !decode(w, r, &req) {
		return
	}
	if req.BranchID == "" {
		req.BranchID = uuid.NewString()
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations: []pipeline.Validation{
			validateOptionalID(req.BranchID),
			validateOptionalID(req.RepositoryID),
			validateOptionalID(req.ParentBranchID),
			validateName(req.BranchName),
		},
		Resolve: func(ctx context.Context, r *resolver.Resolver) (resolver.Resolved, *domain.Error) {
			return r.Resolve(ctx, resolver.Path{
				OwnerID:          req.OwnerID,
				OwnerName:        req.OwnerName,
				OrganizationID:   req.OrganizationID,
				OrganizationName: req.OrganizationName,
				RepositoryID:     req.RepositoryID,
				RepositoryName:   req.RepositoryName,
			})
		},
		Dispatch: func(ctx context.Context, resolved resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.branchHandle(ctx, req.BranchID, entity.BranchCreate{
				RepositoryID:   resolved.RepositoryID,
				ParentBranchID: req.ParentBranchID,
				Name:           req.BranchName,
				BasedOn:        req.BasedOn,
				Flags:          req.Flags,
			}, req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}

type branchMutateReq struct {
	CorrelationID      string `json:"correlationId"`
	OwnerID            string `json:"ownerId"`
	OwnerName          string `json:"ownerName"`
	OrganizationID     string `json:"organizationId"`
	OrganizationName   string `json:"organizationName"`
	RepositoryID       string `json:"repositoryId"`
	RepositoryName     string `json:"repositoryName"`
	BranchID           string `json:"branchId"`
	BranchName         string `json:"branchName"`
	NewName            string `json:"newName"`
	ReferenceID        string `json:"referenceId"`
	ReferenceKind      string `json:"referenceKind"`
	Enabled            bool   `json:"enabled"`
	DirectoryVersionID string `json:"directoryVersionId"`
	Sha256Hash         string `json:"sha256Hash"`
	Message            string `json:"message"`
	DeleteReason       string `json:"deleteReason"`
	Force              bool   `json:"force"`
	MaxCount           int    `json:"maxCount"`
}

func (s *Server) branchResolve(req branchMutateReq) func(ctx context.Context, r *resolver.Resolver) (resolver.Resolved, *domain.Error) {
	return func(ctx context.Context, r *resolver.Resolver) (resolver.Resolved, *domain.Error) {
		return r.Resolve(ctx, resolver.Path{
			OwnerID:          req.OwnerID,
			OwnerName:        req.OwnerName,
			OrganizationID:   req.OrganizationID,
			OrganizationName: req.OrganizationName,
			RepositoryID:     req.RepositoryID,
			RepositoryName:   req.RepositoryName,
			BranchID:         req.BranchID,
			BranchName:       req.BranchName,
		})
	}
}

func (s *Server) branchHandle(ctx context.Context, branchID string, cmd entity.BranchCommand, correlationID string) (*domain.CommandResult, *domain.Error) {
	addr := actor.Address{Kind: actor.KindBranch, ID: branchID}
	res, err := actor.Call(ctx, s.rt.Host(), addr, "Handle",
		func(ctx context.Context, a *entity.BranchActor) (*domain.CommandResult, error) {
			out, derr := a.Handle(ctx, cmd, domain.NewMetadata(correlationID))
			if derr != nil {
				return nil, derr
			}
			return out, nil
		})
	if err != nil {
		return nil, pipeline.AsDomainError(err)
	}
	return res, nil
}

func (s *Server) branchCommandEndpoint(w http.ResponseWriter, r *http.Request, build func(req branchMutateReq) entity.BranchCommand, extra ...func(req branchMutateReq) pipeline.Validation) {
	var req branchMutateReq
	if !decode(w, r, &req) {
		return
	}
	validations := []pipeline.Validation{
		validateOptionalID(req.BranchID),
		validateOptionalID(req.RepositoryID),
	}
	for _, e := range extra {
		validations = append(validations, e(req))
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations:   validations,
		Resolve:       s.branchResolve(req),
		Dispatch: func(ctx context.Context, resolved resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.branchHandle(ctx, resolved.BranchID, build(req), req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}

func (s *Server) handleBranchSetName(w http.ResponseWriter, r *http.Request) {
	s.branchCommandEndpoint(w, r,
		func(req branchMutateReq) entity.BranchCommand { return entity.BranchSetName{Name: req.NewName} },
		func(req branchMutateReq) pipeline.Validation { return validateName(req.NewName) },
	)
}

func (s *Server) handleBranchRebase(w http.ResponseWriter, r *http.Request) {
	s.branchCommandEndpoint(w, r,
		func(req branchMutateReq) entity.BranchCommand {
			return entity.BranchRebase{ReferenceID: req.ReferenceID}
		},
		func(req branchMutateReq) pipeline.Validation { return validateOptionalID(req.ReferenceID) },
	)
}

func (s *Server) handleBranchEnableReferenceType(w http.ResponseWriter, r *http.Request) {
	s.branchCommandEndpoint(w, r, func(req branchMutateReq) entity.BranchCommand {
		return entity.BranchEnableReferenceType{ReferenceKind: req.ReferenceKind, Enabled: req.Enabled}
	})
}

// handleBranchReference serves every reference-producing endpoint
// (assign, promote, commit, checkpoint, save, tag, create-external).
func (s *Server) handleBranchReference(refType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rtype, derr := domain.ParseReferenceType(refType)
		if derr != nil {
			writeResponse(w, pipeline.Response{Status: derr.HTTPStatus(), Error: derr.Message(), ErrorCode: string(derr.Code)})
			return
		}
		s.branchCommandEndpoint(w, r,
			func(req branchMutateReq) entity.BranchCommand {
				return entity.BranchNewReference{
					Type:               rtype,
					DirectoryVersionID: req.DirectoryVersionID,
					Sha256Hash:         req.Sha256Hash,
					Text:               req.Message,
				}
			},
			func(req branchMutateReq) pipeline.Validation { return validateOptionalID(req.DirectoryVersionID) },
		)
	}
}

func (s *Server) handleBranchRemoveReference(w http.ResponseWriter, r *http.Request) {
	s.branchCommandEndpoint(w, r,
		func(req branchMutateReq) entity.BranchCommand {
			return entity.BranchRemoveReference{ReferenceID: req.ReferenceID}
		},
		func(req branchMutateReq) pipeline.Validation { return validateOptionalID(req.ReferenceID) },
	)
}

func (s *Server) handleBranchDelete(w http.ResponseWriter, r *http.Request) {
	s.branchCommandEndpoint(w, r, func(req branchMutateReq) entity.BranchCommand {
		return entity.BranchDeleteLogical{Reason: req.DeleteReason, Force: req.Force}
	})
}

func (s *Server) handleBranchUndelete(w http.ResponseWriter, r *http.Request) {
	s.branchCommandEndpoint(w, r, func(req branchMutateReq) entity.BranchCommand {
		return entity.BranchUndelete{}
	})
}

func (s *Server) handleBranchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := branchMutateReq{
		CorrelationID:  q.Get("correlationId"),
		RepositoryID:   q.Get("repositoryId"),
		RepositoryName: q.Get("repositoryName"),
		OwnerID:        q.Get("ownerId"),
		OwnerName:      q.Get("ownerName"),
		OrganizationID: q.Get("organizationId"),
		BranchID:       q.Get("branchId"),
		BranchName:     q.Get("branchName"),
	}
	resp := s.runner.Query(r.Context(), pipeline.QueryRequest{
		CorrelationID: req.CorrelationID,
		Validations:   []pipeline.Validation{validateOptionalID(req.BranchID)},
		MaxCountLimit: s.rt.Config().QueryMaxCountLimit,
		Resolve:       s.branchResolve(req),
		Fetch: func(ctx context.Context, resolved resolver.Resolved, _ int) (interface{}, *domain.Error) {
			addr := actor.Address{Kind: actor.KindBranch, ID: resolved.BranchID}
			dto, err := actor.Call(ctx, s.rt.Host(), addr, "Get",
				func(ctx context.Context, a *entity.BranchActor) (entity.BranchDto, error) {
					if !a.Exists(ctx) {
						return entity.BranchDto{}, domain.NewError(domain.KindNotFound, domain.CodeBranchNotFound)
					}
					return a.Get(ctx), nil
				})
			if err != nil {
				return nil, pipeline.AsDomainError(err)
			}
			return dto, nil
		},
	})
	writeQueryResponse(w, resp)
}

func (s *Server) handleBranchListReferences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := branchMutateReq{
		CorrelationID:  q.Get("correlationId"),
		RepositoryID:   q.Get("repositoryId"),
		RepositoryName: q.Get("repositoryName"),
		OwnerID:        q.Get("ownerId"),
		OwnerName:      q.Get("ownerName"),
		BranchID:       q.Get("branchId"),
		BranchName:     q.Get("branchName"),
	}
	if v := q.Get("maxCount"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.MaxCount = n
		}
	}
	resp := s.runner.Query(r.Context(), pipeline.QueryRequest{
		CorrelationID: req.CorrelationID,
		Validations:   []pipeline.Validation{validateOptionalID(req.BranchID)},
		MaxCount:      req.MaxCount,
		MaxCountLimit: s.rt.Config().QueryMaxCountLimit,
		Resolve:       s.branchResolve(req),
		Fetch: func(ctx context.Context, resolved resolver.Resolved, maxCount int) (interface{}, *domain.Error) {
			entries, err := s.rt.EntityCtx().Refs.ListByBranch(resolved.BranchID, maxCount)
			if err != nil {
				return nil, domain.WrapDependency(domain.CodeStateStoreUnavailable, err)
			}
			return entries, nil
		},
	})
	writeQueryResponse(w, resp)
}
