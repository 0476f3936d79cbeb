package httpserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/domain"
	"github.com/TorratDev/Grace/internal/entity"
	"github.com/TorratDev/Grace/internal/pipeline"
	"github.com/TorratDev/Grace/internal/resolver"
)

type organizationCreateReq struct {
	CorrelationID    string `json:"correlationId"`
	OrganizationID   string `json:"organizationId"`
	OwnerID          string `json:"ownerId"`
	OwnerName        string `json:"ownerName"`
	OrganizationName string `json:"organizationName"`
	OrganizationType string `json:"organizationType"`
	Visibility       string `json:"searchVisibility"`
}

func (s *Server) handleOrganizationCreate(w http.ResponseWriter, r *http.Request) {
	var req organizationCreateReq
	if !decode(w, r, &req) {
		return
	}
	if req.OrganizationID == "" {
		req.OrganizationID = uuid.NewString()
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations: []pipeline.Validation{
			validateOptionalID(req.OrganizationID),
			validateOptionalID(req.OwnerID),
			validateName(req.OrganizationName),
		},
		Resolve: func(ctx context.Context, r *resolver.Resolver) (resolver.Resolved, *domain.Error) {
			return r.Resolve(ctx, resolver.Path{OwnerID: req.OwnerID, OwnerName: req.OwnerName})
		},
		Dispatch: func(ctx context.Context, resolved resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.organizationHandle(ctx, req.OrganizationID, entity.OrganizationCreate{
				OwnerID:    resolved.OwnerID,
				Name:       req.OrganizationName,
				Type:       req.OrganizationType,
				Visibility: req.Visibility,
			}, req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}

type organizationMutateReq struct {
	CorrelationID    string `json:"correlationId"`
	OwnerID          string `json:"ownerId"`
	OwnerName        string `json:"ownerName"`
	OrganizationID   string `json:"organizationId"`
	OrganizationName string `json:"organizationName"`
	NewName          string `json:"newName"`
	DeleteReason     string `json:"deleteReason"`
	Force            bool   `json:"force"`
}

func (s *Server) organizationResolve(req organizationMutateReq) func(ctx context.Context, r *resolver.Resolver) (resolver.Resolved, *domain.Error) {
	return func(ctx context.Context, r *resolver.Resolver) (resolver.Resolved, *domain.Error) {
		return r.Resolve(ctx, resolver.Path{
			OwnerID:          req.OwnerID,
			OwnerName:        req.OwnerName,
			OrganizationID:   req.OrganizationID,
			OrganizationName: req.OrganizationName,
		})
	}
}

func (s *Server) organizationHandle(ctx context.Context, orgID string, cmd entity.OrganizationCommand, correlationID string) (*domain.CommandResult, *domain.Error) {
	addr := actor.Address{Kind: actor.KindOrganization, ID: orgID}
	res, err := actor.Call(ctx, s.rt.Host(), addr, "Handle",
		func(ctx context.Context, a *entity.OrganizationActor) (*domain.CommandResult, error) {
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

func (s *Server) handleOrganizationSetName(w http.ResponseWriter, r *http.Request) {
	var req organizationMutateReq
	if !decode(w, r, &req) {
		return
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations: []pipeline.Validation{
			validateOptionalID(req.OrganizationID),
			validateName(req.NewName),
		},
		Resolve: s.organizationResolve(req),
		Dispatch: func(ctx context.Context, resolved resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.organizationHandle(ctx, resolved.OrganizationID, entity.OrganizationSetName{Name: req.NewName}, req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}

func (s *Server) handleOrganizationDelete(w http.ResponseWriter, r *http.Request) {
	var req organizationMutateReq
	if !decode(w, r, &req) {
		return
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations:   []pipeline.Validation{validateOptionalID(req.OrganizationID)},
		Resolve:       s.organizationResolve(req),
		Dispatch: func(ctx context.Context, resolved resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.organizationHandle(ctx, resolved.OrganizationID, entity.OrganizationDeleteLogical{Reason: req.DeleteReason, Force: req.Force}, req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}

func (s *Server) handleOrganizationUndelete(w http.ResponseWriter, r *http.Request) {
	var req organizationMutateReq
	if !decode(w, r, &req) {
		return
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations:   []pipeline.Validation{validateOptionalID(req.OrganizationID)},
		Resolve:       s.organizationResolve(req),
		Dispatch: func(ctx context.Context, resolved resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.organizationHandle(ctx, resolved.OrganizationID, entity.OrganizationUndelete{}, req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}

func (s *Server) handleOrganizationGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := organizationMutateReq{
		CorrelationID:    q.Get("correlationId"),
		OwnerID:          q.Get("ownerId"),
		OwnerName:        q.Get("ownerName"),
		OrganizationID:   q.Get("organizationId"),
		OrganizationName: q.Get("organizationName"),
	}
	resp := s.runner.Query(r.Context(), pipeline.QueryRequest{
		CorrelationID: req.CorrelationID,
		Validations:   []pipeline.Validation{validateOptionalID(req.OrganizationID)},
		MaxCountLimit: s.rt.Config().QueryMaxCountLimit,
		Resolve:       s.organizationResolve(req),
		Fetch: func(ctx context.Context, resolved resolver.Resolved, _ int) (interface{}, *domain.Error) {
			addr := actor.Address{Kind: actor.KindOrganization, ID: resolved.OrganizationID}
			dto, err := actor.Call(ctx, s.rt.Host(), addr, "Get",
				func(ctx context.Context, a *entity.OrganizationActor) (entity.OrganizationDto, error) {
					if !a.Exists(ctx) {
						return entity.OrganizationDto{}, domain.NewError(domain.KindNotFound, domain.CodeOrganizationNotFound)
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
