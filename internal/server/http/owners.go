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

// validateOptionalID checks a client-supplied UUID string when present.
func validateOptionalID(id string) pipeline.Validation {
	return func(ctx context.Context) *domain.Error {
		if id == "" {
			return nil
		}
		_, err := domain.ParseID(id)
		return err
	}
}

func validateName(name string) pipeline.Validation {
	return func(ctx context.Context) *domain.Error {
		return domain.ValidateName(name)
	}
}

type ownerCreateReq struct {
	CorrelationID    string `json:"correlationId"`
	OwnerID          string `json:"ownerId"`
	OwnerName        string `json:"ownerName"`
	OwnerType        string `json:"ownerType"`
	Description      string `json:"description"`
	SearchVisibility string `json:"searchVisibility"`
}

func (s *Server) handleOwnerCreate(w http.ResponseWriter, r *http.Request) {
	var req ownerCreateReq
	if !decode(w, r, &req) {
		return
	}
	// Create uses the client-supplied id verbatim; mint one when absent.
	if req.OwnerID == "" {
		req.OwnerID = uuid.NewString()
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations: []pipeline.Validation{
			validateOptionalID(req.OwnerID),
			validateName(req.OwnerName),
		},
		Dispatch: func(ctx context.Context, _ resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.ownerHandle(ctx, req.OwnerID, entity.OwnerCreate{
				Name:             req.OwnerName,
				Type:             req.OwnerType,
				Description:      req.Description,
				SearchVisibility: req.SearchVisibility,
			}, req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}

type ownerMutateReq struct {
	CorrelationID string `json:"correlationId"`
	OwnerID       string `json:"ownerId"`
	OwnerName     string `json:"ownerName"`
	NewName       string `json:"newName"`
	DeleteReason  string `json:"deleteReason"`
	Force         bool   `json:"force"`
}

func (s *Server) ownerResolve(req ownerMutateReq) func(ctx context.Context, r *resolver.Resolver) (resolver.Resolved, *domain.Error) {
	return func(ctx context.Context, r *resolver.Resolver) (resolver.Resolved, *domain.Error) {
		return r.Resolve(ctx, resolver.Path{OwnerID: req.OwnerID, OwnerName: req.OwnerName})
	}
}

func (s *Server) ownerHandle(ctx context.Context, ownerID string, cmd entity.OwnerCommand, correlationID string) (*domain.CommandResult, *domain.Error) {
	addr := actor.Address{Kind: actor.KindOwner, ID: ownerID}
	res, err := actor.Call(ctx, s.rt.Host(), addr, "Handle",
		func(ctx context.Context, a *entity.OwnerActor) (*domain.CommandResult, error) {
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

func (s *Server) handleOwnerSetName(w http.ResponseWriter, r *http.Request) {
	var req ownerMutateReq
	if !decode(w, r, &req) {
		return
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations: []pipeline.Validation{
			validateOptionalID(req.OwnerID),
			validateName(req.NewName),
		},
		Resolve: s.ownerResolve(req),
		Dispatch: func(ctx context.Context, resolved resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.ownerHandle(ctx, resolved.OwnerID, entity.OwnerSetName{Name: req.NewName}, req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}

func (s *Server) handleOwnerDelete(w http.ResponseWriter, r *http.Request) {
	var req ownerMutateReq
	if !decode(w, r, &req) {
		return
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations:   []pipeline.Validation{validateOptionalID(req.OwnerID)},
		Resolve:       s.ownerResolve(req),
		Dispatch: func(ctx context.Context, resolved resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.ownerHandle(ctx, resolved.OwnerID, entity.OwnerDeleteLogical{Reason: req.DeleteReason, Force: req.Force}, req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}

func (s *Server) handleOwnerUndelete(w http.ResponseWriter, r *http.Request) {
	var req ownerMutateReq
	if !decode(w, r, &req) {
		return
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations:   []pipeline.Validation{validateOptionalID(req.OwnerID)},
		Resolve:       s.ownerResolve(req),
		Dispatch: func(ctx context.Context, resolved resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.ownerHandle(ctx, resolved.OwnerID, entity.OwnerUndelete{}, req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}

func (s *Server) handleOwnerGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ownerMutateReq{
		CorrelationID: q.Get("correlationId"),
		OwnerID:       q.Get("ownerId"),
		OwnerName:     q.Get("ownerName"),
	}
	resp := s.runner.Query(r.Context(), pipeline.QueryRequest{
		CorrelationID: req.CorrelationID,
		Validations:   []pipeline.Validation{validateOptionalID(req.OwnerID)},
		MaxCountLimit: s.rt.Config().QueryMaxCountLimit,
		Resolve:       s.ownerResolve(req),
		Fetch: func(ctx context.Context, resolved resolver.Resolved, _ int) (interface{}, *domain.Error) {
			addr := actor.Address{Kind: actor.KindOwner, ID: resolved.OwnerID}
			dto, err := actor.Call(ctx, s.rt.Host(), addr, "Get",
				func(ctx context.Context, a *entity.OwnerActor) (entity.OwnerDto, error) {
					if !a.Exists(ctx) {
						return entity.OwnerDto{}, domain.NewError(domain.KindNotFound, domain.CodeOwnerNotFound)
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
