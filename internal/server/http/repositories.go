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

type repositoryCreateReq struct {
	CorrelationID           string                  `json:"correlationId"`
	RepositoryID            string                  `json:"repositoryId"`
	OwnerID                 string                  `json:"ownerId"`
	OwnerName               string                  `json:"ownerName"`
	OrganizationID          string                  `json:"organizationId"`
	OrganizationName        string                  `json:"organizationName"`
	RepositoryName          string                  `json:"repositoryName"`
	Visibility              string                  `json:"repositoryVisibility"`
	Status                  string                  `json:"repositoryStatus"`
	DefaultServerAPIVersion string                  `json:"defaultServerApiVersion"`
	RecordSaves             bool                    `json:"recordSaves"`
	Retention               *domain.RetentionPolicy `json:"retention"`
}

func (s *Server) handleRepositoryCreate(w http.ResponseWriter, r *http.Request) {
	var req repositoryCreateReq
	if !decode(w, r, &req) {
		return
	}
	if req.RepositoryID == "" {
		req.RepositoryID = uuid.NewString()
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations: []pipeline.Validation{
			validateOptionalID(req.RepositoryID),
			validateOptionalID(req.OwnerID),
			validateOptionalID(req.OrganizationID),
			validateName(req.RepositoryName),
		},
		Resolve: func(ctx context.Context, r *resolver.Resolver) (resolver.Resolved, *domain.Error) {
			return r.Resolve(ctx, resolver.Path{
				OwnerID:          req.OwnerID,
				OwnerName:        req.OwnerName,
				OrganizationID:   req.OrganizationID,
				OrganizationName: req.OrganizationName,
			})
		},
		Dispatch: func(ctx context.Context, resolved resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.repositoryHandle(ctx, req.RepositoryID, entity.RepositoryCreate{
				OwnerID:                 resolved.OwnerID,
				OrganizationID:          resolved.OrganizationID,
				Name:                    req.RepositoryName,
				Visibility:              req.Visibility,
				Status:                  req.Status,
				DefaultServerAPIVersion: req.DefaultServerAPIVersion,
				RecordSaves:             req.RecordSaves,
				Retention:               req.Retention,
			}, req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}

type repositoryMutateReq struct {
	CorrelationID    string  `json:"correlationId"`
	OwnerID          string  `json:"ownerId"`
	OwnerName        string  `json:"ownerName"`
	OrganizationID   string  `json:"organizationId"`
	OrganizationName string  `json:"organizationName"`
	RepositoryID     string  `json:"repositoryId"`
	RepositoryName   string  `json:"repositoryName"`
	NewName          string  `json:"newName"`
	Visibility       string  `json:"repositoryVisibility"`
	RecordSaves      bool    `json:"recordSaves"`
	RetentionWindow  string  `json:"retentionWindow"`
	RetentionDays    float64 `json:"retentionDays"`
	DeleteReason     string  `json:"deleteReason"`
	Force            bool    `json:"force"`
}

func (s *Server) repositoryResolve(req repositoryMutateReq) func(ctx context.Context, r *resolver.Resolver) (resolver.Resolved, *domain.Error) {
	return func(ctx context.Context, r *resolver.Resolver) (resolver.Resolved, *domain.Error) {
		return r.Resolve(ctx, resolver.Path{
			OwnerID:          req.OwnerID,
			OwnerName:        req.OwnerName,
			OrganizationID:   req.OrganizationID,
			OrganizationName: req.OrganizationName,
			RepositoryID:     req.RepositoryID,
			RepositoryName:   req.RepositoryName,
		})
	}
}

func (s *Server) repositoryHandle(ctx context.Context, repoID string, cmd entity.RepositoryCommand, correlationID string) (*domain.CommandResult, *domain.Error) {
	addr := actor.Address{Kind: actor.KindRepository, ID: repoID}
	res, err := actor.Call(ctx, s.rt.Host(), addr, "Handle",
		func(ctx context.Context, a *entity.RepositoryActor) (*domain.CommandResult, error) {
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

func (s *Server) repositoryCommandEndpoint(w http.ResponseWriter, r *http.Request, build func(req repositoryMutateReq) entity.RepositoryCommand, extra ...func(req repositoryMutateReq) pipeline.Validation) {
	var req repositoryMutateReq
	if !decode(w, r, &req) {
		return
	}
	validations := []pipeline.Validation{
		validateOptionalID(req.RepositoryID),
		validateOptionalID(req.OwnerID),
		validateOptionalID(req.OrganizationID),
	}
	for _, e := range extra {
		validations = append(validations, e(req))
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations:   validations,
		Resolve:       s.repositoryResolve(req),
		Dispatch: func(ctx context.Context, resolved resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.repositoryHandle(ctx, resolved.RepositoryID, build(req), req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}

func (s *Server) handleRepositorySetName(w http.ResponseWriter, r *http.Request) {
	s.repositoryCommandEndpoint(w, r,
		func(req repositoryMutateReq) entity.RepositoryCommand {
			return entity.RepositorySetName{Name: req.NewName}
		},
		func(req repositoryMutateReq) pipeline.Validation { return validateName(req.NewName) },
	)
}

func (s *Server) handleRepositorySetVisibility(w http.ResponseWriter, r *http.Request) {
	s.repositoryCommandEndpoint(w, r, func(req repositoryMutateReq) entity.RepositoryCommand {
		return entity.RepositorySetVisibility{Visibility: req.Visibility}
	})
}

func (s *Server) handleRepositorySetRecordSaves(w http.ResponseWriter, r *http.Request) {
	s.repositoryCommandEndpoint(w, r, func(req repositoryMutateReq) entity.RepositoryCommand {
		return entity.RepositorySetRecordSaves{RecordSaves: req.RecordSaves}
	})
}

func (s *Server) handleRepositorySetRetentionDays(w http.ResponseWriter, r *http.Request) {
	s.repositoryCommandEndpoint(w, r, func(req repositoryMutateReq) entity.RepositoryCommand {
		return entity.RepositorySetRetentionDays{Window: req.RetentionWindow, Days: req.RetentionDays}
	})
}

func (s *Server) handleRepositoryDelete(w http.ResponseWriter, r *http.Request) {
	s.repositoryCommandEndpoint(w, r, func(req repositoryMutateReq) entity.RepositoryCommand {
		return entity.RepositoryDeleteLogical{Reason: req.DeleteReason, Force: req.Force}
	})
}

func (s *Server) handleRepositoryUndelete(w http.ResponseWriter, r *http.Request) {
	s.repositoryCommandEndpoint(w, r, func(req repositoryMutateReq) entity.RepositoryCommand {
		return entity.RepositoryUndelete{}
	})
}

func (s *Server) handleRepositoryGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := repositoryMutateReq{
		CorrelationID:    q.Get("correlationId"),
		OwnerID:          q.Get("ownerId"),
		OwnerName:        q.Get("ownerName"),
		OrganizationID:   q.Get("organizationId"),
		OrganizationName: q.Get("organizationName"),
		RepositoryID:     q.Get("repositoryId"),
		RepositoryName:   q.Get("repositoryName"),
	}
	resp := s.runner.Query(r.Context(), pipeline.QueryRequest{
		CorrelationID: req.CorrelationID,
		Validations:   []pipeline.Validation{validateOptionalID(req.RepositoryID)},
		MaxCountLimit: s.rt.Config().QueryMaxCountLimit,
		Resolve:       s.repositoryResolve(req),
		Fetch: func(ctx context.Context, resolved resolver.Resolved, _ int) (interface{}, *domain.Error) {
			addr := actor.Address{Kind: actor.KindRepository, ID: resolved.RepositoryID}
			dto, err := actor.Call(ctx, s.rt.Host(), addr, "Get",
				func(ctx context.Context, a *entity.RepositoryActor) (entity.RepositoryDto, error) {
					if !a.Exists(ctx) {
						return entity.RepositoryDto{}, domain.NewError(domain.KindNotFound, domain.CodeRepositoryNotFound)
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
