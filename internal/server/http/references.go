package httpserver

import (
	"context"
	"net/http"

	"github.com/TorratDev/Grace/internal/actor"
	"github.com/TorratDev/Grace/internal/domain"
	"github.com/TorratDev/Grace/internal/entity"
	"github.com/TorratDev/Grace/internal/pipeline"
	"github.com/TorratDev/Grace/internal/resolver"
)

type referenceReq struct {
	CorrelationID string `json:"correlationId"`
	ReferenceID   string `json:"referenceId"`
	DeleteReason  string `json:"deleteReason"`
}

func (s *Server) referenceHandle(ctx context.Context, refID string, cmd entity.ReferenceCommand, correlationID string) (*domain.CommandResult, *domain.Error) {
	addr := actor.Address{Kind: actor.KindReference, ID: refID}
	res, err := actor.Call(ctx, s.rt.Host(), addr, "Handle",
		func(ctx context.Context, a *entity.ReferenceActor) (*domain.CommandResult, error) {
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

func (s *Server) handleReferenceGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := referenceReq{
		CorrelationID: q.Get("correlationId"),
		ReferenceID:   q.Get("referenceId"),
	}
	resp := s.runner.Query(r.Context(), pipeline.QueryRequest{
		CorrelationID: req.CorrelationID,
		Validations:   []pipeline.Validation{validateOptionalID(req.ReferenceID)},
		MaxCountLimit: s.rt.Config().QueryMaxCountLimit,
		Fetch: func(ctx context.Context, _ resolver.Resolved, _ int) (interface{}, *domain.Error) {
			addr := actor.Address{Kind: actor.KindReference, ID: req.ReferenceID}
			dto, err := actor.Call(ctx, s.rt.Host(), addr, "Get",
				func(ctx context.Context, a *entity.ReferenceActor) (entity.ReferenceDto, error) {
					if !a.Exists(ctx) {
						return entity.ReferenceDto{}, domain.NewError(domain.KindNotFound, domain.CodeReferenceNotFound)
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

func (s *Server) handleReferenceDelete(w http.ResponseWriter, r *http.Request) {
	var req referenceReq
	if !decode(w, r, &req) {
		return
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations:   []pipeline.Validation{validateOptionalID(req.ReferenceID)},
		Dispatch: func(ctx context.Context, _ resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.referenceHandle(ctx, req.ReferenceID, entity.ReferenceDeleteLogical{Reason: req.DeleteReason}, req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}

func (s *Server) handleReferenceUndelete(w http.ResponseWriter, r *http.Request) {
	var req referenceReq
	if !decode(w, r, &req) {
		return
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations:   []pipeline.Validation{validateOptionalID(req.ReferenceID)},
		Dispatch: func(ctx context.Context, _ resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			return s.referenceHandle(ctx, req.ReferenceID, entity.ReferenceUndelete{}, req.CorrelationID)
		},
	})
	writeResponse(w, resp)
}
