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

type directoryVersionCreateReq struct {
	CorrelationID string             `json:"correlationId"`
	RepositoryID  string             `json:"repositoryId"`
	Sha256Hash    string             `json:"sha256Hash"`
	RelativePath  string             `json:"relativePath"`
	Files         []entity.FileEntry `json:"files"`
	Size          int64              `json:"size"`
	Children      []string           `json:"directories"`
}

func (s *Server) handleDirectoryVersionCreate(w http.ResponseWriter, r *http.Request) {
	var req directoryVersionCreateReq
	if !decode(w, r, &req) {
		return
	}
	resp := s.runner.Execute(r.Context(), pipeline.CommandRequest{
		CorrelationID: req.CorrelationID,
		Validations: []pipeline.Validation{
			validateOptionalID(req.RepositoryID),
			func(ctx context.Context) *domain.Error {
				if req.Sha256Hash == "" {
					return domain.NewErrorf(domain.KindValidation, domain.CodeShaMismatch, "sha256Hash is required")
				}
				return nil
			},
		},
		Dispatch: func(ctx context.Context, _ resolver.Resolved) (*domain.CommandResult, *domain.Error) {
			dvID := entity.DirectoryVersionID(req.RepositoryID, req.Sha256Hash)
			addr := actor.Address{Kind: actor.KindDirectoryVersion, ID: dvID}
			res, err := actor.Call(ctx, s.rt.Host(), addr, "Handle",
				func(ctx context.Context, a *entity.DirectoryVersionActor) (*domain.CommandResult, error) {
					out, derr := a.Handle(ctx, entity.DirectoryVersionCreate{
						RepositoryID: req.RepositoryID,
						Sha256Hash:   req.Sha256Hash,
						RelativePath: req.RelativePath,
						Files:        req.Files,
						Size:         req.Size,
						Children:     req.Children,
					}, domain.NewMetadata(req.CorrelationID))
					if derr != nil {
						return nil, derr
					}
					return out, nil
				})
			if err != nil {
				return nil, pipeline.AsDomainError(err)
			}
			return res, nil
		},
	})
	writeResponse(w, resp)
}

func (s *Server) handleDirectoryVersionGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	correlationID := q.Get("correlationId")
	repoID := q.Get("repositoryId")
	sha := q.Get("sha256Hash")
	resp := s.runner.Query(r.Context(), pipeline.QueryRequest{
		CorrelationID: correlationID,
		Validations:   []pipeline.Validation{validateOptionalID(repoID)},
		MaxCountLimit: s.rt.Config().QueryMaxCountLimit,
		Fetch: func(ctx context.Context, _ resolver.Resolved, _ int) (interface{}, *domain.Error) {
			dvID := entity.DirectoryVersionID(repoID, sha)
			addr := actor.Address{Kind: actor.KindDirectoryVersion, ID: dvID}
			dto, err := actor.Call(ctx, s.rt.Host(), addr, "Get",
				func(ctx context.Context, a *entity.DirectoryVersionActor) (entity.DirectoryVersionDto, error) {
					if !a.Exists(ctx) {
						return entity.DirectoryVersionDto{}, domain.NewError(domain.KindNotFound, domain.CodeDirectoryVersionNotFound)
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
