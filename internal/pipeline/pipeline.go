package pipeline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/TorratDev/Grace/internal/domain"
	"github.com/TorratDev/Grace/internal/resolver"
	logpkg "github.com/TorratDev/Grace/pkg/log"
)

// Runner executes command and query requests against entity actors.
type Runner struct {
	resolver *resolver.Resolver
	logger   logpkg.Logger
}

// New builds a runner.
func New(res *resolver.Resolver, logger logpkg.Logger) *Runner {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &Runner{resolver: res, logger: logger.With(logpkg.Component("pipeline"))}
}

// Response is the transport-agnostic outcome of a pipeline run.
type Response struct {
	Status        int                   `json:"-"`
	ReturnValue   *domain.CommandResult `json:"returnValue,omitempty"`
	Error         string                `json:"error,omitempty"`
	ErrorCode     string                `json:"errorCode,omitempty"`
	CorrelationID string                `json:"correlationId"`
	Properties    map[string]string     `json:"properties,omitempty"`
}

// CommandRequest parameterizes one mutating endpoint run.
type CommandRequest struct {
	CorrelationID string
	Validations   []Validation

	// Resolve maps names to canonical ids. Optional; a nil Resolve skips
	// resolution (Create commands use the client-supplied id verbatim).
	Resolve func(ctx context.Context, r *resolver.Resolver) (resolver.Resolved, *domain.Error)

	// Dispatch builds and applies the command against the target actor.
	Dispatch func(ctx context.Context, resolved resolver.Resolved) (*domain.CommandResult, *domain.Error)
}

// Execute runs the full command pipeline: metadata check, concurrent
// validations, resolution, dispatch, and reply shaping.
func (r *Runner) Execute(ctx context.Context, req CommandRequest) Response {
	md := domain.EventMetadata{CorrelationID: req.CorrelationID, Timestamp: time.Now().UTC()}
	if err := md.Validate(); err != nil {
		return r.failure(req.CorrelationID, nil, err)
	}
	ctx = domain.WithCorrelation(ctx, req.CorrelationID)

	started := time.Now()
	if err := RunAll(ctx, req.Validations); err != nil {
		return r.failure(req.CorrelationID, nil, err)
	}

	var resolved resolver.Resolved
	if req.Resolve != nil {
		var derr *domain.Error
		resolved, derr = req.Resolve(ctx, r.resolver)
		if derr != nil {
			return r.failure(req.CorrelationID, &resolved, derr)
		}
	}

	result, derr := req.Dispatch(ctx, resolved)
	if derr != nil {
		return r.failure(req.CorrelationID, &resolved, derr)
	}

	props := enrich(result.Properties, resolved)
	r.logger.Debug("command complete",
		logpkg.Correlation(req.CorrelationID),
		logpkg.Str("eventType", result.EventType),
		logpkg.Duration("took", time.Since(started)))
	return Response{
		Status:        http.StatusOK,
		ReturnValue:   result,
		CorrelationID: req.CorrelationID,
		Properties:    props,
	}
}

// QueryRequest parameterizes one read-only endpoint run.
type QueryRequest struct {
	CorrelationID string
	Validations   []Validation
	MaxCount      int
	MaxCountLimit int

	Resolve func(ctx context.Context, r *resolver.Resolver) (resolver.Resolved, *domain.Error)
	Fetch   func(ctx context.Context, resolved resolver.Resolved, maxCount int) (interface{}, *domain.Error)
}

// QueryResponse is the outcome of a query run.
type QueryResponse struct {
	Status        int               `json:"-"`
	ReturnValue   interface{}       `json:"returnValue,omitempty"`
	Error         string            `json:"error,omitempty"`
	ErrorCode     string            `json:"errorCode,omitempty"`
	CorrelationID string            `json:"correlationId"`
	Properties    map[string]string `json:"properties,omitempty"`
}

// Query runs the read-only pipeline, bounded by maxCount.
func (r *Runner) Query(ctx context.Context, req QueryRequest) QueryResponse {
	limit := req.MaxCountLimit
	if limit <= 0 {
		limit = 1000
	}
	if req.MaxCount <= 0 {
		req.MaxCount = limit
	}
	if req.MaxCount > limit {
		err := domain.NewError(domain.KindValidation, domain.CodeMaxCountOutOfRange)
		return QueryResponse{
			Status:        err.HTTPStatus(),
			Error:         err.Message(),
			ErrorCode:     string(err.Code),
			CorrelationID: req.CorrelationID,
		}
	}
	ctx = domain.WithCorrelation(ctx, req.CorrelationID)

	if err := RunAll(ctx, req.Validations); err != nil {
		return QueryResponse{
			Status:        err.HTTPStatus(),
			Error:         err.Message(),
			ErrorCode:     string(err.Code),
			CorrelationID: req.CorrelationID,
		}
	}

	var resolved resolver.Resolved
	if req.Resolve != nil {
		var derr *domain.Error
		resolved, derr = req.Resolve(ctx, r.resolver)
		if derr != nil {
			return QueryResponse{
				Status:        derr.HTTPStatus(),
				Error:         derr.Message(),
				ErrorCode:     string(derr.Code),
				CorrelationID: req.CorrelationID,
				Properties:    enrich(nil, resolved),
			}
		}
	}

	value, derr := req.Fetch(ctx, resolved, req.MaxCount)
	if derr != nil {
		return QueryResponse{
			Status:        derr.HTTPStatus(),
			Error:         derr.Message(),
			ErrorCode:     string(derr.Code),
			CorrelationID: req.CorrelationID,
			Properties:    enrich(nil, resolved),
		}
	}
	return QueryResponse{
		Status:        http.StatusOK,
		ReturnValue:   value,
		CorrelationID: req.CorrelationID,
		Properties:    enrich(nil, resolved),
	}
}

// AsDomainError normalizes any error into the taxonomy.
func AsDomainError(err error) *domain.Error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return derr
	}
	return domain.WrapInternal(err)
}

func (r *Runner) failure(correlationID string, resolved *resolver.Resolved, derr *domain.Error) Response {
	var props map[string]string
	if resolved != nil {
		props = enrich(nil, *resolved)
	}
	if derr.Kind == domain.KindDependencyFailure || derr.Kind == domain.KindInternal {
		r.logger.Error("command failed",
			logpkg.Correlation(correlationID),
			logpkg.Str("code", string(derr.Code)),
			logpkg.Err(derr))
	}
	return Response{
		Status:        derr.HTTPStatus(),
		Error:         derr.Message(),
		ErrorCode:     string(derr.Code),
		CorrelationID: correlationID,
		Properties:    props,
	}
}

// enrich merges resolved ancestor ids into the reply property bag.
func enrich(props map[string]string, resolved resolver.Resolved) map[string]string {
	out := map[string]string{}
	for k, v := range props {
		out[k] = v
	}
	if resolved.OwnerID != "" {
		out["ownerId"] = resolved.OwnerID
	}
	if resolved.OrganizationID != "" {
		out["organizationId"] = resolved.OrganizationID
	}
	if resolved.RepositoryID != "" {
		out["repositoryId"] = resolved.RepositoryID
	}
	if resolved.BranchID != "" {
		out["branchId"] = resolved.BranchID
	}
	return out
}
