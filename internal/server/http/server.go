package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/TorratDev/Grace/internal/pipeline"
	"github.com/TorratDev/Grace/internal/runtime"
	logpkg "github.com/TorratDev/Grace/pkg/log"
)

// Server is the JSON HTTP surface over the command pipeline.
type Server struct {
	rt     *runtime.Runtime
	runner *pipeline.Runner
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

// New builds the server and its route table.
func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	mux := http.NewServeMux()
	s := &Server{
		rt:     rt,
		runner: rt.Pipeline(),
		srv:    &http.Server{Handler: cors(mux)},
		logger: logger.With(logpkg.Component("http")),
	}

	mux.HandleFunc("/v1/healthz", s.handleHealth)

	mux.HandleFunc("/v1/owners/create", s.handleOwnerCreate)
	mux.HandleFunc("/v1/owners/set-name", s.handleOwnerSetName)
	mux.HandleFunc("/v1/owners/delete", s.handleOwnerDelete)
	mux.HandleFunc("/v1/owners/undelete", s.handleOwnerUndelete)
	mux.HandleFunc("/v1/owners/get", s.handleOwnerGet)

	mux.HandleFunc("/v1/organizations/create", s.handleOrganizationCreate)
	mux.HandleFunc("/v1/organizations/set-name", s.handleOrganizationSetName)
	mux.HandleFunc("/v1/organizations/delete", s.handleOrganizationDelete)
	mux.HandleFunc("/v1/organizations/undelete", s.handleOrganizationUndelete)
	mux.HandleFunc("/v1/organizations/get", s.handleOrganizationGet)

	mux.HandleFunc("/v1/repositories/create", s.handleRepositoryCreate)
	mux.HandleFunc("/v1/repositories/set-name", s.handleRepositorySetName)
	mux.HandleFunc("/v1/repositories/set-visibility", s.handleRepositorySetVisibility)
	mux.HandleFunc("/v1/repositories/set-record-saves", s.handleRepositorySetRecordSaves)
	mux.HandleFunc("/v1/repositories/set-retention-days", s.handleRepositorySetRetentionDays)
	mux.HandleFunc("/v1/repositories/delete", s.handleRepositoryDelete)
	mux.HandleFunc("/v1/repositories/undelete", s.handleRepositoryUndelete)
	mux.HandleFunc("/v1/repositories/get", s.handleRepositoryGet)

	mux.HandleFunc("/v1/branches/create", s.handleBranchCreate)
	mux.HandleFunc("/v1/branches/set-name", s.handleBranchSetName)
	mux.HandleFunc("/v1/branches/rebase", s.handleBranchRebase)
	mux.HandleFunc("/v1/branches/enable-reference-type", s.handleBranchEnableReferenceType)
	mux.HandleFunc("/v1/branches/assign", s.handleBranchReference("Assign"))
	mux.HandleFunc("/v1/branches/promote", s.handleBranchReference("Promotion"))
	mux.HandleFunc("/v1/branches/commit", s.handleBranchReference("Commit"))
	mux.HandleFunc("/v1/branches/checkpoint", s.handleBranchReference("Checkpoint"))
	mux.HandleFunc("/v1/branches/save", s.handleBranchReference("Save"))
	mux.HandleFunc("/v1/branches/tag", s.handleBranchReference("Tag"))
	mux.HandleFunc("/v1/branches/create-external", s.handleBranchReference("External"))
	mux.HandleFunc("/v1/branches/remove-reference", s.handleBranchRemoveReference)
	mux.HandleFunc("/v1/branches/delete", s.handleBranchDelete)
	mux.HandleFunc("/v1/branches/undelete", s.handleBranchUndelete)
	mux.HandleFunc("/v1/branches/get", s.handleBranchGet)
	mux.HandleFunc("/v1/branches/list-references", s.handleBranchListReferences)

	mux.HandleFunc("/v1/references/get", s.handleReferenceGet)
	mux.HandleFunc("/v1/references/delete", s.handleReferenceDelete)
	mux.HandleFunc("/v1/references/undelete", s.handleReferenceUndelete)

	mux.HandleFunc("/v1/directory-versions/create", s.handleDirectoryVersionCreate)
	mux.HandleFunc("/v1/directory-versions/get", s.handleDirectoryVersionGet)

	return s
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_serving"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// decode parses a POST JSON body into req, writing a 400/405 on failure.
func decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

func writeResponse(w http.ResponseWriter, resp pipeline.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeQueryResponse(w http.ResponseWriter, resp pipeline.QueryResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_ = json.NewEncoder(w).Encode(resp)
}
